package library

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/audio"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// defaultWorkers bounds concurrent tag reads during a scan
const defaultWorkers = 4

// Scanner walks directories and reads audio files on a bounded worker pool
type Scanner struct {
	workers int
	read    readFunc
}

// NewScanner creates a scanner running up to workers reads at once
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Scanner{workers: workers, read: readTrack}
}

// Scan reads every supported file under paths and hands each track to add,
// which may be called from several goroutines. Unreadable entries do not
// stop the scan; they are returned together as ScanErrors.
func (s *Scanner) Scan(ctx context.Context, paths []string, add func(*api.Track)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var (
		mu   sync.Mutex
		errs []error
	)
	report := func(path string, err error) {
		mu.Lock()
		errs = append(errs, &playerrors.ScanError{Path: path, Err: err})
		mu.Unlock()
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				report(path, err)
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !audio.IsSupported(path) {
				return nil
			}

			g.Go(func() error {
				track, err := s.read(path)
				if err != nil {
					report(path, err)
					return nil
				}
				add(track)
				return nil
			})
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			report(root, err)
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// ScanFile reads a single file
func (s *Scanner) ScanFile(path string) (*api.Track, error) {
	if !audio.IsSupported(path) {
		return nil, playerrors.ErrInvalidFormat
	}
	return s.read(path)
}
