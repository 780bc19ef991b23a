package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// maxRemoteSize bounds how much of a remote stream is buffered for seeking
var maxRemoteSize int64 = 64 << 20

// SupportedFormats returns list of supported audio formats
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

// IsSupported checks if a file format is supported
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FormatFromContentType maps an audio MIME type to a file extension, or ""
func FormatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ".wav"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	default:
		return ""
	}
}

// DecodeAudio decodes an audio stream; hint is a file path or extension
func DecodeAudio(r io.ReadSeekCloser, hint string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(hint))
	if ext == "" && strings.HasPrefix(hint, ".") {
		ext = strings.ToLower(hint)
	}

	switch ext {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", playerrors.ErrInvalidFormat, ext)
	}
}

// openMedia opens a local path or an http(s) URL and returns a seekable
// reader plus a format hint.
func openMedia(ctx context.Context, client *http.Client, location string) (io.ReadSeekCloser, string, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		f, err := os.Open(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, "", err
		}
		return f, location, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &playerrors.UpstreamError{Source: u.Host, Status: resp.StatusCode, Detail: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > maxRemoteSize {
		return nil, "", fmt.Errorf("%w: media exceeds %d bytes", playerrors.ErrInvalidInput, maxRemoteSize)
	}

	hint := strings.ToLower(path.Ext(u.Path))
	if !IsSupported(hint) {
		hint = FormatFromContentType(resp.Header.Get("Content-Type"))
	}
	return nopCloser{bytes.NewReader(data)}, hint, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
