package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/catalog"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

type fakeSource struct {
	tracks []*api.Track
	query  string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(_ context.Context, query string, limit int) ([]*api.Track, error) {
	f.query = query
	return f.tracks[:min(limit, len(f.tracks))], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.UserID = "local"
	cfg.Database.Path = filepath.Join(dir, "vibe.db")
	return cfg
}

func newTestRunner(t *testing.T, src catalog.Source) (*Runner, *bytes.Buffer) {
	t.Helper()
	reg := catalog.NewRegistry(0, shared.Discard())
	if src != nil {
		reg.Register(src)
	}
	out := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		Config:  testConfig(t),
		Catalog: reg,
		Logger:  shared.Discard(),
		Output:  out,
	})
	return r, out
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "vibe", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"vibe"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with httpClient keeps it", func(t *testing.T) {
			client := &http.Client{}
			runner := NewRunner(RunnerOpts{HTTPClient: client})
			if runner.httpClient != client {
				t.Error("expected httpClient to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes compact JSON", func(t *testing.T) {
			out := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: out})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got, want := out.String(), `{"key":"value"}`+"\n"; got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})

		t.Run("handles marshal error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})
	})
}

func TestSearchCommand(t *testing.T) {
	tracks := []*api.Track{
		{ID: "j1", Title: "Around the World", Artist: "Daft Punk", Duration: 429 * time.Second, Source: api.SourceJamendo},
		{ID: "j2", Title: "Da Funk", Artist: "Daft Punk", Source: api.SourceJamendo},
	}

	t.Run("prints results", func(t *testing.T) {
		src := &fakeSource{tracks: tracks}
		r, out := newTestRunner(t, src)

		if err := run(t, r, "search", "--source", "fake", "  daft punk "); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if src.query != "daft punk" {
			t.Errorf("query = %q, want trimmed", src.query)
		}

		got := out.String()
		for _, want := range []string{"1. Daft Punk - Around the World (07:09)", "2. Daft Punk - Da Funk", "[jamendo] j1"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("limit and json", func(t *testing.T) {
		r, out := newTestRunner(t, &fakeSource{tracks: tracks})

		if err := run(t, r, "search", "-s", "fake", "-n", "1", "--json", "daft"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		var got []api.Track
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out.String())
		}
		if len(got) != 1 || got[0].ID != "j1" {
			t.Errorf("got %+v, want only j1", got)
		}
	})

	t.Run("no results", func(t *testing.T) {
		r, out := newTestRunner(t, &fakeSource{})

		if err := run(t, r, "search", "-s", "fake", "nothing"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(out.String(), "No results") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("empty query", func(t *testing.T) {
		r, _ := newTestRunner(t, &fakeSource{})

		err := run(t, r, "search", "-s", "fake", "   ")
		if !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		r, _ := newTestRunner(t, &fakeSource{})

		if err := run(t, r, "search", "-s", "nope", "daft"); err == nil {
			t.Error("expected error for unknown source")
		}
	})

	t.Run("record adds history", func(t *testing.T) {
		r, _ := newTestRunner(t, &fakeSource{tracks: tracks})

		if err := run(t, r, "search", "-s", "fake", "--record", "Daft Punk"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		st, err := store.Open(r.config.Database)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer st.Close()

		entries, err := st.ListSearches(context.Background(), "local", "fake", 10)
		if err != nil {
			t.Fatalf("ListSearches failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Query != "daft punk" || entries[0].ResultsCount != 2 {
			t.Errorf("entries = %+v", entries)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("creates config and database", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		r := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.Discard(), Output: &bytes.Buffer{}})
		t.Chdir(dir)

		if err := run(t, r, "setup"); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("config not created: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "data", "vibe.db")); err != nil {
			t.Errorf("database not created: %v", err)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		r, _ := newTestRunner(t, nil)

		if err := run(t, r, "setup", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}

		st, err := store.Open(r.config.Database)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer st.Close()

		if _, err := st.ListFavorites(context.Background(), "local"); err != nil {
			t.Errorf("migrations not reapplied on open: %v", err)
		}
	})
}
