package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/internal/catalog"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/library"
	"github.com/jscyril/vibestream/internal/shared"
)

// Runner holds the dependencies shared by every command action
type Runner struct {
	config     *config.Config
	configPath string
	catalog    *catalog.Registry
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
// Catalog is normally built from the config; tests inject one.
type RunnerOpts struct {
	Config     *config.Config
	ConfigPath string
	Catalog    *catalog.Registry
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		playCommand, serveCommand, searchCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config named by --config, creating it from the
// template on first run. A config given through RunnerOpts wins unless the
// flag is set explicitly.
func (r *Runner) loadConfig(cmd *cli.Command) (*config.Config, error) {
	if r.config != nil && !cmd.IsSet("config") {
		return r.config, nil
	}

	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}
	if path == "" {
		path = config.GetConfigPath()
	}

	if err := config.LoadEnv(); err != nil {
		r.logger.Warn("failed to load .env", "err", err)
	}

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	shared.SetLogLevel(r.logger, cfg.Log.Level)
	r.config, r.configPath = cfg, path
	return cfg, nil
}

// SetLogger replaces the logger, used by the TUI to log to a file
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadLibrary opens the local library index in the data directory
func (r *Runner) loadLibrary(cfg *config.Config) (*library.Library, string, error) {
	path := filepath.Join(cfg.DataDir, "library.json")
	lib, err := library.LoadLibrary(path)
	if err != nil {
		return nil, path, fmt.Errorf("load library: %w", err)
	}
	return lib, path, nil
}

// registry returns the catalog registry, registering lib as the local
// source when given.
func (r *Runner) registry(cfg *config.Config, lib *library.Library) *catalog.Registry {
	if r.catalog == nil {
		r.catalog = catalog.NewFromConfig(cfg.Catalog, r.httpClient, shared.WithLogger(r.logger, "component", "catalog"))
	}
	if lib != nil {
		r.catalog.Register(lib)
	}
	return r.catalog
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
