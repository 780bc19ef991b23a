package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "vibe",
		Usage:   "Stream music from Jamendo, YouTube, Spotify and local files",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.GetConfigPath(),
				Sources: cli.EnvVars("VIBE_CONFIG"),
			},
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
