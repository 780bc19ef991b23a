// command definitions
package main

import "github.com/urfave/cli/v3"

// playCommand launches the terminal player
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Open the terminal player",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "scan",
				Usage: "Rescan music_directories before starting",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs here instead of <data_dir>/vibe.log",
			},
		},
		Action: r.Play,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the favorites, history, users and player HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
			&cli.BoolFlag{
				Name:  "no-player",
				Usage: "Do not host a playback controller",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand runs a one-shot catalog search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the music catalogs",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   `Catalog to search, or "all"`,
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Add the query to the configured user's search history",
			},
		},
		Action: r.Search,
	}
}

// setupCommand writes the config file and migrates the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recent migration instead",
			},
		},
		Action: r.Setup,
	}
}
