// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// runCommand reconciles one settings file (or all of them) against
// upstream feeds
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Add each source's new videos to the target playlist",
		UsageText: "playfeed run [options] <file|all>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Skip recording the run in the history database",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress per-video progress output",
			},
		},
		Action: r.Run,
	}
}

// createCommand seeds a new settings file from the template
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a settings file for a new auto-adder",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Display name for the auto-adder",
			},
			&cli.StringFlag{
				Name:     "target",
				Aliases:  []string{"t"},
				Usage:    "Target playlist ID or URL that videos are added to",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "selector",
				Aliases: []string{"s"},
				Usage:   "Default selector for sources (all_videos, full_videos_only, livestreams_only, shorts_only, new_entries_from_the_top)",
				Value:   "all_videos",
			},
		},
		Action: r.Create,
	}
}

// listCommand enumerates the configured auto-adders
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List configured auto-adders",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.List,
	}
}

// historyCommand inspects recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent reconciliation runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show the videos added during one run",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// authCommand handles Google OAuth credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage YouTube API credentials",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Google using OAuth2 and store the token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a stored token is present and fresh",
				Action: r.AuthStatus,
			},
		},
	}
}
