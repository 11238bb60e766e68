package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/ops"
	"github.com/hpungsan/tinycapture/internal/tui"
	"github.com/hpungsan/tinycapture/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// env and runner may be nil when only help or version output is needed.
func newCLIApp(env *ops.Env, runner *dispatch.Runner) *cli.App {
	app := &cli.App{
		Name:    "tinycapture",
		Usage:   "Queue the URL of the focused tab and export it as JSON",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(env, runner),
			commandCmd(env, runner),
			exportCmd(env, runner),
			importCmd(env, runner),
			clearCmd(env, runner),
			countCmd(env, runner),
			listCmd(env, runner),
			settingsCmd(env, runner),
			serveCmd(env, runner),
			popupCmd(env, runner),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// saveCmd creates the save command: capture a URL, or the focused tab when
// --url is omitted and a DevTools endpoint is configured.
func saveCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Capture a URL into the queue",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "URL to capture (default: the focused tab)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CaptureInput{URL: c.String("url")}
			output, err := dispatch.Run(c.Context, runner, "capture", func(ctx context.Context) (*ops.CaptureOutput, error) {
				return ops.Capture(ctx, env, input)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// commandCmd creates the command command: run a named hotkey command.
func commandCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:      "command",
		Usage:     fmt.Sprintf("Run a hotkey command (%s)", ops.CommandSaveCurrentTab),
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one command name is required"))
			}
			name := c.Args().First()
			output, err := dispatch.Run(c.Context, runner, "command", func(ctx context.Context) (*ops.CaptureOutput, error) {
				return ops.RunCommand(ctx, env, name)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the queue as a JSON array into the downloads directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "File name relative to the downloads directory (default: aku_capture_queue_<stamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{Filename: c.String("path")}
			output, err := dispatch.Run(c.Context, runner, "export", func(ctx context.Context) (*ops.ExportOutput, error) {
				return ops.ExportQueue(ctx, env, input)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Append the items of an exported JSON file to the queue",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Path to the .json export (downloads dir, auto-export folder or allowed_paths)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{Path: c.String("path")}
			output, err := dispatch.Run(c.Context, runner, "import", func(ctx context.Context) (*ops.ImportOutput, error) {
				return ops.Import(ctx, env, input)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every item from the queue",
		Action: func(c *cli.Context) error {
			output, err := dispatch.Run(c.Context, runner, "clear", func(ctx context.Context) (*ops.ClearOutput, error) {
				return ops.ClearQueue(ctx, env)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// countCmd creates the count command.
func countCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Print the number of queued items",
		Action: func(c *cli.Context) error {
			output, err := dispatch.Run(c.Context, runner, "count", func(ctx context.Context) (*ops.CountOutput, error) {
				return ops.CountQueue(ctx, env)
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Show queued items in capture order",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to show"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			output, err := dispatch.Run(c.Context, runner, "list", func(ctx context.Context) (*ops.ListOutput, error) {
				return ops.ListQueue(ctx, env, input)
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(c, output)
			}

			if len(output.Items) == 0 {
				_, err := fmt.Fprintln(c.App.Writer, "Queue is empty.")
				return err
			}
			rows := make([][]string, 0, len(output.Items))
			for _, item := range output.Items {
				rows = append(rows, []string{strconv.Itoa(item.Index), item.CapturedAt, item.PayloadRef})
			}
			table := renderTable(
				[]string{"#", "Captured At", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			_, err = fmt.Fprintf(c.App.Writer, "%s\n%d of %d item(s)\n", table, len(output.Items), output.Pagination.Total)
			return err
		},
	}
}

// settingsCmd creates the settings command with get and set subcommands.
func settingsCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change auto-export settings",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the current settings",
				Action: func(c *cli.Context) error {
					output, err := dispatch.Run(c.Context, runner, "settings", func(ctx context.Context) (capture.Settings, error) {
						return ops.GetSettings(ctx, env)
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "set",
				Usage: "Change settings; flags that are not given keep their value",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "auto-export", Usage: "Export each capture as it is saved"},
					&cli.StringFlag{Name: "subdir", Usage: "Folder under the downloads directory for auto-exports"},
				},
				Action: func(c *cli.Context) error {
					var patch capture.SettingsPatch
					if c.IsSet("auto-export") {
						enabled := c.Bool("auto-export")
						patch.AutoExportEnabled = &enabled
					}
					if c.IsSet("subdir") {
						subdir := c.String("subdir")
						patch.AutoExportSubdir = &subdir
					}
					output, err := dispatch.Run(c.Context, runner, "settings", func(ctx context.Context) (*ops.SettingsOutput, error) {
						return ops.UpdateSettings(ctx, env, patch)
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// serveCmd creates the serve command: the popup panel over HTTP.
func serveCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the popup panel and extension API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config: 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config: 7842)"},
		},
		Action: func(c *cli.Context) error {
			bind := env.Config.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := env.Config.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port <= 0 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}

			srv := web.NewServer(env, runner, Version, bind, port)
			if err := web.Run(srv, env.Logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// popupCmd creates the popup command: the terminal popup.
func popupCmd(env *ops.Env, runner *dispatch.Runner) *cli.Command {
	return &cli.Command{
		Name:  "popup",
		Usage: "Open the terminal popup",
		Action: func(c *cli.Context) error {
			if err := tui.Run(c.Context, env, runner); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	cErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
}
