package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/engine"
	"github.com/moiskillnadne/work-time-tracker/internal/errors"
	"github.com/moiskillnadne/work-time-tracker/internal/report"
	"github.com/moiskillnadne/work-time-tracker/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(eng *engine.Engine, cfg *config.Config) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "worktime",
		Usage:   "Per-task work timer with day-accurate history",
		Version: Version,
		Commands: []*cli.Command{
			startCmd(eng),
			pauseCmd(eng),
			resetCmd(eng),
			statusCmd(eng),
			saveCmd(eng),
			watchCmd(eng),
			taskCmd(eng),
			historyCmd(eng),
			uiCmd(eng, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// startCmd creates the start command.
func startCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the timer, or resume it when paused",
		Action: func(c *cli.Context) error {
			return outputJSON(c.App.Writer, engine.TimerView(eng.Start(c.Context)))
		},
	}
}

// pauseCmd creates the pause command.
func pauseCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "pause",
		Usage: "Pause a running timer",
		Action: func(c *cli.Context) error {
			return outputJSON(c.App.Writer, engine.TimerView(eng.Pause(c.Context)))
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Discard the current session without saving it",
		Action: func(c *cli.Context) error {
			return outputJSON(c.App.Writer, engine.TimerView(eng.Reset(c.Context)))
		},
	}
}

// statusCmd creates the status command.
func statusCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the timer status, elapsed time and selected task",
		Action: func(c *cli.Context) error {
			out := struct {
				engine.TimerOutput
				Selected *engine.TaskOutput `json:"selected"`
			}{TimerOutput: engine.TimerView(eng.Status())}
			if sel, ok := eng.SelectedTask(); ok {
				tv := eng.TaskView(sel)
				out.Selected = &tv
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save the session to a task's history and reset the timer",
		ArgsUsage: "[task-id]",
		Action: func(c *cli.Context) error {
			taskID, err := taskArg(c, eng)
			if err != nil {
				return outputError(err)
			}
			res, saved := eng.SaveAndReset(c.Context, taskID)
			return outputJSON(c.App.Writer, eng.SaveView(res, saved))
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print the elapsed time on every tick until interrupted",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Stop after this many updates (0 = until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			resume := make(chan os.Signal, 1)
			if len(resyncSignals) > 0 {
				signal.Notify(resume, resyncSignals...)
				defer signal.Stop(resume)
			}

			ticks, cancel := eng.Watch()
			defer cancel()

			limit := c.Int("count")
			for n := 0; limit <= 0 || n < limit; {
				select {
				case <-ctx.Done():
					return nil
				case <-resume:
					// Tickers may have stalled while suspended
					eng.Resync()
				case tk, ok := <-ticks:
					if !ok {
						return nil
					}
					fmt.Fprintf(c.App.Writer, "%s  %s\n", report.FormatClock(tk.Elapsed), tk.Status)
					n++
				}
			}
			return nil
		},
	}
}

// taskCmd creates the task command and its subcommands.
func taskCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage tasks",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a task",
				ArgsUsage: "<title>",
				Action: func(c *cli.Context) error {
					title := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
					if title == "" {
						return outputError(errors.NewInvalidRequest("title is required"))
					}
					return outputJSON(c.App.Writer, eng.TaskView(eng.AddTask(c.Context, title)))
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a task",
				ArgsUsage: "<id> <title>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("usage: task rename <id> <title>"))
					}
					id := c.Args().First()
					title := strings.TrimSpace(strings.Join(c.Args().Tail(), " "))
					if title == "" {
						return outputError(errors.NewInvalidRequest("title is required"))
					}
					t, ok := eng.RenameTask(c.Context, id, title)
					if !ok {
						return outputError(errors.NewNotFound("task", id))
					}
					return outputJSON(c.App.Writer, eng.TaskView(t))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a task and its history",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return outputError(errors.NewInvalidRequest("task id is required"))
					}
					if !eng.DeleteTask(c.Context, id) {
						return outputError(errors.NewNotFound("task", id))
					}
					return outputJSON(c.App.Writer, map[string]any{"id": id, "deleted": true})
				},
			},
			{
				Name:      "select",
				Usage:     "Select a task; selecting the selected task or passing no id clears the selection",
				ArgsUsage: "[id]",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id != "" {
						if _, ok := eng.Task(id); !ok {
							return outputError(errors.NewNotFound("task", id))
						}
					} else if sel, ok := eng.SelectedTask(); ok {
						id = sel.ID
					}
					sel, err := eng.SelectTask(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					var out *string
					if sel != "" {
						out = &sel
					}
					return outputJSON(c.App.Writer, map[string]any{"selected_id": out})
				},
			},
			{
				Name:  "list",
				Usage: "List tasks, newest first",
				Action: func(c *cli.Context) error {
					return outputJSON(c.App.Writer, eng.TaskListView())
				},
			},
			{
				Name:      "show",
				Usage:     "Show one task",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					t, ok := eng.Task(id)
					if !ok {
						return outputError(errors.NewNotFound("task", id))
					}
					return outputJSON(c.App.Writer, eng.TaskView(t))
				},
			},
			{
				Name:  "clear",
				Usage: "Delete every task and all history",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "confirm", Usage: "Required to clear everything"},
				},
				Action: func(c *cli.Context) error {
					if !c.Bool("confirm") {
						return outputError(errors.NewInvalidRequest("pass --confirm to delete every task and all history"))
					}
					eng.ClearTasks(c.Context)
					return outputJSON(c.App.Writer, map[string]any{"cleared": true})
				},
			},
		},
	}
}

// historyCmd creates the history command.
func historyCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show a task's history grouped by day",
		ArgsUsage: "[task-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|md|html"},
		},
		Action: func(c *cli.Context) error {
			taskID, err := taskArg(c, eng)
			if err != nil {
				return outputError(err)
			}

			switch format := c.String("format"); format {
			case "json":
				return outputJSON(c.App.Writer, eng.HistoryView(eng.TaskHistory(taskID)))
			case "md", "markdown", "html":
				md, _ := eng.Report(taskID)
				if format == "html" {
					html, err := report.HTML(md)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					md = html
				}
				_, err := io.WriteString(c.App.Writer, md)
				return err
			default:
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want json, md or html)", format)))
			}
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(eng *engine.Engine, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve a read-only web view of tasks, history and the timer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: cfg.WebBind, Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: cfg.WebPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(eng, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(c.Context, srv)
		},
	}
}

// taskArg returns the first positional argument, or the selected task when absent.
func taskArg(c *cli.Context, eng *engine.Engine) (string, error) {
	id := c.Args().First()
	if id == "" {
		sel, ok := eng.SelectedTask()
		if !ok {
			return "", errors.NewInvalidRequest("task id is required when no task is selected")
		}
		return sel.ID, nil
	}
	if _, ok := eng.Task(id); !ok {
		return "", errors.NewNotFound("task", id)
	}
	return id, nil
}

// outputJSON prints JSON output.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.TrackerError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
