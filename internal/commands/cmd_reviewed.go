package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

type ReviewedCmd struct {
	flags *Flags
	file  string
	undo  bool
	list  bool
}

// NewReviewedCmd creates a new reviewed command.
func NewReviewedCmd(flags *Flags) *ReviewedCmd {
	return &ReviewedCmd{flags: flags}
}

// Register adds the reviewed command to the application.
func (cmd *ReviewedCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "reviewed",
		Usage:     "Mark changed files as reviewed",
		UsageText: "remark reviewed [options] [path ...]",
		Description: `Reviewed marks files as looked-at for the current diff view. The mark
remembers the file's diff and silently expires when the diff changes, so
a reviewed file that is edited again shows up as unreviewed.

With --list the command prints each changed file with its reviewed state
instead of changing anything.

Examples:
  remark reviewed internal/server.go
  remark reviewed --undo internal/server.go
  remark reviewed --list`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path to mark (alternative to the positional arguments)",
				Destination: &cmd.file,
			},
			&cli.BoolFlag{
				Name:        "undo",
				Aliases:     []string{"u"},
				Usage:       "clear the reviewed mark",
				Destination: &cmd.undo,
			},
			&cli.BoolFlag{
				Name:        "list",
				Usage:       "list changed files with their reviewed state",
				Destination: &cmd.list,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReviewedCmd) run(ctx context.Context, c *cli.Command) error {
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}

	if cmd.list {
		files, err := session.Source().Files(ctx, session.View())
		if err != nil {
			return err
		}
		for _, f := range files {
			rec, err := session.Load(ctx, f.Path, f)
			if err != nil {
				return err
			}
			mark := " "
			if rec.Reviewed {
				mark = "x"
			}
			fmt.Printf("[%s] %s\n", mark, f.Path)
		}
		return nil
	}

	paths := c.Args().Slice()
	if cmd.file != "" {
		paths = append(paths, cmd.file)
	}
	if len(paths) == 0 {
		return fmt.Errorf("reviewed expects at least one path")
	}
	for _, path := range paths {
		if err := session.SetReviewed(ctx, path, !cmd.undo); err != nil {
			return err
		}
		verb := "reviewed"
		if cmd.undo {
			verb = "unreviewed"
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", verb, path)
	}
	return nil
}
