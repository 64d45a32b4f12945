package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/state"
)

type ResolveCmd struct {
	flags       *Flags
	file        string
	fileComment bool
	line        int
	side        string
	all         bool
	unresolve   bool
}

// NewResolveCmd creates a new resolve command.
func NewResolveCmd(flags *Flags) *ResolveCmd {
	return &ResolveCmd{flags: flags}
}

// Register adds the resolve command to the application.
func (cmd *ResolveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "resolve",
		Usage:     "Mark review comments resolved or unresolved",
		UsageText: "remark resolve [options] [<path>]",
		Description: `Resolve marks a comment resolved so prompts stop including it. Without a
line it targets the file comment; --all covers every comment in the file;
--unresolve reopens instead.

Examples:
  remark resolve internal/server.go           # file comment
  remark resolve -l 42 internal/server.go     # one line comment
  remark resolve --all internal/server.go     # everything in the file
  remark resolve --unresolve -l 42 internal/server.go`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path of the comment (alternative to the positional argument)",
				Destination: &cmd.file,
			},
			&cli.BoolFlag{
				Name:        "file-comment",
				Usage:       "target the file-level comment",
				Destination: &cmd.fileComment,
			},
			&cli.IntFlag{
				Name:        "line",
				Aliases:     []string{"l"},
				Usage:       "diff line the comment anchors to",
				Destination: &cmd.line,
			},
			&cli.StringFlag{
				Name:        "side",
				Aliases:     []string{"s"},
				Usage:       "diff side for the line (new, old)",
				Value:       "new",
				Destination: &cmd.side,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "apply to every comment in the file",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "unresolve",
				Aliases:     []string{"u", "undo"},
				Usage:       "mark unresolved instead",
				Destination: &cmd.unresolve,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ResolveCmd) run(ctx context.Context, c *cli.Command) error {
	path, err := targetPath(c, cmd.file)
	if err != nil {
		return err
	}
	resolved := !cmd.unresolve

	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}

	if cmd.all {
		n, err := session.SetResolvedAll(ctx, path, resolved)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "updated %d comment(s) on %s\n", n, path)
		return nil
	}

	target, err := commentTarget(cmd.fileComment, cmd.line, cmd.side)
	if err != nil {
		return err
	}
	verb := "resolved"
	if cmd.unresolve {
		verb = "reopened"
	}
	err = session.SetResolved(ctx, path, target, resolved)
	if err == nil {
		fmt.Fprintf(os.Stderr, "%s %s (%s)\n", verb, path, target)
		return nil
	}
	if !errors.Is(err, state.ErrNoComment) {
		return err
	}
	// The comment may have been recorded under a different view. Try the
	// others before reporting a miss.
	for _, v := range cmd.flags.otherViews(ctx, session.View()) {
		other, err := cmd.flags.SessionFor(ctx, v)
		if err != nil {
			continue
		}
		if err := other.SetResolved(ctx, path, target, resolved); err == nil {
			fmt.Fprintf(os.Stderr, "%s %s (%s) in the %s view\n", verb, path, target, v)
			return nil
		} else if !errors.Is(err, state.ErrNoComment) {
			return err
		}
	}
	return fmt.Errorf("no comment at %s (%s) in any view", path, target)
}
