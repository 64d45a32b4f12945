package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/clipboard"
	"github.com/remarklabs/remark/internal/core/prompt"
)

type PromptCmd struct {
	flags    *Flags
	filter   string
	comments string
	base     string
	ref      string
	copy     bool
	out      string
}

// NewPromptCmd creates a new prompt command.
func NewPromptCmd(flags *Flags) *PromptCmd {
	return &PromptCmd{flags: flags}
}

// Register adds the prompt command to the application.
func (cmd *PromptCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prompt",
		Usage:     "Collate review comments into a markdown prompt",
		UsageText: "remark prompt [options] [path ...]",
		Description: `Prompt walks the selected diff view, gathers the review comments on each
changed file, and prints them as one markdown document with code context.

Examples:
  remark prompt                        # unresolved comments, default view
  remark prompt --filter staged src/   # staged changes under src/
  remark prompt --comments all --copy  # everything, onto the clipboard
  remark prompt --base origin/main     # review against a base branch`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "filter",
				Aliases:     []string{"f"},
				Usage:       "diff view to collate (all, staged, unstaged, base)",
				Destination: &cmd.filter,
			},
			&cli.StringFlag{
				Name:        "comments",
				Usage:       "which comments to include (unresolved, resolved, all)",
				Value:       "unresolved",
				Destination: &cmd.comments,
			},
			&cli.StringFlag{
				Name:        "base",
				Usage:       "base ref for the base view",
				Destination: &cmd.base,
			},
			&cli.StringFlag{
				Name:        "ref",
				Usage:       "notes ref to read review records from",
				Destination: &cmd.ref,
			},
			&cli.BoolFlag{
				Name:        "copy",
				Usage:       "copy the prompt to the clipboard",
				Destination: &cmd.copy,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "write the prompt to a file instead of stdout",
				Destination: &cmd.out,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PromptCmd) run(ctx context.Context, c *cli.Command) error {
	filter, err := prompt.ParseFilter(cmd.comments)
	if err != nil {
		return err
	}
	if cmd.filter != "" {
		cmd.flags.View = cmd.filter
	}
	if cmd.base != "" {
		cmd.flags.Base = cmd.base
	}
	if cmd.ref != "" {
		cmd.flags.Settings.NotesRef = cmd.ref
	}
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}
	collator := prompt.NewCollator(session, log.Logger)
	text, n, err := collator.Collate(ctx, filter, c.Args().Slice()...)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(os.Stderr, "no matching review comments")
		return nil
	}
	if cmd.out != "" {
		if err := os.WriteFile(cmd.out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}
	} else {
		fmt.Print(text)
	}
	if cmd.copy {
		if err := clipboard.Copy(text); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "copied %d comment(s) to clipboard\n", n)
	}
	return nil
}
