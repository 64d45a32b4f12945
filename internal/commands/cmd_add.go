package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/state"
	"github.com/remarklabs/remark/internal/lsp"
)

type AddCmd struct {
	flags       *Flags
	file        string
	fileComment bool
	line        int
	side        string
	message     string
	draft       bool
	edit        bool
}

// NewAddCmd creates a new add command.
func NewAddCmd(flags *Flags) *AddCmd {
	return &AddCmd{flags: flags}
}

// Register adds the add command to the application.
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Add a review comment to a changed file",
		UsageText: "remark add [options] [<path>]",
		Description: `Add attaches a comment to a file in the current diff view. Without a line
it becomes the file comment; with one it anchors to that diff line. The
body comes from -m or from stdin.

Adding to a slot that already has a comment appends to it. With --draft
the comment goes through the draft document instead, and --edit opens
$EDITOR on the slot and syncs the result.

Examples:
  remark add -m "split this up" internal/server.go
  remark add -l 42 -m "off by one" internal/server.go
  remark add -l 10 -s old -m "why was this removed?" internal/server.go
  cat notes.txt | remark add --file internal/server.go   # body from stdin`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path to comment on (alternative to the positional argument)",
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
				Usage:       "diff line to anchor the comment to",
				Destination: &cmd.line,
			},
			&cli.StringFlag{
				Name:        "side",
				Aliases:     []string{"s"},
				Usage:       "diff side for the line (new, old)",
				Value:       "new",
				Destination: &cmd.side,
			},
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "comment body (reads stdin when omitted)",
				Destination: &cmd.message,
			},
			&cli.BoolFlag{
				Name:        "draft",
				Usage:       "add a slot to the draft document instead of a comment",
				Destination: &cmd.draft,
			},
			&cli.BoolFlag{
				Name:        "edit",
				Aliases:     []string{"e"},
				Usage:       "add a draft slot, open $EDITOR on it, then sync",
				Destination: &cmd.edit,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	path, err := targetPath(c, cmd.file)
	if err != nil {
		return err
	}
	target, err := commentTarget(cmd.fileComment, cmd.line, cmd.side)
	if err != nil {
		return err
	}

	if cmd.draft || cmd.edit {
		return cmd.runDraft(ctx, path, target)
	}

	body := cmd.message
	if body == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read comment from stdin: %w", err)
		}
		body = string(data)
	}

	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}
	if err := session.AddComment(ctx, path, body, target); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "added comment on %s (%s)\n", path, target)
	return nil
}

// runDraft routes the comment through the draft document: ensure a slot,
// optionally open the user's editor on it, then sync the result back.
func (cmd *AddCmd) runDraft(ctx context.Context, path string, target state.Target) error {
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}
	draftPath, err := lsp.EnsureDraftSlot(ctx, cmd.flags.Repo, session, log.Logger, path, target)
	if err != nil {
		return err
	}
	if !cmd.edit {
		fmt.Println(draftPath)
		return nil
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	ed := exec.CommandContext(ctx, editor, draftPath)
	ed.Stdin = os.Stdin
	ed.Stdout = os.Stdout
	ed.Stderr = os.Stderr
	if err := ed.Run(); err != nil {
		return fmt.Errorf("run %s: %w", editor, err)
	}
	sum, err := lsp.SyncDraftFile(ctx, cmd.flags.Repo, session, log.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "draft synced: %d updated, %d deleted\n", sum.Updated, sum.Deleted)
	return nil
}
