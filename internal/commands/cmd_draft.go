package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/draft"
	"github.com/remarklabs/remark/internal/lsp"
)

type DraftCmd struct {
	flags *Flags
}

// NewDraftCmd creates a new draft command.
func NewDraftCmd(flags *Flags) *DraftCmd {
	return &DraftCmd{flags: flags}
}

// Register adds the draft command to the application.
func (cmd *DraftCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "draft",
		Usage:     "Work with the draft review document",
		UsageText: "remark draft <sync|status|path|clean>",
		Description: `Draft manages the editable review document created by 'remark new'.

sync    reconcile draft edits into the review records
status  report whether the draft has unsynced edits
path    print the draft file location
clean   delete the draft and its sync index`,
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Reconcile draft edits into the review records",
				Action: cmd.runSync,
			},
			{
				Name:   "status",
				Usage:  "Report whether the draft has unsynced edits",
				Action: cmd.runStatus,
			},
			{
				Name:   "path",
				Usage:  "Print the draft file location",
				Action: cmd.runPath,
			},
			{
				Name:   "clean",
				Usage:  "Delete the draft and its sync index",
				Action: cmd.runClean,
			},
		},
	})

	return app
}

func (cmd *DraftCmd) runSync(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}
	sum, err := lsp.SyncDraftFile(ctx, repo, session, log.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "synced: %d updated, %d deleted\n", sum.Updated, sum.Deleted)
	return nil
}

func (cmd *DraftCmd) runStatus(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(draft.Path(repo))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("no draft")
			return nil
		}
		return fmt.Errorf("read draft: %w", err)
	}
	meta, err := draft.LoadMeta(draft.MetaPath(repo))
	if err != nil {
		return err
	}
	if meta.ShouldSync(data) {
		fmt.Println("draft has unsynced edits")
	} else {
		fmt.Println("draft is in sync")
	}
	return nil
}

func (cmd *DraftCmd) runPath(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	fmt.Println(draft.Path(repo))
	return nil
}

func (cmd *DraftCmd) runClean(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	for _, p := range []string{draft.Path(repo), draft.MetaPath(repo)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	fmt.Fprintln(os.Stderr, "draft removed")
	return nil
}
