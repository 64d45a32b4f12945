package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/config"
	"github.com/remarklabs/remark/internal/core/draft"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/internal/core/state"
)

type NewCmd struct {
	flags *Flags
	force bool
	ref   string
}

// NewNewCmd creates a new new command.
func NewNewCmd(flags *Flags) *NewCmd {
	return &NewCmd{flags: flags}
}

// Register adds the new command to the application.
func (cmd *NewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "new",
		Usage:     "Create a draft review document for the current view",
		UsageText: "remark new [options] [path ...]",
		Description: `New writes a markdown draft under the repository's git directory, one
section per changed file, seeded with any comments already recorded.
Edit the draft in any editor and run 'remark draft sync' (or save it with
the language server attached) to write the comments back.

The draft lives at .git/remark/draft.md and is never committed.

With --ref the review starts on a fresh notes ref, which is saved to
git config so later commands use it too. Short names are qualified
under refs/notes/remark/.

Examples:
  remark new                 # all changed files in the view
  remark new src/ internal/  # only those paths
  remark new --force         # overwrite an existing draft
  remark new --ref pr-214    # separate ref refs/notes/remark/pr-214`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "overwrite an existing draft",
				Destination: &cmd.force,
			},
			&cli.StringFlag{
				Name:        "ref",
				Usage:       "start the review on this notes ref and save it to config",
				Destination: &cmd.ref,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *NewCmd) run(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	if cmd.ref != "" {
		ref := notes.NormalizeRef(cmd.ref)
		if err := config.SaveNotesRef(ctx, repo, ref); err != nil {
			return err
		}
		cmd.flags.Settings.NotesRef = ref
		fmt.Fprintf(os.Stderr, "review records will use %s\n", ref)
	}
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}

	draftPath := draft.Path(repo)
	if _, err := os.Stat(draftPath); err == nil && !cmd.force {
		return fmt.Errorf("draft already exists at %s (use --force to overwrite)", draftPath)
	}

	files, err := session.Source().Files(ctx, session.View(), c.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no changes in view %s", session.View())
	}

	doc, err := draft.Generate(ctx, state.DraftStore(session), files)
	if err != nil {
		return err
	}
	content := draft.Render(doc)
	if err := os.MkdirAll(filepath.Dir(draftPath), 0o755); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	if err := os.WriteFile(draftPath, content, 0o644); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}

	// Record the generated state so an unedited draft syncs to nothing.
	meta := draft.NewMeta()
	meta.DraftHash = draft.ContentHash(content)
	for path, targets := range doc.Owned() {
		meta.SetSynced(path, targets)
	}
	if err := draft.SaveMeta(draft.MetaPath(repo), meta); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "draft written to %s (%d files)\n", draftPath, len(doc.Files))
	return nil
}
