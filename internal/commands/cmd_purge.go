package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/config"
)

type PurgeCmd struct {
	flags  *Flags
	all    bool
	dryRun bool
	yes    bool
}

// NewPurgeCmd creates a new purge command.
func NewPurgeCmd(flags *Flags) *PurgeCmd {
	return &PurgeCmd{flags: flags}
}

// Register adds the purge command to the application.
func (cmd *PurgeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "purge",
		Usage:     "Delete remark notes refs",
		UsageText: "remark purge [options]",
		Description: `Purge deletes the notes ref holding review records. With --all it deletes
every local notes ref whose name marks it as remark data, which cleans up
refs left behind by renamed configurations.

Deleting also clears the remark keys from local git config. Records
already pushed to a remote are not touched.

Examples:
  remark purge --yes         # delete the configured notes ref
  remark purge --all --yes   # delete every remark notes ref
  remark purge --dry-run     # show what would be deleted`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "delete every remark notes ref, not just the configured one",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Aliases:     []string{"n"},
				Usage:       "print refs without deleting them",
				Destination: &cmd.dryRun,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "confirm deletion",
				Destination: &cmd.yes,
			},
		},
		Action: cmd.run,
	})

	return app
}

// isRemarkRef recognizes notes refs that belong to remark: the default ref
// plus any refs/notes name using a remark prefix.
func isRemarkRef(ref string) bool {
	name := strings.TrimPrefix(ref, "refs/notes/")
	if name == ref {
		return false
	}
	return name == "remark" ||
		strings.HasPrefix(name, "remark/") ||
		strings.HasPrefix(name, "remark-") ||
		strings.HasPrefix(name, "remark.")
}

func (cmd *PurgeCmd) run(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}

	var targets []string
	if cmd.all {
		refs, err := repo.ListRefs(ctx, "refs/notes")
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if isRemarkRef(ref) {
				targets = append(targets, ref)
			}
		}
	} else {
		ref := cmd.flags.Settings.NotesRef
		if ok, err := repo.RefExists(ctx, ref); err != nil {
			return err
		} else if ok {
			targets = append(targets, ref)
		}
	}

	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to purge")
		return nil
	}
	if cmd.dryRun {
		for _, ref := range targets {
			fmt.Printf("would delete %s\n", ref)
		}
		return nil
	}
	if !cmd.yes {
		return fmt.Errorf("purge deletes %d notes ref(s); pass --yes to confirm", len(targets))
	}
	for _, ref := range targets {
		if err := repo.DeleteRef(ctx, ref); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "deleted %s\n", ref)
	}
	for _, key := range config.Keys() {
		if err := repo.ConfigUnset(ctx, key); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stderr, "cleared remark config")
	return nil
}
