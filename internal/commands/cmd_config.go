package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/config"
	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
)

type ConfigCmd struct {
	flags *Flags
}

// NewConfigCmd creates a new config command.
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command to the application.
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "config",
		Usage:     "Read or write remark settings in git config",
		UsageText: "remark config [key] [value]",
		Description: `Config reads or writes remark's per-repository settings, stored as local
git config keys. With no arguments it prints the resolved settings.

Keys:
  ` + config.KeyView + `           default view (all, staged, unstaged, base)
  ` + config.KeyDiffView + `       diff display layout (unified, split)
  ` + config.KeyBaseRef + `        base ref for the base view
  ` + config.KeyNotesRef + `       notes ref holding review records
  ` + config.KeyContextLines + `   diff context size`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ConfigCmd) run(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	switch c.Args().Len() {
	case 0:
		s := cmd.flags.Settings
		fmt.Printf("%s = %s\n", config.KeyView, s.View)
		fmt.Printf("%s = %s\n", config.KeyDiffView, s.DiffLayout)
		fmt.Printf("%s = %s\n", config.KeyBaseRef, s.BaseRef)
		fmt.Printf("%s = %s\n", config.KeyNotesRef, s.NotesRef)
		fmt.Printf("%s = %d\n", config.KeyContextLines, s.ContextLines)
		return nil
	case 1:
		value, ok, err := repo.ConfigGet(ctx, c.Args().First())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set", c.Args().First())
		}
		fmt.Println(value)
		return nil
	case 2:
		key, value := c.Args().Get(0), c.Args().Get(1)
		switch key {
		case config.KeyView:
			if _, err := git.ParseViewKind(value); err != nil {
				return err
			}
		case config.KeyDiffView:
			if _, err := diffview.ParseLayout(value); err != nil {
				return err
			}
		}
		return repo.ConfigSet(ctx, key, value)
	default:
		return fmt.Errorf("config expects at most two arguments")
	}
}
