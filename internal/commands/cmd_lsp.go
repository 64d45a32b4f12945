package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/lsp"
)

type LspCmd struct {
	flags           *Flags
	includeResolved bool
	noDiagnostics   bool
}

// NewLspCmd creates a new lsp command.
func NewLspCmd(flags *Flags) *LspCmd {
	return &LspCmd{flags: flags}
}

// Register adds the lsp command to the application.
func (cmd *LspCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "lsp",
		Usage:     "Run the language server over stdio",
		UsageText: "remark lsp [options]",
		Description: `Lsp serves review state to an editor. Comments appear as diagnostics on
changed files, saving the draft document syncs it, and the
remark.resolve, remark.unresolve, remark.addDraftComment and
remark.openPrompt workspace commands drive state changes from the editor.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "include-resolved",
				Usage:       "publish resolved comments too, as hints",
				Destination: &cmd.includeResolved,
			},
			&cli.BoolFlag{
				Name:        "no-diagnostics",
				Usage:       "serve commands and draft sync without diagnostics",
				Destination: &cmd.noDiagnostics,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LspCmd) run(ctx context.Context, c *cli.Command) error {
	repo, err := cmd.flags.RequireRepo()
	if err != nil {
		return err
	}
	view, err := cmd.flags.ResolveView(ctx)
	if err != nil {
		return err
	}
	opts := lsp.Options{
		IncludeResolved:    cmd.includeResolved,
		DisableDiagnostics: cmd.noDiagnostics,
	}
	server := lsp.NewServer(repo, cmd.flags.Settings, view, opts, log.Logger)
	return server.Serve(ctx)
}
