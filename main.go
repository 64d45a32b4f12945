package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/commands"
	"github.com/remarklabs/remark/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "remark",
		Usage:     "Code review notes that live in your repository",
		UsageText: "remark [global options] command [command options]",
		Description: `Remark records review comments on your working changes and stores them
as git notes, so review state survives rebases, machine switches, and
pushes. Comments anchor to diff lines in a chosen view (all, staged,
unstaged, or against a base branch), collate into a markdown prompt for
an agent or reviewer, and surface in editors through 'remark lsp'.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("REMARK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("REMARK_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "git-path",
				Usage:       "path to the git binary",
				Sources:     cli.EnvVars("REMARK_GIT_PATH"),
				Destination: &flags.GitPath,
			},
			&cli.StringFlag{
				Name:        "view",
				Aliases:     []string{"V"},
				Usage:       "diff view to review (all, staged, unstaged, base)",
				Sources:     cli.EnvVars("REMARK_VIEW"),
				Destination: &flags.View,
			},
			&cli.StringFlag{
				Name:        "base",
				Aliases:     []string{"b"},
				Usage:       "base ref to review against (implies the base view)",
				Sources:     cli.EnvVars("REMARK_BASE"),
				Destination: &flags.Base,
			},
			&cli.StringFlag{
				Name:        "ref",
				Usage:       "notes ref holding review records",
				Sources:     cli.EnvVars("REMARK_NOTES_REF"),
				Destination: &flags.NotesRef,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			if err := flags.Resolve(ctx); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	commands.NewShowCmd(flags).Register(app)
	commands.NewPromptCmd(flags).Register(app)
	commands.NewAddCmd(flags).Register(app)
	commands.NewResolveCmd(flags).Register(app)
	commands.NewReviewedCmd(flags).Register(app)
	commands.NewNewCmd(flags).Register(app)
	commands.NewDraftCmd(flags).Register(app)
	commands.NewConfigCmd(flags).Register(app)
	commands.NewPurgeCmd(flags).Register(app)
	commands.NewLspCmd(flags).Register(app)

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "remark: %v\n", err)
		os.Exit(1)
	}
}
