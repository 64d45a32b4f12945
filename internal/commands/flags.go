package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/config"
	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/internal/core/review"
	"github.com/remarklabs/remark/internal/core/state"
	"github.com/remarklabs/remark/pkg/executil"
)

// Flags holds global flag values plus the state the Before hook resolves
// for every command.
type Flags struct {
	LogLevel string
	LogFile  string
	GitPath  string
	View     string
	Base     string
	NotesRef string

	// Repo is nil when the working directory is outside a repository.
	Repo *git.Repo
	// Settings is loaded in the Before hook and available to all commands.
	Settings config.Settings
}

// ErrOutsideRepo is returned by commands that need a repository when run
// outside one.
var ErrOutsideRepo = errors.New("remark must run inside a git repository")

// Resolve discovers the repository and loads settings. Called from the
// Before hook; a missing repository is not an error here so help and
// version keep working anywhere.
func (f *Flags) Resolve(ctx context.Context) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	repo, err := git.Discover(ctx, dir, f.GitPath, &executil.RealExecutor{})
	if err != nil {
		if errors.Is(err, git.ErrNoRepository) {
			f.Settings = config.Defaults()
			return nil
		}
		return err
	}
	f.Repo = repo
	f.Settings, err = config.Load(ctx, repo)
	if err != nil {
		return err
	}
	if f.NotesRef != "" {
		f.Settings.NotesRef = f.NotesRef
	}
	return nil
}

// RequireRepo returns the repository or ErrOutsideRepo.
func (f *Flags) RequireRepo() (*git.Repo, error) {
	if f.Repo == nil {
		return nil, ErrOutsideRepo
	}
	return f.Repo, nil
}

// ResolveView applies the global view and base flags over the settings.
func (f *Flags) ResolveView(ctx context.Context) (git.View, error) {
	repo, err := f.RequireRepo()
	if err != nil {
		return git.View{}, err
	}
	return config.ResolveView(ctx, repo, f.Settings, f.View, f.Base)
}

// Session builds a review session for the resolved view.
func (f *Flags) Session(ctx context.Context) (*state.Session, error) {
	view, err := f.ResolveView(ctx)
	if err != nil {
		return nil, err
	}
	return f.SessionFor(ctx, view)
}

// SessionFor builds a review session for an explicit view.
func (f *Flags) SessionFor(ctx context.Context, view git.View) (*state.Session, error) {
	repo, err := f.RequireRepo()
	if err != nil {
		return nil, err
	}
	store := notes.NewStore(repo, f.Settings.NotesRef, log.Logger)
	source := diffview.NewSource(repo, f.Settings.ContextLines)
	return state.NewSession(ctx, repo, store, source, view, log.Logger)
}

// otherViews lists the candidate views a comment might live under besides
// current: the three worktree views plus the base view when a base ref is
// known.
func (f *Flags) otherViews(ctx context.Context, current git.View) []git.View {
	views := []git.View{
		{Kind: git.ViewAll},
		{Kind: git.ViewStaged},
		{Kind: git.ViewUnstaged},
	}
	base := f.Base
	if base == "" {
		base = f.Settings.BaseRef
	}
	if base == "" {
		base = f.Repo.DefaultBaseRef(ctx)
	}
	if base != "" {
		views = append(views, git.View{Kind: git.ViewBase, Base: base})
	}
	out := views[:0]
	for _, v := range views {
		if v != current {
			out = append(out, v)
		}
	}
	return out
}

// targetPath resolves the path a comment command operates on, taken from
// the --file flag or a single positional argument.
func targetPath(c *cli.Command, fileFlag string) (string, error) {
	switch {
	case fileFlag != "" && c.Args().Len() > 0:
		return "", errors.New("pass a path either as --file or as an argument, not both")
	case fileFlag != "":
		return fileFlag, nil
	case c.Args().Len() == 1:
		return c.Args().First(), nil
	default:
		return "", fmt.Errorf("expected exactly one path, got %d", c.Args().Len())
	}
}

// commentTarget resolves the comment slot a command addresses. Without a
// line the target is the file comment.
func commentTarget(fileComment bool, line int, side string) (state.Target, error) {
	if fileComment && line > 0 {
		return state.Target{}, errors.New("--file-comment and --line are mutually exclusive")
	}
	if line <= 0 {
		return state.FileTarget(), nil
	}
	s, err := review.ParseSide(side)
	if err != nil {
		return state.Target{}, err
	}
	return state.LineTarget(review.LineKey{Side: s, Line: line}), nil
}

// DefaultLogFile returns the default log file path using the system's
// state directory.
func DefaultLogFile() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "remark", "remark.log")
	}
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "remark", "remark.log")
	}
	return filepath.Join(home, ".local", "state", "remark", "remark.log")
}
