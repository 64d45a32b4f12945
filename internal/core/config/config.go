// Package config resolves remark settings. Defaults are layered under an
// optional user config file, then per-repository git config keys, then
// command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/notes"
)

// Git config keys read from the repository's local config.
const (
	// KeyView is the default diff view (all, staged, unstaged, base).
	KeyView = "remark.view"
	// KeyDiffView is the persisted display layout (unified, split). It is
	// overwritten whenever an interactive surface toggles the layout.
	KeyDiffView     = "remark.diffview"
	KeyBaseRef      = "remark.baseref"
	KeyNotesRef     = "remark.notesref"
	KeyContextLines = "remark.contextlines"
)

// Keys lists every git config key remark owns.
func Keys() []string {
	return []string{KeyView, KeyDiffView, KeyBaseRef, KeyNotesRef, KeyContextLines}
}

// Settings holds every tunable remark reads at startup.
type Settings struct {
	// View is the default view name when no flag selects one.
	View string `yaml:"view"`
	// DiffLayout is the display layout (unified or split).
	DiffLayout string `yaml:"diff_layout"`
	// BaseRef overrides the detected base ref for base views.
	BaseRef string `yaml:"base_ref"`
	// NotesRef is the notes ref review records live on.
	NotesRef string `yaml:"notes_ref"`
	// ContextLines is the diff context size.
	ContextLines int `yaml:"context_lines"`
	// Ignore lists glob patterns for paths the editor surface skips.
	Ignore []string `yaml:"ignore"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		View:         git.ViewAll.String(),
		DiffLayout:   diffview.LayoutUnified.String(),
		NotesRef:     notes.DefaultRef,
		ContextLines: 3,
	}
}

// Path returns the user config file location, honoring XDG_CONFIG_HOME.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "remark", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, ".config", "remark", "config.yaml"), nil
}

// Load reads settings: defaults, then the user config file if present, then
// the repository's git config. repo may be nil when run outside a worktree.
func Load(ctx context.Context, repo *git.Repo) (Settings, error) {
	s := Defaults()
	path, err := Path()
	if err == nil {
		if err := loadFile(path, &s); err != nil {
			return s, err
		}
	}
	if repo != nil {
		if err := loadGitConfig(ctx, repo, &s); err != nil {
			return s, err
		}
	}
	if _, err := git.ParseViewKind(s.View); err != nil {
		return s, err
	}
	if _, err := diffview.ParseLayout(s.DiffLayout); err != nil {
		return s, err
	}
	return s, nil
}

func loadFile(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadGitConfig(ctx context.Context, repo *git.Repo, s *Settings) error {
	if v, ok, err := repo.ConfigGet(ctx, KeyView); err != nil {
		return err
	} else if ok {
		s.View = v
	}
	if v, ok, err := repo.ConfigGet(ctx, KeyDiffView); err != nil {
		return err
	} else if ok {
		s.DiffLayout = v
	}
	if v, ok, err := repo.ConfigGet(ctx, KeyBaseRef); err != nil {
		return err
	} else if ok {
		s.BaseRef = v
	}
	if v, ok, err := repo.ConfigGet(ctx, KeyNotesRef); err != nil {
		return err
	} else if ok {
		s.NotesRef = v
	}
	if v, ok, err := repo.ConfigGet(ctx, KeyContextLines); err != nil {
		return err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s: %q", KeyContextLines, v)
		}
		s.ContextLines = n
	}
	return nil
}

// SaveLayout persists the display layout to the repository's git config.
func SaveLayout(ctx context.Context, repo *git.Repo, layout diffview.Layout) error {
	return repo.ConfigSet(ctx, KeyDiffView, layout.String())
}

// SaveNotesRef persists the notes ref to the repository's git config.
func SaveNotesRef(ctx context.Context, repo *git.Repo, ref string) error {
	return repo.ConfigSet(ctx, KeyNotesRef, ref)
}

// ResolveView turns a view name and optional base override into a concrete
// view. An explicit base implies the base view. Base views without an
// explicit or configured base fall back to the repository's detected
// default branch.
func ResolveView(ctx context.Context, repo *git.Repo, s Settings, viewName, baseOverride string) (git.View, error) {
	name := s.View
	if viewName != "" {
		name = viewName
	}
	kind, err := git.ParseViewKind(name)
	if err != nil {
		return git.View{}, err
	}
	if baseOverride != "" {
		kind = git.ViewBase
	}
	v := git.View{Kind: kind}
	if kind != git.ViewBase {
		return v, nil
	}
	switch {
	case baseOverride != "":
		v.Base = baseOverride
	case s.BaseRef != "":
		v.Base = s.BaseRef
	default:
		v.Base = repo.DefaultBaseRef(ctx)
	}
	if v.Base == "" {
		return git.View{}, errors.New("base view requires a base ref and none could be detected")
	}
	if _, err := repo.ResolveRef(ctx, v.Base); err != nil {
		return git.View{}, err
	}
	return v, nil
}
