package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/pkg/executil"
)

func testRepo(t *testing.T) *git.Repo {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	exec := &executil.RealExecutor{}

	mustGit := func(args ...string) {
		t.Helper()
		_, err := exec.RunDir(ctx, dir, "git", args...)
		require.NoError(t, err, "git %v", args)
	}
	mustGit("init", "-b", "main")
	mustGit("config", "user.email", "test@example.com")
	mustGit("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644))
	mustGit("add", ".")
	mustGit("commit", "-m", "initial")

	repo, err := git.Discover(ctx, dir, "", exec)
	require.NoError(t, err)
	return repo
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, "all", s.View)
	assert.Equal(t, "unified", s.DiffLayout)
	assert.Equal(t, notes.DefaultRef, s.NotesRef)
	assert.Equal(t, 3, s.ContextLines)
	assert.Empty(t, s.BaseRef)
}

func TestLoadLayering(t *testing.T) {
	// User config file under a fake XDG home.
	confDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confDir)
	content := "view: staged\ncontext_lines: 5\nignore:\n  - \"vendor/**\"\n"
	require.NoError(t, os.MkdirAll(filepath.Join(confDir, "remark"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "remark", "config.yaml"), []byte(content), 0o644))

	repo := testRepo(t)
	ctx := context.Background()

	s, err := Load(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "staged", s.View)
	assert.Equal(t, 5, s.ContextLines)
	assert.Equal(t, []string{"vendor/**"}, s.Ignore)

	// Git config wins over the file.
	require.NoError(t, repo.ConfigSet(ctx, KeyView, "unstaged"))
	require.NoError(t, repo.ConfigSet(ctx, KeyDiffView, "split"))
	require.NoError(t, repo.ConfigSet(ctx, KeyNotesRef, "refs/notes/remark-alt"))

	s, err = Load(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, "unstaged", s.View)
	assert.Equal(t, "split", s.DiffLayout)
	assert.Equal(t, "refs/notes/remark-alt", s.NotesRef)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.ConfigSet(ctx, KeyView, "sideways"))
	_, err := Load(ctx, repo)
	assert.ErrorIs(t, err, git.ErrUnknownView)

	require.NoError(t, repo.ConfigSet(ctx, KeyView, "all"))
	require.NoError(t, repo.ConfigSet(ctx, KeyDiffView, "diagonal"))
	_, err = Load(ctx, repo)
	assert.ErrorIs(t, err, diffview.ErrUnknownLayout)

	require.NoError(t, repo.ConfigSet(ctx, KeyDiffView, "unified"))
	require.NoError(t, repo.ConfigSet(ctx, KeyContextLines, "minus one"))
	_, err = Load(ctx, repo)
	assert.Error(t, err)
}

func TestResolveView(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	repo := testRepo(t)
	ctx := context.Background()
	s := Defaults()

	// Settings default.
	v, err := ResolveView(ctx, repo, s, "", "")
	require.NoError(t, err)
	assert.Equal(t, git.ViewAll, v.Kind)

	// Explicit view name wins.
	v, err = ResolveView(ctx, repo, s, "staged", "")
	require.NoError(t, err)
	assert.Equal(t, git.ViewStaged, v.Kind)

	// An explicit base implies the base view.
	v, err = ResolveView(ctx, repo, s, "", "main")
	require.NoError(t, err)
	assert.Equal(t, git.ViewBase, v.Kind)
	assert.Equal(t, "main", v.Base)

	// Unresolvable base refs are rejected up front.
	_, err = ResolveView(ctx, repo, s, "", "no-such-branch")
	assert.ErrorIs(t, err, git.ErrRefNotFound)

	// Base view without an override uses the configured base ref.
	s.BaseRef = "main"
	v, err = ResolveView(ctx, repo, s, "base", "")
	require.NoError(t, err)
	assert.Equal(t, "main", v.Base)
}
