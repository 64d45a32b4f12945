package diffview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/git"
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
	writeFile(t, dir, "tracked.txt", "line one\nline two\n")
	mustGit("add", ".")
	mustGit("commit", "-m", "initial")
	return discover(t, dir)
}

func discover(t *testing.T, dir string) *git.Repo {
	t.Helper()
	repo, err := git.Discover(context.Background(), dir, "", &executil.RealExecutor{})
	require.NoError(t, err)
	return repo
}

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSourceFilesIncludesUntracked(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "tracked.txt", "line one\nline two changed\n")
	writeFile(t, repo.Root(), "fresh.txt", "brand new\n")

	source := NewSource(repo, 3)
	files, err := source.Files(ctx, git.View{Kind: git.ViewAll})
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Sorted by path.
	assert.Equal(t, "fresh.txt", files[0].Path)
	assert.Equal(t, "tracked.txt", files[1].Path)

	assert.True(t, files[0].IsUntracked)
	require.Len(t, files[0].Hunks, 1)
	assert.Equal(t, OriginAdded, files[0].Hunks[0].Lines[0].Origin)

	assert.False(t, files[1].IsUntracked)
	assert.NotEqual(t, files[0].Hash(), files[1].Hash())
}

func TestSourceFileSinglePath(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "tracked.txt", "line one edited\nline two\n")

	source := NewSource(repo, 3)
	f, err := source.File(ctx, git.View{Kind: git.ViewAll}, "tracked.txt")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "tracked.txt", f.Path)

	missing, err := source.File(ctx, git.View{Kind: git.ViewAll}, "nope.txt")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSourceStagedViewSkipsUntracked(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "fresh.txt", "untracked\n")

	source := NewSource(repo, 3)
	files, err := source.Files(ctx, git.View{Kind: git.ViewStaged})
	require.NoError(t, err)
	assert.Empty(t, files)
}
