package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/pkg/executil"
)

// testRepo initializes a throwaway repository with one commit.
func testRepo(t *testing.T) *Repo {
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
	mustGit("config", "commit.gpgsign", "false")

	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	mustGit("add", ".")
	mustGit("commit", "-m", "initial")

	repo, err := Discover(ctx, dir, "", exec)
	require.NoError(t, err)
	return repo
}

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func gitRun(t *testing.T, repo *Repo, args ...string) {
	t.Helper()
	_, err := repo.git(context.Background(), args...)
	require.NoError(t, err, "git %v", args)
}

func TestDiscover(t *testing.T) {
	repo := testRepo(t)
	assert.NotEmpty(t, repo.Root())
	assert.True(t, filepath.IsAbs(repo.Dir()))

	// Discovery from a subdirectory lands on the same root.
	sub := filepath.Join(repo.Root(), "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	again, err := Discover(context.Background(), sub, "", &executil.RealExecutor{})
	require.NoError(t, err)
	assert.Equal(t, repo.Root(), again.Root())
}

func TestDiscoverOutsideRepo(t *testing.T) {
	_, err := Discover(context.Background(), t.TempDir(), "", &executil.RealExecutor{})
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestHeadAndRefs(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Len(t, head, 40)

	resolved, err := repo.ResolveRef(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, head, resolved)

	_, err = repo.ResolveRef(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrRefNotFound)

	ok, err := repo.RefExists(ctx, "refs/heads/main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RefExists(ctx, "refs/heads/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnbornHead(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	exec := &executil.RealExecutor{}
	_, err := exec.RunDir(ctx, dir, "git", "init", "-b", "main")
	require.NoError(t, err)

	repo, err := Discover(ctx, dir, "", exec)
	require.NoError(t, err)
	_, err = repo.Head(ctx)
	assert.ErrorIs(t, err, ErrUnbornHead)
}

func TestConfigGetSet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	_, ok, err := repo.ConfigGet(ctx, "remark.diffview")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ConfigSet(ctx, "remark.diffview", "staged"))

	value, ok, err := repo.ConfigGet(ctx, "remark.diffview")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "staged", value)

	require.NoError(t, repo.ConfigUnset(ctx, "remark.diffview"))
	_, ok, err = repo.ConfigGet(ctx, "remark.diffview")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unsetting a key that was never present is not an error.
	require.NoError(t, repo.ConfigUnset(ctx, "remark.diffview"))
}

func TestNotesRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	const ref = "refs/notes/remark-test"

	obj, err := repo.HashObject(ctx, []byte("synthetic key payload\n"))
	require.NoError(t, err)
	require.Len(t, obj, 40)

	_, err = repo.NoteShow(ctx, ref, obj)
	assert.ErrorIs(t, err, ErrPathNotFound)

	require.NoError(t, repo.NoteAdd(ctx, ref, obj, []byte("note body\nline two\n")))

	body, err := repo.NoteShow(ctx, ref, obj)
	require.NoError(t, err)
	assert.Equal(t, "note body\nline two\n", string(body))

	objs, err := repo.NoteList(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, objs, obj)

	require.NoError(t, repo.NoteRemove(ctx, ref, obj))
	_, err = repo.NoteShow(ctx, ref, obj)
	assert.ErrorIs(t, err, ErrPathNotFound)

	// Removing again is not an error.
	require.NoError(t, repo.NoteRemove(ctx, ref, obj))
}

func TestChangedPaths(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "main.go", "package main\n\nfunc main() { println(1) }\n")
	writeFile(t, repo.Root(), "staged.go", "package main\n")
	gitRun(t, repo, "add", "staged.go")
	writeFile(t, repo.Root(), "untracked.txt", "hello\n")

	all, err := repo.ChangedPaths(ctx, View{Kind: ViewAll})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "staged.go", "untracked.txt"}, all)

	staged, err := repo.ChangedPaths(ctx, View{Kind: ViewStaged})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staged.go"}, staged)

	unstaged, err := repo.ChangedPaths(ctx, View{Kind: ViewUnstaged})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "untracked.txt"}, unstaged)
}

func TestDiffViews(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "main.go", "package main\n\nfunc main() { println(1) }\n")

	out, err := repo.Diff(ctx, View{Kind: ViewAll}, 3)
	require.NoError(t, err)
	assert.Contains(t, string(out), "+func main() { println(1) }")

	// Nothing staged yet.
	out, err = repo.Diff(ctx, View{Kind: ViewStaged}, 3)
	require.NoError(t, err)
	assert.Empty(t, string(out))

	gitRun(t, repo, "add", "main.go")
	out, err = repo.Diff(ctx, View{Kind: ViewStaged}, 3)
	require.NoError(t, err)
	assert.Contains(t, string(out), "+func main() { println(1) }")
}

func TestDiffBaseView(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	gitRun(t, repo, "checkout", "-b", "feature")
	writeFile(t, repo.Root(), "feature.go", "package main\n\nvar Feature = true\n")
	gitRun(t, repo, "add", "feature.go")
	gitRun(t, repo, "commit", "-m", "add feature")

	out, err := repo.Diff(ctx, View{Kind: ViewBase, Base: "main"}, 3)
	require.NoError(t, err)
	assert.Contains(t, string(out), "+var Feature = true")

	// Worktree edits are invisible to the base view.
	writeFile(t, repo.Root(), "scratch.txt", "wip\n")
	paths, err := repo.ChangedPaths(ctx, View{Kind: ViewBase, Base: "main"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feature.go"}, paths)
}

func TestDefaultBaseRef(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	gitRun(t, repo, "checkout", "-b", "feature")
	assert.Equal(t, "refs/heads/main", repo.DefaultBaseRef(ctx))
}

func TestReadContent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "main.go", "package main // edited\n")

	head, err := repo.ReadHead(ctx, "main.go")
	require.NoError(t, err)
	assert.Contains(t, string(head), "func main()")

	wt, err := repo.ReadWorktree("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main // edited\n", string(wt))

	// The index sees the edit only once it is staged.
	idx, err := repo.ReadIndex(ctx, "main.go")
	require.NoError(t, err)
	assert.Contains(t, string(idx), "func main()")
	gitRun(t, repo, "add", "main.go")
	idx, err = repo.ReadIndex(ctx, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main // edited\n", string(idx))

	headRev, err := repo.Head(ctx)
	require.NoError(t, err)
	at, err := repo.ReadAt(ctx, headRev, "main.go")
	require.NoError(t, err)
	assert.Equal(t, string(head), string(at))

	_, err = repo.ReadHead(ctx, "missing.go")
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = repo.ReadWorktree("missing.go")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestIsTracked(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	writeFile(t, repo.Root(), "scratch.txt", "untracked\n")

	tracked, err := repo.IsTracked(ctx, "main.go")
	require.NoError(t, err)
	assert.True(t, tracked)

	tracked, err = repo.IsTracked(ctx, "scratch.txt")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestNormalizePath(t *testing.T) {
	repo := testRepo(t)

	assert.Equal(t, "a/b.go", repo.NormalizePath("a/b.go"))
	assert.Equal(t, "a/b.go", repo.NormalizePath("./a/b.go"))
	assert.Equal(t, "a/b.go", repo.NormalizePath(filepath.Join(repo.Root(), "a", "b.go")))
}

func TestParseViewKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ViewKind
		wantErr bool
	}{
		{input: "all", want: ViewAll},
		{input: "Staged", want: ViewStaged},
		{input: " unstaged ", want: ViewUnstaged},
		{input: "base", want: ViewBase},
		{input: "everything", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseViewKind(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownView)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
