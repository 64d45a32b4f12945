package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/internal/core/review"
	"github.com/remarklabs/remark/pkg/executil"
)

func testSession(t *testing.T) (*Session, *git.Repo) {
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
	write(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	mustGit("add", ".")
	mustGit("commit", "-m", "initial")

	// A working tree change so the all view has content.
	write(t, dir, "main.go", "package main\n\nfunc main() { println(1) }\n")

	repo, err := git.Discover(ctx, dir, "", exec)
	require.NoError(t, err)
	store := notes.NewStore(repo, "", zerolog.Nop())
	source := diffview.NewSource(repo, 3)
	session, err := NewSession(ctx, repo, store, source, git.View{Kind: git.ViewAll}, zerolog.Nop())
	require.NoError(t, err)
	return session, repo
}

func write(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func changedKey(t *testing.T, session *Session) review.LineKey {
	t.Helper()
	diff, err := session.Source().File(context.Background(), session.View(), "main.go")
	require.NoError(t, err)
	require.NotNil(t, diff)
	for _, h := range diff.Hunks {
		for _, l := range h.Lines {
			if l.Origin == diffview.OriginAdded {
				return l.Anchor()
			}
		}
	}
	t.Fatal("no added line in diff")
	return review.LineKey{}
}

func TestAddCommentFileLevel(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	require.NoError(t, session.AddComment(ctx, "main.go", "overall ok", FileTarget()))

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	require.NotNil(t, rec.FileComment)
	assert.Equal(t, "overall ok", rec.FileComment.Body)

	// Adding again appends.
	require.NoError(t, session.AddComment(ctx, "main.go", "second thought", FileTarget()))
	rec, err = session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.Equal(t, "overall ok\n\nsecond thought", rec.FileComment.Body)
}

func TestAddCommentLineAnchored(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()
	key := changedKey(t, session)

	require.NoError(t, session.AddComment(ctx, "main.go", "check this", LineTarget(key)))

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.Equal(t, "check this", rec.LineComments[key].Body)
}

func TestAddCommentRejectsBadAnchor(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	err := session.AddComment(ctx, "main.go", "nope", LineTarget(review.LineKey{Side: review.SideNew, Line: 999}))
	assert.ErrorIs(t, err, ErrNoAnchor)

	err = session.AddComment(ctx, "unchanged.go", "nope", FileTarget())
	assert.ErrorIs(t, err, ErrNoChanges)

	err = session.AddComment(ctx, "main.go", "   ", FileTarget())
	assert.Error(t, err)
}

func TestSetResolved(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()
	key := changedKey(t, session)

	require.NoError(t, session.AddComment(ctx, "main.go", "fix me", LineTarget(key)))
	require.NoError(t, session.SetResolved(ctx, "main.go", LineTarget(key), true))

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.True(t, rec.LineComments[key].Resolved)

	require.NoError(t, session.SetResolved(ctx, "main.go", LineTarget(key), false))
	rec, err = session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.False(t, rec.LineComments[key].Resolved)

	err = session.SetResolved(ctx, "main.go", FileTarget(), true)
	assert.ErrorIs(t, err, ErrNoComment)
}

func TestSetResolvedAll(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()
	key := changedKey(t, session)

	require.NoError(t, session.AddComment(ctx, "main.go", "a", FileTarget()))
	require.NoError(t, session.AddComment(ctx, "main.go", "b", LineTarget(key)))

	n, err := session.SetResolvedAll(ctx, "main.go", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.False(t, rec.Unresolved())

	// Nothing left to change.
	n, err = session.SetResolvedAll(ctx, "main.go", true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReviewedInvalidation(t *testing.T) {
	session, repo := testSession(t)
	ctx := context.Background()

	require.NoError(t, session.SetReviewed(ctx, "main.go", true))

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.True(t, rec.Reviewed)

	// Editing the file moves the diff hash; the mark silently expires.
	write(t, repo.Root(), "main.go", "package main\n\nfunc main() { println(2) }\n")
	rec, err = session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.False(t, rec.Reviewed)

	// Restoring the original content revives the stored mark.
	write(t, repo.Root(), "main.go", "package main\n\nfunc main() { println(1) }\n")
	rec, err = session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.True(t, rec.Reviewed)
}

func TestSetReviewedRequiresChanges(t *testing.T) {
	session, _ := testSession(t)
	err := session.SetReviewed(context.Background(), "unchanged.go", true)
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestDropStale(t *testing.T) {
	session, repo := testSession(t)
	ctx := context.Background()
	key := changedKey(t, session)

	require.NoError(t, session.AddComment(ctx, "main.go", "anchored", LineTarget(key)))
	require.NoError(t, session.AddComment(ctx, "main.go", "file level", FileTarget()))

	// Reverting the change removes the anchor.
	write(t, repo.Root(), "main.go", "package main\n\nfunc main() {}\n")

	dropped, err := session.DropStale(ctx, "main.go")
	require.NoError(t, err)
	assert.Equal(t, []review.LineKey{key}, dropped)

	rec, err := session.Load(ctx, "main.go", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.LineComments)
	require.NotNil(t, rec.FileComment, "file comments never dropped")
}
