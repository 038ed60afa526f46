package comment

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/services"
	"participa/internal/forms"
	"participa/internal/testutil"
)

// repoCounter adapts the in-memory document repo to the DocumentCounter the
// service expects.
type repoCounter struct {
	docs *testutil.DocumentRepo
}

func (c repoCounter) AddComment(ctx context.Context, docID string) error {
	return c.docs.AddCommentCount(ctx, docID, 1)
}

func (c repoCounter) SubtractComment(ctx context.Context, docID string) error {
	return c.docs.AddCommentCount(ctx, docID, -1)
}

type testEnv struct {
	svc      services.CommentService
	docs     *testutil.DocumentRepo
	comments *testutil.CommentRepo
	likes    *testutil.LikeRepo
	versions *testutil.VersionRepo
	notifier *testutil.Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry, err := forms.NewRegistry()
	require.NoError(t, err)

	env := &testEnv{
		docs:     &testutil.DocumentRepo{},
		comments: &testutil.CommentRepo{},
		likes:    &testutil.LikeRepo{},
		versions: &testutil.VersionRepo{},
		notifier: &testutil.Notifier{},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	env.svc = NewService(env.comments, env.likes, env.docs, env.versions,
		repoCounter{docs: env.docs}, registry, env.notifier, logger)
	return env
}

func (e *testEnv) seedDocument(t *testing.T, content models.Content) *models.Document {
	t.Helper()
	doc := &models.Document{
		ID: "doc-1", Author: "author-1", CustomForm: "project-form",
		CurrentVersion: "v1", Published: true, Revision: 1,
	}
	require.NoError(t, e.docs.Create(context.Background(), doc))
	require.NoError(t, e.versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1, Content: content,
	}))
	return doc
}

func (e *testEnv) mustComment(t *testing.T, caller, field string) *models.Comment {
	t.Helper()
	c, err := e.svc.Create(context.Background(), &services.CreateCommentRequest{
		Document: "doc-1",
		Caller:   caller,
		Field:    field,
		Content:  "needs work",
	})
	require.NoError(t, err)
	return c
}

func TestCreateBumpsCounterAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	c := env.mustComment(t, "user-2", models.FieldArticles)
	require.Equal(t, "v1", c.Version)
	require.True(t, c.IsContributionField())

	doc, err := env.docs.GetByID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, 1, doc.CommentsCount)
	require.Equal(t, []services.NotificationKind{services.KindCommentNew}, env.notifier.Kinds())
}

func TestCreateByDocumentAuthorSkipsNotification(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	env.mustComment(t, "author-1", "fundation")
	require.Empty(t, env.notifier.Kinds())
}

func TestCreateRejectsNonCommentableField(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	_, err := env.svc.Create(context.Background(), &services.CreateCommentRequest{
		Document: "doc-1",
		Caller:   "user-2",
		Field:    "title",
		Content:  "typo",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateRejectsClosedDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A", "closingDate": "2020-01-01"})

	_, err := env.svc.Create(context.Background(), &services.CreateCommentRequest{
		Document: "doc-1",
		Caller:   "user-2",
		Field:    models.FieldArticles,
		Content:  "late",
	})
	require.ErrorIs(t, err, domain.ErrDocumentClosed)
}

func TestListRequiresFieldOrIDs(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	_, err := env.svc.ListByDocument(context.Background(), "doc-1", services.ListCommentsOptions{}, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestListCarriesLikeState(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	c := env.mustComment(t, "user-2", models.FieldArticles)

	_, err := env.svc.ToggleLike(context.Background(), "doc-1", c.ID, "user-3")
	require.NoError(t, err)

	views, err := env.svc.ListByDocument(context.Background(), "doc-1",
		services.ListCommentsOptions{Field: models.FieldArticles}, "user-3")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, 1, views[0].Likes)
	require.True(t, views[0].IsLiked)

	views, err = env.svc.ListByDocument(context.Background(), "doc-1",
		services.ListCommentsOptions{Field: models.FieldArticles}, "user-4")
	require.NoError(t, err)
	require.False(t, views[0].IsLiked)
}

func TestResolveIsAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	c := env.mustComment(t, "user-2", models.FieldArticles)

	_, err := env.svc.Resolve(context.Background(), "doc-1", c.ID, "user-2")
	require.ErrorIs(t, err, domain.ErrForbidden)

	resolved, err := env.svc.Resolve(context.Background(), "doc-1", c.ID, "author-1")
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.Contains(t, env.notifier.Kinds(), services.KindCommentResolved)
}

func TestReplyIsAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	c := env.mustComment(t, "user-2", models.FieldArticles)

	_, err := env.svc.Reply(context.Background(), "doc-1", c.ID, "user-2", "thanks")
	require.ErrorIs(t, err, domain.ErrForbidden)

	replied, err := env.svc.Reply(context.Background(), "doc-1", c.ID, "author-1", "thanks")
	require.NoError(t, err)
	require.Equal(t, "thanks", replied.Reply)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	c := env.mustComment(t, "user-2", models.FieldArticles)

	like, err := env.svc.ToggleLike(context.Background(), "doc-1", c.ID, "user-3")
	require.NoError(t, err)
	require.NotNil(t, like)

	// Second toggle removes the like.
	like, err = env.svc.ToggleLike(context.Background(), "doc-1", c.ID, "user-3")
	require.NoError(t, err)
	require.Nil(t, like)

	n, err := env.likes.CountByComment(context.Background(), c.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDeleteAuthorshipRules(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	c1 := env.mustComment(t, "user-2", models.FieldArticles)
	c2 := env.mustComment(t, "user-2", models.FieldArticles)

	err := env.svc.Delete(context.Background(), "doc-1", c1.ID, "user-3")
	require.ErrorIs(t, err, domain.ErrForbidden)

	// The comment author and the document author may both delete.
	require.NoError(t, env.svc.Delete(context.Background(), "doc-1", c1.ID, "user-2"))
	require.NoError(t, env.svc.Delete(context.Background(), "doc-1", c2.ID, "author-1"))

	doc, err := env.docs.GetByID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Zero(t, doc.CommentsCount)
}

func TestCommentOnOtherDocumentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	env.comments.Create(context.Background(), &models.Comment{ID: "c-x", Document: "doc-9", User: "user-2"})

	_, err := env.svc.Resolve(context.Background(), "doc-1", "c-x", "author-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
