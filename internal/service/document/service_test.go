package document

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/services"
	"participa/internal/forms"
	"participa/internal/testutil"
)

type testEnv struct {
	svc      *documentService
	docs     *testutil.DocumentRepo
	versions *testutil.VersionRepo
	comments *testutil.CommentRepo
	notifier *testutil.Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry, err := forms.NewRegistry()
	require.NoError(t, err)

	env := &testEnv{
		docs:     &testutil.DocumentRepo{},
		versions: &testutil.VersionRepo{},
		comments: &testutil.CommentRepo{},
		notifier: &testutil.Notifier{},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	txManager := testutil.TxManager{Join: []testutil.Snapshotter{env.docs, env.versions}}
	svc := NewService(env.docs, env.versions, env.comments, txManager, registry, env.notifier, logger)
	env.svc = svc.(*documentService)
	return env
}

func projectContent(title string) models.Content {
	return models.Content{
		"title":     title,
		"fundation": map[string]interface{}{"text": "why this matters"},
		"articles":  map[string]interface{}{"1": "first article"},
	}
}

func (e *testEnv) mustCreate(t *testing.T, author string, published bool, content models.Content) *services.DocumentView {
	t.Helper()
	view, err := e.svc.Create(context.Background(), &services.CreateDocumentRequest{
		Author:     author,
		CustomForm: "project-form",
		Published:  published,
		Content:    content,
	})
	require.NoError(t, err)
	return view
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)

	view := env.mustCreate(t, "user-1", true, projectContent("Water access"))

	require.Equal(t, "user-1", view.Author)
	require.Equal(t, 1, view.Revision)
	require.Equal(t, "Water access", view.Content.Title())
	require.False(t, view.Closed)

	v1, err := env.versions.GetByNumber(context.Background(), view.ID, 1)
	require.NoError(t, err)
	require.Equal(t, view.CurrentVersion, v1.ID)
	require.Empty(t, v1.Contributions)
}

func TestCreateRejectsUnknownForm(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), &services.CreateDocumentRequest{
		Author:     "user-1",
		CustomForm: "no-such-form",
		Content:    projectContent("X"),
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateRejectsInvalidContent(t *testing.T) {
	env := newTestEnv(t)

	content := projectContent("X")
	delete(content, "articles")
	content["bogus"] = 1

	_, err := env.svc.Create(context.Background(), &services.CreateDocumentRequest{
		Author:     "user-1",
		CustomForm: "project-form",
		Content:    content,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Fields, 2)
}

func TestUpdateAmendsCurrentVersionInPlace(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("Title A"))

	updated, err := env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:  "user-1",
		Content: models.Content{"title": "Title B"},
	})
	require.NoError(t, err)
	require.Equal(t, "Title B", updated.Content.Title())
	require.Equal(t, view.CurrentVersion, updated.CurrentVersion)

	v1, err := env.versions.GetByNumber(context.Background(), view.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "Title B", v1.Content.Title())
	// The untouched keys of the snapshot survive the patch.
	require.Contains(t, v1.Content, "fundation")

	_, err = env.versions.GetByNumber(context.Background(), view.ID, 2)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateWithContributionsForksNewVersion(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("Title A"))
	env.comments.Create(context.Background(), &models.Comment{ID: "c1", Document: view.ID, User: "user-2", Field: "articles"})

	updated, err := env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:        "user-1",
		Content:       models.Content{"title": "Title C"},
		Contributions: []string{"c1"},
	})
	require.NoError(t, err)
	require.NotEqual(t, view.CurrentVersion, updated.CurrentVersion)

	v1, err := env.versions.GetByNumber(context.Background(), view.ID, 1)
	require.NoError(t, err)
	v2, err := env.versions.GetByNumber(context.Background(), view.ID, 2)
	require.NoError(t, err)

	// The fork left version 1 untouched and recorded only its own merges.
	require.Equal(t, "Title A", v1.Content.Title())
	require.Empty(t, v1.Contributions)
	require.Equal(t, "Title C", v2.Content.Title())
	require.Equal(t, []string{"c1"}, v2.Contributions)
	require.Equal(t, updated.CurrentVersion, v2.ID)

	require.Contains(t, env.notifier.Kinds(), services.KindCommentContribution)
}

func TestAmendThenForkScenario(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("Title A"))
	env.comments.Create(context.Background(), &models.Comment{ID: "c1", Document: view.ID, User: "user-2", Field: "articles"})

	_, err := env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:  "user-1",
		Content: models.Content{"title": "Title B"},
	})
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:        "user-1",
		Content:       models.Content{"title": "Title C"},
		Contributions: []string{"c1"},
	})
	require.NoError(t, err)

	v1, err := env.versions.GetByNumber(context.Background(), view.ID, 1)
	require.NoError(t, err)
	v2, err := env.versions.GetByNumber(context.Background(), view.ID, 2)
	require.NoError(t, err)
	require.Equal(t, "Title B", v1.Content.Title())
	require.Equal(t, "Title C", v2.Content.Title())
	require.Equal(t, []string{"c1"}, v2.Contributions)
}

func TestUpdateRevisionMismatch(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))

	stale := view.Revision
	_, err := env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:  "user-1",
		Content: models.Content{"title": "B"},
	})
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:   "user-1",
		Content:  models.Content{"title": "C"},
		Revision: &stale,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateRejectsNonAuthor(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))

	_, err := env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:  "user-2",
		Content: models.Content{"title": "B"},
	})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPublishedMailIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", false, projectContent("A"))

	published := true
	req := &services.UpdateDocumentRequest{
		Caller:    "user-1",
		Content:   models.Content{"sendTagsNotification": true},
		Published: &published,
	}
	_, err := env.svc.Update(context.Background(), view.ID, req)
	require.NoError(t, err)

	_, err = env.svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:    "user-1",
		Content:   models.Content{"sendTagsNotification": true},
		Published: &published,
	})
	require.NoError(t, err)

	count := 0
	for _, kind := range env.notifier.Kinds() {
		if kind == services.KindDocumentPublished {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestGetHidesDraftsFromOthers(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", false, projectContent("A"))

	_, err := env.svc.Get(context.Background(), view.ID, "")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.svc.Get(context.Background(), view.ID, "user-2")
	require.ErrorIs(t, err, domain.ErrForbidden)

	p, err := env.svc.Get(context.Background(), view.ID, "user-1")
	require.NoError(t, err)
	require.True(t, p.IsAuthor)
}

func TestGetClosedDocumentCarriesStats(t *testing.T) {
	env := newTestEnv(t)
	content := projectContent("A")
	content["closingDate"] = "2020-01-01"
	view := env.mustCreate(t, "user-1", true, content)

	env.comments.Create(context.Background(), &models.Comment{
		ID: "c1", Document: view.ID, User: "user-2", Field: "articles",
		Decoration: []byte(`{"range":[0,4]}`),
	})

	p, err := env.svc.Get(context.Background(), view.ID, "")
	require.NoError(t, err)
	require.True(t, p.Document.Closed)
	require.NotNil(t, p.ContributionStats)
	require.NotNil(t, p.ContextualCommentsCount)
	require.Equal(t, 1, *p.ContextualCommentsCount)
}

func TestGetVersion(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))

	p, err := env.svc.GetVersion(context.Background(), view.ID, 1, "")
	require.NoError(t, err)
	require.NotNil(t, p.RetrievedVersion)
	require.Equal(t, 1, p.RetrievedVersion.Version)

	_, err = env.svc.GetVersion(context.Background(), view.ID, 7, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSupportIsIdempotentPerUser(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))

	require.NoError(t, env.svc.Support(context.Background(), view.ID, "user-2"))
	require.NoError(t, env.svc.Support(context.Background(), view.ID, "user-2"))

	doc, err := env.docs.GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	require.Len(t, doc.Apoyos, 1)
}

func TestSupportRejectsClosedDocument(t *testing.T) {
	env := newTestEnv(t)
	content := projectContent("A")
	content["closingDate"] = "2020-01-01"
	view := env.mustCreate(t, "user-1", true, content)

	err := env.svc.Support(context.Background(), view.ID, "user-2")
	require.ErrorIs(t, err, domain.ErrDocumentClosed)
}

func TestCommentCounterClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))

	require.NoError(t, env.svc.SubtractComment(context.Background(), view.ID))
	require.NoError(t, env.svc.AddComment(context.Background(), view.ID))

	doc, err := env.docs.GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	require.Equal(t, 1, doc.CommentsCount)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)

	closedContent := projectContent("Closed one")
	closedContent["closingDate"] = "2020-01-01"
	tagged := projectContent("Tagged one")
	tagged.SetTags([]string{"tag-1"})

	env.mustCreate(t, "user-1", true, projectContent("Open one"))
	env.mustCreate(t, "user-1", true, closedContent)
	env.mustCreate(t, "user-2", true, tagged)
	env.mustCreate(t, "user-2", false, projectContent("Draft"))

	page, err := env.svc.List(context.Background(), services.ListDocumentsOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 3, page.Pagination.Count)
	// Open documents come before closed ones.
	require.False(t, page.Results[0].Closed)
	require.True(t, page.Results[len(page.Results)-1].Closed)

	closedOnly := true
	page, err = env.svc.List(context.Background(), services.ListDocumentsOptions{Page: 1, Limit: 10, Closed: &closedOnly})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, "Closed one", page.Results[0].Content.Title())

	page, err = env.svc.List(context.Background(), services.ListDocumentsOptions{Page: 1, Limit: 10, Tag: "tag-1"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, "Tagged one", page.Results[0].Content.Title())

	page, err = env.svc.List(context.Background(), services.ListDocumentsOptions{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, 2, page.Pagination.Pages)
}

func TestListMineIncludesDrafts(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "user-1", true, projectContent("Published"))
	env.mustCreate(t, "user-1", false, projectContent("Draft"))
	env.mustCreate(t, "user-2", true, projectContent("Other"))

	page, err := env.svc.ListMine(context.Background(), "user-1", services.ListDocumentsOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Pagination.Count)
}

func TestViewNeverLeaksSupportList(t *testing.T) {
	env := newTestEnv(t)
	view := env.mustCreate(t, "user-1", true, projectContent("A"))
	require.NoError(t, env.svc.Support(context.Background(), view.ID, "user-2"))

	p, err := env.svc.Get(context.Background(), view.ID, "user-2")
	require.NoError(t, err)
	require.Equal(t, 1, p.Document.ApoyosCount)
	require.Nil(t, p.Document.Apoyos)
	require.True(t, p.UserHasSupported)
}

func TestClosedStateIsDerivedAtReadTime(t *testing.T) {
	env := newTestEnv(t)
	content := projectContent("A")
	content["closingDate"] = time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	view := env.mustCreate(t, "user-1", true, content)

	p, err := env.svc.Get(context.Background(), view.ID, "")
	require.NoError(t, err)
	require.False(t, p.Document.Closed)

	// Move the clock past the closing date; no write happens in between.
	env.svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	p, err = env.svc.Get(context.Background(), view.ID, "")
	require.NoError(t, err)
	require.True(t, p.Document.Closed)
}

// lostRaceDocumentRepo lets a concurrent writer bump the envelope revision
// right after the first read, so the caller's revision-guarded write lands
// stale.
type lostRaceDocumentRepo struct {
	*testutil.DocumentRepo
	raced bool
}

func (r *lostRaceDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, err := r.DocumentRepo.GetByID(ctx, id)
	if err != nil || r.raced {
		return doc, err
	}
	r.raced = true
	winner := *doc
	if err := r.DocumentRepo.UpdateEnvelope(ctx, &winner); err != nil {
		return nil, err
	}
	return doc, nil
}

func TestUpdateForkRollsBackOnLostRevisionRace(t *testing.T) {
	registry, err := forms.NewRegistry()
	require.NoError(t, err)

	docs := &testutil.DocumentRepo{}
	versions := &testutil.VersionRepo{}
	comments := &testutil.CommentRepo{}
	racing := &lostRaceDocumentRepo{DocumentRepo: docs}
	txManager := testutil.TxManager{Join: []testutil.Snapshotter{docs, versions}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewService(racing, versions, comments, txManager, registry, &testutil.Notifier{}, logger)

	view, err := svc.Create(context.Background(), &services.CreateDocumentRequest{
		Author:     "user-1",
		CustomForm: "project-form",
		Published:  true,
		Content:    projectContent("A"),
	})
	require.NoError(t, err)
	comments.Create(context.Background(), &models.Comment{ID: "c1", Document: view.ID, User: "user-2", Field: "articles"})

	_, err = svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:        "user-1",
		Content:       models.Content{"title": "B"},
		Contributions: []string{"c1"},
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	// The losing fork must not leave a version 2 behind: an orphan there
	// would collide with every later fork at the same number.
	_, err = versions.GetByNumber(context.Background(), view.ID, 2)
	require.ErrorIs(t, err, domain.ErrNotFound)

	doc, err := docs.GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	require.Equal(t, view.CurrentVersion, doc.CurrentVersion)

	// A clean retry takes the chain position the lost race gave up.
	updated, err := svc.Update(context.Background(), view.ID, &services.UpdateDocumentRequest{
		Caller:        "user-1",
		Content:       models.Content{"title": "B"},
		Contributions: []string{"c1"},
	})
	require.NoError(t, err)
	v2, err := versions.GetByNumber(context.Background(), view.ID, 2)
	require.NoError(t, err)
	require.Equal(t, updated.CurrentVersion, v2.ID)
}
