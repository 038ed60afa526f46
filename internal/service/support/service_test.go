package support

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
	"participa/internal/testutil"
)

type testEnv struct {
	svc      *supportService
	docs     *testutil.DocumentRepo
	versions *testutil.VersionRepo
	tokens   *testutil.SupportTokenRepo
	notifier *testutil.Notifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		docs:     &testutil.DocumentRepo{},
		versions: &testutil.VersionRepo{},
		tokens:   &testutil.SupportTokenRepo{},
		notifier: &testutil.Notifier{},
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewService(env.docs, env.versions, env.tokens, testutil.StaticCaptcha{Answer: "Kittens"}, env.notifier, logger)
	env.svc = svc.(*supportService)
	return env
}

func (e *testEnv) seedDocument(t *testing.T, content models.Content) *models.Document {
	t.Helper()
	doc := &models.Document{ID: "doc-1", Author: "user-1", CurrentVersion: "v1", Published: true, Revision: 1}
	require.NoError(t, e.docs.Create(context.Background(), doc))
	require.NoError(t, e.versions.Create(context.Background(), &models.Version{
		ID: "v1", Document: "doc-1", Version: 1, Content: content,
	}))
	return doc
}

func validRequest() *services.SupportRequest {
	return &services.SupportRequest{
		DocumentID:    "doc-1",
		Email:         "ada@example.org",
		DisplayName:   "Ada",
		CaptchaAnswer: "kittens",
		Fingerprint:   fingerprint("kittens"),
	}
}

func TestRequestCaptchaFingerprintsLowercasedAnswer(t *testing.T) {
	env := newTestEnv(t)

	data, err := env.svc.RequestCaptcha(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, data.Image)
	// The provider issued "Kittens"; the fingerprint must accept any casing
	// of the answer.
	require.Equal(t, fingerprint("kittens"), data.Fingerprint)
	require.Equal(t, fingerprint("KITTENS"), data.Fingerprint)
}

func TestRequestSupportIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	require.NoError(t, env.svc.RequestSupport(context.Background(), validRequest()))

	token, err := env.tokens.GetByEmail(context.Background(), "ada@example.org")
	require.NoError(t, err)
	require.Equal(t, "doc-1", token.Document)
	require.NotEmpty(t, token.Token)

	require.Equal(t, []services.NotificationKind{services.KindSupportValidation}, env.notifier.Kinds())

	// The support itself is not applied until the mail link is clicked.
	doc, err := env.docs.GetByID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Empty(t, doc.Apoyos)
}

func TestRequestSupportRejectsWrongCaptcha(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	req := validRequest()
	req.CaptchaAnswer = "puppies"
	err := env.svc.RequestSupport(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrCaptchaMismatch)
}

func TestRequestSupportRejectsClosedDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A", "closingDate": "2020-01-01"})

	err := env.svc.RequestSupport(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrDocumentClosed)
}

func TestRequestSupportRejectsExistingSupporter(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	require.NoError(t, env.docs.AppendSupport(context.Background(), "doc-1", models.Support{Email: "ada@example.org"}))

	err := env.svc.RequestSupport(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRequestSupportExistingSupporterWinsOverClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A", "closingDate": "2020-01-01"})
	require.NoError(t, env.docs.AppendSupport(context.Background(), "doc-1", models.Support{Email: "ada@example.org"}))

	// When the caller already signed a now-closed document, the duplicate
	// signature is what gets reported.
	err := env.svc.RequestSupport(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRequestSupportInsideValidationWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	require.NoError(t, env.svc.RequestSupport(context.Background(), validRequest()))
	err := env.svc.RequestSupport(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrPendingValidation)
}

func TestRequestSupportReplacesStaleToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	require.NoError(t, env.svc.RequestSupport(context.Background(), validRequest()))
	first, err := env.tokens.GetByEmail(context.Background(), "ada@example.org")
	require.NoError(t, err)

	env.svc.now = func() time.Time { return time.Now().Add(models.SupportTokenTTL + time.Hour) }
	require.NoError(t, env.svc.RequestSupport(context.Background(), validRequest()))

	second, err := env.tokens.GetByEmail(context.Background(), "ada@example.org")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = env.tokens.GetByToken(context.Background(), first.Token)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmSupportAppliesSignatureOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})
	require.NoError(t, env.svc.RequestSupport(context.Background(), validRequest()))
	token, err := env.tokens.GetByEmail(context.Background(), "ada@example.org")
	require.NoError(t, err)

	view, err := env.svc.ConfirmSupport(context.Background(), token.Token)
	require.NoError(t, err)
	require.Equal(t, 1, view.ApoyosCount)
	require.Nil(t, view.Document.Apoyos)

	doc, err := env.docs.GetByID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, doc.Apoyos, 1)
	require.Equal(t, "ada@example.org", doc.Apoyos[0].Email)
	require.Equal(t, "Ada", doc.Apoyos[0].DisplayName)

	// The token is consumed: a second click fails, the signature stays
	// single.
	_, err = env.svc.ConfirmSupport(context.Background(), token.Token)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmSupportUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ConfirmSupport(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.ConfirmSupport(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestSupportValidatesEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedDocument(t, models.Content{"title": "A"})

	req := validRequest()
	req.Email = "not-an-email"
	err := env.svc.RequestSupport(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrValidation)
}
