package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"participa/internal/domain/services"
)

func TestDispatchPostsEvent(t *testing.T) {
	var gotPath string
	var gotBody event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	n := NewHTTPNotifier(srv.URL, logger)

	n.dispatch(services.KindDocumentPublished, map[string]string{"document": "doc-1"})

	require.Equal(t, "/events/document-published", gotPath)
	require.Equal(t, services.KindDocumentPublished, gotBody.Kind)
	require.Equal(t, "doc-1", gotBody.Payload["document"])
}

func TestDispatchSwallowsFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	n := NewHTTPNotifier("http://127.0.0.1:0", logger)

	// Must not panic or block; failures are logged only.
	n.dispatch(services.KindCommentNew, map[string]string{"comment": "c1"})
}
