package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/database"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/gate"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"github.com/htonioni/smart-note-ai/internal/server"
	"github.com/htonioni/smart-note-ai/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticGenerator struct {
	content ai.Content
}

func (g staticGenerator) Generate(context.Context, string, string) (ai.Content, error) {
	return g.content, nil
}

func newAPIServer(t *testing.T, deps server.Dependencies) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "notes.db"), zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	service, err := notes.NewService(notes.ServiceConfig{Database: db})
	require.NoError(t, err)
	deps.NotesService = service

	handler, err := server.NewHTTPHandler(deps)
	require.NoError(t, err)
	apiServer := httptest.NewServer(handler)
	t.Cleanup(apiServer.Close)
	return apiServer
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	apiClient, err := New(Config{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return apiClient
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, errMissingBaseURL)

	_, err = New(Config{BaseURL: "localhost"})
	require.Error(t, err)
}

func TestClientRoundTripsNotes(t *testing.T) {
	apiServer := newAPIServer(t, server.Dependencies{})
	apiClient := newClient(t, apiServer.URL)
	ctx := context.Background()

	created, err := apiClient.Create(ctx, notes.Fields{Title: "Groceries", Body: "Milk and eggs"})
	require.NoError(t, err)
	require.Positive(t, int64(created.ID))
	require.Nil(t, created.Tags)
	require.False(t, created.UpdatedAt.IsZero())

	updated, err := apiClient.Update(ctx, created.ID, notes.Fields{
		Title:   "Groceries",
		Body:    "Milk, eggs and bread",
		Tags:    []string{"grocery"},
		Summary: notes.StringPointer("Weekly shopping."),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"grocery"}, updated.Tags)
	require.Equal(t, "Weekly shopping.", *updated.Summary)

	listed, err := apiClient.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)

	require.NoError(t, apiClient.Delete(ctx, created.ID))
	err = apiClient.Delete(ctx, created.ID)
	require.True(t, errs.Is(err, errs.NotFound), "expected not found, got %v", err)
}

func TestClientSurfacesServerKinds(t *testing.T) {
	apiServer := newAPIServer(t, server.Dependencies{})
	apiClient := newClient(t, apiServer.URL)

	_, err := apiClient.Create(context.Background(), notes.Fields{Title: " ", Body: "body"})
	require.Equal(t, errs.Validation, errs.KindOf(err))
	require.Equal(t, "title is required", errs.MessageOf(err))

	_, err = apiClient.Generate(context.Background(), "title", "body")
	require.Equal(t, errs.Unavailable, errs.KindOf(err))
}

func TestClientUnlocksGate(t *testing.T) {
	accessGate, err := gate.New(gate.Config{Answer: "open sesame", SigningSecret: []byte("secret")})
	require.NoError(t, err)
	apiServer := newAPIServer(t, server.Dependencies{
		Gate:      accessGate,
		Generator: staticGenerator{content: ai.Content{Tags: []string{"list"}, Summary: "A list."}},
	})
	apiClient := newClient(t, apiServer.URL)
	ctx := context.Background()

	_, err = apiClient.List(ctx)
	require.Equal(t, errs.InvalidRequest, errs.KindOf(err))
	require.Equal(t, messageGateLocked, errs.MessageOf(err))

	err = apiClient.Unlock(ctx, "wrong")
	require.Equal(t, errs.InvalidRequest, errs.KindOf(err))

	require.NoError(t, apiClient.Unlock(ctx, "Open Sesame"))
	_, err = apiClient.List(ctx)
	require.NoError(t, err)

	content, err := apiClient.Generate(ctx, "title", "body")
	require.NoError(t, err)
	require.Equal(t, "A list.", content.Summary)
}

func TestStatusMapping(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		wantKind    errs.Kind
		wantMessage string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{}`, wantKind: errs.InvalidRequest, wantMessage: "bad request"},
		{name: "validation reported", status: http.StatusBadRequest, body: `{"error":"validation","message":"body is required"}`, wantKind: errs.Validation, wantMessage: "body is required"},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: ``, wantKind: errs.InvalidRequest},
		{name: "unauthorized", status: http.StatusUnauthorized, body: ``, wantKind: errs.InvalidRequest, wantMessage: messageGateLocked},
		{name: "forbidden", status: http.StatusForbidden, body: `not json`, wantKind: errs.InvalidRequest, wantMessage: messageGateLocked},
		{name: "not found", status: http.StatusNotFound, body: ``, wantKind: errs.NotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, wantKind: errs.RateLimited},
		{name: "server", status: http.StatusInternalServerError, body: ``, wantKind: errs.Server},
		{name: "bad gateway", status: http.StatusBadGateway, body: ``, wantKind: errs.Unavailable},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, body: ``, wantKind: errs.Unavailable},
		{name: "unknown reported kind ignored", status: http.StatusServiceUnavailable, body: `{"error":"mystery"}`, wantKind: errs.Unavailable},
		{name: "teapot", status: http.StatusTeapot, body: ``, wantKind: errs.Unknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer apiServer.Close()

			_, err := newClient(t, apiServer.URL).List(context.Background())
			require.Error(t, err)
			require.Equal(t, testCase.wantKind, errs.KindOf(err))
			if testCase.wantMessage != "" {
				require.Equal(t, testCase.wantMessage, errs.MessageOf(err))
			}
		})
	}
}

func TestMalformedErrorBodiesAreLogged(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	}))
	defer apiServer.Close()

	core, logs := observer.New(zap.DebugLevel)
	apiClient, err := New(Config{BaseURL: apiServer.URL, Logger: zap.New(core)})
	require.NoError(t, err)

	_, err = apiClient.List(context.Background())
	require.Equal(t, errs.Unavailable, errs.KindOf(err))

	entries := logs.FilterMessage("malformed error body").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/api/notes", fields["path"])
	require.Equal(t, int64(http.StatusBadGateway), fields["status"])
}

func TestTransportFailureIsConnection(t *testing.T) {
	apiServer := httptest.NewServer(http.NotFoundHandler())
	baseURL := apiServer.URL
	apiServer.Close()

	_, err := newClient(t, baseURL).List(context.Background())
	require.Equal(t, errs.Connection, errs.KindOf(err))
}

func TestListDecodesTimestampsLeniently(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"title":"a","body":"b","tags":null,"summary":null,"createdAt":"2024-01-05T10:00:00Z","updatedAt":"2024-01-05T10:00:00.123Z"},
			{"id":2,"title":"c","body":"d","tags":[],"summary":"s","createdAt":"yesterday","updatedAt":"not a date"}
		]`))
	}))
	defer apiServer.Close()

	listed, err := newClient(t, apiServer.URL).List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, time.Date(2024, time.January, 5, 10, 0, 0, 123000000, time.UTC), listed[0].UpdatedAt.UTC())
	require.Nil(t, listed[0].Tags)
	require.True(t, listed[1].UpdatedAt.IsZero())
	require.NotNil(t, listed[1].Tags)
	require.Empty(t, listed[1].Tags)
}

func TestSessionOverHTTP(t *testing.T) {
	apiServer := newAPIServer(t, server.Dependencies{
		Generator: staticGenerator{content: ai.Content{Tags: []string{"errand"}, Summary: "Buy milk."}},
	})
	apiClient := newClient(t, apiServer.URL)
	ctx := context.Background()

	noteSession, err := session.New(session.Config{Repository: apiClient, Enricher: apiClient})
	require.NoError(t, err)
	require.NoError(t, noteSession.Load(ctx))
	require.False(t, noteSession.Loading())

	created, err := noteSession.Create(ctx, "Errand", "Buy milk", true)
	require.NoError(t, err)
	require.Equal(t, []string{"errand"}, created.Tags)
	require.Equal(t, "Note Created successfully!", noteSession.Notifications().Current().Message)

	noteSession.SetQuery("milk")
	require.Len(t, noteSession.Filtered(), 1)

	cleared, err := noteSession.ClearSummary(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, cleared.Summary)
	require.Equal(t, []string{"errand"}, cleared.Tags)

	require.NoError(t, noteSession.Delete(ctx, created.ID))
	require.Empty(t, noteSession.Notes())
}
