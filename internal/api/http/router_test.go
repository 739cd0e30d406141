package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/api/http/handlers"
	"github.com/spec-kit/listing-bot/internal/auth"
	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/repository"
)

const moderatorID int64 = 900

type fakeModerator struct {
	mu        sync.Mutex
	entries   []domain.ModerationEntry
	published []string
	rejected  map[string]string
	err       error
}

func (f *fakeModerator) Pending(context.Context) ([]domain.ModerationEntry, error) {
	return f.entries, nil
}

func (f *fakeModerator) Publish(_ context.Context, _ int64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeModerator) Reject(_ context.Context, _ int64, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.rejected == nil {
		f.rejected = map[string]string{}
	}
	f.rejected[id] = reason
	return nil
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	got []domain.Inbound
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, in domain.Inbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
	return nil
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type testServer struct {
	app       *fiber.App
	moderator *fakeModerator
	enqueuer  *recordingEnqueuer
	repo      *repository.MemorySubmissionRepository
	token     string
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("listing_bot_test")
	tokens := auth.NewTokenManager("secret", 10)
	token, _, err := tokens.GenerateToken(moderatorID)
	require.NoError(t, err)

	srv := &testServer{
		app:       fiber.New(),
		moderator: &fakeModerator{},
		enqueuer:  &recordingEnqueuer{},
		repo:      repository.NewMemorySubmissionRepository(),
		token:     token,
	}
	RegisterMiddlewares(srv.app, logger, metrics, time.Second)
	RegisterRoutes(srv.app, RouteConfig{
		Health:         handlers.NewHealthHandler("listing-bot", "test", deps),
		Moderation:     handlers.NewModerationHandler(srv.moderator, srv.repo),
		Webhook:        handlers.NewWebhookHandler("hook-secret", srv.enqueuer, logger),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		IsModerator:    func(id int64) bool { return id == moderatorID },
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]any{}
	_ = json.Unmarshal(raw, &payload)
	return resp, payload
}

func errorCode(payload map[string]any) string {
	errObj, _ := payload["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, map[string]handlers.Pinger{
		"redis": pingFunc(func(context.Context) error { return nil }),
	})
	resp, payload := srv.do(t, http.MethodGet, "/health/live", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", payload["status"])

	resp, payload = srv.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", payload["status"])

	down := newTestServer(t, map[string]handlers.Pinger{
		"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	resp, payload = down.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(payload))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, http.MethodGet, "/health/live", "", false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "listing_bot_test_http_requests_total")
}

func TestWebhookForwardsUpdates(t *testing.T) {
	srv := newTestServer(t, nil)
	update := `{"update_id":7,"message":{"message_id":1,"date":1,"from":{"id":42,"is_bot":false,"first_name":"A"},"chat":{"id":42,"type":"private"},"text":"Кафе"}}`

	resp, _ := srv.do(t, http.MethodPost, "/telegram/webhook/wrong", update, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, srv.enqueuer.got)

	resp, _ = srv.do(t, http.MethodPost, "/telegram/webhook/hook-secret", update, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, srv.enqueuer.got, 1)
	assert.Equal(t, int64(42), srv.enqueuer.got[0].UserID)
	assert.Equal(t, "Кафе", srv.enqueuer.got[0].Text)
}

func TestModerationRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, payload := srv.do(t, http.MethodGet, "/api/v1/moderation/queue", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(payload))
}

func TestModerationQueueAndDecisions(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.moderator.entries = []domain.ModerationEntry{{
		ID:     "sub-1",
		UserID: 42,
		Kind:   domain.SubmissionKindSell,
		Data:   domain.SessionData{Title: "Кофейня", City: "Казань", Price: 2500000},
	}}

	resp, payload := srv.do(t, http.MethodGet, "/api/v1/moderation/queue", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := payload["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Кофейня", items[0].(map[string]any)["title"])

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/moderation/submissions/sub-1/publish", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"sub-1"}, srv.moderator.published)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/moderation/submissions/sub-2/reject", `{"reason":"  "}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/moderation/submissions/sub-2/reject", `{"reason":"нет фото"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "нет фото", srv.moderator.rejected["sub-2"])
}

func TestModerationDecisionErrorsMapToStatus(t *testing.T) {
	srv := newTestServer(t, nil)

	srv.moderator.err = domain.ErrAlreadyHandled
	resp, payload := srv.do(t, http.MethodPost, "/api/v1/moderation/submissions/sub-1/publish", "", true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_HANDLED", errorCode(payload))

	srv.moderator.err = domain.ErrNotPublishable
	resp, _ = srv.do(t, http.MethodPost, "/api/v1/moderation/submissions/sub-1/publish", "", true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSubmissionArchive(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, srv.repo.Create(ctx, &domain.Submission{ID: "a", UserID: 1, Kind: domain.SubmissionKindSell}))
	require.NoError(t, srv.repo.Create(ctx, &domain.Submission{ID: "b", UserID: 2, Kind: domain.SubmissionKindBuy}))

	resp, payload := srv.do(t, http.MethodGet, "/api/v1/moderation/submissions?kind=buy", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ := payload["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].(map[string]any)["id"])

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/moderation/submissions?status=archived", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(payload))

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/moderation/submissions/a", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := payload["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/moderation/submissions/missing", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(payload))
}
