package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository/sqlite"
	"github.com/wecube/server/internal/service"
)

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	store, _, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	broker := realtime.NewBroker()
	conversations := service.NewConversationService(store.Conversations(), store.Messages(), store.Users(), store.Blocks(), broker)
	svc := Services{
		Auth:          service.NewAuthService(store.Users(), "test-secret", time.Hour),
		Users:         service.NewUserService(store.Users(), store.Blocks()),
		Blocks:        service.NewBlockService(store.Blocks(), store.Users(), broker),
		Conversations: conversations,
		Messages:      service.NewMessageService(store.Conversations(), store.Messages(), store.Blocks(), broker),
		Listings:      service.NewListingService(store.Listings(), store.Users(), conversations),
	}
	return &apiClient{t: t, router: NewRouter(svc, nil)}
}

func (c *apiClient) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (c *apiClient) register(email string) (token, userID string) {
	c.t.Helper()

	code, body := c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "Secret123",
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	user := body["user"].(map[string]any)
	return body["access_token"].(string), user["id"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestMessagingFlow(t *testing.T) {
	api := newAPI(t)
	aliceToken, _ := api.register("alice@example.com")
	bobToken, bobID := api.register("bob@example.com")

	code, conv := api.do(http.MethodPost, "/api/v1/conversations", aliceToken, map[string]string{"user_id": bobID})
	require.Equal(t, http.StatusOK, code, conv)
	convID := conv["id"].(string)

	code, _ = api.do(http.MethodPost, "/api/v1/conversations/"+convID+"/messages", aliceToken,
		map[string]string{"message": "hi bob"})
	require.Equal(t, http.StatusCreated, code)

	code, body := api.do(http.MethodGet, "/api/v1/messages/unread-count", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["count"])

	code, body = api.do(http.MethodPost, "/api/v1/conversations/"+convID+"/read", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["updated"])

	code, body = api.do(http.MethodGet, "/api/v1/conversations/"+convID, bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["has_unread"])

	code, body = api.do(http.MethodPost, "/api/v1/conversations/"+convID+"/messages", aliceToken,
		map[string]string{"message": "   "})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_ERROR", errorCode(body))

	code, _ = api.do(http.MethodPost, "/api/v1/users/"+bobID+"/block", aliceToken, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, body = api.do(http.MethodPost, "/api/v1/conversations/"+convID+"/messages", bobToken,
		map[string]string{"message": "can you hear me?"})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "BLOCKED", errorCode(body))
}

func TestAuthAndErrorMapping(t *testing.T) {
	api := newAPI(t)

	code, body := api.do(http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "UNAUTHORIZED", errorCode(body))

	code, _ = api.do(http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	token, _ := api.register("carol@example.com")
	code, body = api.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "carol@example.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "CONFLICT", errorCode(body))

	code, body = api.do(http.MethodGet, "/api/v1/conversations/a_b", token, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", errorCode(body))

	code, body = api.do(http.MethodPatch, "/api/v1/users/me", token, map[string]string{"username": "support"})
	require.Equal(t, http.StatusBadRequest, code)
	fields := body["error"].(map[string]any)["fields"].(map[string]any)
	require.Contains(t, fields, "username")
}

func TestTransientErrorsAreRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, "test", domain.Transient(errors.New("connection refused")))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["error"].(map[string]any)["retryable"])
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
