package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notification-hub/internal/handler"
	"github.com/sakif/notification-hub/internal/push"
	"github.com/sakif/notification-hub/internal/repository/sqldb"
	"github.com/sakif/notification-hub/internal/service"
)

// envelope is the decoded form of every success body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

type testAPI struct {
	router   http.Handler
	registry *push.MemoryRegistry
	store    *sqldb.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := push.NewMemoryRegistry(logger)
	dispatcher := push.NewDispatcher(registry, logger)

	notifications := service.NewNotificationService(store, dispatcher, logger)
	social := service.NewSocialService(store, notifications, logger)
	users := service.NewUserService(store.Users(), logger)
	presence := service.NewPresenceService(store.Users(), registry, logger)

	nh := handler.NewNotificationHandler(notifications, logger)
	sh := handler.NewSocialHandler(social, logger)
	uh := handler.NewUserHandler(users, logger)
	sse := handler.NewSSEHandler(presence, registry, 8, logger)
	health := handler.NewHealthHandler(store, time.Now(), logger)

	r := chi.NewRouter()
	r.NotFound(handler.HandleNotFound)
	r.Get("/health", health.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/sse/{userId}", sse.HandleStream)
		r.Get("/connections", sse.HandleConnections)
		r.Get("/notifications/{userId}", nh.HandleList)
		r.Put("/notifications/{userId}/{notificationId}/seen", nh.HandleMarkSeen)
		r.Delete("/notifications/{userId}", nh.HandleClear)
		r.Post("/notifications", nh.HandleCreate)
		r.Post("/notifications/one-to-one", nh.HandleCreateOneToOne)
		r.Get("/users", uh.HandleList)
		r.Get("/users/{userId}", uh.HandleGet)
		r.Post("/users", uh.HandleCreate)
		r.Put("/users/{userId}/status", uh.HandleUpdateStatus)
		r.Post("/follow", sh.HandleFollow)
		r.Post("/unfollow", sh.HandleUnfollow)
	})

	return &testAPI{router: r, registry: registry, store: store}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) createUser(t *testing.T, username string) string {
	t.Helper()

	rr := a.do(http.MethodPost, "/api/users", `{"username":"`+username+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	decodeData(t, rr, &created)
	require.NotEmpty(t, created.ID)
	return created.ID
}

func (a *testAPI) follow(t *testing.T, followerID, userID string) {
	t.Helper()

	rr := a.do(http.MethodPost, "/api/follow", `{"followerId":"`+followerID+`","userId":"`+userID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func (a *testAPI) setOnline(t *testing.T, userID string, online bool) {
	t.Helper()

	body := `{"isOnline":false}`
	if online {
		body = `{"isOnline":true}`
	}
	rr := a.do(http.MethodPut, "/api/users/"+userID+"/status", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.True(t, env.Success)
	return env.Message
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var body errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}
