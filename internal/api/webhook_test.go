// internal/api/webhook_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FishTankManager/GithubAquarium-Back/internal/ingest"
	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/queue"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store/storemock"
)

const testSecret = "hook-secret"

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncUser(ctx context.Context, githubID int64) error {
	args := m.Called(ctx, githubID)
	return args.Error(0)
}

type testAPI struct {
	router     http.Handler
	db         *storemock.Querier
	syncer     *mockSyncer
	dispatcher *queue.Dispatcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db := new(storemock.Querier)
	syncer := new(mockSyncer)
	dispatcher := queue.NewDispatcher(1, 16, logger)
	processor := ingest.NewProcessor(db, logger)

	return &testAPI{
		router:     NewRouter(db, dispatcher, processor, syncer, testSecret, logger),
		db:         db,
		syncer:     syncer,
		dispatcher: dispatcher,
	}
}

func postWebhook(api *testAPI, event string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

func TestHandleWebhook(t *testing.T) {
	pushBody := []byte(`{
		"ref": "refs/heads/feature/quiet",
		"repository": {
			"id": 12345,
			"name": "reef",
			"full_name": "octo/reef",
			"default_branch": "main",
			"owner": {"id": 99, "login": "octo"}
		},
		"commits": []
	}`)

	t.Run("rejects an unsigned delivery", func(t *testing.T) {
		api := newTestAPI(t)
		defer api.dispatcher.Shutdown()

		rr := postWebhook(api, "push", pushBody, "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
		api.db.AssertNotCalled(t, "GetRepositoryByGithubID", mock.Anything, mock.Anything)
	})

	t.Run("rejects a forged signature", func(t *testing.T) {
		api := newTestAPI(t)
		defer api.dispatcher.Shutdown()

		rr := postWebhook(api, "push", pushBody, ingest.Sign("some other secret", pushBody))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		api.db.AssertNotCalled(t, "GetRepositoryByGithubID", mock.Anything, mock.Anything)
	})

	t.Run("queues a signed push and responds immediately", func(t *testing.T) {
		api := newTestAPI(t)
		// The queued job sees this push targeting a side branch and stops
		// after the default-branch lookup.
		api.db.On("GetRepositoryByGithubID", mock.Anything, int64(12345)).
			Return(model.Repository{ID: 7, GithubID: 12345, DefaultBranch: "main"}, nil).Once()

		rr := postWebhook(api, "push", pushBody, ingest.Sign(testSecret, pushBody))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "queued", resp["status"])
		assert.NotEmpty(t, resp["job_id"])

		api.dispatcher.Shutdown() // drain before asserting the job ran
		api.db.AssertExpectations(t)
	})

	t.Run("rejects a malformed push payload", func(t *testing.T) {
		api := newTestAPI(t)
		defer api.dispatcher.Shutdown()
		body := []byte(`{"ref": 42}`)

		rr := postWebhook(api, "push", body, ingest.Sign(testSecret, body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("acknowledges ping", func(t *testing.T) {
		api := newTestAPI(t)
		defer api.dispatcher.Shutdown()
		body := []byte(`{"zen": "Keep it logically awesome."}`)

		rr := postWebhook(api, "ping", body, ingest.Sign(testSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"ok"`)
	})

	t.Run("ignores unhandled event types", func(t *testing.T) {
		api := newTestAPI(t)
		defer api.dispatcher.Shutdown()
		body := []byte(`{"action": "opened"}`)

		rr := postWebhook(api, "issues", body, ingest.Sign(testSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"ignored"`)
	})

	t.Run("queues a signed star event", func(t *testing.T) {
		api := newTestAPI(t)
		body := []byte(`{
			"action": "created",
			"repository": {
				"id": 12345,
				"full_name": "octo/reef",
				"stargazers_count": 9,
				"owner": {"id": 99, "login": "octo"}
			}
		}`)
		api.db.On("GetRepositoryByGithubID", mock.Anything, int64(12345)).
			Return(model.Repository{ID: 7, GithubID: 12345}, nil).Once()
		api.db.On("UpdateRepositoryStargazers", mock.Anything, int64(7), 9).Return(nil).Once()

		rr := postWebhook(api, "star", body, ingest.Sign(testSecret, body))

		assert.Equal(t, http.StatusOK, rr.Code)
		api.dispatcher.Shutdown()
		api.db.AssertExpectations(t)
	})
}
