// internal/api/webhook.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/FishTankManager/GithubAquarium-Back/internal/ingest"
)

// GitHub caps webhook payloads at 25 MB.
const maxWebhookBody = 25 << 20

// handleWebhook receives GitHub webhook deliveries. The signature is verified
// synchronously over the raw body before anything else; event processing is
// queued so the response never waits on storage beyond the enqueue.
// POST /webhooks/github
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	if err := ingest.VerifySignature(h.webhookSecret, body, r.Header.Get("X-Hub-Signature-256")); err != nil {
		h.logger.Warn("Rejected webhook delivery", "error", err, "delivery", r.Header.Get("X-GitHub-Delivery"))
		respondWithError(w, http.StatusForbidden, "Invalid signature")
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	logger := h.logger.With("event", event, "delivery", r.Header.Get("X-GitHub-Delivery"))

	switch event {
	case "push":
		var ev ingest.PushEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed push payload")
			return
		}
		h.enqueueEvent(w, "webhook:push", func(ctx context.Context) error {
			return h.processor.ProcessPush(ctx, ev)
		})

	case "star":
		var ev ingest.StarEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed star payload")
			return
		}
		h.enqueueEvent(w, "webhook:star", func(ctx context.Context) error {
			return h.processor.ProcessStar(ctx, ev)
		})

	case "ping", "meta":
		logger.Info("Acknowledged administrative event")
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		logger.Info("Ignoring unhandled event type")
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *Handler) enqueueEvent(w http.ResponseWriter, name string, fn func(ctx context.Context) error) {
	jobID, err := h.dispatcher.Submit(name, fn)
	if err != nil {
		h.logger.Error("Failed to queue webhook event", "job", name, "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Event queue unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "queued", "job_id": jobID.String()})
}
