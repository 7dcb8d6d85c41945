package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
)

// Sink delivers event batches to the ingest collaborator.
//
// Deliver is the confirmed path: a non-nil error means the caller must
// assume nothing was persisted and requeue the batch. DeliverBestEffort is
// the unload path: fire-and-forget with no confirmation, used when the
// process is going away and waiting for an answer is not an option. Events
// handed to it can be lost if the process terminates before transmission
// completes; that window is accepted by design of the pipeline.
type Sink interface {
	Deliver(ctx context.Context, batch domain.EventBatch) error
	DeliverBestEffort(batch domain.EventBatch)
}

// bestEffortTimeout bounds the unload transmission so it cannot hold the
// process open.
const bestEffortTimeout = 2 * time.Second

// HTTPSink posts batches to the backend ingest endpoint.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPSink creates a sink posting to the given ingest URL. Timeouts
// defer to the supplied client; pass nil for http.DefaultClient.
func NewHTTPSink(endpoint string, client *http.Client, logger *slog.Logger) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{endpoint: endpoint, client: client, logger: logger}
}

// Deliver posts the batch and confirms persistence via the response status.
func (s *HTTPSink) Deliver(ctx context.Context, batch domain.EventBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ingest rejected batch: status %d", resp.StatusCode)
	}
	return nil
}

// DeliverBestEffort transmits the batch without confirmation. Errors are
// logged and otherwise ignored; there is nobody left to retry for.
func (s *HTTPSink) DeliverBestEffort(batch domain.EventBatch) {
	ctx, cancel := context.WithTimeout(context.Background(), bestEffortTimeout)
	defer cancel()

	if err := s.Deliver(ctx, batch); err != nil {
		s.logger.Debug("best-effort batch transmission failed",
			"error", err,
			"batch_id", batch.BatchID,
			"events", len(batch.Events))
	}
}
