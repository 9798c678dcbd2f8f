package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/triggerd/internal/metrics"
	"github.com/edvin/triggerd/internal/model"
)

// Version is stamped into the User-Agent default header.
var Version = "dev"

// Deliverer performs one webhook delivery attempt per due event and drives
// the event lifecycle from its outcome.
type Deliverer struct {
	store  EventStore
	client *http.Client
	logger zerolog.Logger

	// draining suppresses DB writes once graceful shutdown has begun, so a
	// cancelled in-flight attempt cannot record a state transition after its
	// event has been handed back to the queue.
	draining *atomic.Bool
}

func NewDeliverer(st EventStore, client *http.Client, logger zerolog.Logger, draining *atomic.Bool) *Deliverer {
	return &Deliverer{
		store:    st,
		client:   client,
		logger:   logger.With().Str("component", "deliverer").Logger(),
		draining: draining,
	}
}

// webhookPayload is the request body POSTed to the webhook.
type webhookPayload struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	ScheduledTime time.Time       `json:"scheduled_time"`
	Payload       json.RawMessage `json:"payload"`
	Comment       *string         `json:"comment,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

// Deliver runs one attempt for ev. It returns true when the event reached a
// recorded outcome (delivered, retry scheduled, error, or dead) and the
// caller may release ownership; false when the row is left locked, either
// because a write failed or because shutdown suppressed the outcome.
func (d *Deliverer) Deliver(ctx context.Context, ev *EventFull) bool {
	logger := d.logger.With().Str("event", ev.ID).Str("class", string(ev.Class)).Logger()

	// Lateness check happens before any HTTP: an event past its tolerance is
	// declared dead without an invocation row.
	lateness := time.Since(ev.ScheduledTime)
	if lateness > time.Duration(ev.Retry.ToleranceSeconds)*time.Second {
		if d.draining.Load() {
			return false
		}
		if err := d.store.SetStatus(ctx, ev.ID, model.StatusDead, ev.Class); err != nil {
			logger.Error().Err(err).Msg("marking event dead failed")
			return false
		}
		metrics.EventsDead.WithLabelValues(string(ev.Class)).Inc()
		logger.Warn().Dur("lateness", lateness).Msg("event dead: exceeded lateness tolerance")
		return true
	}

	outcome := d.attempt(ctx, ev)

	if d.draining.Load() {
		return false
	}

	inv := model.Invocation{
		EventID:  ev.ID,
		Status:   outcome.status,
		Request:  marshalRequest(ev, outcome.body),
		Response: marshalResponse(outcome),
	}
	if err := d.store.InsertInvocation(ctx, inv, ev.Class); err != nil {
		logger.Error().Err(err).Msg("recording invocation failed")
		return false
	}

	if outcome.delivered {
		if err := d.store.SetStatus(ctx, ev.ID, model.StatusDelivered, ev.Class); err != nil {
			logger.Error().Err(err).Msg("marking event delivered failed")
			return false
		}
		metrics.EventsDelivered.WithLabelValues(string(ev.Class)).Inc()
		logger.Info().Int("status", outcome.status).Int("tries", ev.Tries+1).Msg("event delivered")
		return true
	}

	return d.retryOrFail(ctx, ev, outcome, logger)
}

// attemptOutcome captures everything retry logic and the invocation record
// need from one HTTP attempt.
type attemptOutcome struct {
	status     int    // observed or synthetic status code
	delivered  bool   // status < 400
	body       []byte // request body as sent
	respBody   string
	respHeader http.Header // nil on transport and parse errors
	errMessage string      // set on transport and parse errors
	clientErr  bool        // 400 <= status < 500
}

func (d *Deliverer) attempt(ctx context.Context, ev *EventFull) attemptOutcome {
	body, err := json.Marshal(buildPayload(ev))
	if err != nil {
		// An unencodable body is recorded with the synthetic other-error
		// status and then goes through the usual retry logic.
		return attemptOutcome{status: model.StatusCodeOtherError, errMessage: fmt.Sprintf("encode request body: %v", err)}
	}
	out := attemptOutcome{body: body}

	if timeout := requestTimeout(ev.Retry.TimeoutSeconds); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ev.URL, bytes.NewReader(body))
	if err != nil {
		out.status = model.StatusCodeTransportError
		out.errMessage = fmt.Sprintf("create request: %v", err)
		return out
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "triggerd/"+Version)
	for _, h := range ev.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		out.status = model.StatusCodeTransportError
		out.errMessage = fmt.Sprintf("webhook POST: %v", err)
		return out
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		out.status = model.StatusCodeParseError
		out.errMessage = fmt.Sprintf("read response body: %v", err)
		return out
	}

	out.status = resp.StatusCode
	out.respBody = string(respBody)
	out.respHeader = resp.Header
	out.delivered = resp.StatusCode < 400
	out.clientErr = resp.StatusCode >= 400 && resp.StatusCode < 500
	return out
}

func (d *Deliverer) retryOrFail(ctx context.Context, ev *EventFull, outcome attemptOutcome, logger zerolog.Logger) bool {
	// Retry-After overrides the tries-exhausted check: the server may extend
	// the attempt budget.
	delay, hasRetryAfter := retryAfterSeconds(outcome.respHeader)

	if !hasRetryAfter {
		if ev.Tries >= ev.Retry.NumRetries {
			if err := d.store.SetStatus(ctx, ev.ID, model.StatusError, ev.Class); err != nil {
				logger.Error().Err(err).Msg("marking event errored failed")
				return false
			}
			metrics.EventsErrored.WithLabelValues(string(ev.Class)).Inc()
			logger.Warn().Int("status", outcome.status).Int("tries", ev.Tries+1).Msg("event errored: retries exhausted")
			return true
		}
		delay = time.Duration(ev.Retry.RetryIntervalSeconds) * time.Second
	}

	retryAt := time.Now().Add(delay)
	if err := d.store.SetRetry(ctx, ev.ID, retryAt, ev.Class); err != nil {
		logger.Error().Err(err).Msg("scheduling retry failed")
		return false
	}
	metrics.EventsRetried.WithLabelValues(string(ev.Class)).Inc()
	logger.Info().Int("status", outcome.status).Time("retry_at", retryAt).Msg("event rescheduled for retry")
	return true
}

func buildPayload(ev *EventFull) webhookPayload {
	p := webhookPayload{
		ID:            ev.ID,
		Name:          ev.TriggerName,
		ScheduledTime: ev.ScheduledTime,
		Payload:       ev.Payload, // nil marshals as JSON null
		Comment:       ev.Comment,
	}
	if ev.Class == model.ClassOneOff {
		createdAt := ev.CreatedAt
		p.CreatedAt = &createdAt
	}
	return p
}

func requestTimeout(seconds float64) time.Duration {
	rounded := math.Round(seconds)
	if rounded < 0 {
		rounded = 0
	}
	return time.Duration(rounded) * time.Second
}

// retryAfterSeconds extracts a Retry-After header as a non-negative integer
// number of seconds. Absent, unparseable, and negative values are ignored.
func retryAfterSeconds(header http.Header) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func marshalRequest(ev *EventFull, body []byte) json.RawMessage {
	req := model.InvocationRequest{
		Body:    body,
		Headers: ev.Headers,
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func marshalResponse(outcome attemptOutcome) json.RawMessage {
	var resp model.InvocationResponse
	switch {
	case outcome.errMessage != "":
		resp = model.InvocationResponse{
			Type:    model.ResponseTypeError,
			Message: outcome.errMessage,
		}
	case outcome.clientErr:
		resp = model.InvocationResponse{
			Type:   model.ResponseTypeClientError,
			Status: outcome.status,
			Body:   outcome.respBody,
		}
	default:
		resp = model.InvocationResponse{
			Type:    model.ResponseTypeHTTP,
			Status:  outcome.status,
			Body:    outcome.respBody,
			Headers: flattenHeader(outcome.respHeader),
		}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func flattenHeader(header http.Header) []model.ResolvedHeader {
	if header == nil {
		return nil
	}
	out := make([]model.ResolvedHeader, 0, len(header))
	for name, values := range header {
		for _, v := range values {
			out = append(out, model.ResolvedHeader{Name: name, Value: v})
		}
	}
	return out
}
