package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/triggerd/internal/api/request"
	"github.com/edvin/triggerd/internal/api/response"
	"github.com/edvin/triggerd/internal/model"
	"github.com/edvin/triggerd/internal/platform"
)

// EventStore is the slice of the store gateway the API uses.
type EventStore interface {
	InsertOneOffEvent(ctx context.Context, ev *model.OneOffEvent) error
	GetOneOffEvent(ctx context.Context, id string) (*model.OneOffEvent, error)
	CancelOneOffEvent(ctx context.Context, id string) (bool, error)
	ListInvocations(ctx context.Context, eventID string, class model.EventClass) ([]model.Invocation, error)
}

type Event struct {
	store EventStore
}

func NewEvent(store EventStore) *Event {
	return &Event{store: store}
}

// Create schedules a one-off event for future delivery.
func (h *Event) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateOneOffEvent
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Webhook.URL == "" && req.Webhook.FromEnv == "" {
		response.WriteError(w, http.StatusBadRequest, "webhook must set url or from_env")
		return
	}

	scheduleAt, err := time.Parse(time.RFC3339, req.ScheduleAt)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "schedule_at must be an RFC 3339 timestamp")
		return
	}

	retry := model.DefaultRetryConf()
	if req.Retry != nil {
		if req.Retry.NumRetries != nil {
			retry.NumRetries = *req.Retry.NumRetries
		}
		if req.Retry.IntervalSeconds != nil {
			retry.RetryIntervalSeconds = *req.Retry.IntervalSeconds
		}
		if req.Retry.TimeoutSeconds != nil {
			retry.TimeoutSeconds = *req.Retry.TimeoutSeconds
		}
		if req.Retry.ToleranceSeconds != nil {
			retry.ToleranceSeconds = *req.Retry.ToleranceSeconds
		}
	}

	headers := make([]model.HeaderConf, 0, len(req.Headers))
	for _, hc := range req.Headers {
		headers = append(headers, model.HeaderConf{Name: hc.Name, Value: hc.Value, ValueEnv: hc.ValueEnv})
	}

	ev := &model.OneOffEvent{
		ID:            platform.NewID(),
		WebhookConf:   model.WebhookConf{URL: req.Webhook.URL, FromEnv: req.Webhook.FromEnv},
		ScheduledTime: scheduleAt,
		Payload:       req.Payload,
		RetryConf:     retry,
		HeaderConf:    headers,
		Comment:       req.Comment,
		Status:        model.StatusScheduled,
	}

	if err := h.store.InsertOneOffEvent(r.Context(), ev); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"event_id": ev.ID})
}

// Get returns a single one-off event.
func (h *Event) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "eventID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.store.GetOneOffEvent(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, ev)
}

// Cancel marks a still-scheduled event dead.
func (h *Event) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "eventID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cancelled, err := h.store.CancelOneOffEvent(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !cancelled {
		response.WriteError(w, http.StatusConflict, "event is not in scheduled state")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"event_id": id, "status": "dead"})
}

// ListInvocations returns the delivery attempts recorded for an event.
func (h *Event) ListInvocations(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "eventID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	invocations, err := h.store.ListInvocations(r.Context(), id, model.ClassOneOff)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if invocations == nil {
		invocations = []model.Invocation{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"invocations": invocations})
}
