package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fairchance/notification-service/internal/application/command"
	"github.com/fairchance/notification-service/internal/application/fanout"
	"github.com/fairchance/notification-service/internal/application/query"
	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns the full health check status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady reports readiness for traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports liveness. If the process answers, it is alive.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleRoot describes the service.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "notification-service",
		"uptime":  s.Uptime().Round(1e9).String(),
		"endpoints": []string{
			"POST /api/v1/events/{id}/broadcasts/selection",
			"POST /api/v1/events/{id}/broadcasts/waiting-list",
			"POST /api/v1/events/{id}/broadcasts/cancellation",
			"GET /api/v1/events/{id}/broadcasts",
			"PUT /api/v1/users/{id}/preferences",
			"PUT /api/v1/users/{id}/device",
		},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// BROADCAST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// broadcastRequest is the wire format for broadcast invocations. All fields
// are optional; selection fan-outs may target one entrant, the other kinds
// always target the whole group.
type broadcastRequest struct {
	EntrantID  string `json:"entrantId,omitempty"`
	Message    string `json:"message,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

// broadcastResponse mirrors the delivery summary of one invocation.
type broadcastResponse struct {
	EventID      string `json:"eventId"`
	Kind         string `json:"kind"`
	SentCount    int    `json:"sentCount"`
	FailureCount int    `json:"failureCount"`
}

// handleBroadcastSelection dispatches selection-result notifications.
// Re-invoking after a partial run only reaches records still pending or
// selected, so the endpoint is safe to retry.
func (s *Server) handleBroadcastSelection(w http.ResponseWriter, r *http.Request) {
	s.dispatchBroadcast(w, r, broadcast.KindSelectionResult)
}

// handleBroadcastWaitingList dispatches an organizer update to the waiting list.
func (s *Server) handleBroadcastWaitingList(w http.ResponseWriter, r *http.Request) {
	s.dispatchBroadcast(w, r, broadcast.KindWaitingListUpdate)
}

// handleBroadcastCancellation dispatches an organizer update to cancelled entrants.
func (s *Server) handleBroadcastCancellation(w http.ResponseWriter, r *http.Request) {
	s.dispatchBroadcast(w, r, broadcast.KindCancellationUpdate)
}

// dispatchBroadcast runs one fan-out invocation for the given kind.
func (s *Server) dispatchBroadcast(w http.ResponseWriter, r *http.Request, kind broadcast.Kind) {
	eventID := r.PathValue("id")

	var body broadcastRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_body", "Malformed request body", err.Error())
		return
	}

	summary, err := s.deps.Orchestrator.Dispatch(r.Context(), fanout.Request{
		EventID:         eventID,
		Kind:            kind,
		EntrantID:       entrant.ID(body.EntrantID),
		MessageOverride: body.Message,
		SenderID:        body.SenderID,
		SenderName:      body.SenderName,
	})
	if err != nil {
		s.logger.Error("broadcast dispatch failed",
			logger.EventID(eventID),
			logger.BroadcastKind(kind.String()),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, broadcastResponse{
		EventID:      eventID,
		Kind:         kind.String(),
		SentCount:    summary.SentCount,
		FailureCount: summary.FailureCount,
	})
}

// handleListBroadcasts returns an event's broadcast audit trail, newest first.
func (s *Server) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	q := query.ListBroadcastsQuery{
		EventID: r.PathValue("id"),
		Limit:   getQueryParamInt(r, "limit", 50),
	}

	result, err := s.deps.ListBroadcastsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Broadcasts, &ResponseMeta{
		TotalCount: result.Total,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// USER SETTINGS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// preferencesRequest carries the opt-out flags from the app's settings
// screen. Absent fields are left unchanged.
type preferencesRequest struct {
	LotteryResults   *bool `json:"lotteryResults,omitempty"`
	OrganizerUpdates *bool `json:"organizerUpdates,omitempty"`
}

// handleUpdatePreferences persists notification opt-out flags.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var body preferencesRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_body", "Malformed request body", err.Error())
		return
	}

	result, err := s.deps.UpdatePreferencesHandler.Handle(r.Context(), command.UpdatePreferencesCommand{
		EntrantID:        entrant.ID(r.PathValue("id")),
		LotteryResults:   body.LotteryResults,
		OrganizerUpdates: body.OrganizerUpdates,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// deviceRequest carries the gateway-issued delivery token. An empty token
// unregisters the device.
type deviceRequest struct {
	DeliveryToken string `json:"deliveryToken"`
}

// handleRegisterDevice stores or clears the user's delivery token.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var body deviceRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_body", "Malformed request body", err.Error())
		return
	}

	result, err := s.deps.RegisterDeviceHandler.Handle(r.Context(), command.RegisterDeviceCommand{
		EntrantID:     entrant.ID(r.PathValue("id")),
		DeliveryToken: body.DeliveryToken,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsInvalidArgument(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsGatewayFailure(err):
		// Nothing was written; the caller may safely re-invoke.
		writeJSONError(w, http.StatusBadGateway, "gateway_failure", "Push gateway rejected the dispatch, retry later")
	case shared.IsStorageWrite(err) || errors.Is(err, shared.ErrStorageRead):
		writeJSONError(w, http.StatusInternalServerError, "storage_failure", "A storage operation failed, retry later")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeJSONBody decodes a request body, tolerating an empty body. Unknown
// fields are rejected so client typos surface as 400s instead of silently
// ignored options.
func decodeJSONBody(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return nil
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
