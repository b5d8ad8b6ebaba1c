package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/booking-assistant/internal/config"
	"github.com/kirillkom/booking-assistant/internal/core/domain"
	"github.com/kirillkom/booking-assistant/internal/core/ports"
	"github.com/kirillkom/booking-assistant/internal/observability/metrics"
)

const serviceName = "booking-api"

// Router is the thin HTTP surface over the dialogue core and the calendar
// gateway. All booking decisions live below it.
type Router struct {
	cfg      config.Config
	dialogue ports.DialogueService
	calendar ports.CalendarGateway
	metrics  *metrics.APIMetrics
}

func NewRouter(
	cfg config.Config,
	dialogue ports.DialogueService,
	calendar ports.CalendarGateway,
	apiMetrics *metrics.APIMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		dialogue: dialogue,
		calendar: calendar,
		metrics:  apiMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/availability", rt.availability)
	mux.HandleFunc("/v1/schedule", rt.schedule)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	if rt.cfg.APIMaxConcurrentRequests > 0 {
		wait := time.Duration(rt.cfg.APIQueueWaitMillis) * time.Millisecond
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrentRequests, wait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string             `json:"message"`
	State   *domain.AgentState `json:"state"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	state := domain.NewAgentState()
	if req.State != nil {
		state = req.State.Normalized()
	}

	result, err := rt.dialogue.HandleTurn(r.Context(), req.Message, state)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordTurn(serviceName, string(result.State.Step))
		if result.State.Step == domain.StepEscalated {
			rt.metrics.RecordEscalation(serviceName)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := domain.AvailabilityQuery{
		Date:     strings.TrimSpace(r.URL.Query().Get("date")),
		Service:  strings.TrimSpace(r.URL.Query().Get("service")),
		Timezone: strings.TrimSpace(r.URL.Query().Get("tz")),
	}
	if query.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required"})
		return
	}

	slots, err := rt.calendar.ListAvailability(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

type scheduleRequest struct {
	Action    string              `json:"action"`
	Booking   domain.BookingInput `json:"booking"`
	BookingID string              `json:"bookingId"`
	Date      string              `json:"date"`
	Time      string              `json:"time"`
}

func (rt *Router) schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var (
		booking *domain.Booking
		err     error
	)
	switch req.Action {
	case "create":
		booking, err = rt.calendar.CreateBooking(r.Context(), req.Booking)
	case "reschedule":
		booking, err = rt.calendar.RescheduleBooking(r.Context(), req.BookingID, req.Date, req.Time)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be create or reschedule"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordBooking(serviceName, req.Action)
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
