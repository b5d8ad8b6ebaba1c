package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

func TestAvailabilityReturnsSlots(t *testing.T) {
	calendar := &calendarFake{
		slots: []domain.AvailabilitySlot{
			{Date: "2024-06-10", Time: "15:00", DurationMinutes: 30, Service: "haircut"},
		},
	}
	handler := newTestHandler(&dialogueFake{}, calendar)

	req := httptest.NewRequest(http.MethodGet, "/v1/availability?date=2024-06-10&service=haircut&tz=Europe/Berlin", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Slots []domain.AvailabilitySlot `json:"slots"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Slots) != 1 || body.Slots[0].Time != "15:00" {
		t.Fatalf("unexpected slots: %+v", body.Slots)
	}
	if calendar.gotQuery.Timezone != "Europe/Berlin" {
		t.Fatalf("expected tz passed through, got %q", calendar.gotQuery.Timezone)
	}
}

func TestAvailabilityRequiresDate(t *testing.T) {
	handler := newTestHandler(&dialogueFake{}, &calendarFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/availability?service=haircut", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestScheduleCreateReturnsBooking(t *testing.T) {
	calendar := &calendarFake{
		booking: &domain.Booking{
			ID: "b-1", Service: "haircut", Date: "2024-06-10", Time: "15:00",
			Status: domain.BookingConfirmed,
		},
	}
	handler := newTestHandler(&dialogueFake{}, calendar)

	payload, _ := json.Marshal(map[string]any{
		"action": "create",
		"booking": map[string]string{
			"service": "haircut", "date": "2024-06-10", "time": "15:00",
			"timezone": "UTC", "name": "Jane", "phone": "5551212",
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedule", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Booking domain.Booking `json:"booking"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Booking.ID != "b-1" {
		t.Fatalf("unexpected booking: %+v", body.Booking)
	}
	if calendar.creates != 1 {
		t.Fatalf("expected one create call, got %d", calendar.creates)
	}
	if calendar.gotInput.Name != "Jane" {
		t.Fatalf("expected booking input passed through, got %+v", calendar.gotInput)
	}
}

func TestScheduleRescheduleReturnsBooking(t *testing.T) {
	calendar := &calendarFake{
		booking: &domain.Booking{
			ID: "b-1", Service: "haircut", Date: "2024-06-11", Time: "14:00",
			Status: domain.BookingConfirmed,
		},
	}
	handler := newTestHandler(&dialogueFake{}, calendar)

	payload, _ := json.Marshal(map[string]any{
		"action": "reschedule", "bookingId": "b-1", "date": "2024-06-11", "time": "14:00",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedule", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if calendar.moves != 1 {
		t.Fatalf("expected one reschedule call, got %d", calendar.moves)
	}
	if calendar.gotID != "b-1" || calendar.gotDate != "2024-06-11" || calendar.gotTime != "14:00" {
		t.Fatalf("unexpected reschedule args: %s %s %s", calendar.gotID, calendar.gotDate, calendar.gotTime)
	}
}

func TestScheduleRejectsUnknownAction(t *testing.T) {
	calendar := &calendarFake{}
	handler := newTestHandler(&dialogueFake{}, calendar)

	payload, _ := json.Marshal(map[string]any{"action": "cancel"})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedule", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if calendar.creates != 0 || calendar.moves != 0 {
		t.Fatalf("unknown action must not touch the calendar")
	}
}

func TestScheduleMapsConflictTo409(t *testing.T) {
	calendar := &calendarFake{
		err: domain.WrapError(domain.ErrSlotUnavailable, "claim slot", errors.New("taken")),
	}
	handler := newTestHandler(&dialogueFake{}, calendar)

	payload, _ := json.Marshal(map[string]any{
		"action": "create",
		"booking": map[string]string{
			"service": "haircut", "date": "2024-06-10", "time": "15:00",
			"timezone": "UTC", "name": "Jane", "phone": "5551212",
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedule", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestScheduleMapsNotFoundTo404(t *testing.T) {
	calendar := &calendarFake{
		err: domain.WrapError(domain.ErrBookingNotFound, "lock booking", errors.New("id=missing")),
	}
	handler := newTestHandler(&dialogueFake{}, calendar)

	payload, _ := json.Marshal(map[string]any{
		"action": "reschedule", "bookingId": "missing", "date": "2024-06-11", "time": "14:00",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedule", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
