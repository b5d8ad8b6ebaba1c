package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// ReminderPlanner turns booking events into reminder schedules. Delivery is
// out of scope here; the planner decides when a reminder is due and logs the
// decision for the notification pipeline.
type ReminderPlanner struct {
	lead time.Duration
	now  func() time.Time
}

func NewReminderPlanner(lead time.Duration, now func() time.Time) *ReminderPlanner {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderPlanner{lead: lead, now: now}
}

// Plan returns when the reminder for the event's appointment is due. The
// appointment start is interpreted in the event's timezone.
func (p *ReminderPlanner) Plan(event domain.BookingEvent) (time.Time, error) {
	if event.BookingID == "" || event.Date == "" || event.Time == "" {
		return time.Time{}, domain.WrapError(domain.ErrInvalidInput, "plan reminder",
			fmt.Errorf("event missing booking id, date or time"))
	}

	loc := time.UTC
	if event.Timezone != "" {
		parsed, err := time.LoadLocation(event.Timezone)
		if err != nil {
			return time.Time{}, domain.WrapError(domain.ErrInvalidInput, "plan reminder",
				fmt.Errorf("timezone %q: %w", event.Timezone, err))
		}
		loc = parsed
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", event.Date+" "+event.Time, loc)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.ErrInvalidInput, "plan reminder",
			fmt.Errorf("appointment start: %w", err))
	}

	remindAt := start.Add(-p.lead)
	if now := p.now(); remindAt.Before(now) {
		remindAt = now
	}
	return remindAt, nil
}

// Handle processes one booking event from the queue. Cancellations drop any
// pending reminder; created and rescheduled bookings get one scheduled.
func (p *ReminderPlanner) Handle(_ context.Context, event domain.BookingEvent) error {
	if event.Kind == domain.BookingEventCancelled {
		slog.Info("reminder_dropped", "booking_id", event.BookingID)
		return nil
	}

	remindAt, err := p.Plan(event)
	if err != nil {
		return err
	}

	slog.Info("reminder_scheduled",
		"booking_id", event.BookingID,
		"kind", string(event.Kind),
		"service", event.Service,
		"appointment", event.Date+" "+event.Time,
		"timezone", event.Timezone,
		"remind_at", remindAt.Format(time.RFC3339),
	)
	return nil
}
