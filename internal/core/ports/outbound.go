package ports

import (
	"context"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// CalendarGateway is the calendar backend contract. It is the single source
// of truth for slot conflicts: availability reads may be stale and every
// write re-checks the slot.
type CalendarGateway interface {
	ListAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.AvailabilitySlot, error)
	CreateBooking(ctx context.Context, input domain.BookingInput) (*domain.Booking, error)
	RescheduleBooking(ctx context.Context, bookingID, newDate, newTime string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
}

// CatalogSource supplies the bookable services and the static FAQ table.
type CatalogSource interface {
	Services() []domain.ServiceOffering
	FAQ() []domain.FAQEntry
}

// BookingEventQueue publishes/consumes booking events for the reminder worker.
type BookingEventQueue interface {
	PublishBookingEvent(ctx context.Context, event domain.BookingEvent) error
	SubscribeBookingEvents(ctx context.Context, handler func(context.Context, domain.BookingEvent) error) error
}
