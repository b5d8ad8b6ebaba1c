package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// AvailabilitySlot is a single bookable unit returned by the calendar.
type AvailabilitySlot struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	Service         string `json:"service"`
}

type AvailabilityQuery struct {
	Date     string
	Service  string
	Timezone string
}

type Booking struct {
	ID        string        `json:"id"`
	Service   string        `json:"service"`
	Date      string        `json:"date"`
	Time      string        `json:"time"`
	Timezone  string        `json:"timezone"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone,omitempty"`
	Email     string        `json:"email,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type BookingInput struct {
	Service  string `json:"service"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Validate enforces the required slot set before any calendar write.
func (in BookingInput) Validate() error {
	missing := ""
	switch {
	case in.Service == "":
		missing = "service"
	case in.Date == "":
		missing = "date"
	case in.Time == "":
		missing = "time"
	case in.Name == "":
		missing = "name"
	case in.Phone == "" && in.Email == "":
		missing = "contact"
	}
	if missing != "" {
		return WrapError(ErrValidation, "validate booking input", fmt.Errorf("missing %s", missing))
	}
	return nil
}

// BookingInputFromSlots builds the calendar write payload from collected
// slots, applying the timezone fallback.
func BookingInputFromSlots(slots SlotMap, defaultTimezone string) BookingInput {
	tz := slots.Get(SlotTimezone)
	if tz == "" {
		tz = defaultTimezone
	}
	return BookingInput{
		Service:  slots.Get(SlotService),
		Date:     slots.Get(SlotDate),
		Time:     slots.Get(SlotTime),
		Timezone: tz,
		Name:     slots.Get(SlotName),
		Phone:    slots.Get(SlotPhone),
		Email:    slots.Get(SlotEmail),
		Notes:    slots.Get(SlotNotes),
	}
}

// ServiceOffering is one bookable service from the catalog.
type ServiceOffering struct {
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
}

// FAQEntry answers a static question when any keyword matches.
type FAQEntry struct {
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// BookingEventKind tags the calendar write that produced an event.
type BookingEventKind string

const (
	BookingEventCreated     BookingEventKind = "created"
	BookingEventRescheduled BookingEventKind = "rescheduled"
	BookingEventCancelled   BookingEventKind = "cancelled"
)

// BookingEvent is published after a successful calendar write so the
// reminder worker can act on it.
type BookingEvent struct {
	Kind      BookingEventKind `json:"kind"`
	BookingID string           `json:"bookingId"`
	Service   string           `json:"service"`
	Date      string           `json:"date"`
	Time      string           `json:"time"`
	Timezone  string           `json:"timezone"`
	Contact   string           `json:"contact,omitempty"`
	EmittedAt time.Time        `json:"emittedAt"`
}
