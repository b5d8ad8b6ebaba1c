package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
	"github.com/kirillkom/booking-assistant/internal/core/nlu"
	"github.com/kirillkom/booking-assistant/internal/core/ports"
)

type DialogueConfig struct {
	DefaultTimezone       string
	EscalateAfterFailures int
	AlternativeLimit      int
	GatewayTimeout        time.Duration
}

// DialogueUseCase is the per-turn state machine. Each call is a pure
// request/response unit over the passed-in state: at most one availability
// query and at most one calendar write per turn, and state only advances
// after a gateway call has succeeded.
type DialogueUseCase struct {
	gateway   ports.CalendarGateway
	events    ports.BookingEventQueue
	extractor *nlu.Extractor
	faq       *FAQ
	services  []domain.ServiceOffering
	cfg       DialogueConfig
}

func NewDialogueUseCase(
	gateway ports.CalendarGateway,
	events ports.BookingEventQueue,
	catalog ports.CatalogSource,
	cfg DialogueConfig,
	now func() time.Time,
) *DialogueUseCase {
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.EscalateAfterFailures <= 0 {
		cfg.EscalateAfterFailures = 2
	}
	if cfg.AlternativeLimit <= 0 {
		cfg.AlternativeLimit = 3
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 5 * time.Second
	}

	services := catalog.Services()
	return &DialogueUseCase{
		gateway:   gateway,
		events:    events,
		extractor: nlu.NewExtractor(services, catalog.FAQ(), now),
		faq:       NewFAQ(catalog.FAQ()),
		services:  services,
		cfg:       cfg,
	}
}

func (uc *DialogueUseCase) HandleTurn(ctx context.Context, message string, state domain.AgentState) (*domain.TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle turn", fmt.Errorf("message is required"))
	}
	state = state.Normalized()

	extracted := uc.extractor.Extract(message, state)

	switch extracted.Intent {
	case domain.IntentCancel:
		return uc.handleCancel(ctx, state)
	case domain.IntentFAQ:
		return uc.handleFAQ(message, state)
	case domain.IntentReschedule:
		return uc.handleReschedule(ctx, extracted, state)
	case domain.IntentConfirm:
		return uc.handleConfirm(ctx, state)
	default:
		return uc.handleDetails(ctx, extracted, state)
	}
}

// handleDetails drives the collect -> check availability -> confirm path for
// book and unknown intents.
func (uc *DialogueUseCase) handleDetails(ctx context.Context, extracted nlu.Result, state domain.AgentState) (*domain.TurnResult, error) {
	next := state

	// A finished topic restarts collection; the booking reference survives
	// so a later reschedule can still find it.
	if next.Step == domain.StepDone || next.Step == domain.StepBooked {
		next.Collected = domain.SlotMap{}
	}
	next.Collected = next.Collected.Merge(extracted.Slots)

	if len(extracted.Malformed) > 0 {
		next.Step = domain.StepCollecting
		return &domain.TurnResult{Reply: clarifyMalformed(extracted.Malformed[0]), State: next}, nil
	}

	// A proposal that is neither confirmed nor corrected is a decline:
	// drop back to collecting and ask what to change.
	if state.Step == domain.StepConfirming && len(extracted.Slots) == 0 {
		next.Step = domain.StepCollecting
		return &domain.TurnResult{
			Reply: "Okay, what would you like to change — the service, date, or time?",
			State: next,
		}, nil
	}

	greeted := state.Step == domain.StepGreeting

	if missing, ok := next.Collected.FirstMissingRequired(); ok {
		next.Step = domain.StepCollecting
		reply := uc.promptForSlot(missing)
		if greeted {
			reply = "Hi! I can help you book an appointment. " + reply
		} else if extracted.Intent == domain.IntentUnknown && len(extracted.Slots) == 0 {
			reply = "Sorry, I didn't catch that. " + reply
		}
		return &domain.TurnResult{Reply: reply, State: next}, nil
	}

	// Required slots complete: one availability query this turn.
	next.Step = domain.StepCheckingAvailability
	query := domain.AvailabilityQuery{
		Date:     next.Collected.Get(domain.SlotDate),
		Service:  next.Collected.Get(domain.SlotService),
		Timezone: uc.timezoneFor(next.Collected),
	}
	slots, err := uc.listAvailability(ctx, query)
	if err != nil {
		return uc.gatewayFailure(state.Step, next, err), nil
	}
	next.Failures = 0

	if slotOffered(slots, query.Date, next.Collected.Get(domain.SlotTime)) {
		next.Step = domain.StepConfirming
		return &domain.TurnResult{Reply: uc.confirmationPrompt(next.Collected), State: next}, nil
	}

	next.Step = domain.StepCollecting
	return &domain.TurnResult{
		Reply: unavailableReply(slots, next.Collected.Get(domain.SlotTime), uc.cfg.AlternativeLimit),
		State: next,
	}, nil
}

func (uc *DialogueUseCase) handleConfirm(ctx context.Context, state domain.AgentState) (*domain.TurnResult, error) {
	next := state

	input := domain.BookingInputFromSlots(next.Collected, uc.cfg.DefaultTimezone)
	if err := input.Validate(); err != nil {
		next.Step = domain.StepCollecting
		missing, _ := next.Collected.FirstMissingRequired()
		return &domain.TurnResult{Reply: uc.promptForSlot(missing), State: next}, nil
	}

	booking, err := uc.createBooking(ctx, input)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrSlotUnavailable):
		// The write-time check is authoritative; the earlier availability
		// read was stale. Back to collecting with fresh alternatives.
		next.Step = domain.StepCollecting
		return &domain.TurnResult{
			Reply: "I'm sorry, that time was just taken. " + uc.freshAlternatives(ctx, next.Collected),
			State: next,
		}, nil
	case domain.IsKind(err, domain.ErrValidation):
		next.Step = domain.StepCollecting
		missing, _ := next.Collected.FirstMissingRequired()
		return &domain.TurnResult{Reply: uc.promptForSlot(missing), State: next}, nil
	default:
		return uc.gatewayFailure(state.Step, next, err), nil
	}

	next.BookingID = booking.ID
	next.Step = domain.StepDone
	next.Failures = 0
	uc.publishEvent(ctx, domain.BookingEventCreated, booking)

	reply := fmt.Sprintf(
		"You're all set! Your %s is booked for %s at %s. Confirmation ID %s.",
		booking.Service, booking.Date, booking.Time, booking.ID,
	)
	return &domain.TurnResult{Reply: reply, State: next, Done: true}, nil
}

func (uc *DialogueUseCase) handleReschedule(ctx context.Context, extracted nlu.Result, state domain.AgentState) (*domain.TurnResult, error) {
	if state.BookingID == "" {
		return &domain.TurnResult{
			Reply: "I couldn't find an existing booking for you. Do you have the confirmation ID, or would you like to book a new appointment?",
			State: state,
		}, nil
	}

	next := state
	next.Step = domain.StepRescheduling
	// A reschedule utterance names a new date/time; drop the old ones so
	// stale values cannot complete the new slot by accident.
	if len(extracted.Slots) > 0 {
		delete(next.Collected, domain.SlotDate)
		delete(next.Collected, domain.SlotTime)
	}
	next.Collected = next.Collected.Merge(extracted.Slots)

	if len(extracted.Malformed) > 0 {
		return &domain.TurnResult{Reply: clarifyMalformed(extracted.Malformed[0]), State: next}, nil
	}

	newDate := next.Collected.Get(domain.SlotDate)
	newTime := next.Collected.Get(domain.SlotTime)
	if newDate == "" || newTime == "" {
		return &domain.TurnResult{
			Reply: "Sure, I can move your appointment. What new date and time would you like?",
			State: next,
		}, nil
	}

	query := domain.AvailabilityQuery{
		Date:     newDate,
		Service:  next.Collected.Get(domain.SlotService),
		Timezone: uc.timezoneFor(next.Collected),
	}
	slots, err := uc.listAvailability(ctx, query)
	if err != nil {
		return uc.gatewayFailure(state.Step, next, err), nil
	}
	if !slotOffered(slots, newDate, newTime) {
		return &domain.TurnResult{
			Reply: unavailableReply(slots, newTime, uc.cfg.AlternativeLimit),
			State: next,
		}, nil
	}

	booking, err := uc.rescheduleBooking(ctx, next.BookingID, newDate, newTime)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrBookingNotFound):
		return &domain.TurnResult{
			Reply: "I couldn't find that booking anymore. Could you double-check the confirmation ID?",
			State: state,
		}, nil
	case domain.IsKind(err, domain.ErrSlotUnavailable):
		return &domain.TurnResult{
			Reply: "I'm sorry, that time was just taken. Could you pick another time?",
			State: next,
		}, nil
	default:
		return uc.gatewayFailure(state.Step, next, err), nil
	}

	next.Step = domain.StepDone
	next.Failures = 0
	uc.publishEvent(ctx, domain.BookingEventRescheduled, booking)

	reply := fmt.Sprintf("Done! Your %s is now on %s at %s.", booking.Service, booking.Date, booking.Time)
	return &domain.TurnResult{Reply: reply, State: next, Done: true}, nil
}

func (uc *DialogueUseCase) handleCancel(ctx context.Context, state domain.AgentState) (*domain.TurnResult, error) {
	next := state

	if state.BookingID == "" {
		// Nothing was ever written; no gateway call.
		next.Step = domain.StepDone
		return &domain.TurnResult{
			Reply: "No problem, I've stopped there. Feel free to reach out when you'd like to book.",
			State: next,
			Done:  true,
		}, nil
	}

	booking, err := uc.cancelBooking(ctx, state.BookingID)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrBookingNotFound):
		next.Step = domain.StepDone
		return &domain.TurnResult{
			Reply: "I couldn't find that booking; it may already be cancelled.",
			State: next,
			Done:  true,
		}, nil
	default:
		return uc.gatewayFailure(state.Step, next, err), nil
	}

	next.Step = domain.StepDone
	next.Failures = 0
	uc.publishEvent(ctx, domain.BookingEventCancelled, booking)

	return &domain.TurnResult{
		Reply: fmt.Sprintf("Your %s on %s at %s has been cancelled.", booking.Service, booking.Date, booking.Time),
		State: next,
		Done:  true,
	}, nil
}

func (uc *DialogueUseCase) handleFAQ(message string, state domain.AgentState) (*domain.TurnResult, error) {
	reply, ok := uc.faq.Match(message)
	if !ok {
		reply = "I'm not sure about that one, but I can help you book, move, or cancel an appointment."
	}
	return &domain.TurnResult{
		Reply: reply,
		State: state,
		Done:  state.Step == domain.StepDone,
	}, nil
}

// gatewayFailure converts a transport-level gateway error into an apologetic
// reply. Collected slots are preserved and the step rolls back to where the
// turn started; repeated failures escalate to a human.
func (uc *DialogueUseCase) gatewayFailure(priorStep domain.Step, next domain.AgentState, err error) *domain.TurnResult {
	slog.Warn("calendar gateway failure", "error", err)

	next.Step = priorStep
	next.Failures++
	if next.Failures >= uc.cfg.EscalateAfterFailures {
		next.Step = domain.StepEscalated
		return &domain.TurnResult{
			Reply: "I'm having trouble reaching our calendar. Let me hand you over to a member of our team who can finish this up.",
			State: next,
		}
	}
	return &domain.TurnResult{
		Reply: "Sorry, I couldn't reach our calendar just now. Could you try that again in a moment?",
		State: next,
	}
}

func (uc *DialogueUseCase) listAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.AvailabilitySlot, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.GatewayTimeout)
	defer cancel()
	return uc.gateway.ListAvailability(callCtx, query)
}

func (uc *DialogueUseCase) createBooking(ctx context.Context, input domain.BookingInput) (*domain.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.GatewayTimeout)
	defer cancel()
	return uc.gateway.CreateBooking(callCtx, input)
}

func (uc *DialogueUseCase) rescheduleBooking(ctx context.Context, bookingID, newDate, newTime string) (*domain.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.GatewayTimeout)
	defer cancel()
	return uc.gateway.RescheduleBooking(callCtx, bookingID, newDate, newTime)
}

func (uc *DialogueUseCase) cancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.GatewayTimeout)
	defer cancel()
	return uc.gateway.CancelBooking(callCtx, bookingID)
}

func (uc *DialogueUseCase) publishEvent(ctx context.Context, kind domain.BookingEventKind, booking *domain.Booking) {
	if uc.events == nil {
		return
	}
	contact := booking.Phone
	if contact == "" {
		contact = booking.Email
	}
	event := domain.BookingEvent{
		Kind:      kind,
		BookingID: booking.ID,
		Service:   booking.Service,
		Date:      booking.Date,
		Time:      booking.Time,
		Timezone:  booking.Timezone,
		Contact:   contact,
		EmittedAt: time.Now().UTC(),
	}
	if err := uc.events.PublishBookingEvent(ctx, event); err != nil {
		// Reminders are best-effort; the booking itself already succeeded.
		slog.Warn("publish booking event", "kind", kind, "booking_id", booking.ID, "error", err)
	}
}

// freshAlternatives re-queries availability after a write-time conflict.
// The turn already spent its write; this is its single read.
func (uc *DialogueUseCase) freshAlternatives(ctx context.Context, collected domain.SlotMap) string {
	slots, err := uc.listAvailability(ctx, domain.AvailabilityQuery{
		Date:     collected.Get(domain.SlotDate),
		Service:  collected.Get(domain.SlotService),
		Timezone: uc.timezoneFor(collected),
	})
	if err != nil {
		return "Could you pick another time?"
	}
	return unavailableReply(slots, collected.Get(domain.SlotTime), uc.cfg.AlternativeLimit)
}

func (uc *DialogueUseCase) timezoneFor(collected domain.SlotMap) string {
	if tz := collected.Get(domain.SlotTimezone); tz != "" {
		return tz
	}
	return uc.cfg.DefaultTimezone
}

func (uc *DialogueUseCase) promptForSlot(slot domain.Slot) string {
	switch slot {
	case domain.SlotService:
		names := make([]string, 0, len(uc.services))
		for _, s := range uc.services {
			names = append(names, s.Name)
		}
		if len(names) > 0 {
			return fmt.Sprintf("What service would you like to book? We offer: %s.", strings.Join(names, ", "))
		}
		return "What service would you like to book?"
	case domain.SlotDate:
		return "What date works for you?"
	case domain.SlotTime:
		return "What time would you like?"
	case domain.SlotName:
		return "Can I get your name?"
	default:
		return "What phone number or email can we reach you at?"
	}
}

func (uc *DialogueUseCase) confirmationPrompt(collected domain.SlotMap) string {
	return fmt.Sprintf(
		"Great, %s is available on %s at %s for %s. Shall I book it? (yes/no)",
		collected.Get(domain.SlotService),
		collected.Get(domain.SlotDate),
		collected.Get(domain.SlotTime),
		collected.Get(domain.SlotName),
	)
}

func clarifyMalformed(slot domain.Slot) string {
	switch slot {
	case domain.SlotDate:
		return "I couldn't make out that date. Could you give it like 2024-06-10, or say something like \"next Tuesday\"?"
	case domain.SlotTime:
		return "I couldn't make out that time. Could you give it like 3pm or 15:00?"
	case domain.SlotPhone:
		return "That phone number doesn't look right. Could you repeat it with the area code?"
	case domain.SlotEmail:
		return "That email address doesn't look right. Could you spell it out again?"
	default:
		return "Sorry, I didn't catch that. Could you rephrase?"
	}
}

func slotOffered(slots []domain.AvailabilitySlot, date, clock string) bool {
	for _, s := range slots {
		if s.Date == date && s.Time == clock {
			return true
		}
	}
	return false
}

// unavailableReply offers the gateway's nearest alternatives to the
// requested time.
func unavailableReply(slots []domain.AvailabilitySlot, requested string, limit int) string {
	if len(slots) == 0 {
		return "I'm sorry, that time isn't available and there are no other openings that day. Would another date work?"
	}

	ordered := make([]domain.AvailabilitySlot, len(slots))
	copy(ordered, slots)
	want := minutesOf(requested)
	sort.SliceStable(ordered, func(i, j int) bool {
		return absDiff(minutesOf(ordered[i].Time), want) < absDiff(minutesOf(ordered[j].Time), want)
	})

	if limit > len(ordered) {
		limit = len(ordered)
	}
	options := make([]string, 0, limit)
	for _, s := range ordered[:limit] {
		options = append(options, fmt.Sprintf("%s at %s", s.Date, s.Time))
	}
	return fmt.Sprintf(
		"I'm sorry, that time isn't available. The nearest openings are: %s. Would any of those work?",
		strings.Join(options, ", "),
	)
}

func minutesOf(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return h*60 + m
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
