package domain

// Step is the dialogue position carried between turns.
type Step string

const (
	StepGreeting             Step = "greeting"
	StepCollecting           Step = "collecting"
	StepCheckingAvailability Step = "checking_availability"
	StepConfirming           Step = "confirming"
	StepBooked               Step = "booked"
	StepRescheduling         Step = "rescheduling"
	StepDone                 Step = "done"
	StepEscalated            Step = "escalated"
)

type Intent string

const (
	IntentBook       Intent = "book"
	IntentReschedule Intent = "reschedule"
	IntentConfirm    Intent = "confirm"
	IntentCancel     Intent = "cancel"
	IntentFAQ        Intent = "faq"
	IntentUnknown    Intent = "unknown"
)

type Slot string

const (
	SlotName     Slot = "name"
	SlotPhone    Slot = "phone"
	SlotEmail    Slot = "email"
	SlotService  Slot = "service"
	SlotDate     Slot = "date"
	SlotTime     Slot = "time"
	SlotTimezone Slot = "timezone"
	SlotNotes    Slot = "notes"
)

type SlotMap map[Slot]string

// slotAskOrder fixes which missing slot gets asked for first, so identical
// partial states always produce the same prompt. Contact is satisfied by
// either phone or email; timezone falls back to a configured default and is
// never prompted for.
var slotAskOrder = []Slot{SlotService, SlotDate, SlotTime, SlotName}

func (m SlotMap) Clone() SlotMap {
	out := make(SlotMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with non-empty values from updates applied.
// Existing values survive unless the update names the same slot.
func (m SlotMap) Merge(updates SlotMap) SlotMap {
	out := m.Clone()
	for k, v := range updates {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func (m SlotMap) Get(slot Slot) string {
	return m[slot]
}

func (m SlotMap) HasContact() bool {
	return m[SlotPhone] != "" || m[SlotEmail] != ""
}

// FirstMissingRequired reports the highest-priority required slot still
// unset, with contact checked last.
func (m SlotMap) FirstMissingRequired() (Slot, bool) {
	for _, slot := range slotAskOrder {
		if m[slot] == "" {
			return slot, true
		}
	}
	if !m.HasContact() {
		return SlotPhone, true
	}
	return "", false
}

func (m SlotMap) RequiredComplete() bool {
	_, missing := m.FirstMissingRequired()
	return !missing
}

// AgentState travels with the client between turns; the core never stores it.
type AgentState struct {
	Step      Step    `json:"step"`
	Collected SlotMap `json:"collected"`
	BookingID string  `json:"bookingId,omitempty"`
	Failures  int     `json:"failures,omitempty"`
}

func NewAgentState() AgentState {
	return AgentState{
		Step:      StepGreeting,
		Collected: SlotMap{},
	}
}

// Normalized fills zero values left by partially decoded client state.
func (s AgentState) Normalized() AgentState {
	if s.Step == "" {
		s.Step = StepGreeting
	}
	if s.Collected == nil {
		s.Collected = SlotMap{}
	}
	return s
}

// TurnResult is the outcome of one dialogue turn.
type TurnResult struct {
	Reply string     `json:"reply"`
	State AgentState `json:"state"`
	Done  bool       `json:"done,omitempty"`
}
