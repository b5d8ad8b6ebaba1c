package domain

import "testing"

func TestSlotMapMergeKeepsExistingValues(t *testing.T) {
	base := SlotMap{SlotService: "haircut", SlotDate: "2024-06-10"}
	merged := base.Merge(SlotMap{SlotTime: "15:00", SlotDate: ""})

	if merged[SlotService] != "haircut" {
		t.Fatalf("expected service to survive merge, got %q", merged[SlotService])
	}
	if merged[SlotDate] != "2024-06-10" {
		t.Fatalf("empty update must not unset date, got %q", merged[SlotDate])
	}
	if merged[SlotTime] != "15:00" {
		t.Fatalf("expected time merged, got %q", merged[SlotTime])
	}
	if base[SlotTime] != "" {
		t.Fatalf("merge must not mutate the receiver")
	}
}

func TestSlotMapMergeOverwritesOnExplicitValue(t *testing.T) {
	base := SlotMap{SlotDate: "2024-06-10"}
	merged := base.Merge(SlotMap{SlotDate: "2024-06-11"})
	if merged[SlotDate] != "2024-06-11" {
		t.Fatalf("expected explicit overwrite, got %q", merged[SlotDate])
	}
}

func TestFirstMissingRequiredFollowsAskOrder(t *testing.T) {
	cases := []struct {
		name string
		m    SlotMap
		want Slot
	}{
		{"empty", SlotMap{}, SlotService},
		{"service set", SlotMap{SlotService: "haircut"}, SlotDate},
		{"date set", SlotMap{SlotService: "haircut", SlotDate: "2024-06-10"}, SlotTime},
		{"time set", SlotMap{SlotService: "haircut", SlotDate: "2024-06-10", SlotTime: "15:00"}, SlotName},
		{"name set", SlotMap{SlotService: "haircut", SlotDate: "2024-06-10", SlotTime: "15:00", SlotName: "Jane"}, SlotPhone},
	}
	for _, tc := range cases {
		slot, missing := tc.m.FirstMissingRequired()
		if !missing {
			t.Fatalf("%s: expected a missing slot", tc.name)
		}
		if slot != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, slot)
		}
	}
}

func TestRequiredCompleteAcceptsEitherContact(t *testing.T) {
	withPhone := SlotMap{SlotService: "haircut", SlotDate: "2024-06-10", SlotTime: "15:00", SlotName: "Jane", SlotPhone: "5551212"}
	withEmail := SlotMap{SlotService: "haircut", SlotDate: "2024-06-10", SlotTime: "15:00", SlotName: "Jane", SlotEmail: "jane@example.com"}

	if !withPhone.RequiredComplete() {
		t.Fatalf("phone should satisfy the contact requirement")
	}
	if !withEmail.RequiredComplete() {
		t.Fatalf("email should satisfy the contact requirement")
	}
}

func TestBookingInputValidateReportsFirstMissingField(t *testing.T) {
	in := BookingInput{Service: "haircut", Date: "2024-06-10", Time: "15:00"}
	err := in.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !IsKind(err, ErrValidation) {
		t.Fatalf("expected ErrValidation kind, got %v", err)
	}
}

func TestBookingInputFromSlotsAppliesTimezoneDefault(t *testing.T) {
	slots := SlotMap{SlotService: "haircut", SlotDate: "2024-06-10", SlotTime: "15:00", SlotName: "Jane", SlotPhone: "5551212"}
	in := BookingInputFromSlots(slots, "America/New_York")
	if in.Timezone != "America/New_York" {
		t.Fatalf("expected default timezone, got %q", in.Timezone)
	}

	slots[SlotTimezone] = "Europe/Berlin"
	in = BookingInputFromSlots(slots, "America/New_York")
	if in.Timezone != "Europe/Berlin" {
		t.Fatalf("expected collected timezone to win, got %q", in.Timezone)
	}
}

func TestNormalizedFillsZeroState(t *testing.T) {
	s := AgentState{}.Normalized()
	if s.Step != StepGreeting {
		t.Fatalf("expected greeting step, got %s", s.Step)
	}
	if s.Collected == nil {
		t.Fatalf("expected collected map to be initialized")
	}
}
