package medication

import (
	"fmt"
	"regexp"
)

// TimeSlot is one of the five canonical dosing windows of a prescription day.
// Evening and night are distinct slots; sources that use them as aliases are
// normalized to night at ingestion time.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotNoon      TimeSlot = "noon"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
	SlotNight     TimeSlot = "night"
)

// AllTimeSlots lists the canonical slots in day order. Iteration over a
// DosageSchedule always follows this order so reminder creation is
// deterministic.
var AllTimeSlots = []TimeSlot{SlotMorning, SlotNoon, SlotAfternoon, SlotEvening, SlotNight}

func (s TimeSlot) IsValid() bool {
	switch s {
	case SlotMorning, SlotNoon, SlotAfternoon, SlotEvening, SlotNight:
		return true
	}
	return false
}

// DoseAmount describes how much to take at one slot.
type DoseAmount struct {
	Dose          float64 `json:"dose"`
	Unit          string  `json:"unit,omitempty"`
	PreferredTime string  `json:"preferred_time,omitempty"` // "HH:MM", 24h
}

// DosageSchedule maps each slot to an optional dose descriptor. A nil entry or
// a zero dose means no medication is taken at that slot.
type DosageSchedule struct {
	Morning   *DoseAmount `json:"morning,omitempty"`
	Noon      *DoseAmount `json:"noon,omitempty"`
	Afternoon *DoseAmount `json:"afternoon,omitempty"`
	Evening   *DoseAmount `json:"evening,omitempty"`
	Night     *DoseAmount `json:"night,omitempty"`

	TimesPerDay    int    `json:"times_per_day,omitempty"`
	TotalDailyDose string `json:"total_daily_dose,omitempty"`
}

var clockTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClockTime reports whether s is a well-formed 24h "HH:MM" string.
func ValidClockTime(s string) bool {
	return clockTimeRe.MatchString(s)
}

func (ds *DosageSchedule) slot(s TimeSlot) *DoseAmount {
	switch s {
	case SlotMorning:
		return ds.Morning
	case SlotNoon:
		return ds.Noon
	case SlotAfternoon:
		return ds.Afternoon
	case SlotEvening:
		return ds.Evening
	case SlotNight:
		return ds.Night
	}
	return nil
}

// SlotDose pairs a slot with its dose for iteration.
type SlotDose struct {
	Slot TimeSlot
	Dose DoseAmount
}

// ActiveSlots returns the slots with a positive dose, in day order.
func (ds *DosageSchedule) ActiveSlots() []SlotDose {
	var out []SlotDose
	for _, slot := range AllTimeSlots {
		if d := ds.slot(slot); d != nil && d.Dose > 0 {
			out = append(out, SlotDose{Slot: slot, Dose: *d})
		}
	}
	return out
}

// Validate checks every present dose descriptor. A schedule with no active
// slots is valid; the reminder factory treats it as a warning, not an error.
func (ds *DosageSchedule) Validate() error {
	active := 0
	for _, slot := range AllTimeSlots {
		d := ds.slot(slot)
		if d == nil {
			continue
		}
		if d.Dose < 0 {
			return fmt.Errorf("%w: slot %s has dose %v", ErrInvalidDose, slot, d.Dose)
		}
		if d.PreferredTime != "" && !ValidClockTime(d.PreferredTime) {
			return fmt.Errorf("%w: slot %s preferred_time %q", ErrInvalidClockTime, slot, d.PreferredTime)
		}
		if d.Dose > 0 {
			active++
		}
	}
	if ds.TimesPerDay != 0 && ds.TimesPerDay != active {
		return fmt.Errorf("%w: times_per_day=%d but %d slots have a dose", ErrTimesPerDayMismatch, ds.TimesPerDay, active)
	}
	return nil
}

// SlotTimes is the configuration table mapping each slot to its default
// wall-clock time, used when a schedule carries no preferred_time. It is
// injected into the reminder factory rather than read from a package global
// so tests and deployments can override it.
type SlotTimes map[TimeSlot]string

// DefaultSlotTimes returns the stock slot→time table.
func DefaultSlotTimes() SlotTimes {
	return SlotTimes{
		SlotMorning:   "07:00",
		SlotNoon:      "11:30",
		SlotAfternoon: "17:30",
		SlotEvening:   "20:00",
		SlotNight:     "21:00",
	}
}

// Validate rejects tables with unknown slots, malformed times, or missing
// entries for any canonical slot.
func (st SlotTimes) Validate() error {
	for slot, t := range st {
		if !slot.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownTimeSlot, slot)
		}
		if !ValidClockTime(t) {
			return fmt.Errorf("%w: slot %s default %q", ErrInvalidClockTime, slot, t)
		}
	}
	for _, slot := range AllTimeSlots {
		if _, ok := st[slot]; !ok {
			return fmt.Errorf("missing default time for slot %s", slot)
		}
	}
	return nil
}
