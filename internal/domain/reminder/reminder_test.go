package reminder

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestISOWeekday(t *testing.T) {
	// 2024-01-01 is a Monday.
	for i := 0; i < 7; i++ {
		got := ISOWeekday(date(2024, 1, 1+i))
		if got != i+1 {
			t.Errorf("ISOWeekday(2024-01-%02d) = %d, want %d", 1+i, got, i+1)
		}
	}
}

func TestOccursOn(t *testing.T) {
	end := date(2024, 1, 8)
	rem := &Reminder{
		StartDate:  date(2024, 1, 1),
		EndDate:    &end,
		DaysOfWeek: AllWeekdays(),
		IsActive:   true,
	}

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"start date inclusive", date(2024, 1, 1), true},
		{"mid window", date(2024, 1, 4), true},
		{"end date inclusive", date(2024, 1, 8), true},
		{"before window", date(2023, 12, 31), false},
		{"after window", date(2024, 1, 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rem.OccursOn(tt.day); got != tt.want {
				t.Errorf("OccursOn(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
			}
		})
	}

	t.Run("open ended window", func(t *testing.T) {
		open := &Reminder{StartDate: date(2024, 1, 1), DaysOfWeek: AllWeekdays(), IsActive: true}
		if !open.OccursOn(date(2030, 6, 15)) {
			t.Error("open-ended reminder should occur far in the future")
		}
	})

	t.Run("weekday filter", func(t *testing.T) {
		monWedFri := &Reminder{
			StartDate:  date(2024, 1, 1),
			DaysOfWeek: []int{1, 3, 5},
			IsActive:   true,
		}
		// 2024-01-02 is a Tuesday.
		if monWedFri.OccursOn(date(2024, 1, 2)) {
			t.Error("Mon/Wed/Fri reminder must not occur on Tuesday")
		}
		if !monWedFri.OccursOn(date(2024, 1, 3)) {
			t.Error("Mon/Wed/Fri reminder must occur on Wednesday")
		}
	})

	t.Run("inactive never occurs", func(t *testing.T) {
		inactive := &Reminder{StartDate: date(2024, 1, 1), DaysOfWeek: AllWeekdays()}
		if inactive.OccursOn(date(2024, 1, 2)) {
			t.Error("deactivated reminder must not occur")
		}
	})
}

func TestApplyLogTransition(t *testing.T) {
	now := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)

	t.Run("first taken", func(t *testing.T) {
		r := &Reminder{}
		r.ApplyLogTransition(StatusPending, StatusTaken, now)
		if r.TotalDoses != 1 || r.CompletedDoses != 1 || r.MissedDoses != 0 {
			t.Fatalf("counters = {total:%d completed:%d missed:%d}", r.TotalDoses, r.CompletedDoses, r.MissedDoses)
		}
		if r.AdherenceRate != 100 {
			t.Errorf("adherence = %v, want 100", r.AdherenceRate)
		}
		if r.LastTakenAt == nil || !r.LastTakenAt.Equal(now) {
			t.Error("last_taken_at not set")
		}
	})

	t.Run("first missed", func(t *testing.T) {
		r := &Reminder{}
		r.ApplyLogTransition(StatusPending, StatusMissed, now)
		if r.TotalDoses != 1 || r.CompletedDoses != 0 || r.MissedDoses != 1 {
			t.Fatalf("counters = {total:%d completed:%d missed:%d}", r.TotalDoses, r.CompletedDoses, r.MissedDoses)
		}
		if r.AdherenceRate != 0 {
			t.Errorf("adherence = %v, want 0", r.AdherenceRate)
		}
		if r.LastMissedAt == nil {
			t.Error("last_missed_at not set")
		}
	})

	t.Run("snoozed and skipped leave counters alone", func(t *testing.T) {
		r := &Reminder{}
		r.ApplyLogTransition(StatusPending, StatusSnoozed, now)
		r.ApplyLogTransition(StatusSnoozed, StatusSkipped, now)
		if r.TotalDoses != 0 || r.CompletedDoses != 0 || r.MissedDoses != 0 {
			t.Fatalf("counters moved: {total:%d completed:%d missed:%d}", r.TotalDoses, r.CompletedDoses, r.MissedDoses)
		}
	})

	t.Run("correction missed to taken counts one occurrence", func(t *testing.T) {
		r := &Reminder{}
		r.ApplyLogTransition(StatusPending, StatusMissed, now)
		r.ApplyLogTransition(StatusMissed, StatusTaken, now.Add(time.Hour))
		if r.TotalDoses != 1 {
			t.Fatalf("total = %d, want 1 after correction", r.TotalDoses)
		}
		if r.CompletedDoses != 1 || r.MissedDoses != 0 {
			t.Fatalf("counters = {completed:%d missed:%d}, want {1 0}", r.CompletedDoses, r.MissedDoses)
		}
		if r.AdherenceRate != 100 {
			t.Errorf("adherence = %v, want 100", r.AdherenceRate)
		}
	})

	t.Run("re-log same status is a no-op on totals", func(t *testing.T) {
		r := &Reminder{}
		r.ApplyLogTransition(StatusPending, StatusTaken, now)
		r.ApplyLogTransition(StatusTaken, StatusTaken, now.Add(time.Minute))
		if r.TotalDoses != 1 || r.CompletedDoses != 1 {
			t.Fatalf("counters = {total:%d completed:%d}, want {1 1}", r.TotalDoses, r.CompletedDoses)
		}
	})

	t.Run("invariant holds under any transition sequence", func(t *testing.T) {
		statuses := []LogStatus{StatusTaken, StatusMissed, StatusSnoozed, StatusSkipped}
		r := &Reminder{}
		prev := StatusPending
		// Walk every pairwise transition a few times over.
		for i := 0; i < 64; i++ {
			next := statuses[i%len(statuses)]
			r.ApplyLogTransition(prev, next, now)
			if r.CompletedDoses+r.MissedDoses > r.TotalDoses {
				t.Fatalf("invariant broken at step %d: completed %d + missed %d > total %d",
					i, r.CompletedDoses, r.MissedDoses, r.TotalDoses)
			}
			if r.TotalDoses < 0 || r.CompletedDoses < 0 || r.MissedDoses < 0 {
				t.Fatalf("negative counter at step %d", i)
			}
			prev = next
		}
	})
}

func TestRecomputeAdherence(t *testing.T) {
	r := &Reminder{TotalDoses: 4, CompletedDoses: 3, MissedDoses: 1}
	r.RecomputeAdherence()
	if r.AdherenceRate != 75 {
		t.Errorf("adherence = %v, want 75", r.AdherenceRate)
	}

	r = &Reminder{}
	r.RecomputeAdherence()
	if r.AdherenceRate != 0 {
		t.Errorf("adherence with no doses = %v, want 0", r.AdherenceRate)
	}
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 45, 12, 999, time.UTC)
	got := DateOnly(ts)
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
}
