package magnetar

import (
	"testing"
	"time"
)

func duration(d time.Duration) *time.Duration {
	return &d
}

func TestParticipationWindows(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)

	tests := map[string]struct {
		timeLimit *time.Duration
		virtual   int
		realStart time.Time

		wantStart time.Time
		wantEnd   time.Time
	}{
		"live without limit": {
			virtual:   ParticipationLive,
			realStart: start.Add(30 * time.Minute),
			wantStart: start,
			wantEnd:   end,
		},
		"live with limit runs from real start": {
			timeLimit: duration(2 * time.Hour),
			virtual:   ParticipationLive,
			realStart: start.Add(30 * time.Minute),
			wantStart: start.Add(30 * time.Minute),
			wantEnd:   start.Add(2*time.Hour + 30*time.Minute),
		},
		"live with limit clamped to assignment end": {
			timeLimit: duration(2 * time.Hour),
			virtual:   ParticipationLive,
			realStart: start.Add(4 * time.Hour),
			wantStart: start.Add(4 * time.Hour),
			wantEnd:   end,
		},
		"spectator ignores limit": {
			timeLimit: duration(2 * time.Hour),
			virtual:   ParticipationSpectate,
			realStart: start.Add(1 * time.Hour),
			wantStart: start,
			wantEnd:   end,
		},
		"virtual without limit gets full duration": {
			virtual:   1,
			realStart: end.Add(24 * time.Hour),
			wantStart: end.Add(24 * time.Hour),
			wantEnd:   end.Add(29 * time.Hour),
		},
		"virtual with limit": {
			timeLimit: duration(90 * time.Minute),
			virtual:   3,
			realStart: end.Add(24 * time.Hour),
			wantStart: end.Add(24 * time.Hour),
			wantEnd:   end.Add(25*time.Hour + 30*time.Minute),
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := &Assignment{StartTime: start, EndTime: end, TimeLimit: test.timeLimit}
			p := &Participation{Virtual: test.virtual, RealStart: test.realStart}

			if got := p.EffectiveStart(a); !got.Equal(test.wantStart) {
				t.Errorf("EffectiveStart() = %v, want %v", got, test.wantStart)
			}
			if got := p.EffectiveEnd(a); !got.Equal(test.wantEnd) {
				t.Errorf("EffectiveEnd() = %v, want %v", got, test.wantEnd)
			}
		})
	}
}

func TestParticipationEnded(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	a := &Assignment{StartTime: start, EndTime: end}
	p := &Participation{Virtual: ParticipationLive, RealStart: start}

	if p.Ended(a, end.Add(-time.Second)) {
		t.Error("window should still be running one second before its end")
	}
	// The boundary instant still belongs to the window.
	if p.Ended(a, end) {
		t.Error("window should not count as ended exactly at its end")
	}
	if !p.Ended(a, end.Add(time.Second)) {
		t.Error("window should count as ended past its end")
	}

	if got, ok := p.TimeRemaining(a, start); !ok || got != 3*time.Hour {
		t.Errorf("TimeRemaining() at start = (%v, %t), want (3h, true)", got, ok)
	}
	if got, ok := p.TimeRemaining(a, end); !ok || got != 0 {
		t.Errorf("TimeRemaining() at the boundary = (%v, %t), want (0, true)", got, ok)
	}
	if _, ok := p.TimeRemaining(a, end.Add(time.Hour)); ok {
		t.Error("TimeRemaining() after the end should report absence")
	}
}

func TestVirtualWindowIgnoresLaterEdits(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &Assignment{StartTime: start, EndTime: start.Add(2 * time.Hour)}
	p := &Participation{Virtual: 1, RealStart: start.Add(48 * time.Hour)}

	before := p.EffectiveEnd(a)

	// Pushing the whole window back keeps its length, so the virtual
	// window is unchanged.
	a.StartTime = a.StartTime.Add(-time.Hour)
	a.EndTime = a.EndTime.Add(-time.Hour)

	if got := p.EffectiveEnd(a); !got.Equal(before) {
		t.Errorf("virtual end moved from %v to %v after a window shift", before, got)
	}
}
