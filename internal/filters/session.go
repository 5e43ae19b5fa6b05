// File: internal/filters/session.go
// ============================================
package filters

import (
	"fmt"
	"sort"
	"time"

	"wti-trading-bot/pkg/types"
)

// Filter is a stateless time-window gate evaluated every tick.
type Filter interface {
	Name() string
	Check(now time.Time) types.FilterResult
}

// SessionFilter only allows trading inside the configured UTC sessions.
type SessionFilter struct {
	london  types.SessionWindow
	newYork types.SessionWindow
	asian   types.SessionWindow
}

func NewSessionFilter(config *types.Config) *SessionFilter {
	return &SessionFilter{
		london:  config.Sessions.London,
		newYork: config.Sessions.NewYork,
		asian:   config.Sessions.Asian,
	}
}

func (f *SessionFilter) Name() string { return "session" }

func (f *SessionFilter) Check(now time.Time) types.FilterResult {
	return f.IsTradingSession(now)
}

// IsTradingSession reports the active session, preferring the London/NY overlap.
func (f *SessionFilter) IsTradingSession(now time.Time) types.FilterResult {
	hour := now.UTC().Hour()
	inLondon := f.london.Enabled && inWindow(f.london, hour)
	inNewYork := f.newYork.Enabled && inWindow(f.newYork, hour)

	switch {
	case inLondon && inNewYork:
		start := maxInt(f.london.StartHour, f.newYork.StartHour)
		end := minInt(f.london.EndHour, f.newYork.EndHour)
		return types.FilterResult{
			Allowed: true,
			Session: "London/NY Overlap",
			Reason:  fmt.Sprintf("London/NY overlap session (%d:00-%d:00 UTC)", start, end),
		}
	case inLondon:
		return types.FilterResult{
			Allowed: true,
			Session: "London",
			Reason:  fmt.Sprintf("London session active (%d:00-%d:00 UTC)", f.london.StartHour, f.london.EndHour),
		}
	case inNewYork:
		return types.FilterResult{
			Allowed: true,
			Session: "New York",
			Reason:  fmt.Sprintf("New York session active (%d:00-%d:00 UTC)", f.newYork.StartHour, f.newYork.EndHour),
		}
	case f.asian.Enabled && inWindow(f.asian, hour):
		return types.FilterResult{
			Allowed: true,
			Session: "Asian",
			Reason:  fmt.Sprintf("Asian session active (%d:00-%d:00 UTC)", f.asian.StartHour, f.asian.EndHour),
		}
	}

	return types.FilterResult{
		Allowed: false,
		Session: "None",
		Reason:  fmt.Sprintf("outside trading sessions (current: %d:00 UTC)", hour),
	}
}

// ActiveSessions lists every enabled session covering now.
func (f *SessionFilter) ActiveSessions(now time.Time) []string {
	hour := now.UTC().Hour()
	var active []string
	if f.london.Enabled && inWindow(f.london, hour) {
		active = append(active, "London")
	}
	if f.newYork.Enabled && inWindow(f.newYork, hour) {
		active = append(active, "New York")
	}
	if f.asian.Enabled && inWindow(f.asian, hour) {
		active = append(active, "Asian")
	}
	return active
}

// NextSession describes the next session opening.
type NextSession struct {
	Session    string
	StartHour  int
	HoursUntil int
}

// NextSessionStart finds the next enabled session start after now's hour,
// wrapping to tomorrow. ok is false when no session is enabled.
func (f *SessionFilter) NextSessionStart(now time.Time) (next NextSession, ok bool) {
	type start struct {
		name string
		hour int
	}
	var starts []start
	if f.london.Enabled {
		starts = append(starts, start{"London", f.london.StartHour})
	}
	if f.newYork.Enabled {
		starts = append(starts, start{"New York", f.newYork.StartHour})
	}
	if f.asian.Enabled {
		starts = append(starts, start{"Asian", f.asian.StartHour})
	}
	if len(starts) == 0 {
		return NextSession{}, false
	}
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].hour < starts[j].hour })

	hour := now.UTC().Hour()
	for _, s := range starts {
		if hour < s.hour {
			return NextSession{Session: s.name, StartHour: s.hour, HoursUntil: s.hour - hour}, true
		}
	}
	first := starts[0]
	return NextSession{Session: first.name, StartHour: first.hour, HoursUntil: 24 - hour + first.hour}, true
}

// inWindow treats StartHour > EndHour as a window wrapping midnight.
func inWindow(w types.SessionWindow, hour int) bool {
	if w.StartHour <= w.EndHour {
		return w.StartHour <= hour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
