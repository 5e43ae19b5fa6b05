// File: internal/filters/news.go
// ============================================
package filters

import (
	"fmt"
	"time"

	"wti-trading-bot/pkg/types"
)

// NewsEvent is a scheduled high-impact release.
type NewsEvent struct {
	Event       string
	Time        time.Time
	Impact      string
	AvoidBefore time.Duration
	AvoidAfter  time.Duration
}

// NewsCalendar blocks trading around the weekly EIA petroleum status report.
type NewsCalendar struct {
	eia types.EIAConfig
}

func NewNewsCalendar(config *types.Config) *NewsCalendar {
	return &NewsCalendar{eia: config.News.EIA}
}

func (n *NewsCalendar) Name() string { return "news" }

func (n *NewsCalendar) Check(now time.Time) types.FilterResult {
	return n.CanTrade(now)
}

func (n *NewsCalendar) CanTrade(now time.Time) types.FilterResult {
	inWindow, reason := n.IsEIAReleaseTime(now)
	if inWindow {
		return types.FilterResult{Allowed: false, Reason: "EIA release time - " + reason}
	}
	return types.FilterResult{Allowed: true, Reason: "no major news events"}
}

// IsEIAReleaseTime reports whether now falls inside the avoidance window of
// this week's release.
func (n *NewsCalendar) IsEIAReleaseTime(now time.Time) (bool, string) {
	if !n.eia.Enabled {
		return false, "EIA filtering disabled"
	}

	now = now.UTC()
	if isoWeekday(now) != n.eia.ReleaseDay {
		return false, fmt.Sprintf("not EIA release day (current: %s)", now.Weekday())
	}

	release := n.releaseOn(now)
	start := release.Add(-n.avoidBefore())
	end := release.Add(n.avoidAfter())
	if !now.Before(start) && !now.After(end) {
		return true, fmt.Sprintf("EIA release window (-%d/+%d min)", n.eia.AvoidMinutesBefore, n.eia.AvoidMinutesAfter)
	}
	return false, "outside EIA release window"
}

// NextEIARelease returns the first release strictly after now.
func (n *NewsCalendar) NextEIARelease(now time.Time) time.Time {
	now = now.UTC()
	daysAhead := (n.eia.ReleaseDay - isoWeekday(now) + 7) % 7
	next := n.releaseOn(now.AddDate(0, 0, daysAhead))
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Schedule lists releases within daysAhead of now, oldest first.
func (n *NewsCalendar) Schedule(now time.Time, daysAhead int) []NewsEvent {
	if !n.eia.Enabled {
		return nil
	}
	horizon := now.UTC().AddDate(0, 0, daysAhead)
	var events []NewsEvent
	for t := n.NextEIARelease(now); !t.After(horizon); t = t.AddDate(0, 0, 7) {
		events = append(events, NewsEvent{
			Event:       "EIA Petroleum Status Report",
			Time:        t,
			Impact:      "HIGH",
			AvoidBefore: n.avoidBefore(),
			AvoidAfter:  n.avoidAfter(),
		})
	}
	return events
}

func (n *NewsCalendar) releaseOn(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, n.eia.ReleaseHour, n.eia.ReleaseMinute, 0, 0, time.UTC)
}

func (n *NewsCalendar) avoidBefore() time.Duration {
	return time.Duration(n.eia.AvoidMinutesBefore) * time.Minute
}

func (n *NewsCalendar) avoidAfter() time.Duration {
	return time.Duration(n.eia.AvoidMinutesAfter) * time.Minute
}

// isoWeekday maps Monday=0 ... Sunday=6.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
