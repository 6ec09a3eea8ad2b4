package pagination

import (
	"strings"
	"time"
)

// DefaultLookback bounds how far back an incremental walk may go, even on a
// first run with no watermark.
const DefaultLookback = 14 * 24 * time.Hour

// Timestamped is an item carrying the provider's last-updated time.
type Timestamped interface {
	LastUpdated() string
}

// Cutoff decides when paging back through most-recent-first data has reached
// records an earlier run already collected.
type Cutoff struct {
	// Watermark is the start of the last successful run.
	Watermark time.Time

	// Lookback is the absolute ceiling measured back from Now.
	Lookback time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// CutoffRule names the rule that ended a walk.
type CutoffRule string

const (
	RuleContinue     CutoffRule = ""
	RuleEmptyPage    CutoffRule = "empty_page"
	RuleUnparsable   CutoffRule = "unparsable_timestamp"
	RuleWatermark    CutoffRule = "watermark"
	RuleLookbackSpan CutoffRule = "lookback"
)

// NewCutoff creates a cutoff. A zero watermark falls back to now minus lookback.
func NewCutoff(watermark time.Time, lookback time.Duration) Cutoff {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	c := Cutoff{Watermark: watermark, Lookback: lookback, Now: time.Now}
	if watermark.IsZero() {
		c.Watermark = c.Now().Add(-lookback)
	}
	return c
}

// Evaluate applies the rules to a page, in order:
//  1. an empty page stops
//  2. a last item without a parseable updated time stops
//  3. a last item not strictly newer than the watermark stops
//  4. a last item older than the lookback ceiling stops
func Evaluate[T Timestamped](c Cutoff, page []T) CutoffRule {
	if len(page) == 0 {
		return RuleEmptyPage
	}

	updated, ok := ParseTimestamp(page[len(page)-1].LastUpdated())
	if !ok {
		return RuleUnparsable
	}

	if !updated.After(c.Watermark) {
		return RuleWatermark
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	lookback := c.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if updated.Before(now().Add(-lookback)) {
		return RuleLookbackSpan
	}

	return RuleContinue
}

// StopWhenStale adapts a Cutoff to a StopFunc. onStop, when set, is called
// with the rule that fired.
func StopWhenStale[T Timestamped](c Cutoff, onStop func(CutoffRule)) StopFunc[T] {
	return func(page []T) bool {
		rule := Evaluate(c, page)
		if rule == RuleContinue {
			return false
		}
		if onStop != nil {
			onStop(rule)
		}
		return true
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006",
}

// ParseTimestamp parses the provider's updatedAt formats. Empty or
// unrecognized input reports false.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
