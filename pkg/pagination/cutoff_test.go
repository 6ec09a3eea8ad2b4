package pagination

import (
	"testing"
	"time"
)

type item struct {
	updated string
}

func (i item) LastUpdated() string { return i.updated }

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) string {
		return now.Add(-time.Duration(d) * 24 * time.Hour).Format(time.RFC3339)
	}
	epoch := time.Unix(0, 0)

	tests := []struct {
		name      string
		page      []item
		watermark time.Time
		want      CutoffRule
	}{
		{
			name:      "empty page",
			page:      nil,
			watermark: epoch,
			want:      RuleEmptyPage,
		},
		{
			name:      "empty updated time",
			page:      []item{{updated: ""}},
			watermark: epoch,
			want:      RuleUnparsable,
		},
		{
			name:      "unparsable updated time with recent watermark",
			page:      []item{{updated: "not a date"}},
			watermark: now.Add(-time.Hour),
			want:      RuleUnparsable,
		},
		{
			name:      "only last item is inspected",
			page:      []item{{updated: daysAgo(1)}, {updated: ""}},
			watermark: epoch,
			want:      RuleUnparsable,
		},
		{
			name:      "13 days ago with epoch watermark continues",
			page:      []item{{updated: daysAgo(13)}},
			watermark: epoch,
			want:      RuleContinue,
		},
		{
			name:      "15 days ago with epoch watermark hits lookback",
			page:      []item{{updated: daysAgo(13)}, {updated: daysAgo(15)}},
			watermark: epoch,
			want:      RuleLookbackSpan,
		},
		{
			name:      "newer than watermark continues",
			page:      []item{{updated: daysAgo(1)}},
			watermark: now.Add(-2 * 24 * time.Hour),
			want:      RuleContinue,
		},
		{
			name:      "older than watermark stops",
			page:      []item{{updated: daysAgo(1)}, {updated: daysAgo(3)}},
			watermark: now.Add(-2 * 24 * time.Hour),
			want:      RuleWatermark,
		},
		{
			name:      "equal to watermark stops",
			page:      []item{{updated: now.Add(-time.Hour).Format(time.RFC3339)}},
			watermark: now.Add(-time.Hour),
			want:      RuleWatermark,
		},
		{
			name:      "very old date stops",
			page:      []item{{updated: "Mon Jan 31 2000"}},
			watermark: epoch,
			want:      RuleLookbackSpan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cutoff{
				Watermark: tt.watermark,
				Lookback:  DefaultLookback,
				Now:       func() time.Time { return now },
			}
			if got := Evaluate(c, tt.page); got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}

			var fired CutoffRule
			stop := StopWhenStale[item](c, func(r CutoffRule) { fired = r })
			if got := stop(tt.page); got != (tt.want != RuleContinue) {
				t.Errorf("stop() = %v, want %v", got, tt.want != RuleContinue)
			}
			if fired != tt.want {
				t.Errorf("onStop rule = %q, want %q", fired, tt.want)
			}
		})
	}
}

func TestNewCutoff_ZeroWatermarkUsesLookback(t *testing.T) {
	c := NewCutoff(time.Time{}, 0)

	if c.Lookback != DefaultLookback {
		t.Errorf("Lookback = %s, want %s", c.Lookback, DefaultLookback)
	}

	want := time.Now().Add(-DefaultLookback)
	if diff := c.Watermark.Sub(want); diff > time.Minute || diff < -time.Minute {
		t.Errorf("Watermark = %s, want about %s", c.Watermark, want)
	}

	// 13 days ago is after the fallback watermark.
	recent := []item{{updated: time.Now().Add(-13 * 24 * time.Hour).Format(time.RFC3339)}}
	if StopWhenStale[item](c, nil)(recent) {
		t.Error("stop() = true for an item inside the lookback window")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2026-10-14T09:30:00Z", true},
		{"2026-10-14T09:30:00.123Z", true},
		{"2026-10-14T09:30:00+02:00", true},
		{"2026-10-14", true},
		{"Wed Oct 14 2026", true},
		{"", false},
		{"   ", false},
		{"0", false},
		{"yesterday", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := ParseTimestamp(tt.input)
			if ok != tt.ok {
				t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}
