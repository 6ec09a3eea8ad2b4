package config

import "strings"

// MaxCount is the ceiling ParseCount clamps to.
const MaxCount = 1_000_000_000

// ParseCount reads the leading integer of a user-supplied count.
//
// Surrounding whitespace and anything after the first non-digit are ignored,
// so "037 dogs" is 37 and "867 5309" is 867. Input without a leading integer
// yields 0. The result is clamped to [0, MaxCount].
func ParseCount(raw string) int {
	s := strings.TrimSpace(raw)

	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		// stop growing once past the ceiling so long inputs cannot overflow
		if n <= MaxCount {
			n = n*10 + int64(c-'0')
		}
	}

	if negative {
		return 0
	}
	if n > MaxCount {
		return MaxCount
	}
	return int(n)
}
