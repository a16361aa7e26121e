package reconcile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 5.97 × 10^24 kg, 1.9x10^27, 3.3e23
	sciMass     = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*(?:[×xX*]\s*10\s*\^\s*([-+]?\d+)|[eE]([-+]?\d+))`)
	nonNumeric  = regexp.MustCompile(`[^\d.\-]`)
	floatPrefix = regexp.MustCompile(`^-?(?:\d+\.?\d*|\.\d+)`)
)

// ParseMass extracts the numeric magnitude of a free-form mass string.
// A scientific "×10^N" or "eN" suffix right after the leading number is
// applied; otherwise every character except digits, '.' and '-' is dropped and
// the longest float prefix is read. No digits yields 0.
func ParseMass(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if m := sciMass.FindStringSubmatch(s); m != nil {
		mantissa, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			exp := m[2]
			if exp == "" {
				exp = m[3]
			}
			if n, err := strconv.Atoi(exp); err == nil {
				return finite(mantissa * math.Pow10(n))
			}
		}
	}

	stripped := nonNumeric.ReplaceAllString(s, "")
	prefix := floatPrefix.FindString(stripped)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(prefix, "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// finite keeps the comparator total: NaN (0 × 10^400) reads as 0 and an
// overflow saturates at ±MaxFloat64.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
