package purchases

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Amount is a numeric form value. It decodes from JSON numbers, numeric
// strings or null, and anything that does not parse becomes 0.
type Amount float64

var numericPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ParseAmount reads the longest numeric prefix of raw the way browsers parse
// number inputs. Unparseable input, NaN and negative zero all yield 0.
func ParseAmount(raw string) Amount {
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	match := numericPrefix.FindString(trimmed)
	if match == "" {
		return 0
	}
	// Out-of-range input still returns ±Inf, which is what we want.
	value, _ := strconv.ParseFloat(match, 64)
	if math.IsNaN(value) || value == 0 {
		return 0
	}
	return Amount(value)
}

// UnmarshalJSON applies ParseAmount to numbers and strings alike.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	// null, true, false and numbers all land here.
	*a = ParseAmount(string(data))
	return nil
}

// Float returns the value as float64.
func (a Amount) Float() float64 {
	return float64(a)
}

// IsAllowedGSTRate reports whether rate is one of GSTRates.
func IsAllowedGSTRate(rate Amount) bool {
	for _, allowed := range GSTRates {
		if rate == allowed {
			return true
		}
	}
	return false
}
