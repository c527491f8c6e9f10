package manifest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Calendar bounds for epoch conversion: 0001-01-01 and 10000-01-01 UTC.
const (
	minEpoch = -62135596800
	maxEpoch = 253402300800
)

// Epoch is an optional epoch-seconds value. Decoding never fails: anything
// that is not a finite number (or a string holding one) leaves it invalid.
type Epoch struct {
	Seconds float64
	Valid   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Epoch) UnmarshalJSON(data []byte) error {
	*e = Epoch{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*e = Epoch{Seconds: v, Valid: true}
	return nil
}

// SortKey orders timestamped values first; invalid ones sort as +Inf.
func (e Epoch) SortKey() float64 {
	if !e.Valid {
		return math.Inf(1)
	}
	return e.Seconds
}

// Time converts the value to a UTC calendar time. It returns nil when the
// value is missing or outside the calendar range.
func (e Epoch) Time() *time.Time {
	if !e.Valid || e.Seconds < minEpoch || e.Seconds >= maxEpoch {
		return nil
	}
	sec := math.Floor(e.Seconds)
	nsec := math.Round((e.Seconds - sec) * 1e9)
	t := time.Unix(int64(sec), int64(nsec)).UTC()
	return &t
}

