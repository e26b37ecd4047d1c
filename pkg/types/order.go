package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Order is the numeric sort weight carried by categories and links. Higher
// values sort first. Decoding is lenient: numbers, numeric strings
// (including 0x, 0o and 0b literals), booleans and single-element arrays
// become their numeric value. Anything else, and any value that is not
// finite, becomes 0.
type Order float64

// UnmarshalJSON implements json.Unmarshaler.
func (o *Order) UnmarshalJSON(data []byte) error {
	*o = ParseOrder(data)
	return nil
}

// ParseOrder coerces a raw JSON value into an Order. Values that do not
// represent a finite number yield 0.
func ParseOrder(data []byte) Order {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	switch data[0] {
	case 't':
		if string(data) == "true" {
			return 1
		}
		return 0
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		return parseNumeric(s)
	case '[':
		// An array coerces through its string form, so only a single
		// element can yield a number and booleans inside it do not.
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil || len(items) != 1 {
			return 0
		}
		item := bytes.TrimSpace(items[0])
		if len(item) > 0 && (item[0] == 't' || item[0] == 'f') {
			return 0
		}
		return ParseOrder(item)
	default:
		return finite(strconv.ParseFloat(string(data), 64))
	}
}

func parseNumeric(s string) Order {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			return finite(float64(n), err)
		}
	}
	return finite(strconv.ParseFloat(s, 64))
}

func finite(f float64, err error) Order {
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Order(f)
}
