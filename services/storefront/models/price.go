package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Price is a monetary amount in cents. It always renders with exactly two
// decimal places ("10.00") and is encoded in JSON as that string. Stores
// (BSON, DynamoDB, Postgres) keep the integer cent value.
type Price int64

// maxPriceUnits is the first whole-unit amount whose cent value, plus any
// fraction, no longer fits in an int64.
const maxPriceUnits = math.MaxInt64 / 100

// Cents builds a Price from an integer cent amount.
func Cents(c int64) Price { return Price(c) }

// PriceFromFloat rounds f half away from zero to the nearest cent.
func PriceFromFloat(f float64) Price {
	return Price(math.Round(f * 100))
}

// ParsePrice accepts a decimal string such as "9.999", "10" or "10.5" and
// rounds it half away from zero to cents.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return roundDecimal(s, f)
}

// roundDecimal rounds using the decimal text when possible so values like
// "1.005" round up instead of suffering binary float error.
func roundDecimal(s string, f float64) (Price, error) {
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimLeft(s, "+-")
	if strings.Trim(digits, "0123456789.") != "" {
		if math.Abs(f) >= maxPriceUnits {
			return 0, fmt.Errorf("price %q out of range", s)
		}
		return PriceFromFloat(f), nil
	}

	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 3 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units >= maxPriceUnits {
		return 0, fmt.Errorf("price %q out of range", s)
	}
	cents := units*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	if neg {
		cents = -cents
	}
	return Price(cents), nil
}

// Float returns the amount in major units.
func (p Price) Float() float64 { return float64(p) / 100 }

// Cents returns the amount in minor units.
func (p Price) Cents() int64 { return int64(p) }

// Times multiplies by a quantity.
func (p Price) Times(q int) Price { return p * Price(q) }

func (p Price) String() string {
	c := int64(p)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
