/*
money.go - Exact monetary amounts in minor units

PURPOSE:
  Money is the single canonical representation for every monetary value
  in the engine: an integer count of minor units (cents). All arithmetic
  and comparison happens on the integer, so there is no binary
  floating-point drift anywhere in the balance path.

PARSING:
  User input arrives as free-form decimal text from a numeric keypad:
  "12.50", "12,50", "R$ 12,50", "0012". ParseMoney cleans the input,
  accepts either '.' or ',' as the fractional separator, strips leading
  zeros, and rejects anything that does not land exactly on whole cents.

  Stored documents are never trusted either: every read boundary goes
  through Money, never through a raw float.

WHY INTEGER CENTS?
  0.1 + 0.2 != 0.3 in float64. A fare engine that drifts by a cent per
  thousand debits is a support ticket generator. decimal.Decimal is used
  only at the parse/format edge; the value that lives in memory and in
  the store is an int64.

FORMATTING:
  Format always renders exactly two fraction digits ("5.40"), which is
  also the round-trip form: ParseMoney(m.Format()) == m for any m >= 0.

SEE ALSO:
  - balance.go: debit/credit arithmetic on Money
  - limit.go: daily-cap accumulation on Money
*/
package fare

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - int64 minor units (cents)
// =============================================================================

// Money is a monetary amount in minor units. Money(540) is 5.40.
type Money int64

// Cents constructs a Money from a raw minor-unit count.
func Cents(n int64) Money { return Money(n) }

func (m Money) Cents() int64 { return int64(m) }

// Arithmetic and comparison. All integer, all exact.
func (m Money) Add(o Money) Money       { return m + o }
func (m Money) Sub(o Money) Money       { return m - o }
func (m Money) Neg() Money              { return -m }
func (m Money) IsZero() bool            { return m == 0 }
func (m Money) IsNegative() bool        { return m < 0 }
func (m Money) IsPositive() bool        { return m > 0 }
func (m Money) LessThan(o Money) bool   { return m < o }
func (m Money) GreaterThan(o Money) bool { return m > o }

// Format renders the amount with exactly two fraction digits.
func (m Money) Format() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

func (m Money) String() string { return m.Format() }

// =============================================================================
// PARSING - free-form decimal text to exact cents
// =============================================================================

// ParseMoney parses user-entered decimal text into Money.
//
// Cleaning rules:
//  1. Every rune that is not a digit, '.', or ',' is dropped (currency
//     symbols, spaces, keypad artifacts).
//  2. The LAST remaining separator is the fractional separator; any
//     earlier separators are grouping marks and are dropped.
//  3. Leading zeros are stripped before numeric interpretation.
//
// The cleaned string must parse to a non-negative decimal representable
// in whole cents (at most two fraction digits). Anything else fails
// with ErrInvalidAmount.
func ParseMoney(raw string) (Money, error) {
	cleaned := normalizeAmount(raw)
	if cleaned == "" {
		return 0, &InvalidAmountError{Input: raw, Reason: "no numeric content"}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, &InvalidAmountError{Input: raw, Reason: "not a decimal number"}
	}
	if d.IsNegative() {
		return 0, &InvalidAmountError{Input: raw, Reason: "negative amount"}
	}

	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, &InvalidAmountError{Input: raw, Reason: "finer than whole cents"}
	}
	// IntPart truncates silently past int64; a cent count that does not
	// fit is rejected, never wrapped into garbage.
	if !shifted.BigInt().IsInt64() {
		return 0, &InvalidAmountError{Input: raw, Reason: "amount too large"}
	}
	return Money(shifted.IntPart()), nil
}

// ParsePositiveMoney is ParseMoney plus a strict > 0 requirement.
// Used wherever "an amount" means "an amount worth moving".
func ParsePositiveMoney(raw string) (Money, error) {
	m, err := ParseMoney(raw)
	if err != nil {
		return 0, err
	}
	if !m.IsPositive() {
		return 0, &InvalidAmountError{Input: raw, Reason: "amount must be greater than zero"}
	}
	return m, nil
}

// MustParseMoney panics on parse failure. Test and scenario helper only.
func MustParseMoney(raw string) Money {
	m, err := ParseMoney(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// normalizeAmount reduces raw input to "<digits>.<digits>" form.
func normalizeAmount(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	// The last separator wins as the fractional one; earlier ones are
	// grouping marks ("1.234,56" -> "1234.56").
	lastSep := strings.LastIndexAny(s, ".,")
	if lastSep >= 0 {
		intPart := strings.Map(digitsOnly, s[:lastSep])
		fracPart := s[lastSep+1:]
		if strings.ContainsAny(fracPart, ".,") {
			// Separator inside the fractional part: malformed, let the
			// decimal parser reject it.
			return s
		}
		s = intPart + "." + fracPart
	}

	// Leading zeros are stripped before numeric interpretation.
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	if s[0] == '.' {
		s = "0" + s
	}
	return s
}

func digitsOnly(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
