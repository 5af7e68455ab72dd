package mapper

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/bardlex/coinrpc/pkg/errors"
)

const (
	satoshiPerCoin = 100_000_000
	decimals       = 8
)

var (
	errAmountSyntax    = stderrors.New("invalid decimal amount")
	errAmountPrecision = stderrors.New("amount has more than 8 significant decimals")
	errAmountRange     = stderrors.New("amount out of range")
)

// Amount maps a decimal coin value, sent as a JSON number or a quoted one,
// into integer base units without going through binary floating point.
func Amount(op string, raw json.RawMessage) (btcutil.Amount, error) {
	a, err := ParseAmount(numberText(raw))
	if err != nil {
		return 0, errors.NewParseError(op, "result", raw, err)
	}
	return a, nil
}

// ParseAmount parses decimal text such as "0.00012345", "-12" or "1.5e-3".
// The exponent moves the decimal point before the precision check, so any
// value with more than eight non-zero decimals is rejected rather than
// rounded.
func ParseAmount(s string) (btcutil.Amount, error) {
	s = strings.TrimSpace(s)

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(s), "e")
	whole, frac, _ := strings.Cut(mantissa, ".")
	if whole == "" && frac == "" {
		return 0, errAmountSyntax
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, errAmountSyntax
	}

	if hasExp {
		exp, err := strconv.Atoi(exponent)
		if err != nil {
			return 0, errAmountSyntax
		}
		if whole, frac, err = shiftPoint(whole, frac, exp); err != nil {
			return 0, err
		}
	}

	if len(frac) > decimals {
		if strings.Trim(frac[decimals:], "0") != "" {
			return 0, errAmountPrecision
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errAmountRange
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, errAmountSyntax
	}
	if w > (math.MaxInt64-f)/satoshiPerCoin {
		return 0, errAmountRange
	}

	v := w*satoshiPerCoin + f
	if neg {
		v = -v
	}
	return btcutil.Amount(v), nil
}

// FormatAmount renders a with exactly eight decimals, the way daemons do.
// ParseAmount(FormatAmount(a)) == a for every a.
func FormatAmount(a btcutil.Amount) string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	// work in uint64 so MinInt64 negates cleanly
	u := uint64(v)
	if v < 0 {
		u = ^u + 1
	}
	return fmt.Sprintf("%s%d.%08d", sign, u/satoshiPerCoin, u%satoshiPerCoin)
}

// maxShift bounds the exponent; anything past it is out of range or
// beyond the precision for every non-zero mantissa.
const maxShift = 40

// shiftPoint moves the decimal point of whole.frac by exp places.
func shiftPoint(whole, frac string, exp int) (string, string, error) {
	digits := whole + frac
	if strings.Trim(digits, "0") == "" {
		return "0", "", nil
	}
	switch {
	case exp > maxShift:
		return "", "", errAmountRange
	case exp < -maxShift:
		return "", "", errAmountPrecision
	}

	point := len(whole) + exp
	if point < 0 {
		digits = strings.Repeat("0", -point) + digits
		point = 0
	}
	if point > len(digits) {
		digits += strings.Repeat("0", point-len(digits))
	}
	return digits[:point], digits[point:], nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DecimalMap maps {"name": decimal, ...} into amounts keyed by name.
// A null result yields an empty map.
func DecimalMap(op string, raw json.RawMessage) (map[string]btcutil.Amount, error) {
	out := make(map[string]btcutil.Amount)
	if isNull(raw) {
		return out, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.NewParseError(op, "result", raw, err)
	}
	for name, value := range fields {
		a, err := Amount(op, value)
		if err != nil {
			return nil, fieldError(op, name, value, err)
		}
		out[name] = a
	}
	return out, nil
}
