package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Decimals is the number of decimal places of the native token.
	Decimals = 9
	// MultiplierScale is the fixed-point scale of multipliers (250 = 2.50x).
	MultiplierScale = 100
	// BaseMultiplier is 1.00x.
	BaseMultiplier = MultiplierScale

	CurrencySymbol = "OCT"
)

var printer = message.NewPrinter(language.English)

func decimalFromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// ToSmallest converts a display amount ("1.5") to smallest units, flooring
// anything below the token precision.
func ToSmallest(display string) (uint64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", display, err)
	}
	if d.IsNegative() {
		return 0, errors.New("amount must not be negative")
	}
	units := d.Shift(Decimals).Floor()
	if !units.BigInt().IsUint64() {
		return 0, errors.New("amount out of range")
	}
	return units.BigInt().Uint64(), nil
}

// FromSmallest converts smallest units to a display amount.
func FromSmallest(amount uint64) decimal.Decimal {
	return decimalFromUint(amount).Shift(-Decimals)
}

// FormatAmount renders smallest units as "1,234.50 OCT".
func FormatAmount(amount uint64) string {
	return printer.Sprintf("%.2f %s", FromSmallest(amount).InexactFloat64(), CurrencySymbol)
}

// ParseMultiplier converts a display multiplier ("2.5") to scaled form (250).
func ParseMultiplier(display string) (uint64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, fmt.Errorf("invalid multiplier %q: %w", display, err)
	}
	scaled := d.Mul(decimal.NewFromInt(MultiplierScale)).Floor()
	if scaled.LessThan(decimal.NewFromInt(BaseMultiplier)) {
		return 0, errors.New("multiplier must be at least 1.00")
	}
	if !scaled.BigInt().IsUint64() {
		return 0, errors.New("multiplier out of range")
	}
	return scaled.BigInt().Uint64(), nil
}

// FormatMultiplier renders a scaled multiplier as "2.50x".
func FormatMultiplier(m uint64) string {
	return decimalFromUint(m).Shift(-2).StringFixed(2) + "x"
}

// ApplyMultiplier returns amount * multiplier / 100, floored.
func ApplyMultiplier(amount, multiplier uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(multiplier))
	product.Quo(product, big.NewInt(MultiplierScale))
	if !product.IsUint64() {
		return ^uint64(0)
	}
	return product.Uint64()
}

// ApplyPayout returns amount * payout for a whole-number pay table factor,
// saturating at the largest uint64.
func ApplyPayout(amount, payout uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(payout))
	if !product.IsUint64() {
		return ^uint64(0)
	}
	return product.Uint64()
}

func unmarshalNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
