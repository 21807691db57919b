// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the number of fractional digits carried by Amount (USDC precision).
const AmountDecimals = 6

// Amount is a monetary value in integer micro-units.
type Amount int64

// ParseAmount parses a decimal string such as "0.01" into micro-units.
// More than AmountDecimals fractional digits is an error.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amountFromDecimal(d)
}

// MustParseAmount is ParseAmount that panics on error. Intended for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func amountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(AmountDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), AmountDecimals)
	}
	if scaled.Abs().GreaterThan(decimal.New(1, 18)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns a as a decimal value in whole units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountDecimals)
}

// String renders a in whole units, e.g. "0.01".
func (a Amount) String() string {
	return a.Decimal().String()
}

// MulBPS returns a * bps / 10000, truncated toward zero.
func (a Amount) MulBPS(bps int) Amount {
	return Amount(int64(a) * int64(bps) / 10000)
}

// MarshalJSON renders a as an unquoted decimal number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	parsed, err := amountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
