// Package models provides domain models for the option backtester.
package models

import (
	"fmt"
	"strings"
	"time"
)

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType parses a string into an OptionType. It accepts the
// canonical CALL/PUT names as well as the NSE CE/PE convention used by
// option chain downloads. Anything else is an error.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "CE":
		return OptionTypeCall, nil
	case "PUT", "PE":
		return OptionTypePut, nil
	default:
		return "", fmt.Errorf("invalid option type %q: must be CALL or PUT", s)
	}
}

// Valid reports whether the option type is one of the two known variants.
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// SignalAction represents the action requested by a strategy signal.
type SignalAction string

const (
	SignalBuy SignalAction = "buy"
)

// Signal is a trade request produced by a strategy for a single row.
// Quantity defaults to 1 and Expiry defaults to entry time + 30 days
// when left unset. An IV of zero means unknown and disables theta decay.
type Signal struct {
	Action   SignalAction
	Strike   float64
	Type     OptionType
	Premium  float64
	Quantity int
	Expiry   time.Time
	IV       float64
}

// ChainRow is a single timestamped snapshot of the underlying spot and
// the aggregated option chain around it. Timestamp and Spot are
// mandatory; the chain columns are optional inputs for strategies.
type ChainRow struct {
	Timestamp time.Time
	Spot      float64

	CallOI  int64
	PutOI   int64
	CallIV  float64
	PutIV   float64
	CallLTP float64
	PutLTP  float64
}

// PCR returns the put-call ratio of open interest, or zero when call
// open interest is absent.
func (r ChainRow) PCR() float64 {
	if r.CallOI == 0 {
		return 0
	}
	return float64(r.PutOI) / float64(r.CallOI)
}

// EquityPoint represents a point on the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}
