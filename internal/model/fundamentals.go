package model

import "time"

// Fundamentals is a quote/fundamentals snapshot. Available is false for the
// explicit empty record returned when every source failed.
type Fundamentals struct {
	Symbol    string
	Available bool
	Source    string
	Currency  string
	ShortName string

	MarketCap     *float64
	TrailingPE    *float64
	TrailingEPS   *float64
	Beta          *float64
	DividendRate  *float64
	DividendYield *float64 // percent
	ExDividend    *time.Time
	High52w       *float64
	Low52w        *float64
	TargetMean    *float64
}

// EmptyFundamentals is the degraded record used when no source answered.
func EmptyFundamentals(symbol string) Fundamentals {
	return Fundamentals{Symbol: symbol}
}

// Float returns a pointer to v, or nil when ok is false.
func Float(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
