package analysis

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

const missing = "—"

var printer = message.NewPrinter(language.English)

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// CurrencyFor picks INR for Indian listings and USD otherwise.
func CurrencyFor(ticker, providerCurrency string) string {
	if strings.EqualFold(providerCurrency, "INR") ||
		strings.HasSuffix(ticker, ".NS") || strings.HasSuffix(ticker, ".BO") {
		return "INR"
	}
	return "USD"
}

// CurrencySymbol returns the grapheme for an ISO code, e.g. "$" or "₹".
func CurrencySymbol(code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		return code
	}
	return c.Grapheme
}

// FormatMarketCap renders a capitalization with a T/B/M suffix and 2 decimals.
func FormatMarketCap(v *float64, symbol string) string {
	if v == nil || math.IsNaN(*v) || *v == 0 {
		return missing
	}
	d := decimal.NewFromFloat(*v)
	switch {
	case d.GreaterThanOrEqual(trillion):
		return symbol + d.Div(trillion).StringFixed(2) + " T"
	case d.GreaterThanOrEqual(billion):
		return symbol + d.Div(billion).StringFixed(2) + " B"
	case d.GreaterThanOrEqual(million):
		return symbol + d.Div(million).StringFixed(2) + " M"
	}
	return symbol + printer.Sprintf("%.2f", *v)
}

// fixed formats a present, non-zero value with 2 decimals.
func fixed(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return missing
	}
	return printer.Sprintf("%.2f", *v)
}

func grouped(v float64) string {
	if math.IsNaN(v) {
		return missing
	}
	return printer.Sprintf("%.2f", v)
}

// PriceMetrics is the last close with its change and the 52-week range taken
// from the price series itself.
func PriceMetrics(closes []float64) []Metric {
	last := closes[len(closes)-1]
	var delta, pct float64
	if len(closes) > 1 {
		prev := closes[len(closes)-2]
		delta = last - prev
		if prev != 0 {
			pct = delta / prev * 100
		}
	}
	up := delta >= 0
	icon := "🟢"
	if !up {
		icon = "🔴"
	}
	high, low := calculator.Last52WeekRange(closes)
	return []Metric{
		{Label: "Last Close", Value: grouped(last), Delta: icon + " " + printer.Sprintf("%+.2f (%+.2f%%)", delta, pct), Up: &up},
		{Label: "52W High (from price series)", Value: grouped(high)},
		{Label: "52W Low (from price series)", Value: grouped(low)},
	}
}

// FundamentalMetrics formats the snapshot; every missing field shows "—".
func FundamentalMetrics(f model.Fundamentals, currency string) []Metric {
	beta := missing
	if f.Beta != nil {
		beta = printer.Sprintf("%.2f", *f.Beta)
	}

	dividend := missing
	if f.DividendYield != nil && *f.DividendYield != 0 {
		rate := missing
		if f.DividendRate != nil {
			rate = printer.Sprintf("%.2f", *f.DividendRate)
		}
		dividend = rate + printer.Sprintf(" (%.2f%%)", *f.DividendYield)
	}

	exDiv := missing
	if f.ExDividend != nil {
		exDiv = f.ExDividend.Format("Jan 02, 2006")
	}

	return []Metric{
		{Label: "Market Cap", Value: FormatMarketCap(f.MarketCap, CurrencySymbol(currency))},
		{Label: "P/E Ratio (TTM)", Value: fixed(f.TrailingPE)},
		{Label: "EPS (TTM)", Value: fixed(f.TrailingEPS)},
		{Label: "Beta (5Y Monthly)", Value: beta},
		{Label: "Forward Dividend & Yield", Value: dividend},
		{Label: "Ex-Dividend Date", Value: exDiv},
		{Label: "52 Week High", Value: fixed(f.High52w)},
		{Label: "52 Week Low", Value: fixed(f.Low52w)},
		{Label: "1y Target Est", Value: fixed(f.TargetMean)},
	}
}
