package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"StockLens/internal/model"
)

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v rawValue) ptr() *float64 { return v.Raw }

type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				MarketCap        rawValue `json:"marketCap"`
				TrailingPE       rawValue `json:"trailingPE"`
				Beta             rawValue `json:"beta"`
				DividendRate     rawValue `json:"dividendRate"`
				DividendYield    rawValue `json:"dividendYield"`
				ExDividendDate   rawValue `json:"exDividendDate"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
				Currency         string   `json:"currency"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
				Beta        rawValue `json:"beta"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				TargetMeanPrice rawValue `json:"targetMeanPrice"`
			} `json:"financialData"`
			Price struct {
				ShortName string   `json:"shortName"`
				Currency  string   `json:"currency"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			ShortName                   string   `json:"shortName"`
			Currency                    string   `json:"currency"`
			MarketCap                   *float64 `json:"marketCap"`
			TrailingPE                  *float64 `json:"trailingPE"`
			EpsTrailingTwelveMonths     *float64 `json:"epsTrailingTwelveMonths"`
			TrailingAnnualDividendRate  *float64 `json:"trailingAnnualDividendRate"`
			TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
			ExDividendDate              *int64   `json:"exDividendDate"`
			FiftyTwoWeekHigh            *float64 `json:"fiftyTwoWeekHigh"`
			FiftyTwoWeekLow             *float64 `json:"fiftyTwoWeekLow"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteResponse"`
}

// FetchFundamentals queries quoteSummary. Use QuoteFallback for the degraded source.
func (f *YahooFetcher) FetchFundamentals(ctx context.Context, ticker string) (model.Fundamentals, error) {
	q := url.Values{}
	q.Set("modules", "summaryDetail,defaultKeyStatistics,financialData,price")
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.BaseURL, url.PathEscape(ticker), q.Encode())

	var qs quoteSummary
	if err := f.getJSON(ctx, u, &qs); err != nil {
		return model.Fundamentals{}, err
	}
	if qs.QuoteSummary.Error != nil {
		return model.Fundamentals{}, fmt.Errorf("yahoo api error: %s", qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return model.Fundamentals{}, fmt.Errorf("yahoo: empty quoteSummary for %s", ticker)
	}

	r := qs.QuoteSummary.Result[0]
	fd := model.Fundamentals{
		Symbol:        ticker,
		Available:     true,
		Source:        "quoteSummary",
		ShortName:     r.Price.ShortName,
		Currency:      firstNonEmpty(r.Price.Currency, r.SummaryDetail.Currency),
		MarketCap:     firstPtr(r.SummaryDetail.MarketCap.ptr(), r.Price.MarketCap.ptr()),
		TrailingPE:    r.SummaryDetail.TrailingPE.ptr(),
		TrailingEPS:   r.DefaultKeyStatistics.TrailingEps.ptr(),
		Beta:          firstPtr(r.SummaryDetail.Beta.ptr(), r.DefaultKeyStatistics.Beta.ptr()),
		DividendRate:  r.SummaryDetail.DividendRate.ptr(),
		DividendYield: percent(r.SummaryDetail.DividendYield.ptr()),
		High52w:       r.SummaryDetail.FiftyTwoWeekHigh.ptr(),
		Low52w:        r.SummaryDetail.FiftyTwoWeekLow.ptr(),
		TargetMean:    r.FinancialData.TargetMeanPrice.ptr(),
	}
	if ex := r.SummaryDetail.ExDividendDate.ptr(); ex != nil {
		t := time.Unix(int64(*ex), 0).UTC()
		fd.ExDividend = &t
	}
	return fd, nil
}

// QuoteFallback is the reduced v7 quote source.
type QuoteFallback struct {
	Yahoo *YahooFetcher
}

func (q QuoteFallback) Name() string { return "yahoo-quote" }

func (q QuoteFallback) FetchFundamentals(ctx context.Context, ticker string) (model.Fundamentals, error) {
	f := q.Yahoo
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", f.QuoteURL, url.QueryEscape(ticker))

	var qr quoteResponse
	if err := f.getJSON(ctx, u, &qr); err != nil {
		return model.Fundamentals{}, err
	}
	if qr.QuoteResponse.Error != nil {
		return model.Fundamentals{}, fmt.Errorf("yahoo api error: %s", qr.QuoteResponse.Error.Description)
	}
	if len(qr.QuoteResponse.Result) == 0 {
		return model.Fundamentals{}, fmt.Errorf("yahoo: empty quote for %s", ticker)
	}

	r := qr.QuoteResponse.Result[0]
	fd := model.Fundamentals{
		Symbol:        ticker,
		Available:     true,
		Source:        "quote",
		ShortName:     r.ShortName,
		Currency:      r.Currency,
		MarketCap:     r.MarketCap,
		TrailingPE:    r.TrailingPE,
		TrailingEPS:   r.EpsTrailingTwelveMonths,
		DividendRate:  r.TrailingAnnualDividendRate,
		DividendYield: percent(r.TrailingAnnualDividendYield),
		High52w:       r.FiftyTwoWeekHigh,
		Low52w:        r.FiftyTwoWeekLow,
	}
	// dividendDate is the payment date; only the ex-date belongs here.
	if r.ExDividendDate != nil {
		t := time.Unix(*r.ExDividendDate, 0).UTC()
		fd.ExDividend = &t
	}
	return fd, nil
}

// percent converts a fractional yield to percent.
func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

func firstPtr(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
