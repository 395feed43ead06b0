package recorder

import "time"

// CAPMRun is one persisted CAPM regression.
type CAPMRun struct {
	RunAt          time.Time
	Trigger        string // "SCHEDULE" or "COMMAND"
	Ticker         string
	Benchmark      string
	RiskFreeRate   float64
	Alpha          float64
	Beta           float64
	RSquared       float64
	BetaPValue     float64
	ExpectedReturn float64
	Observations   int
}

// ForecastRun is one persisted forecast, summarized by its final row.
type ForecastRun struct {
	RunAt     time.Time
	Trigger   string
	Ticker    string
	Model     string
	Horizon   int
	LastDate  time.Time
	EndDate   time.Time
	EndValue  float64
	EndLower  float64
	EndUpper  float64
	RMSE      *float64
	RSquared  *float64
}

// Recorder persists digest history for later analysis.
type Recorder interface {
	RecordCAPM(run *CAPMRun) error
	RecordForecast(run *ForecastRun) error
	RecentCAPM(ticker string, limit int) ([]CAPMRun, error)
	Close() error
}
