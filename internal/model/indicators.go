package model

// Indicator column names.
const (
	ColSMA20   = "SMA20"
	ColSMA50   = "SMA50"
	ColEMA20   = "EMA20"
	ColBBMid   = "BB_MID"
	ColBBUpper = "BB_UPPER"
	ColBBLower = "BB_LOWER"
	ColRSI     = "RSI"
)

// IndicatorSet holds derived columns aligned with a parent series.
// Every column has the parent's length; warm-up rows are NaN.
type IndicatorSet struct {
	Columns map[string][]float64
	Order   []string
}

func NewIndicatorSet() *IndicatorSet {
	return &IndicatorSet{Columns: make(map[string][]float64)}
}

// Add stores a column, keeping first-insert order.
func (s *IndicatorSet) Add(name string, values []float64) {
	if _, ok := s.Columns[name]; !ok {
		s.Order = append(s.Order, name)
	}
	s.Columns[name] = values
}

func (s *IndicatorSet) Has(name string) bool {
	_, ok := s.Columns[name]
	return ok
}
