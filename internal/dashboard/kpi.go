package dashboard

import (
	"math"

	"github.com/shopspring/decimal"
)

// KPIs are the ratios derived from a bucket's sums.
type KPIs struct {
	// CPM is cost per message, not cost per mille.
	CPM            float64 `json:"cpm"`
	CostPerDeposit float64 `json:"costPerDeposit"`
	DollarPerCover float64 `json:"dollarPerCover"`
}

// ComputeKPIs derives the dashboard ratios. A zero denominator, or a
// non-positive exchange rate, yields 0 for the affected ratio.
func ComputeKPIs(spend, deposit, message, turnoverAdser, exchangeRate float64) KPIs {
	return KPIs{
		CPM:            round(safeDiv(spend, message), 2),
		CostPerDeposit: round(safeDiv(spend, deposit), 2),
		DollarPerCover: DollarPerCover(turnoverAdser, spend, exchangeRate),
	}
}

// DollarPerCover is the adser turnover converted to USD per unit of spend,
// rounded to 4 places.
func DollarPerCover(turnoverAdser, spend, exchangeRate float64) float64 {
	if exchangeRate <= 0 {
		return 0
	}
	return round(safeDiv(safeDiv(turnoverAdser, exchangeRate), spend), 4)
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
