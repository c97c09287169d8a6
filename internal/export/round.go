// Package export renders run results as CSV and JSON files and reads map
// files back. All numeric values are rounded to two decimals here and
// nowhere else.
package export

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const places = 2

// Round rounds half away from zero to two decimals.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundPtr keeps nil as nil.
func RoundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v)
	return &r
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func parseFloatPtr(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
