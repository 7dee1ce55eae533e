package finance

import (
	"fmt"
	"math"
)

// Cents is a monetary amount in minor currency units (quetzal cents).
// All engine arithmetic happens on Cents; float64 only appears at the
// JSON/BSON boundary.
type Cents int64

// CentsFromFloat converts a 2-decimal monetary amount, rounding half up.
func CentsFromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// Float converts back to the decimal representation stored in documents.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// String renders the amount with the cooperative's currency symbol.
func (c Cents) String() string {
	sign := ""
	v := c
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%sQ%d.%02d", sign, v/100, v%100)
}
