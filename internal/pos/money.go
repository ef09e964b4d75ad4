package pos

import (
	"fmt"
	"math"
)

// TaxRate is applied to an order subtotal when the order is placed.
const TaxRate = 0.10

func Tax(subtotal float64) float64 { return subtotal * TaxRate }

// Round2 is for display fields only; stored amounts keep full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func FormatMoney(v float64) string {
	return fmt.Sprintf("%.2f", Round2(v))
}
