package domain

import "fmt"

// FormatMoney renders minor units as "12.34 EUR".
func FormatMoney(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
