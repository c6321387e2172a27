// Package detector holds locators shared by several symbologies.
package detector

import "math"

// Round rounds half away from zero.
func Round(v float64) int {
	return int(math.Round(v))
}
