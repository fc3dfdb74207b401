// Package symbol generates variable symbols, the payment reference strings
// printed on invoices and matched against incoming bank transfers.
package symbol

import "fmt"

// Generate builds the variable symbol of an application from the configured
// seminar prefix and the application order number. The order part is padded
// to six digits, so symbols sort the same way applications were created.
func Generate(prefix string, applicationOrder int) string {
	return fmt.Sprintf("%s%06d", prefix, applicationOrder)
}
