package hclutil

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
)

// DiagnosticsError joins every error-severity diagnostic into one error so
// that none of them is summarised away. It returns nil when diags holds no
// errors.
func DiagnosticsError(diags hcl.Diagnostics) error {
	var errs []error
	for _, diag := range diags {
		if diag.Severity == hcl.DiagError {
			errs = append(errs, diag)
		}
	}
	return errors.Join(errs...)
}
