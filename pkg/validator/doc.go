// Package validator implements the field-level predicates and live input
// formatters of the simulator form.
//
// Validation is pure: it returns a Verdict and leaves rendering of the message
// and error styling to the caller.
package validator
