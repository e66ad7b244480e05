// Package check contains the validation stages for emailvalidator.
// Each type implements the checker interface defined in validator.go.
// These types can be used directly, but the recommended approach is
// to use the fluent builder API from the github.com/optimode/emailvalidator package.
package check
