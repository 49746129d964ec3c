package shared

import "fmt"

var (
	// Configuration errors
	ErrMalformedConfig = fmt.Errorf("malformed settings file")
	ErrAlreadyExists   = fmt.Errorf("file already exists")
	ErrInvalidSelector = fmt.Errorf("invalid selector")
	ErrMissingConfig   = fmt.Errorf("configuration not found")

	// Upstream source errors
	ErrTransientSource = fmt.Errorf("source temporarily unavailable")
	ErrFatalAuth       = fmt.Errorf("authentication failed")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Run control
	ErrRunCancelled = fmt.Errorf("run cancelled")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
