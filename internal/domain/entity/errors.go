package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrAnalysisNotFound is returned when an analysis id does not exist
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrCompanyRequired is returned when a tenant-scoped call has no company id
	ErrCompanyRequired = errors.New("company id is required")
)

// InvalidEntryError reports a payroll entry rejected at admission, before any rule runs
type InvalidEntryError struct {
	Index   int
	EntryID string
	Field   string
	Reason  string
}

// Error implements the error interface
func (e *InvalidEntryError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("invalid payroll entry %d (%s): %s %s", e.Index, e.EntryID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid payroll entry %d: %s %s", e.Index, e.Field, e.Reason)
}
