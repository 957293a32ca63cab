package ai

import (
	"fmt"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/pkg/utils"
)

var entryValidator = utils.NewValidator()

// ValidateEntries checks every entry before analysis and returns the first
// violation as *entity.InvalidEntryError.
func ValidateEntries(entries []entity.PayrollEntry) error {
	for i := range entries {
		if err := validateEntry(i, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateEntry(index int, entry *entity.PayrollEntry) error {
	fieldErrs, err := entryValidator.Struct(entry)
	if err != nil {
		return fmt.Errorf("validate entry %d: %w", index, err)
	}
	if len(fieldErrs) > 0 {
		return &entity.InvalidEntryError{
			Index:   index,
			EntryID: entry.ID,
			Field:   fieldErrs[0].Field,
			Reason:  fieldErrs[0].Message,
		}
	}

	if entry.Employee.FullName() == "" {
		return &entity.InvalidEntryError{
			Index:   index,
			EntryID: entry.ID,
			Field:   "employee.name",
			Reason:  "is required",
		}
	}

	return nil
}
