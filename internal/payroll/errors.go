package payroll

import "errors"

var (
	// ErrUnsupportedFormat is returned for files other than .xlsx and .csv
	ErrUnsupportedFormat = errors.New("unsupported payroll file format")

	// ErrEmptyFile is returned when the file has no header row
	ErrEmptyFile = errors.New("payroll file is empty")

	// ErrMissingColumns is returned when a required column has no header
	ErrMissingColumns = errors.New("payroll file is missing required columns")

	// ErrFileTooLarge is returned when the upload exceeds MaxFileSize
	ErrFileTooLarge = errors.New("payroll file is too large")
)
