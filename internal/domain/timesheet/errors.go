package timesheet

import "errors"

var (
	ErrInvalidExportFormat = errors.New("export format must be csv or json")
)
