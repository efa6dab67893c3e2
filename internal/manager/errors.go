package manager

import "errors"

// worksheetNotFoundError is returned for unknown worksheet ids.
type worksheetNotFoundError struct{ id string }

func (e worksheetNotFoundError) Error() string { return "worksheet not found: " + e.id }

// ErrWorksheetNotFound returns an error for a missing worksheet id.
func ErrWorksheetNotFound(id string) error { return worksheetNotFoundError{id: id} }

// IsWorksheetNotFound reports whether the error indicates a missing worksheet id.
func IsWorksheetNotFound(err error) bool {
	var e worksheetNotFoundError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (the
// interpreter binary, ssh) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
