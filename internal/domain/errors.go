package domain

import "errors"

var (
	// ErrNotFound indicates a lookup by ID found nothing.
	ErrNotFound = errors.New("not found")

	// ErrNoSelection indicates a submit was attempted with an empty closure.
	ErrNoSelection = errors.New("nothing selected: choose at least one group, template or subtask")

	// ErrStructuralIntegrity indicates an item references a parent that is
	// not present where it must be.
	ErrStructuralIntegrity = errors.New("structural integrity violation")

	// ErrDuplicateNames indicates the backend rejected one or more target
	// names as already taken in the destination project.
	ErrDuplicateNames = errors.New("duplicate names in destination project")

	// ErrTransport indicates a network or server failure other than a
	// duplicate-name rejection.
	ErrTransport = errors.New("backend request failed")

	// ErrSessionClosed indicates an operation on a submitted or cancelled
	// session.
	ErrSessionClosed = errors.New("assignment session is closed")

	// ErrUnknownItem indicates an edit addressed an item outside the preview.
	ErrUnknownItem = errors.New("unknown preview item")

	// ErrInvalidEdit indicates an edit value was rejected.
	ErrInvalidEdit = errors.New("invalid edit")
)
