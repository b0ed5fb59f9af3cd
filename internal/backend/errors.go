package backend

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

var (
	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = fmt.Errorf("%w: backend unavailable", domain.ErrTransport)

	// ErrTimeout indicates a request exceeded the configured timeout.
	ErrTimeout = fmt.Errorf("%w: request timed out", domain.ErrTransport)
)

// TransportError is a non-2xx answer other than a duplicate-name rejection,
// or a response that could not be decoded.
type TransportError struct {
	Op      string
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.Status, e.Message)
}

func (e *TransportError) Is(target error) bool {
	return target == domain.ErrTransport
}

// Temporary reports whether retrying the same request may succeed.
func (e *TransportError) Temporary() bool {
	return e.Status >= 500
}

// DuplicateNamesError carries the colliding (id, name, kind) triples of a
// 409 response.
type DuplicateNamesError struct {
	Message    string
	Duplicates []contract.Duplicate
}

func (e *DuplicateNamesError) Error() string {
	names := make([]string, 0, len(e.Duplicates))
	for _, d := range e.Duplicates {
		names = append(names, fmt.Sprintf("%s %s %q", d.Kind, d.ID, d.Name))
	}
	return fmt.Sprintf("%v: %s", domain.ErrDuplicateNames, strings.Join(names, ", "))
}

func (e *DuplicateNamesError) Is(target error) bool {
	return target == domain.ErrDuplicateNames
}
