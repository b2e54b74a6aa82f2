package permissions

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound reports that the membership directory does not
	// know the project.
	ErrProjectNotFound = errors.New("permissions: project not found")
	// ErrMemberNotFound reports that the membership directory has no such
	// member in the project.
	ErrMemberNotFound = errors.New("permissions: member not found")
	// ErrDependencyUnavailable reports a failed or timed-out round-trip to
	// the membership directory or the override store.
	ErrDependencyUnavailable = errors.New("permissions: dependency unavailable")
)

// UnknownKindError rejects a write containing a permission name outside
// the registry. The whole write fails before any storage mutation.
type UnknownKindError struct {
	Kind Kind
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("permissions: unknown permission kind %q", e.Kind)
}
