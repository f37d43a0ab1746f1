package media

import "errors"

var (
	// ErrNotFound covers a missing object and an object the caller may not
	// mutate: ownership predicates live inside the conditional update, so
	// "absent" and "not yours" are indistinguishable to the caller.
	ErrNotFound = errors.New("file not found")
	// ErrGrantNotFound is returned when editing a share grant that does not
	// exist on an otherwise visible object.
	ErrGrantNotFound = errors.New("file is not shared with this user")
	ErrAccessDenied  = errors.New("access denied")
	// ErrDuplicateKey reports a destination-key collision on create.
	ErrDuplicateKey = errors.New("file key already exists")
)
