package records

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrOwnerMismatch = errors.New("record owner does not match caller")
)
