package accommodationrepo

import "errors"

var (
	ErrNotFound        = errors.New("accommodation not found")
	ErrAlreadyExists   = errors.New("accommodation already exists for trip")
	ErrVersionConflict = errors.New("accommodation version conflict")
)
