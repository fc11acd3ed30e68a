package patients

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrPatientNotFound is returned when a patient is not found
	ErrPatientNotFound = errors.New("patient not found")
)
