package notes

import "errors"

var (
	// ErrNoteNotFound is returned when a note is not found
	ErrNoteNotFound = errors.New("note not found")

	// ErrTemplateNotFound is returned when a template is not found
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidStatus is returned for a status other than draft or final
	ErrInvalidStatus = errors.New("status must be draft or final")

	// ErrMissingPatient is returned when a note has no patient reference
	ErrMissingPatient = errors.New("patient_id is required")
)
