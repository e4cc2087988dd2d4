package models

import "errors"

// Validation errors returned before a run is stored.
var (
	ErrStartedAtRequired = errors.New("started_at is required")
	ErrFrontendRequired  = errors.New("frontend_url is required")
	ErrNameRequired      = errors.New("check name is required")
	ErrInvalidStatus     = errors.New("invalid check status")
)
