package errors

import (
	"errors"
)

// Common error types for the dashboard
var (
	// Session errors
	ErrNoPrincipal = errors.New("no authenticated principal")

	// Credential errors
	ErrInteractionRequired  = errors.New("interaction required")
	ErrTransientAcquisition = errors.New("transient acquisition failure")
	ErrCredentialDecode     = errors.New("credential decode failure")

	// Request errors
	ErrUnauthorized = errors.New("unauthorized")

	// Findings errors
	ErrFindingNotFound = errors.New("finding not found")

	// General errors
	ErrInternal = errors.New("internal error")
)
