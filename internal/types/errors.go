package types

import "errors"

// Error taxonomy shared by the requester, image orchestrator, editor and handlers.
var (
	ErrValidation        = errors.New("invalid input")
	ErrAuth              = errors.New("credential missing, invalid or expired")
	ErrCredentialPending = errors.New("credential selected but not yet verified")
	ErrEmptyResponse     = errors.New("generator returned no usable content")
	ErrMalformedPlan     = errors.New("generated plan does not satisfy the itinerary contract")
	ErrImageGeneration   = errors.New("image generation failed")
	ErrTransport         = errors.New("upstream request failed")
	ErrBusy              = errors.New("another operation is already in progress")
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrSessionNotFound   = errors.New("session not found")
	ErrFontRequired      = errors.New("pdf export needs a unicode font")
)
