package api

import "encoding/json"

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`                           // Indicates if the operation was successful.
	Message string `json:"message,omitempty" example:"Operation successful"` // Optional success message.
	Error   string `json:"error,omitempty" example:"Resource not found"`     // Optional error message.
}

// SelectCredentialRequest represents the JSON body for selecting an API key at runtime.
type SelectCredentialRequest struct {
	APIKey string `json:"api_key" example:"AIza..."` // Gemini API key; stays pending until verified.
}

// GeneratePlanRequest represents the JSON body for starting a plan generation.
// Multipart requests carry the same fields as form values plus an optional "reference" file.
type GeneratePlanRequest struct {
	Category     string `json:"category" example:"domestic"`                 // domestic or international.
	ProductName  string `json:"product_name" example:"阿里山日出三日遊"`             // Required tour product name.
	ExtraContent string `json:"extra_content,omitempty" example:"含小火車體驗"` // Optional reference text or extra requirements.
}

// ApplyCommandsRequest represents a batch of typed plan edits, applied as a unit.
type ApplyCommandsRequest struct {
	Commands []json.RawMessage `json:"commands"` // Each entry is {"type": "set_day_title", ...}.
}
