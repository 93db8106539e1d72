package dto

import "github.com/google/uuid"

const (
	ActionWatch   = "watch"
	ActionUnwatch = "unwatch"

	MessageAuthState = "auth_state"
	MessageNotebooks = "notebooks"
	MessageNotebook  = "notebook"
	MessageError     = "error"
)

type ClientMessage struct {
	Action     string    `json:"action" validate:"required,oneof=watch unwatch"`
	NotebookId uuid.UUID `json:"notebook_id" validate:"required"`
}

type ServerMessage struct {
	Type       string      `json:"type"`
	NotebookId *uuid.UUID  `json:"notebook_id,omitempty"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message,omitempty"`
}
