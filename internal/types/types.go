package types

import (
	"visitrome-concierge/internal/render"
	"visitrome-concierge/internal/view"
)

type MessageRequest struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ViewResponse describes what the browser should currently show. Chat is set
// for the chat view, Detail for the hotel and tour views.
type ViewResponse struct {
	ClientID string             `json:"client_id"`
	State    view.State         `json:"state"`
	Chat     *render.ChatView   `json:"chat,omitempty"`
	Detail   *render.DetailView `json:"detail,omitempty"`
}
