package detail

import (
	"context"
	"errors"
	"fmt"

	"visitrome-concierge/internal/concierge"
	"visitrome-concierge/internal/view"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the outcome of entering a detail view.
type State struct {
	Kind    view.Kind `json:"kind"`
	ID      string    `json:"id"`
	Status  Status    `json:"status"`
	Hotel   *Hotel    `json:"hotel,omitempty"`
	Tour    *Tour     `json:"tour,omitempty"`
	Message string    `json:"message,omitempty"`
	// Err is the lookup failure behind Message.
	Err error `json:"-"`
}

func Loading(kind view.Kind, id string) State {
	return State{Kind: kind, ID: id, Status: StatusLoading}
}

// Load fetches the entity for kind and folds any failure into a user-facing
// message.
func (f *Fetcher) Load(ctx context.Context, kind view.Kind, id string) State {
	st := State{Kind: kind, ID: id}
	var err error
	switch kind {
	case view.Hotel:
		st.Hotel, err = f.Hotel(ctx, id)
	case view.Tour:
		st.Tour, err = f.Tour(ctx, id)
	default:
		err = fmt.Errorf("no detail view for %q", kind)
	}
	if err != nil {
		f.log.Warn("detail lookup failed", "kind", kind, "id", id, "error", err)
		st.Status = StatusError
		st.Err = err
		st.Message = Message(kind, err)
		return st
	}
	st.Status = StatusSuccess
	return st
}

// Message maps a lookup error to the text shown in the detail panel.
func Message(kind view.Kind, err error) string {
	noun := "hotel"
	title := "Hotel"
	if kind == view.Tour {
		noun, title = "tour", "Tour"
	}
	var se *concierge.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("Failed to fetch: %d", se.Code)
	case errors.Is(err, ErrInvalidEnvelope):
		return "Invalid response format"
	case errors.Is(err, ErrNotFound):
		return title + " not found"
	}
	return "Failed to load " + noun + " details"
}
