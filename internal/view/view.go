package view

import (
	"errors"
	"strings"
	"sync"
)

type Kind string

const (
	Chat  Kind = "chat"
	Hotel Kind = "hotel"
	Tour  Kind = "tour"
)

var ErrEmptySelection = errors.New("a detail view needs a non-empty id")

type State struct {
	View    Kind   `json:"view"`
	HotelID string `json:"hotel_id,omitempty"`
	TourID  string `json:"tour_id,omitempty"`
}

// SelectedID is the id of the entity shown by a detail view, or "".
func (s State) SelectedID() string {
	switch s.View {
	case Hotel:
		return s.HotelID
	case Tour:
		return s.TourID
	}
	return ""
}

// Router holds exactly one active view per client.
type Router struct {
	mu    sync.RWMutex
	state State
}

// NewRouter starts on the chat view.
func NewRouter() *Router {
	return &Router{state: State{View: Chat}}
}

// OpenHotel shows the hotel id. A blank id leaves the view unchanged and
// returns ErrEmptySelection.
func (r *Router) OpenHotel(id string) (State, error) {
	return r.open(Hotel, id)
}

// OpenTour is OpenHotel for tours.
func (r *Router) OpenTour(id string) (State, error) {
	return r.open(Tour, id)
}

func (r *Router) open(kind Kind, id string) (State, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return r.Current(), ErrEmptySelection
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch kind {
	case Hotel:
		r.state.HotelID = id
	case Tour:
		r.state.TourID = id
	}
	r.state.View = kind
	return r.state, nil
}

// Back returns to the chat and forgets both selections.
func (r *Router) Back() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = State{View: Chat}
	return r.state
}

// Current returns a copy of the active view.
func (r *Router) Current() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}
