package render

import (
	"fmt"
	"strconv"

	"visitrome-concierge/internal/detail"
	"visitrome-concierge/internal/view"
)

const (
	NoLocation   = "Location not specified"
	ReturnToChat = "Return to chat"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Action struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Href   string `json:"href"`
}

var backAction = Action{Label: ReturnToChat, Method: "POST", Href: "/api/view/back"}

type HotelDetail struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	About      string  `json:"about,omitempty"`
	PriceRange string  `json:"price_range,omitempty"`
	Details    []Field `json:"details"`
}

type ProviderBlock struct {
	Name         string `json:"name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Website      string `json:"website,omitempty"`
}

type StopView struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

type TourDetail struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Location      string         `json:"location"`
	Provider      *ProviderBlock `json:"provider,omitempty"`
	Itinerary     []StopView     `json:"itinerary,omitempty"`
	TotalDuration string         `json:"total_duration,omitempty"`
	BookingURL    string         `json:"booking_url,omitempty"`
	Details       []Field        `json:"details"`
}

// DetailView is what a detail panel shows in any of its three states.
type DetailView struct {
	View    view.Kind     `json:"view"`
	ID      string        `json:"id"`
	Status  detail.Status `json:"status"`
	Message string        `json:"message,omitempty"`
	Hotel   *HotelDetail  `json:"hotel,omitempty"`
	Tour    *TourDetail   `json:"tour,omitempty"`
	Back    Action        `json:"back"`
}

// Detail builds the detail page for a lookup in any state. Only the card
// matching st.Kind is filled, and only on success.
func Detail(st detail.State) DetailView {
	out := DetailView{View: st.Kind, ID: st.ID, Status: st.Status, Message: st.Message, Back: backAction}
	if st.Status != detail.StatusSuccess {
		return out
	}
	switch {
	case st.Hotel != nil:
		out.Hotel = Hotel(*st.Hotel)
	case st.Tour != nil:
		out.Tour = Tour(*st.Tour)
	}
	return out
}

func Hotel(h detail.Hotel) *HotelDetail {
	loc := Location(h.City, h.Country)
	if loc == "" {
		loc = NoLocation
	}
	return &HotelDetail{
		ID:         h.ID,
		Name:       h.Name,
		Location:   loc,
		About:      h.About(),
		PriceRange: h.PriceRange,
		Details: fields(
			Field{"ID", h.ID},
			Field{"City", h.City},
			Field{"Country", h.Country},
		),
	}
}

func Tour(t detail.Tour) *TourDetail {
	loc := Location(t.City, t.Country)
	if loc == "" {
		loc = NoLocation
	}
	total := t.TotalMinutes()
	out := &TourDetail{
		ID:       t.DisplayID(),
		Name:     t.DisplayName(),
		Location: loc,
	}
	if t.Provider != nil {
		out.Provider = &ProviderBlock{
			Name:         t.Provider.Name,
			ContactEmail: t.Provider.ContactEmail,
			Website:      t.Provider.Website,
		}
		out.BookingURL = t.Provider.Website
	}
	for i, s := range t.Items {
		sv := StopView{Number: i + 1, Title: s.LocationName, Description: s.Description}
		if sv.Title == "" {
			sv.Title = "Stop " + strconv.Itoa(i+1)
		}
		if s.DurationMinutes > 0 {
			sv.Duration = fmt.Sprintf("%dm", s.DurationMinutes)
		}
		out.Itinerary = append(out.Itinerary, sv)
	}
	details := []Field{{"Tour ID", t.DisplayID()}, {"City", t.City}, {"Country", t.Country}}
	if total > 0 {
		out.TotalDuration = FormatDuration(total)
		details = append(details, Field{"Total Duration", out.TotalDuration})
	}
	out.Details = fields(details...)
	return out
}

// FormatDuration renders minutes as "<h>h <m>m" with whole hours.
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// fields drops entries with an empty value.
func fields(in ...Field) []Field {
	out := make([]Field, 0, len(in))
	for _, f := range in {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}
