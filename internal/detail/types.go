package detail

import (
	"strings"

	"visitrome-concierge/internal/lenient"
)

// Hotel is the content of one stored hotel record.
type Hotel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	PriceRange  string `json:"price_range,omitempty"`
	Des         string `json:"des,omitempty"`
	Description string `json:"description,omitempty"`
}

// About prefers the long description over the short one.
func (h Hotel) About() string {
	if h.Description != "" {
		return h.Description
	}
	return h.Des
}

type Provider struct {
	Name         string `json:"name,omitempty"`
	Website      string `json:"website,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// Stop is one itinerary item of a tour.
type Stop struct {
	LocationName    string `json:"location_name,omitempty"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Tour is the content of one stored tour record. The upstream fills either
// tour_id or id, and tour_name or name.
type Tour struct {
	TourID   string    `json:"tour_id,omitempty"`
	ID       string    `json:"id,omitempty"`
	TourName string    `json:"tour_name,omitempty"`
	Name     string    `json:"name,omitempty"`
	City     string    `json:"city,omitempty"`
	Country  string    `json:"country,omitempty"`
	Provider *Provider `json:"provider,omitempty"`
	Items    []Stop    `json:"items,omitempty"`
}

func (t Tour) DisplayName() string {
	switch {
	case t.TourName != "":
		return t.TourName
	case t.Name != "":
		return t.Name
	}
	return "Tour"
}

func (t Tour) DisplayID() string {
	if t.TourID != "" {
		return t.TourID
	}
	return t.ID
}

// TotalMinutes sums the stop durations; stops without one count as zero.
func (t Tour) TotalMinutes() int {
	total := 0
	for _, s := range t.Items {
		total += s.DurationMinutes
	}
	return total
}

// embedded content shapes

type hotelContent struct {
	ID          lenient.String `json:"id"`
	Name        lenient.String `json:"name"`
	City        lenient.String `json:"city"`
	Country     lenient.String `json:"country"`
	PriceRange  lenient.String `json:"price_range"`
	Des         lenient.String `json:"des"`
	Description lenient.String `json:"description"`
}

func (c hotelContent) hotel() *Hotel {
	return &Hotel{
		ID:          string(c.ID),
		Name:        string(c.Name),
		City:        string(c.City),
		Country:     string(c.Country),
		PriceRange:  string(c.PriceRange),
		Des:         string(c.Des),
		Description: string(c.Description),
	}
}

type providerContent struct {
	Name         lenient.String `json:"name"`
	Website      lenient.String `json:"website"`
	ContactEmail lenient.String `json:"contact_email"`
}

type stopContent struct {
	LocationName    lenient.String `json:"location_name"`
	Description     lenient.String `json:"description"`
	DurationMinutes lenient.Int    `json:"duration_minutes"`
}

type tourContent struct {
	TourID   lenient.String   `json:"tour_id"`
	ID       lenient.String   `json:"id"`
	TourName lenient.String   `json:"tour_name"`
	Name     lenient.String   `json:"name"`
	City     lenient.String   `json:"city"`
	Country  lenient.String   `json:"country"`
	Provider *providerContent `json:"provider"`
	Items    []*stopContent   `json:"items"`
}

func (c tourContent) tour() *Tour {
	t := &Tour{
		TourID:   string(c.TourID),
		ID:       string(c.ID),
		TourName: string(c.TourName),
		Name:     string(c.Name),
		City:     string(c.City),
		Country:  string(c.Country),
	}
	if c.Provider != nil {
		t.Provider = &Provider{
			Name:         string(c.Provider.Name),
			Website:      strings.TrimSpace(string(c.Provider.Website)),
			ContactEmail: string(c.Provider.ContactEmail),
		}
	}
	for _, s := range c.Items {
		if s == nil {
			s = &stopContent{}
		}
		t.Items = append(t.Items, Stop{
			LocationName:    string(s.LocationName),
			Description:     string(s.Description),
			DurationMinutes: int(s.DurationMinutes),
		})
	}
	return t
}
