// Package relevance turns the loosely typed relevant_data block of a webhook
// reply into thresholded, de-duplicated hotel and tour recommendations.
package relevance

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"visitrome-concierge/internal/lenient"
)

// DefaultThreshold is the exclusive distance cut-off used by the UI.
const DefaultThreshold = 0.65

// irrelevant is the distance assigned when none can be read.
const irrelevant = 1.0

type Metadata struct {
	Score    any     `json:"score,omitempty"`
	Distance float64 `json:"distance"`
}

type Hotel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	PriceRange  string    `json:"price_range,omitempty"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

type Tour struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	City       string    `json:"city,omitempty"`
	Country    string    `json:"country,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Link       string    `json:"link,omitempty"`
	Highlights []string  `json:"highlights,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}

// Data is the filtered result. A nil *Data means "nothing worth showing".
type Data struct {
	Hotels []Hotel `json:"hotels"`
	Tours  []Tour  `json:"tours"`
}

// wire shapes: every field optional, distance of any JSON type
type rawMetadata struct {
	Score    any `json:"score"`
	Distance any `json:"distance"`
}

type rawHotel struct {
	ID          lenient.String `json:"id"`
	Name        lenient.String `json:"name"`
	City        lenient.String `json:"city"`
	Country     lenient.String `json:"country"`
	PriceRange  lenient.String `json:"price_range"`
	Description lenient.String `json:"description"`
	Link        lenient.String `json:"link"`
	Metadata    *rawMetadata   `json:"metadata"`
}

type rawTour struct {
	ID         lenient.String `json:"id"`
	Name       lenient.String `json:"name"`
	City       lenient.String `json:"city"`
	Country    lenient.String `json:"country"`
	Provider   lenient.String `json:"provider"`
	Link       lenient.String `json:"link"`
	Highlights []any           `json:"highlights"`
	Metadata   *rawMetadata   `json:"metadata"`
}

type rawData struct {
	Hotels []json.RawMessage `json:"hotels"`
	Tours  []json.RawMessage `json:"tours"`
}

// Normalizer applies a fixed distance threshold.
type Normalizer struct {
	threshold float64
}

func New(threshold float64) Normalizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Normalizer{threshold: threshold}
}

// Normalize decodes raw and keeps records whose distance is strictly below the
// threshold. Malformed input of any kind degrades to nil.
func (n Normalizer) Normalize(raw json.RawMessage) *Data {
	if len(raw) == 0 {
		return nil
	}
	var in rawData
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil
	}

	out := &Data{Hotels: []Hotel{}, Tours: []Tour{}}
	seen := map[string]struct{}{}
	for _, r := range in.Hotels {
		var h rawHotel
		if err := json.Unmarshal(r, &h); err != nil {
			continue
		}
		hotel := Hotel{
			ID:          string(h.ID),
			Name:        string(h.Name),
			City:        string(h.City),
			Country:     string(h.Country),
			PriceRange:  string(h.PriceRange),
			Description: string(h.Description),
			Link:        string(h.Link),
			Metadata:    normalizeMetadata(h.Metadata),
		}
		if hotel.Metadata.Distance >= n.threshold || duplicate(seen, hotel.ID) {
			continue
		}
		out.Hotels = append(out.Hotels, hotel)
	}

	seen = map[string]struct{}{}
	for _, r := range in.Tours {
		var t rawTour
		if err := json.Unmarshal(r, &t); err != nil {
			continue
		}
		tour := Tour{
			ID:         string(t.ID),
			Name:       string(t.Name),
			City:       string(t.City),
			Country:    string(t.Country),
			Provider:   string(t.Provider),
			Link:       string(t.Link),
			Highlights: compactHighlights(t.Highlights),
			Metadata:   normalizeMetadata(t.Metadata),
		}
		if tour.Metadata.Distance >= n.threshold || duplicate(seen, tour.ID) {
			continue
		}
		out.Tours = append(out.Tours, tour)
	}

	if len(out.Hotels) == 0 && len(out.Tours) == 0 {
		return nil
	}
	return out
}

func normalizeMetadata(m *rawMetadata) *Metadata {
	if m == nil {
		return &Metadata{Distance: irrelevant}
	}
	return &Metadata{Score: m.Score, Distance: NormalizeDistance(m.Distance)}
}

// duplicate reports whether id was already kept. Records without an id are
// never treated as duplicates.
func duplicate(seen map[string]struct{}, id string) bool {
	if id == "" {
		return false
	}
	if _, ok := seen[id]; ok {
		return true
	}
	seen[id] = struct{}{}
	return false
}

// compactHighlights drops falsy entries. Non-string values are kept in their
// textual form.
func compactHighlights(in []any) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		switch h := v.(type) {
		case nil:
		case string:
			if h != "" {
				out = append(out, h)
			}
		case bool:
			if h {
				out = append(out, "true")
			}
		case float64:
			if h != 0 {
				out = append(out, strconv.FormatFloat(h, 'f', -1, 64))
			}
		}
	}
	return out
}

var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`)

// NormalizeDistance returns v when it is a finite number, the parsed value when
// it is a string with a numeric prefix, and 1 otherwise.
func NormalizeDistance(v any) float64 {
	switch d := v.(type) {
	case float64:
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			return d
		}
	case float32:
		return NormalizeDistance(float64(d))
	case int:
		return float64(d)
	case int64:
		return float64(d)
	case json.Number:
		return NormalizeDistance(d.String())
	case string:
		if f, ok := parseFloatPrefix(d); ok {
			return f
		}
	}
	return irrelevant
}

// parseFloatPrefix mirrors the lenient prefix parsing browsers apply to
// numeric strings: leading whitespace is skipped and trailing junk ignored.
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	m := numericPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	// a range error still yields ±Inf, which is what browsers return too
	f, _ := strconv.ParseFloat(m, 64)
	return f, true
}
