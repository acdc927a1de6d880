// Package render turns session state into the JSON view models the browser
// draws.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"visitrome-concierge/internal/conversation"
	"visitrome-concierge/internal/relevance"
	"visitrome-concierge/internal/view"
)

const (
	WelcomeTitle = "Welcome to Rome!"
	WelcomeText  = "I'm here to help you create the perfect itinerary for your trip to the Eternal City."

	maxHighlights = 3
)

// Renderer builds the chat and detail view models. It is safe for concurrent
// use.
type Renderer struct {
	md  goldmark.Markdown
	loc *time.Location
}

// New returns a Renderer that labels message times in loc, or the local
// zone when loc is nil.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
		),
	)
	return &Renderer{md: md, loc: loc}
}

type Welcome struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type MessageView struct {
	ID        string            `json:"id"`
	Role      conversation.Role `json:"role"`
	Content   string            `json:"content"`
	HTML      string            `json:"html,omitempty"`
	Time      string            `json:"time"`
	Timestamp time.Time         `json:"timestamp"`
}

type HotelCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	PriceRange  string `json:"price_range,omitempty"`
	Link        string `json:"link,omitempty"`
}

type TourCard struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Location   string   `json:"location,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
	Footer     string   `json:"footer"`
	Link       string   `json:"link,omitempty"`
}

type HotelGroup struct {
	Label string      `json:"label"`
	Cards []HotelCard `json:"cards"`
}

type TourGroup struct {
	Label string     `json:"label"`
	Cards []TourCard `json:"cards"`
}

type RelevantPanel struct {
	Hotels *HotelGroup `json:"hotels,omitempty"`
	Tours  *TourGroup  `json:"tours,omitempty"`
}

type ChatView struct {
	ClientID string         `json:"client_id"`
	View     view.State     `json:"view"`
	Welcome  *Welcome       `json:"welcome,omitempty"`
	Messages []MessageView  `json:"messages"`
	Loading  bool           `json:"loading"`
	Relevant *RelevantPanel `json:"relevant,omitempty"`
}

func (r *Renderer) Chat(clientID string, state view.State, snap conversation.Snapshot) ChatView {
	out := ChatView{
		ClientID: clientID,
		View:     state,
		Messages: make([]MessageView, 0, len(snap.Messages)),
		Loading:  snap.Loading,
		Relevant: Relevant(snap.Relevant),
	}
	if len(snap.Messages) == 0 {
		out.Welcome = &Welcome{Title: WelcomeTitle, Text: WelcomeText}
	}
	for _, m := range snap.Messages {
		mv := MessageView{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Time:      m.Timestamp.In(r.loc).Format("15:04"),
			Timestamp: m.Timestamp,
		}
		if m.Role == conversation.RoleAssistant {
			mv.HTML = r.Markdown(m.Content)
		}
		out.Messages = append(out.Messages, mv)
	}
	return out
}

// Markdown renders s as GFM. Raw HTML in s is omitted from the output. On a
// render failure the text comes back escaped instead.
func (r *Renderer) Markdown(s string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(s), &buf); err != nil {
		return plainParagraph(s)
	}
	return strings.TrimSpace(buf.String())
}

// Relevant builds the cards panel; nil data hides it.
func Relevant(d *relevance.Data) *RelevantPanel {
	if d == nil {
		return nil
	}
	p := &RelevantPanel{}
	if n := len(d.Hotels); n > 0 {
		g := &HotelGroup{Label: OptionsLabel(n), Cards: make([]HotelCard, 0, n)}
		for _, h := range d.Hotels {
			g.Cards = append(g.Cards, HotelCard{
				ID:          h.ID,
				Name:        h.Name,
				Location:    Location(h.City, h.Country),
				Description: h.Description,
				PriceRange:  h.PriceRange,
				Link:        h.Link,
			})
		}
		p.Hotels = g
	}
	if n := len(d.Tours); n > 0 {
		g := &TourGroup{Label: fmt.Sprintf("%d curated", n), Cards: make([]TourCard, 0, n)}
		for _, t := range d.Tours {
			hl := t.Highlights
			if len(hl) > maxHighlights {
				hl = hl[:maxHighlights]
			}
			g.Cards = append(g.Cards, TourCard{
				ID:         t.ID,
				Name:       t.Name,
				Location:   Location(t.City, t.Country),
				Provider:   t.Provider,
				Highlights: hl,
				Footer:     "Guided experience",
				Link:       t.Link,
			})
		}
		p.Tours = g
	}
	if p.Hotels == nil && p.Tours == nil {
		return nil
	}
	return p
}

func OptionsLabel(n int) string {
	if n == 1 {
		return "1 option"
	}
	return fmt.Sprintf("%d options", n)
}

// Location joins the non-empty parts with ", ".
func Location(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// plainParagraph wraps s, escaped, in a single paragraph.
func plainParagraph(s string) string {
	return "<p>" + html.EscapeString(s) + "</p>"
}
