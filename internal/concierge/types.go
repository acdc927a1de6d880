package concierge

import (
	"encoding/json"

	"visitrome-concierge/internal/lenient"
)

type WebhookRequest struct {
	Message  string `json:"message"`
	ClientID string `json:"client_id"`
	AgentID  string `json:"agentId"`
}

// WebhookResponse keeps relevant_data raw; its shape is not guaranteed.
type WebhookResponse struct {
	Status       string          `json:"status,omitempty"`
	Reply        *string         `json:"reply"`
	RelevantData json.RawMessage `json:"relevant_data,omitempty"`
}

// ReplyText returns the reply or "" when absent.
func (r *WebhookResponse) ReplyText() string {
	if r == nil || r.Reply == nil {
		return ""
	}
	return *r.Reply
}

type CollectionsResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    *CollectionsData `json:"data"`
}

type CollectionsData struct {
	HotelsCount lenient.Int  `json:"hotels_count"`
	ToursCount  lenient.Int  `json:"tours_count"`
	Hotels      []DumpRecord `json:"hotels"`
	Tours       []DumpRecord `json:"tours"`
}

// DumpRecord is one stored object. Content is a JSON document encoded as a
// string. Scalars of the wrong type decode to their text form so one odd
// record never fails the whole listing.
type DumpRecord struct {
	Additional struct {
		ID string `json:"id"`
	} `json:"_additional"`
	AgentID  string `json:"agentId"`
	Category string `json:"category"`
	ChunkID  string `json:"chunk_id"`
	Content  string `json:"content"`
	DocID    string `json:"doc_id"`
	URL      string `json:"url"`
}

func (r *DumpRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		Additional json.RawMessage `json:"_additional"`
		AgentID    lenient.String  `json:"agentId"`
		Category   lenient.String  `json:"category"`
		ChunkID    lenient.String  `json:"chunk_id"`
		Content    lenient.String  `json:"content"`
		DocID      lenient.String  `json:"doc_id"`
		URL        lenient.String  `json:"url"`
	}
	*r = DumpRecord{}
	if err := json.Unmarshal(b, &raw); err != nil {
		// not an object: leave it empty so it never matches a lookup
		return nil
	}
	var additional struct {
		ID lenient.String `json:"id"`
	}
	if len(raw.Additional) > 0 {
		_ = json.Unmarshal(raw.Additional, &additional)
	}
	r.Additional.ID = string(additional.ID)
	r.AgentID = string(raw.AgentID)
	r.Category = string(raw.Category)
	r.ChunkID = string(raw.ChunkID)
	r.Content = string(raw.Content)
	r.DocID = string(raw.DocID)
	r.URL = string(raw.URL)
	return nil
}
