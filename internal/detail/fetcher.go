// Package detail loads a single hotel or tour from the bulk database dump.
package detail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"visitrome-concierge/internal/concierge"
	"visitrome-concierge/internal/lenient"
	"visitrome-concierge/internal/logger"
)

var (
	ErrUpstream        = errors.New("failed to fetch listing")
	ErrInvalidEnvelope = errors.New("invalid response format")
	ErrNotFound        = errors.New("not found")
	ErrContentParse    = errors.New("record content is not valid JSON")
)

// DefaultLimit is the page size requested from the dump endpoint.
const DefaultLimit = 1000

// Fetcher re-downloads the whole listing on every call; nothing is cached.
type Fetcher struct {
	api   concierge.API
	limit int
	log   *logger.Logger
}

func NewFetcher(api concierge.API, limit int, log *logger.Logger) *Fetcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{api: api, limit: limit, log: log.With("service", "DetailFetcher")}
}

func (f *Fetcher) Hotel(ctx context.Context, id string) (*Hotel, error) {
	data, err := f.listing(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := f.find(data.Hotels, id, "hotel", hotelIDs)
	if err != nil {
		return nil, err
	}
	var c hotelContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: hotel %s: %v", ErrContentParse, id, err)
	}
	return c.hotel(), nil
}

func (f *Fetcher) Tour(ctx context.Context, id string) (*Tour, error) {
	data, err := f.listing(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := f.find(data.Tours, id, "tour", tourIDs)
	if err != nil {
		return nil, err
	}
	var c tourContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: tour %s: %v", ErrContentParse, id, err)
	}
	return c.tour(), nil
}

func (f *Fetcher) listing(ctx context.Context) (*concierge.CollectionsData, error) {
	resp, err := f.api.FetchCollections(ctx, f.limit)
	if err != nil {
		if errors.Is(err, concierge.ErrMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp == nil || !resp.Success || resp.Data == nil {
		return nil, ErrInvalidEnvelope
	}
	return resp.Data, nil
}

// innerIDs lists the ids a parsed content document answers to, in the order
// they should be compared.
type innerIDs func(content map[string]json.RawMessage) []string

func hotelIDs(c map[string]json.RawMessage) []string {
	return []string{scalar(c["id"])}
}

func tourIDs(c map[string]json.RawMessage) []string {
	return []string{scalar(c["tour_id"]), scalar(c["id"])}
}

// find scans records in order. Each record is matched on its doc_id first and
// otherwise on the ids inside its embedded content. Records whose content
// cannot be parsed are skipped during that second step. The returned bytes
// are the matched record's content, "{}" when it is empty.
func (f *Fetcher) find(records []concierge.DumpRecord, id, kind string, ids innerIDs) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty %s id", ErrNotFound, kind)
	}
	unparseable := 0
	for _, r := range records {
		content := []byte(r.Content)
		if strings.TrimSpace(r.Content) == "" {
			content = []byte("{}")
		}
		if r.DocID == id {
			return content, nil
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(content, &fields); err != nil {
			unparseable++
			f.log.Warn("skipping record with unparseable content", "kind", kind, "doc_id", r.DocID, "error", err)
			continue
		}
		for _, candidate := range ids(fields) {
			if candidate != "" && candidate == id {
				return content, nil
			}
		}
	}
	if unparseable > 0 {
		f.log.Info("lookup finished with unparseable records", "kind", kind, "id", id, "skipped", unparseable)
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// scalar renders a JSON string or number as text; anything else is "".
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s lenient.String
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return string(s)
}
