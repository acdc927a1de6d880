package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitrome-concierge/internal/chat"
	"visitrome-concierge/internal/concierge"
	"visitrome-concierge/internal/config"
	"visitrome-concierge/internal/identity"
	"visitrome-concierge/internal/render"
	"visitrome-concierge/internal/types"
	"visitrome-concierge/internal/view"
)

const dumpBody = `{
	"success": true,
	"message": "ok",
	"data": {
		"hotels_count": 1,
		"tours_count": 1,
		"hotels": [{"doc_id": "hotel_1", "content": "{\"id\":\"h1\",\"name\":\"Hotel Artemide\",\"city\":\"Rome\"}"}],
		"tours": [{"doc_id": "tour_1", "content": "{\"tour_id\":\"T1\",\"tour_name\":\"Ancient Rome\",\"items\":[{\"location_name\":\"Colosseum\",\"duration_minutes\":135}]}"}]
	}
}`

type upstream struct {
	*httptest.Server
	webhookCalls atomic.Int32
	lastClientID atomic.Value
	failWebhook  bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/webhook", func(w http.ResponseWriter, r *http.Request) {
		u.webhookCalls.Add(1)
		var req concierge.WebhookRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		u.lastClientID.Store(req.ClientID)
		if u.failWebhook {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","reply":"Try **Hotel Artemide**.","relevant_data":{"hotels":[{"id":"h1","name":"Hotel Artemide","metadata":{"distance":0.2}}],"tours":[]}}`))
	})
	mux.HandleFunc("/api/database/weaviate-data", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dumpBody))
	})
	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

func newTestServer(t *testing.T, u *upstream) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIBaseURL = u.URL + "/api"
	return NewServer(cfg, nil, identity.NewManager(identity.NewMemoryRegistry(), nil), nil)
}

func do(t *testing.T, s *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func clientCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == identity.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", identity.CookieName)
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, newUpstream(t))
	rr := do(t, s, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestStartSession_SetsCookie(t *testing.T) {
	s := newTestServer(t, newUpstream(t))

	rr := do(t, s, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	c := clientCookie(t, rr)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int(CookieMaxAge.Seconds()), c.MaxAge)
	assert.Equal(t, c.Value, rr.Header().Get(ClientIDHeader))

	cv := decode[render.ChatView](t, rr)
	assert.Equal(t, c.Value, cv.ClientID)
	require.NotNil(t, cv.Welcome)

	again := do(t, s, http.MethodPost, "/api/session", "", c)
	assert.NotEqual(t, c.Value, clientCookie(t, again).Value)
}

func TestSendMessage_RoundTrip(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u)
	c := clientCookie(t, do(t, s, http.MethodPost, "/api/session", "", nil))

	rr := do(t, s, http.MethodPost, "/api/messages", `{"message":"Where to stay?"}`, c)
	require.Equal(t, http.StatusOK, rr.Code)

	cv := decode[render.ChatView](t, rr)
	require.Len(t, cv.Messages, 2)
	assert.Equal(t, "Where to stay?", cv.Messages[0].Content)
	assert.Equal(t, "Try **Hotel Artemide**.", cv.Messages[1].Content)
	assert.Contains(t, cv.Messages[1].HTML, "<strong>Hotel Artemide</strong>")
	assert.False(t, cv.Loading)
	require.NotNil(t, cv.Relevant)
	require.NotNil(t, cv.Relevant.Hotels)
	assert.Equal(t, "1 option", cv.Relevant.Hotels.Label)
	assert.Equal(t, c.Value, u.lastClientID.Load())
}

func TestSendMessage_UpstreamFailure(t *testing.T) {
	u := newUpstream(t)
	u.failWebhook = true
	s := newTestServer(t, u)

	rr := do(t, s, http.MethodPost, "/api/messages", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	cv := decode[render.ChatView](t, rr)
	require.Len(t, cv.Messages, 2)
	assert.Equal(t, chat.ErrorReply, cv.Messages[1].Content)
	assert.Nil(t, cv.Relevant)
}

func TestSendMessage_BlankAndInvalid(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u)
	c := clientCookie(t, do(t, s, http.MethodPost, "/api/session", "", nil))

	rr := do(t, s, http.MethodPost, "/api/messages", `{"message":"   "}`, c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[render.ChatView](t, rr).Messages)
	assert.Equal(t, int32(0), u.webhookCalls.Load())

	rr = do(t, s, http.MethodPost, "/api/messages", `{not json`, c)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid JSON body", decode[types.ErrorResponse](t, rr).Error)
}

func TestClientID_HeaderAndQueryFallback(t *testing.T) {
	s := newTestServer(t, newUpstream(t))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set(ClientIDHeader, "from-header")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, "from-header", decode[render.ChatView](t, rr).ClientID)
	assert.Equal(t, "from-header", clientCookie(t, rr).Value)

	rr = do(t, s, http.MethodGet, "/api/session?clientId=from-query", "", nil)
	assert.Equal(t, "from-query", decode[render.ChatView](t, rr).ClientID)

	cookie := &http.Cookie{Name: identity.CookieName, Value: "from-cookie"}
	req = httptest.NewRequest(http.MethodGet, "/api/session?clientId=from-query", nil)
	req.Header.Set(ClientIDHeader, "from-header")
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, "from-cookie", decode[render.ChatView](t, rr).ClientID)
}

func TestOpenHotel_AndBack(t *testing.T) {
	s := newTestServer(t, newUpstream(t))
	c := clientCookie(t, do(t, s, http.MethodPost, "/api/session", "", nil))

	rr := do(t, s, http.MethodPost, "/api/view/hotels/h1", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	dv := decode[render.DetailView](t, rr)
	assert.Equal(t, "success", string(dv.Status))
	require.NotNil(t, dv.Hotel)
	assert.Equal(t, "Hotel Artemide", dv.Hotel.Name)
	assert.Equal(t, "Rome", dv.Hotel.Location)

	vr := decode[types.ViewResponse](t, do(t, s, http.MethodGet, "/api/view", "", c))
	assert.Equal(t, view.State{View: view.Hotel, HotelID: "h1"}, vr.State)
	require.NotNil(t, vr.Detail)
	assert.Nil(t, vr.Chat)
	assert.Equal(t, "success", string(vr.Detail.Status))

	rr = do(t, s, http.MethodPost, "/api/view/back", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, view.State{View: view.Chat}, decode[render.ChatView](t, rr).View)

	vr = decode[types.ViewResponse](t, do(t, s, http.MethodGet, "/api/view", "", c))
	assert.NotNil(t, vr.Chat)
	assert.Nil(t, vr.Detail)
}

func TestOpenTour_NotFoundStaysInView(t *testing.T) {
	s := newTestServer(t, newUpstream(t))
	c := clientCookie(t, do(t, s, http.MethodPost, "/api/session", "", nil))

	rr := do(t, s, http.MethodPost, "/api/view/tours/T9", "", c)
	require.Equal(t, http.StatusOK, rr.Code)
	dv := decode[render.DetailView](t, rr)
	assert.Equal(t, "error", string(dv.Status))
	assert.Equal(t, "Tour not found", dv.Message)
	assert.Equal(t, render.ReturnToChat, dv.Back.Label)

	vr := decode[types.ViewResponse](t, do(t, s, http.MethodGet, "/api/view", "", c))
	assert.Equal(t, view.Tour, vr.State.View)
}

func TestOpenDetail_BlankIDRejected(t *testing.T) {
	s := newTestServer(t, newUpstream(t))

	rr := do(t, s, http.MethodPost, "/api/view/hotels/%20", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLookup_StatusCodes(t *testing.T) {
	s := newTestServer(t, newUpstream(t))

	rr := do(t, s, http.MethodGet, "/api/tours/T1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dv := decode[render.DetailView](t, rr)
	require.NotNil(t, dv.Tour)
	assert.Equal(t, "Ancient Rome", dv.Tour.Name)
	assert.Equal(t, "2h 15m", dv.Tour.TotalDuration)

	rr = do(t, s, http.MethodGet, "/api/hotels/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Hotel not found", decode[render.DetailView](t, rr).Message)
}

func TestLookup_UpstreamDown(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u)
	u.Close()

	rr := do(t, s, http.MethodGet, "/api/hotels/h1", "", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to load hotel details", decode[render.DetailView](t, rr).Message)
}

func TestEndSession_ClearsCookie(t *testing.T) {
	s := newTestServer(t, newUpstream(t))
	c := clientCookie(t, do(t, s, http.MethodPost, "/api/session", "", nil))

	rr := do(t, s, http.MethodDelete, "/api/session", "", c)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, -1, clientCookie(t, rr).MaxAge)
	_, ok := s.sessions.Get(c.Value)
	assert.False(t, ok)
}
