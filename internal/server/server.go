package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"visitrome-concierge/internal/chat"
	"visitrome-concierge/internal/concierge"
	"visitrome-concierge/internal/config"
	"visitrome-concierge/internal/detail"
	"visitrome-concierge/internal/identity"
	"visitrome-concierge/internal/logger"
	"visitrome-concierge/internal/relevance"
	"visitrome-concierge/internal/render"
	"visitrome-concierge/internal/session"
	"visitrome-concierge/internal/types"
	"visitrome-concierge/internal/view"
)

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	log      *logger.Logger
	sessions *session.Registry
	chat     *chat.Service
	details  *detail.Fetcher
	render   *render.Renderer
}

// NewServer wires the concierge services behind a chi router. A nil api talks
// to cfg.APIBaseURL over HTTP.
func NewServer(cfg config.Config, api concierge.API, ids *identity.Manager, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if api == nil {
		api = concierge.NewClient(cfg.APIBaseURL, cfg.UpstreamTimeout)
	}
	if ids == nil {
		ids = identity.NewManager(nil, log)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", ClientIDHeader},
		ExposedHeaders:   []string{ClientIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		log:      log.With("service", "HTTPServer"),
		sessions: session.NewRegistry(ids, cfg.SessionTTL, log),
		chat:     chat.NewService(api, relevance.New(cfg.DistanceThreshold), ids, cfg.AgentID, log),
		details:  detail.NewFetcher(api, cfg.DataLimit, log),
		render:   render.New(nil),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	// session lifecycle
	s.router.Post("/api/session", s.handleStartSession)
	s.router.Get("/api/session", s.handleGetSession)
	s.router.Delete("/api/session", s.handleEndSession)
	// conversation
	s.router.Post("/api/messages", s.handleMessage)
	// view routing
	s.router.Get("/api/view", s.handleView)
	s.router.Post("/api/view/hotels/{id}", s.handleOpenHotel)
	s.router.Post("/api/view/tours/{id}", s.handleOpenTour)
	s.router.Post("/api/view/back", s.handleBack)
	// detail lookups that leave the view alone
	s.router.Get("/api/hotels/{id}", s.handleHotel)
	s.router.Get("/api/tours/{id}", s.handleTour)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Start(r.Context())
	s.bind(w, r, sess)
	s.writeJSON(w, http.StatusOK, s.chatView(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	s.writeJSON(w, http.StatusOK, s.chatView(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if id := clientIDFrom(r); id != "" {
		s.sessions.Delete(id)
	}
	ClearClientCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req types.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess := s.resolveSession(w, r)
	s.chat.SendMessage(r.Context(), sess, req.Message)
	s.writeJSON(w, http.StatusOK, s.chatView(sess))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	state := sess.View.Current()
	resp := types.ViewResponse{ClientID: sess.ClientID(), State: state}
	if state.View == view.Chat {
		cv := s.chatView(sess)
		resp.Chat = &cv
	} else {
		st := sess.Detail()
		if st == nil {
			loading := detail.Loading(state.View, state.SelectedID())
			st = &loading
		}
		dv := render.Detail(*st)
		resp.Detail = &dv
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenHotel(w http.ResponseWriter, r *http.Request) {
	s.openDetail(w, r, view.Hotel)
}

func (s *Server) handleOpenTour(w http.ResponseWriter, r *http.Request) {
	s.openDetail(w, r, view.Tour)
}

func (s *Server) openDetail(w http.ResponseWriter, r *http.Request, kind view.Kind) {
	sess := s.resolveSession(w, r)
	id := chi.URLParam(r, "id")

	var (
		state view.State
		err   error
	)
	if kind == view.Hotel {
		state, err = sess.View.OpenHotel(id)
	} else {
		state, err = sess.View.OpenTour(id)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := s.details.Load(r.Context(), kind, state.SelectedID())
	sess.SetDetail(st)
	s.writeJSON(w, http.StatusOK, render.Detail(st))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := s.resolveSession(w, r)
	sess.Back()
	s.writeJSON(w, http.StatusOK, s.chatView(sess))
}

func (s *Server) handleHotel(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, view.Hotel)
}

func (s *Server) handleTour(w http.ResponseWriter, r *http.Request) {
	s.lookup(w, r, view.Tour)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, kind view.Kind) {
	st := s.details.Load(r.Context(), kind, chi.URLParam(r, "id"))
	s.writeJSON(w, lookupStatus(st.Err), render.Detail(st))
}

func lookupStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, detail.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, detail.ErrUpstream),
		errors.Is(err, detail.ErrInvalidEnvelope),
		errors.Is(err, detail.ErrContentParse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// resolveSession finds the caller's session and re-issues the cookie when the id
// came from somewhere else or had to be created.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.sessions.Resolve(r.Context(), clientIDFrom(r))
	if cookie, err := GetClientCookie(r); err != nil || cookie != sess.ClientID() {
		s.bind(w, r, sess)
	} else {
		w.Header().Set(ClientIDHeader, sess.ClientID())
	}
	return sess
}

func (s *Server) bind(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	SetClientCookie(w, r, sess.ClientID())
	w.Header().Set(ClientIDHeader, sess.ClientID())
}

func (s *Server) chatView(sess *session.Session) render.ChatView {
	return s.render.Chat(sess.ClientID(), sess.View.Current(), sess.Conversation.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// requestLogger logs one line per request, with the level picked from the
// response status.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			fields := []interface{}{
				"method", r.Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				fields = append(fields, "request_id", reqID)
			}
			switch {
			case status >= 500:
				log.Error("HTTP request", fields...)
			case status >= 400:
				log.Warn("HTTP request", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
		})
	}
}
