// Package web serves the studyloop JSON API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/importer"
	"github.com/conorfennell/studyloop/internal/session"
)

// Config holds the dependencies of a Server.
type Config struct {
	Decks           domain.DeckRepository
	Items           domain.ItemRepository
	Records         domain.SessionRepository
	Reviews         domain.ReviewRepository
	Sessions        *session.Manager
	Importer        *importer.Importer
	DefaultStrategy domain.Strategy
	AllowedOrigins  []string
	Clock           clock.Clock
	Logger          *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	decks    domain.DeckRepository
	items    domain.ItemRepository
	records  domain.SessionRepository
	reviews  domain.ReviewRepository
	sessions *session.Manager
	importer *importer.Importer
	strategy domain.Strategy
	clock    clock.Clock
	log      *slog.Logger
	validate *validator.Validate
	router   chi.Router

	// live holds the in-memory state of sessions touched through the API,
	// keyed by deck. It stays authoritative when a save fails.
	mu   sync.Mutex
	live map[int64]*session.State
}

// NewServer creates and configures a new server.
func NewServer(cfg Config) *Server {
	s := &Server{
		decks:    cfg.Decks,
		items:    cfg.Items,
		records:  cfg.Records,
		reviews:  cfg.Reviews,
		sessions: cfg.Sessions,
		importer: cfg.Importer,
		strategy: cfg.DefaultStrategy,
		clock:    clock.Or(cfg.Clock),
		log:      cfg.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		live:     make(map[int64]*session.State),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if !s.strategy.IsValid() {
		s.strategy = domain.Intelligent
	}
	s.routes(cfg.AllowedOrigins)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes(allowedOrigins []string) {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}).Handler)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth())

	r.Route("/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks())
		r.Post("/", s.handleCreateDeck())

		r.Route("/{deckID}", func(r chi.Router) {
			r.Get("/", s.handleGetDeck())
			r.Delete("/", s.handleDeleteDeck())

			r.Route("/items", func(r chi.Router) {
				r.Get("/", s.handleListItems())
				r.Post("/", s.handleAddItem())
				r.Put("/{itemID}", s.handleEditItem())
				r.Get("/{itemID}/reviews", s.handleItemReviews())
			})

			r.Route("/session", func(r chi.Router) {
				r.Post("/", s.handlePrepareSession())
				r.Get("/", s.handleGetSession())
				r.Get("/reviews", s.handleSessionReviews())
				r.Post("/advance", s.handleAdvance())
				r.Put("/strategy", s.handleChangeStrategy())
				r.Post("/review", s.handleReview())
				r.Post("/finish", s.handleFinish())
			})
		})
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleSessionStats())
		r.Delete("/", s.handleDeleteSession())
	})

	s.router = r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func deckIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "deckID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidInput("invalid deck ID")
	}
	return id, nil
}

func itemIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidInput("invalid item ID")
	}
	return id, nil
}

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return uuid.Nil, errInvalidInput("invalid session ID")
	}
	return id, nil
}

// liveSession returns the deck's session state, loading the active session
// from the store if the server has not seen it yet. It returns
// domain.ErrNoActiveSession when the deck has none.
func (s *Server) liveSession(ctx context.Context, deckID int64) (*session.State, error) {
	if st, ok := s.peek(deckID); ok {
		if st.Session().IsActive {
			return st, nil
		}
		// Finished, but the store still holds it as active.
		if err := st.Save(ctx); err != nil {
			return nil, err
		}
		s.forgetSession(deckID, st.Session().ID)
	}

	st, err := s.sessions.Active(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return s.remember(deckID, st), nil
}

// remember stores st unless another request stored the same session first.
func (s *Server) remember(deckID int64, st *session.State) *session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[deckID]; ok && cur.Session().ID == st.Session().ID {
		return cur
	}
	s.live[deckID] = st
	return st
}

// peek returns the registered state of the deck without loading it.
func (s *Server) peek(deckID int64) (*session.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.live[deckID]
	return st, ok
}

func (s *Server) forget(deckID int64) {
	s.mu.Lock()
	delete(s.live, deckID)
	s.mu.Unlock()
}

// forgetSession drops the deck's registered state if it is session id.
func (s *Server) forgetSession(deckID int64, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.live[deckID]; ok && cur.Session().ID == id {
		delete(s.live, deckID)
	}
}
