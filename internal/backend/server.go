package backend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// Options tune the server independently of persistence.
type Options struct {
	JWTSecret   string
	AccessTTL   time.Duration
	OTPTTL      time.Duration
	RateLimit   int
	CORSOrigins []string
}

// Server wires the identity provider and the campaign/analytics store into
// one HTTP API.
type Server struct {
	store  Store
	tokens *TokenManager
	log    *slog.Logger
	otpTTL time.Duration
	opts   Options
	now    func() time.Time
}

func NewServer(store Store, log *slog.Logger, opts Options) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	tokens, err := NewTokenManager(opts.JWTSecret, opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	otpTTL := opts.OTPTTL
	if otpTTL <= 0 {
		otpTTL = 10 * time.Minute
	}
	return &Server{
		store:  store,
		tokens: tokens,
		log:    log,
		otpTTL: otpTTL,
		opts:   opts,
		now:    time.Now,
	}, nil
}

// Router assembles the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(recovery(s.log))
	r.Use(requestLogger(s.log))
	r.Use(corsHandler(s.opts.CORSOrigins))
	r.Use(rateLimit(s.opts.RateLimit))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/auth", func(auth chi.Router) {
		auth.Post("/otp", s.handleSendOTP)
		auth.Post("/verify", s.handleVerifyOTP)
		auth.Post("/signup", s.handleSignUp)
		auth.Post("/signin", s.handleSignIn)
		auth.Post("/refresh", s.handleRefresh)
		auth.With(s.requireAuth).Post("/logout", s.handleLogout)
		auth.With(s.requireAuth).Get("/user", s.handleCurrentUser)
		auth.With(s.requireAuth).Get("/session", s.handleSession)
		auth.With(s.requireAuth).Put("/user", s.handleUpdateUser)
	})

	r.With(s.requireAuth).Get("/profiles/{user_id}", s.handleProfile)

	r.Route("/campaigns", func(campaigns chi.Router) {
		campaigns.Use(s.requireAuth)
		campaigns.Get("/", s.handleListCampaigns)
		campaigns.Post("/", s.handleCreateCampaign)
		campaigns.Get("/{id}", s.handleGetCampaign)
		campaigns.Put("/{id}", s.handleUpdateCampaign)
		campaigns.Delete("/{id}", s.handleDeleteCampaign)
	})

	r.Route("/analytics", func(analytics chi.Router) {
		analytics.Use(s.requireAuth)
		analytics.Get("/", s.handleListAnalytics)
		analytics.Post("/seed", s.handleSeedAnalytics)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	}).Handler
}
