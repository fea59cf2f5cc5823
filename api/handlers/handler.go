package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/airdrop/api/handlers/dberror"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"golang.org/x/time/rate"
)

// Subscriptions is the event source behind the SSE stream.
type Subscriptions interface {
	Subscribe() (int, <-chan airdrop.AuditEvent)
	Unsubscribe(id int)
}

type Config struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Processor *airdrop.Processor
	ProgramID solana.PublicKey
	Events    Subscriptions // optional, disables /api/events when nil

	// Mutating routes are limited per client IP.
	MutationRate  rate.Limit
	MutationBurst int

	// Signed requests must expire within SignedRequestTTL. Their signatures are
	// remembered until then, up to ReplayCacheSize at a time.
	SignedRequestTTL time.Duration
	ReplayCacheSize  int

	ReadRetry dberror.RetryConfig

	// Interval between keep-alive comments on the SSE stream.
	KeepAlive time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Processor == nil {
		return errors.New("processor is required")
	}
	if cfg.ProgramID.IsZero() {
		return errors.New("program id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SignedRequestTTL <= 0 {
		cfg.SignedRequestTTL = 5 * time.Minute
	}
	if cfg.ReplayCacheSize <= 0 {
		cfg.ReplayCacheSize = 100_000
	}
	if cfg.MutationRate == 0 {
		cfg.MutationRate = rate.Every(time.Minute / 60)
	}
	if cfg.MutationBurst <= 0 {
		cfg.MutationBurst = 10
	}
	if cfg.ReadRetry.MaxAttempts <= 0 {
		cfg.ReadRetry = dberror.DefaultRetryConfig()
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	return nil
}

// Handler serves the distribution API.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	limiter *RateLimiter
	replay  *replayGuard
}

func New(ctx context.Context, cfg Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: NewRateLimiter(ctx, cfg.MutationRate, cfg.MutationBurst),
		replay:  newReplayGuard(cfg.Clock, cfg.SignedRequestTTL, cfg.ReplayCacheSize),
	}, nil
}

// Routes mounts the API under r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/scopes/{scope}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(h.limiter))
				r.Post("/initialize", h.Initialize)
				r.Post("/distribute", h.Distribute)
			})
			r.Get("/total", h.GetTotal)
			r.Get("/stats", h.GetStats)
			r.Get("/recipients/{recipient}", h.GetRecipient)
		})
		if h.cfg.Events != nil {
			r.Get("/events", h.StreamEvents)
		}
	})
}

func (h *Handler) scope(name string) (airdrop.Scope, error) {
	return airdrop.NewScope(h.cfg.ProgramID, name)
}
