package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/services"
)

// ErrUnresolvable signals that neither resolver produced a streamable URL.
// The job fails for this attempt and remains eligible for retry.
var ErrUnresolvable = errors.New("share reference unresolvable")

// Metadata carries descriptive and engagement data captured during resolution.
type Metadata struct {
	Caption         string  `json:"caption"`
	Author          string  `json:"author"`
	CoverURL        string  `json:"cover_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	Views           int64   `json:"views"`
	Likes           int64   `json:"likes"`
	Comments        int64   `json:"comments"`
	Shares          int64   `json:"shares"`
}

// Resolution is the outcome of a successful share-URL resolution.
type Resolution struct {
	VideoURL string
	Meta     Metadata
	Source   string // "primary" or "fallback"
}

// Service resolves share references to streamable URLs, preferring the paid
// primary resolver and degrading to the free fallback while the breaker is
// open.
type Service struct {
	cfg        config.Resolver
	breaker    *Breaker
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewService constructs a resolution service around the supplied breaker.
func NewService(cfg config.Resolver, breaker *Breaker, logger *slog.Logger, opts ...Option) *Service {
	if breaker == nil {
		breaker = NewBreaker(cfg.BreakerThreshold, time.Duration(cfg.BreakerCooldownSeconds)*time.Second)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	svc := &Service{
		cfg:     cfg,
		breaker: breaker,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "resolver"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Breaker exposes the underlying breaker for observability endpoints.
func (s *Service) Breaker() *Breaker {
	return s.breaker
}

// Resolve converts a share reference into a direct streamable URL. The
// primary resolver is attempted first unless the breaker is open; the
// fallback is tried whenever the primary is skipped or fails.
func (s *Service) Resolve(ctx context.Context, shareURL string) (*Resolution, error) {
	if shareURL == "" {
		return nil, services.Wrap(services.ErrValidation, "resolve", "", "empty share reference", nil)
	}

	logger := logging.WithContext(ctx, s.logger)

	primaryConfigured := s.cfg.ApifyToken != ""
	if primaryConfigured && s.breaker.Allow() {
		resolution, err := s.resolvePrimary(ctx, shareURL)
		if err == nil {
			s.breaker.RecordSuccess()
			resolution.Source = "primary"
			return resolution, nil
		}
		s.breaker.RecordFailure()
		status := s.breaker.Status()
		logger.Warn("primary resolver failed",
			logging.Error(err),
			logging.Int("consecutive_failures", status.Failures),
			logging.Bool("breaker_open", status.Open),
			logging.String(logging.FieldEventType, "resolver_primary_failed"),
		)
	} else if primaryConfigured {
		logger.Debug("primary resolver skipped; breaker open",
			logging.Duration("cooldown_remaining", s.breaker.Status().CooldownRemaining),
		)
	}

	if s.cfg.FallbackBaseURL == "" {
		return nil, fmt.Errorf("%w: no fallback resolver configured", ErrUnresolvable)
	}

	resolution, err := s.resolveFallback(ctx, shareURL)
	if err != nil {
		logger.Warn("fallback resolver failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "resolver_fallback_failed"),
		)
		return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	resolution.Source = "fallback"
	return resolution, nil
}
