package authgate

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate/internal/limiters"
	"github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/provider"
	"github.com/MrEthical07/authgate/refresh"
	"github.com/MrEthical07/authgate/session"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until Engine methods are called.
type Builder struct {
	config Config

	redis        redis.UniversalClient
	refreshStore refresh.Store
	validator    TokenValidator
	provider     provider.IdentityProvider
	logger       *slog.Logger
	registry     prometheus.Registerer

	built bool
}

// New creates a [Builder] with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the shared cache client used by the session store and the
// rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore sets the durable refresh-session store.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithValidator sets the access-token validator.
func (b *Builder) WithValidator(v TokenValidator) *Builder {
	b.validator = v
	return b
}

// WithProvider sets the external identity provider.
func (b *Builder) WithProvider(p provider.IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetrics registers gateway metrics with the given Prometheus registry.
// Without it the engine records nothing.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// Build validates the configuration and dependencies and assembles the
// [Engine]. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.refreshStore == nil {
		return nil, errors.New("refresh store required")
	}
	if b.validator == nil {
		return nil, errors.New("token validator required")
	}
	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	var collector *metrics.Collector
	if b.registry != nil {
		collector = metrics.NewCollector(b.registry)
	}

	sessions := session.NewStore(b.redis, b.config.Session.RedisPrefix)

	limiter := limiters.NewEmail(b.redis, limiters.Config{
		Signup:           limiters.Limit(b.config.Limits.Signup),
		Resend:           limiters.Limit(b.config.Limits.Resend),
		Verify:           limiters.Limit(b.config.Limits.Verify),
		IP:               limiters.Limit(b.config.Limits.IP),
		EnableIPThrottle: b.config.Limits.EnableIPThrottle,
	})

	return &Engine{
		config:   b.config,
		sessions: sessions,
		refresh:  b.refreshStore,
		resolver: NewResolver(sessions, b.refreshStore, b.validator, b.provider, logger, collector),
		limiter:  limiter,
		provider: b.provider,
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
	}, nil
}
