package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	internalaudit "github.com/tmaxwell-dev/authgate/internal/audit"
	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
	"github.com/tmaxwell-dev/authgate/cache"
	"github.com/tmaxwell-dev/authgate/password"
	"github.com/tmaxwell-dev/authgate/token"
)

// Builder assembles an [Engine] from its configuration and backing stores.
//
// Builder instances are intended to be configured during initialization and
// then discarded; a builder can produce at most one engine.
type Builder struct {
	config Config

	redis      redis.UniversalClient
	sessions   SessionRecords
	directory  PrincipalDirectory
	bookkeeper Bookkeeper
	auditSink  AuditSink
	logger     *zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration. The config is cloned;
// later mutations of cfg do not affect the built engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session cache. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionRecords sets the durable session store. Required.
func (b *Builder) WithSessionRecords(records SessionRecords) *Builder {
	b.sessions = records
	return b
}

// WithPrincipalDirectory sets the durable principal store. Required.
func (b *Builder) WithPrincipalDirectory(dir PrincipalDirectory) *Builder {
	b.directory = dir
	return b
}

// WithBookkeeper sets the optional sink for elevated-account status updates.
// When unset, status bookkeeping is skipped.
func (b *Builder) WithBookkeeper(bk Bookkeeper) *Builder {
	b.bookkeeper = bk
	return b
}

// WithAuditSink sets the destination for audit events. When unset and audit
// is enabled, events are discarded through a [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine's structured logger. Defaults to a disabled
// logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithMetricsEnabled toggles internal counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the subsystems, and returns the
// engine. The builder cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.sessions == nil {
		return nil, errors.New("session records store required")
	}
	if b.directory == nil {
		return nil, errors.New("principal directory required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		Secret:     cloneBytes(cfg.Token.SigningSecret),
		Issuer:     cfg.Token.Issuer,
		SessionTTL: cfg.Token.SessionTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		TwoStepTTL: cfg.Token.TwoStepTTL,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:     cfg,
		tokens:     issuer,
		cache:      cache.NewStore(b.redis, cfg.Cache.KeyPrefix),
		sessions:   b.sessions,
		directory:  b.directory,
		bookkeeper: b.bookkeeper,
		hasher:     hasher,
		logger:     logger,
		now:        timeNow,
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled: cfg.Metrics.Enabled,
	})

	b.built = true

	return engine, nil
}
