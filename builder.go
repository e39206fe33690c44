package caseguard

import (
	"errors"
	"time"

	"github.com/MrEthical07/caseguard/password"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build exactly once.
type Builder struct {
	config Config

	users     UserStore
	records   RecordStore
	auditSink AuditSink
	logger    *zerolog.Logger
	clock     func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithRecordStore(store RecordStore) *Builder {
	b.records = store
	return b
}

// WithAuditSink adds a consumer that receives every record after persistence.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the time source used for lockout decisions. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.records == nil {
		return nil, errors.New("record store required")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	var metrics *Metrics
	if cfg.Metrics.Enabled {
		metrics = NewMetrics(cfg.Metrics)
	}

	b.built = true

	return &Engine{
		config:       cfg,
		users:        b.users,
		records:      b.records,
		passwordHash: hasher,
		recorder:     NewAuditRecorder(cfg.Audit, b.records, b.auditSink, logger, metrics),
		metrics:      metrics,
		logger:       logger,
		now:          b.clock,
	}, nil
}
