package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emberhold/realmd/pkg/telemetry/tracing"
)

// Observer receives migration results. *metrics.Collector satisfies it.
type Observer interface {
	SetSchemaVersion(v int)
	RecordMigration(err error)
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the migrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver reports applied versions to o.
func WithObserver(o Observer) Option {
	return func(m *Migrator) {
		m.observer = o
	}
}

// WithTracer emits one span per applied converter.
func WithTracer(t *tracing.Tracer) Option {
	return func(m *Migrator) {
		m.tracer = t
	}
}

// Migrator brings the persisted schema up to the latest registered version.
type Migrator struct {
	store    VersionStore
	registry *Registry
	logger   *slog.Logger
	observer Observer
	tracer   *tracing.Tracer
}

// New creates a Migrator over store and registry.
func New(store VersionStore, registry *Registry, opts ...Option) *Migrator {
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Migrator{
		store:    store,
		registry: registry,
		logger:   slog.Default().With("component", "migrate"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the converter registry.
func (m *Migrator) Registry() *Registry {
	return m.registry
}

// Current returns the persisted version. A missing record means the
// baseline; negative values are clamped to 0.
func (m *Migrator) Current() (VersionRecord, error) {
	rec, ok, err := m.store.Load()
	if err != nil {
		return VersionRecord{}, err
	}
	if !ok {
		rec = VersionRecord{DatabaseVersion: BaselineVersion}
	}
	if rec.DatabaseVersion < 0 {
		rec.DatabaseVersion = 0
	}
	return rec, nil
}

// CheckAndMigrate validates the registry and applies every pending
// converter in ascending order. The new version is saved after each
// converter, so a crash resumes at the first unapplied one. Any failure is
// written to the version record's LastError field and returned.
func (m *Migrator) CheckAndMigrate(ctx context.Context) error {
	m.logger.Info("checking database version")

	rec, err := m.Current()
	if err != nil {
		return fmt.Errorf("load database version: %w", err)
	}
	current := rec.DatabaseVersion

	if err := m.registry.Validate(); err != nil {
		m.logger.Error("invalid converter registry", "error", err)
		m.fail(current, err)
		return fmt.Errorf("validate converters: %w", err)
	}

	pending := m.registry.Pending(current)
	if len(pending) == 0 {
		m.logger.Info("database is up to date", "version", current)
		if m.observer != nil {
			m.observer.SetSchemaVersion(current)
		}
		return nil
	}

	m.logger.Info("migrating database", "from", current, "to", pending[len(pending)-1], "pending", len(pending))

	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("migration interrupted at version %d: %w", current, err)
		}

		conv, _ := m.registry.Get(v)
		if err := m.apply(ctx, conv); err != nil {
			merr := &MigrationError{Version: v, Applied: current, Cause: err}
			m.logger.Error("database conversion failed",
				"version", v,
				"converter", converterName(conv),
				"error", err)
			m.fail(current, merr)
			return merr
		}

		if err := m.store.Save(VersionRecord{DatabaseVersion: v}); err != nil {
			return fmt.Errorf("save database version %d: %w", v, err)
		}
		current = v
		m.report(current, nil)
	}

	m.logger.Info("database migration complete", "version", current)
	return nil
}

func (m *Migrator) apply(ctx context.Context, conv Converter) (err error) {
	v := conv.TargetVersion()
	ctx, span := m.tracer.Start(ctx, "migrate.convert")
	span.SetAttributes(tracing.AttrSchemaVersion.Int(v))
	defer func() { tracing.End(span, err) }()

	m.logger.Info("converting database", "version", v, "converter", converterName(conv))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converter panicked: %v", r)
		}
	}()

	err = conv.Convert(ctx)
	if err == nil {
		m.logger.Info("database converted", "version", v, "duration", time.Since(start))
	}
	return err
}

// fail persists err next to the last applied version. A failure to write
// the record is logged; the original error is what the caller sees.
func (m *Migrator) fail(version int, err error) {
	m.report(version, err)
	if serr := m.store.Save(VersionRecord{DatabaseVersion: version, LastError: err.Error()}); serr != nil {
		m.logger.Error("failed to record migration error", "error", serr)
	}
}

func (m *Migrator) report(version int, err error) {
	if m.observer == nil {
		return
	}
	m.observer.SetSchemaVersion(version)
	m.observer.RecordMigration(err)
}
