package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"emberhold/realmd/pkg/bufpool"
	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/events"
	"emberhold/realmd/pkg/migrate"
	"emberhold/realmd/pkg/persistence"
	"emberhold/realmd/pkg/scripts"
	"emberhold/realmd/pkg/session"
	"emberhold/realmd/pkg/storage"
	"emberhold/realmd/pkg/telemetry/logging"
	"emberhold/realmd/pkg/telemetry/metrics"
	"emberhold/realmd/pkg/telemetry/tracing"
	"emberhold/realmd/pkg/transport"
)

// Subsystem is a dependent component initialized after the script
// components and before the persistence timer is armed.
type Subsystem interface {
	Name() string
	Init(ctx context.Context) error
}

// Stopper is implemented by subsystems that need to release resources.
// Stoppers run in reverse initialization order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Dependencies are the collaborators of a GameServer. Nil fields get
// in-process defaults.
type Dependencies struct {
	// Store is the game store. Default: an in-memory store.
	Store storage.Store

	// Registry holds client sessions. Default: sized by server.max_clients.
	Registry *session.Registry

	// Converters are the schema converters checked at startup.
	Converters []migrate.Converter

	// VersionStore persists the applied schema version.
	// Default: a file store at database.version_file.
	VersionStore migrate.VersionStore

	// Subsystems are initialized in order after the script components.
	Subsystems []Subsystem

	ScriptLoader scripts.Loader
	Components   []scripts.Component
	Rules        scripts.RulesFactory

	// Connections receives accepted TCP connections. Without one they are
	// closed.
	Connections ConnectionHandler

	Events  *events.Bus
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Option configures a GameServer.
type Option func(*GameServer)

// WithBootID sets the id attached to this run's logs and traces.
func WithBootID(id string) Option {
	return func(s *GameServer) {
		if id != "" {
			s.bootID = id
		}
	}
}

// WithDrainTimeout bounds how long Stop waits for in-flight packet handlers.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *GameServer) {
		s.drainTimeout = d
	}
}

// GameServer owns the boot sequence and shutdown of the realm.
//
// Start runs the startup steps in order on the calling goroutine and flips
// the status to Open only when every step succeeded. Stop reverses the
// sequence and may be called any number of times, before, during or after
// Start, including from lifecycle handlers and subsystems running on the
// start goroutine.
type GameServer struct {
	cfg          *config.Config
	deps         Dependencies
	logger       *slog.Logger
	tracer       *tracing.Tracer
	bus          *events.Bus
	store        storage.Store
	registry     *session.Registry
	bootID       string
	drainTimeout time.Duration

	status atomic.Int32

	mu          sync.Mutex
	started     bool
	stopping    bool
	cancelStart context.CancelFunc
	openedAt    time.Time
	listener    *acceptor
	pool        *bufpool.Pool
	pipeline    *transport.UDPPipeline
	scheduler   *persistence.Scheduler
	rules       scripts.Rules
	initialized []Subsystem
	dbLoaded    bool
	announced   bool

	torndown atomic.Bool
}

// New creates a closed game server.
func New(cfg *config.Config, deps Dependencies, opts ...Option) *GameServer {
	s := &GameServer{
		cfg:    cfg,
		deps:   deps,
		bootID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = deps.Logger
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = logging.Component(s.logger, "server").With("boot_id", s.bootID)

	s.tracer = deps.Tracer
	if s.tracer == nil {
		s.tracer = tracing.Noop()
	}
	s.bus = deps.Events
	if s.bus == nil {
		s.bus = events.NewBus(logging.Component(s.logger, "events"))
	}
	s.store = deps.Store
	if s.store == nil {
		s.store = storage.NewMemoryStore()
	}
	s.registry = deps.Registry
	if s.registry == nil {
		s.registry = session.NewRegistry(cfg.Server.MaxClients)
	}
	if s.deps.ScriptLoader == nil {
		s.deps.ScriptLoader = scripts.NopLoader{
			Logger:     logging.Component(s.logger, "scripts"),
			Extensions: cfg.Scripts.Extensions,
		}
	}
	if s.deps.Rules == nil {
		s.deps.Rules = scripts.DefaultRules
	}
	return s
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Start boots the server. On the first failing step it unwinds everything
// started so far and returns a *StartupError naming the step.
func (s *GameServer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelStart = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelStart = nil
		s.mu.Unlock()
	}()

	ctx = logging.WithBootID(ctx, s.bootID)
	ctx, span := s.tracer.Start(ctx, tracing.SpanServerStart,
		trace.WithAttributes(tracing.AttrBootID.String(s.bootID)))

	s.logger.InfoContext(ctx, "starting game server",
		"name", s.cfg.Server.Name,
		"server_type", s.cfg.Server.ServerType,
		"max_clients", s.cfg.Server.MaxClients)
	began := time.Now()

	for _, st := range s.steps() {
		if s.isStopping() {
			return s.abort(span, st.name, ErrStopped)
		}
		if err := s.runStep(ctx, st); err != nil {
			return s.abort(span, st.name, err)
		}
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return s.abort(span, "Open", ErrStopped)
	}
	s.openedAt = time.Now()
	s.setStatus(StatusOpen)
	s.cancelStart = nil
	s.mu.Unlock()

	tracing.End(span, nil)
	s.logger.InfoContext(ctx, "game server open",
		"tcp_address", s.listener.ln.Addr().String(),
		"udp_address", s.pipeline.LocalAddr().String(),
		"duration", time.Since(began))
	return nil
}

func (s *GameServer) abort(span trace.Span, stepName string, cause error) error {
	err := &StartupError{Step: stepName, Cause: cause}
	tracing.End(span, err)
	s.logger.Error("game server startup failed", "step", stepName, "error", cause)
	if stopErr := s.shutdown(); stopErr != nil {
		s.logger.Error("unwinding failed startup", "error", stopErr)
	}
	return err
}

func (s *GameServer) steps() []step {
	steps := []step{
		{"CheckDatabaseVersion", s.checkDatabaseVersion},
		{"InitSocket", s.initSocket},
		{"AllocatePacketBuffers", s.allocatePacketBuffers},
		{"StartUDP", s.startUDP},
		{"CompileScripts", s.compileScripts},
		{"InitDatabase", s.initDatabase},
		{"StartScriptComponents", s.startScriptComponents},
	}
	for _, sub := range s.deps.Subsystems {
		sub := sub
		steps = append(steps, step{sub.Name(), func(ctx context.Context) error {
			if err := sub.Init(ctx); err != nil {
				return err
			}
			s.mu.Lock()
			s.initialized = append(s.initialized, sub)
			s.mu.Unlock()
			return nil
		}})
	}
	return append(steps,
		step{"StartPersistence", s.startPersistence},
		step{"NotifyStarted", s.notifyStarted},
		step{"OpenListener", s.openListener},
	)
}

func (s *GameServer) runStep(ctx context.Context, st step) (err error) {
	ctx = logging.WithStep(ctx, st.name)
	ctx, span := s.tracer.Start(ctx, "server.step."+st.name,
		trace.WithAttributes(tracing.AttrStep.String(st.name)))
	began := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		d := time.Since(began)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "startup step", "component", st.name, "ok", err == nil, "duration", d)
		s.deps.Metrics.RecordStep(st.name, err == nil, d)
		tracing.End(span, err)
	}()

	return st.run(ctx)
}

func (s *GameServer) checkDatabaseVersion(ctx context.Context) error {
	vs := s.deps.VersionStore
	if vs == nil {
		vs = migrate.NewFileStore(s.path(s.cfg.Database.VersionFile))
	}
	opts := []migrate.Option{
		migrate.WithLogger(logging.Component(s.logger, "migrate")),
		migrate.WithTracer(s.tracer),
	}
	if s.deps.Metrics != nil {
		opts = append(opts, migrate.WithObserver(s.deps.Metrics))
	}
	m := migrate.New(vs, migrate.NewRegistry(s.deps.Converters...), opts...)
	return m.CheckAndMigrate(ctx)
}

func (s *GameServer) initSocket(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Server.ListenAddress, err)
	}
	s.mu.Lock()
	s.listener = newAcceptor(ln, s.deps.Connections, s.IsOpen, logging.Component(s.logger, "listener"))
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "tcp socket bound", "address", ln.Addr().String())
	return nil
}

func (s *GameServer) allocatePacketBuffers(ctx context.Context) error {
	count := bufpool.CountFor(s.cfg.Server.MaxClients)
	opts := []bufpool.Option{bufpool.WithLogger(logging.Component(s.logger, "bufpool"))}
	if s.deps.Metrics != nil {
		opts = append(opts, bufpool.WithObserver(s.deps.Metrics))
	}
	pool := bufpool.New(count, s.cfg.UDP.BufferSize, opts...)

	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "packet buffers allocated", "count", count, "size", pool.BufferSize())
	return nil
}

func (s *GameServer) startUDP(ctx context.Context) error {
	tcfg, err := transport.ConfigFrom(&s.cfg.UDP)
	if err != nil {
		return err
	}

	reg := s.registry
	lookup := transport.SessionLookupFunc(func(id uint16) (transport.Session, bool) {
		sess, ok := reg.Lookup(id)
		if !ok {
			return nil, false
		}
		return sess, true
	})

	opts := []transport.Option{transport.WithLogger(logging.Component(s.logger, "udp"))}
	if s.deps.Metrics != nil {
		opts = append(opts, transport.WithObserver(s.deps.Metrics))
	}
	if s.drainTimeout > 0 {
		opts = append(opts, transport.WithDrainTimeout(s.drainTimeout))
	}

	p := transport.NewUDPPipeline(tcfg, lookup, s.pool, transport.StatusFunc(s.IsOpen), opts...)
	if err := p.Bind(ctx); err != nil {
		p.Close()
		return err
	}
	s.mu.Lock()
	s.pipeline = p
	s.mu.Unlock()
	return nil
}

func (s *GameServer) compileScripts(ctx context.Context) error {
	return s.deps.ScriptLoader.Compile(ctx, s.path(s.cfg.Scripts.Directory), s.cfg.Scripts.Assemblies)
}

func (s *GameServer) initDatabase(ctx context.Context) error {
	if err := s.store.LoadAll(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.dbLoaded = true
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "game store loaded", "players", len(s.store.Players()))
	return nil
}

func (s *GameServer) startScriptComponents(ctx context.Context) error {
	rules, err := s.deps.Rules(s.cfg.Server.ServerType)
	if err != nil {
		return err
	}
	for _, c := range s.deps.Components {
		regs := c.Registrations()
		s.bus.Register(regs...)
		s.logger.DebugContext(ctx, "script component started", "name", c.Name(), "handlers", len(regs))
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return nil
}

func (s *GameServer) startPersistence(ctx context.Context) error {
	opts := []persistence.Option{
		persistence.WithLogger(logging.Component(s.logger, "persistence")),
		persistence.WithEvents(s.bus),
		persistence.WithTracer(s.tracer),
	}
	if s.deps.Metrics != nil {
		opts = append(opts, persistence.WithObserver(s.deps.Metrics))
	}
	sch := persistence.New(s.saveWorld, persistence.Config{
		Interval:      s.cfg.Persistence.SaveInterval(),
		LowerPriority: s.cfg.Persistence.LowerPriority,
	}, opts...)
	if err := sch.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	s.scheduler = sch
	s.mu.Unlock()
	return nil
}

func (s *GameServer) notifyStarted(ctx context.Context) error {
	s.mu.Lock()
	s.announced = true
	s.mu.Unlock()
	s.bus.Notify(ctx, events.ScriptsLoaded, s, nil)
	s.bus.Notify(ctx, events.Started, s, nil)
	return nil
}

func (s *GameServer) openListener(ctx context.Context) error {
	s.listener.start()
	return nil
}

// saveWorld copies the last activity of connected players into the store
// and flushes every dirty player.
func (s *GameServer) saveWorld(ctx context.Context) (int, error) {
	s.registry.Each(func(sess *session.Session) {
		id := sess.Player()
		if id == "" {
			return
		}
		st, ok := s.store.Get(id)
		if !ok {
			return
		}
		if seen := sess.LastSeen(); seen.After(st.LastSeen) {
			st.LastSeen = seen
			s.store.Put(st)
		}
	})
	return s.store.WriteAll(ctx)
}

// Stop closes the server. If Start is still running, Stop cancels it and
// returns at once; Start unwinds whatever it brought up before returning.
// Only the first call tears down; later and nested calls return nil.
// Teardown failures are logged and returned joined; the teardown itself
// always runs to the end.
func (s *GameServer) Stop() error {
	s.mu.Lock()
	s.stopping = true
	s.setStatus(StatusClosed)
	cancel := s.cancelStart
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		return nil
	}
	return s.shutdown()
}

func (s *GameServer) shutdown() error {
	if !s.torndown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	s.stopping = true
	s.setStatus(StatusClosed)
	listener, pipeline, scheduler := s.listener, s.pipeline, s.scheduler
	initialized := s.initialized
	dbLoaded, announced := s.dbLoaded, s.announced
	openedAt := s.openedAt
	s.mu.Unlock()

	ctx := logging.WithBootID(context.Background(), s.bootID)
	s.logger.InfoContext(ctx, "stopping game server")

	var errs []error
	record := func(what string, err error) {
		if err != nil {
			s.logger.ErrorContext(ctx, what+" failed", "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	if pipeline != nil {
		if n := pipeline.InFlight(); n > 0 {
			s.dumpGoroutines(ctx, n)
		}
	}

	if announced {
		s.bus.Notify(ctx, events.ScriptsUnloaded, s, nil)
		s.bus.Notify(ctx, events.Stopped, s, nil)
	}
	s.bus.RemoveAll()

	if scheduler != nil {
		scheduler.Stop()
	}
	if listener != nil {
		record("close tcp listener", listener.close())
	}
	if pipeline != nil {
		record("close udp pipeline", pipeline.Close())
	}

	for i := len(initialized) - 1; i >= 0; i-- {
		if st, ok := initialized[i].(Stopper); ok {
			record("stop "+initialized[i].Name(), st.Stop(ctx))
		}
	}

	if dbLoaded {
		if scheduler != nil {
			_, err := scheduler.RunNow(ctx)
			record("final world save", err)
		}
		n, err := s.store.WriteAll(ctx)
		record("flush game store", err)
		if err == nil {
			s.logger.InfoContext(ctx, "game store flushed", "players", n)
		}
		if s.cfg.Persistence.ArchiveInactive {
			cutoff := time.Now().Add(-s.cfg.Persistence.ArchiveAfter)
			moved, err := s.store.ArchiveInactive(ctx, cutoff)
			record("archive inactive players", err)
			if err == nil {
				s.logger.InfoContext(ctx, "inactive players archived", "players", moved, "cutoff", cutoff)
			}
		}
	}

	s.registry.Clear()
	s.mu.Lock()
	s.rules = nil
	s.mu.Unlock()

	var uptime time.Duration
	if !openedAt.IsZero() {
		uptime = time.Since(openedAt)
	}
	s.logger.InfoContext(ctx, "game server stopped", "uptime", uptime)
	return errors.Join(errs...)
}

func (s *GameServer) dumpGoroutines(ctx context.Context, inFlight int64) {
	var buf bytes.Buffer
	if p := pprof.Lookup("goroutine"); p != nil {
		_ = p.WriteTo(&buf, 1)
	}
	s.logger.WarnContext(ctx, "packet handlers still running at shutdown",
		"in_flight", inFlight,
		"goroutines", buf.String())
}

func (s *GameServer) setStatus(st Status) {
	s.status.Store(int32(st))
	s.deps.Metrics.SetServerOpen(st == StatusOpen)
}

func (s *GameServer) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *GameServer) path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.cfg.Server.RootDirectory == "" {
		return p
	}
	return filepath.Join(s.cfg.Server.RootDirectory, p)
}

// Status returns the current server status.
func (s *GameServer) Status() Status {
	return Status(s.status.Load())
}

// IsOpen reports whether the server is accepting traffic.
func (s *GameServer) IsOpen() bool {
	return s.Status() == StatusOpen
}

// IsRunning reports whether the server has started and not yet stopped.
func (s *GameServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopping
}

// Uptime returns how long the server has been open.
func (s *GameServer) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openedAt.IsZero() || s.Status() != StatusOpen {
		return 0
	}
	return time.Since(s.openedAt)
}

// BootID returns the id of this run.
func (s *GameServer) BootID() string {
	return s.bootID
}

// Pool returns the packet buffer pool, or nil before it is allocated.
func (s *GameServer) Pool() *bufpool.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// Pipeline returns the UDP pipeline, or nil before it is bound.
func (s *GameServer) Pipeline() *transport.UDPPipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

// Rules returns the active server rules, or nil when none are loaded.
func (s *GameServer) Rules() scripts.Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// Sessions returns the session registry.
func (s *GameServer) Sessions() *session.Registry {
	return s.registry
}

// Events returns the lifecycle event bus.
func (s *GameServer) Events() *events.Bus {
	return s.bus
}

// Addr returns the TCP listener address, or nil before the socket is bound.
func (s *GameServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.ln.Addr()
}

// Health reports an error unless the server is open and the store answers.
// It is registered as a readiness check.
func (s *GameServer) Health(ctx context.Context) error {
	if !s.IsOpen() {
		return errors.New("game server is not open")
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("game store: %w", err)
	}
	return nil
}
