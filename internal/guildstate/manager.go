package guildstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
	"go.uber.org/zap"
)

// ModeratorsKey is the document key holding the guild's moderator list.
const ModeratorsKey = "Moderators"

// ErrModuleFailed is returned when a module fails to build its state for a reason
// other than a configuration mistake.
var ErrModuleFailed = errors.New("module failed unexpectedly")

// ErrGuildRemoved is returned when a guild is removed while its state is being built.
var ErrGuildRemoved = errors.New("guild was removed during reconfiguration")

// Manager owns the published state of every guild. States are immutable snapshots
// replaced as a whole, so readers see either the old or the new configuration.
type Manager struct {
	loader   Loader
	modules  []Module
	states   *xsync.MapOf[uint64, *GuildState]
	logger   *zap.Logger
	operator *zap.Logger
	now      func() time.Time

	// generations is bumped by Remove. A state built under an older generation
	// is discarded instead of published.
	mu          sync.Mutex
	generations map[uint64]uint64
}

// NewManager creates a Manager. Modules build their state in the given order.
// Unexpected failures are additionally reported to the operator logger.
func NewManager(loader Loader, logger, operator *zap.Logger, modules ...Module) *Manager {
	if operator == nil {
		operator = logger
	}

	return &Manager{
		loader:      loader,
		modules:     modules,
		states:      xsync.NewMapOf[uint64, *GuildState](),
		logger:      logger.Named("guildstate"),
		operator:    operator.Named("guildstate"),
		now:         time.Now,
		generations: make(map[uint64]uint64),
	}
}

// GetState returns the published state of a guild, or nil when the guild has none.
func (m *Manager) GetState(guildID uint64) *GuildState {
	state, _ := m.states.Load(guildID)
	return state
}

// Swap publishes state for its guild and returns the state it replaced, if any.
func (m *Manager) Swap(state *GuildState) *GuildState {
	previous, loaded := m.states.LoadAndStore(state.GuildID, state)
	if !loaded {
		loadedGuilds.Inc()
		return nil
	}
	return previous
}

// Remove drops a guild's state and stops watching its document. Reconfigurations
// already in progress for the guild are not published.
func (m *Manager) Remove(guildID uint64) {
	m.mu.Lock()
	m.generations[guildID]++
	_, ok := m.states.LoadAndDelete(guildID)
	m.mu.Unlock()

	if ok {
		loadedGuilds.Dec()
		m.logger.Info("Removed guild state", zap.Uint64("guild_id", guildID))
	}

	if w, ok := m.loader.(Watcher); ok {
		w.Unwatch(guildID)
	}
}

// Guilds returns the number of guilds with a published state.
func (m *Manager) Guilds() int {
	return m.states.Size()
}

// Track reconfigures a guild and, when watch is set and the loader supports it,
// reconfigures it again whenever its document changes. The watch ends when the
// guild is removed.
func (m *Manager) Track(ctx context.Context, guildID uint64, watch bool) error {
	gen := m.generation(guildID)
	err := m.reconfigure(ctx, guildID, gen)

	w, ok := m.loader.(Watcher)
	if !watch || !ok || errors.Is(err, ErrGuildRemoved) {
		return err
	}

	watchCtx := context.WithoutCancel(ctx)
	if werr := w.Watch(guildID, func() {
		m.logger.Info("Guild configuration changed", zap.Uint64("guild_id", guildID))
		_ = m.reconfigure(watchCtx, guildID, gen)
	}); werr != nil {
		m.logger.Warn("Failed to watch guild configuration",
			zap.Uint64("guild_id", guildID),
			zap.Error(werr))
		return err
	}

	// Remove may have run before the watch was installed
	if m.generation(guildID) != gen {
		w.Unwatch(guildID)
		return ErrGuildRemoved
	}

	return err
}

// Reconfigure loads the guild's document, builds a complete new state and publishes
// it. On any failure nothing is published and the previous state stays in effect.
func (m *Manager) Reconfigure(ctx context.Context, guildID uint64) error {
	return m.reconfigure(ctx, guildID, m.generation(guildID))
}

func (m *Manager) reconfigure(ctx context.Context, guildID uint64, gen uint64) error {
	state, err := m.CreateState(ctx, guildID)
	if err != nil {
		m.logFailure(guildID, err)
		return err
	}

	m.mu.Lock()
	current := m.generations[guildID] == gen
	if current {
		m.Swap(state)
	}
	m.mu.Unlock()

	if !current {
		reconfigureCount.WithLabelValues("discarded").Inc()
		m.logger.Info("Discarded configuration of removed guild", zap.Uint64("guild_id", guildID))
		return ErrGuildRemoved
	}

	reconfigureCount.WithLabelValues("success").Inc()

	m.logger.Info("Guild configuration loaded",
		zap.Uint64("guild_id", guildID),
		zap.Int("moderators", len(state.Moderators)),
		zap.Int("modules", len(state.Modules)))

	return nil
}

func (m *Manager) generation(guildID uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[guildID]
}

// CreateState builds a new state for a guild without publishing it.
func (m *Manager) CreateState(ctx context.Context, guildID uint64) (*GuildState, error) {
	doc, err := m.loader.Load(ctx, guildID)
	if err != nil {
		if !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: %w", ErrParse, err)
		}
		return nil, err
	}

	moderators, err := parseModerators(doc)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]any, len(m.modules))
	for _, module := range m.modules {
		state, err := m.buildModule(ctx, guildID, module, doc.Get(module.Name()))
		if err != nil {
			return nil, err
		}
		modules[module.Name()] = state
	}

	return &GuildState{
		GuildID:    guildID,
		Moderators: moderators,
		Modules:    modules,
		LoadedAt:   m.now(),
	}, nil
}

// buildModule runs one module's CreateState, converting panics into errors.
func (m *Manager) buildModule(ctx context.Context, guildID uint64, module Module, raw any) (state any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ModuleError{Module: module.Name(), Err: fmt.Errorf("%w: panic: %v", ErrModuleFailed, p)}
		}
	}()

	state, err = module.CreateState(ctx, guildID, raw)
	if err != nil {
		if !automod.IsConfigurationError(err) && !errors.Is(err, ErrModuleFailed) {
			err = fmt.Errorf("%w: %w", ErrModuleFailed, err)
		}
		return nil, &ModuleError{Module: module.Name(), Err: err}
	}

	return state, nil
}

// logFailure reports a failed reconfiguration. Anything other than a user mistake
// is escalated to the operator.
func (m *Manager) logFailure(guildID uint64, err error) {
	fields := []zap.Field{zap.Uint64("guild_id", guildID), zap.Error(err)}

	var modErr *ModuleError
	if errors.As(err, &modErr) {
		fields = append(fields, zap.String("module", modErr.Module))
	}

	switch {
	case errors.Is(err, ErrParse):
		reconfigureCount.WithLabelValues("parse_error").Inc()
		m.logger.Warn("Guild configuration could not be parsed, keeping previous state", fields...)
	case automod.IsConfigurationError(err):
		reconfigureCount.WithLabelValues("config_error").Inc()
		m.logger.Warn("Guild configuration is invalid, keeping previous state", fields...)
	default:
		reconfigureCount.WithLabelValues("internal_error").Inc()
		m.logger.Error("Guild reconfiguration failed unexpectedly, keeping previous state", fields...)
		m.operator.Error("Operator attention required: module failed to build guild state", fields...)
	}
}

// ModuleError identifies the module whose state could not be built.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

func parseModerators(doc *koanf.Koanf) (entity.List, error) {
	raw := doc.Get(ModeratorsKey)
	if raw == nil {
		return entity.List{}, nil
	}

	var values []string
	if err := mapstructure.Decode(raw, &values); err != nil {
		return nil, automod.NewConfigurationError(ModeratorsKey, "expected an array of entity references", err)
	}

	return entity.ParseList(values, ModeratorsKey)
}
