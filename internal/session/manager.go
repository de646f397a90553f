// Package session runs dialogue contexts for remote hosts. Every operation
// on dialogue state is executed by a single worker goroutine, so contexts
// and the shared memory are never touched concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/config"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/metrics"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/participant"
)

var (
	ErrQueueFull       = errors.New("session: queue full")
	ErrTimeout         = errors.New("session: operation timed out")
	ErrShutdown        = errors.New("session: manager is shut down")
	ErrNotFound        = errors.New("session: not found")
	ErrUnknownDialogue = errors.New("session: unknown dialogue")
)

const defaultOpTimeout = 2 * time.Second

type catalog map[string]*dialogue.Graph

// Manager owns the dialogue catalog and the live sessions.
type Manager struct {
	catalog atomic.Pointer[catalog]
	pool    *workerPool[*op, struct{}]
	conf    config.EngineConf
	logger  *slog.Logger
	closed  atomic.Bool
	stop    chan struct{}

	// Owned by the worker goroutine.
	sessions map[uuid.UUID]*session
	mem      *memory.Memory
	settings dialogue.Settings
	rng      *rand.Rand
}

type op struct {
	run  func()
	done chan struct{}
}

// metricsHooks feeds traversal events into the dlg_ collectors.
var metricsHooks = dialogue.Hooks{
	NodeEntered: func(kind dialogue.NodeKind) {
		metrics.NodesEntered.WithLabelValues(string(kind)).Inc()
	},
	SelectorPicked: func(mode dialogue.SelectorMode) {
		metrics.SelectorPicks.WithLabelValues(string(mode)).Inc()
	},
	Failed: func(err error) {
		metrics.ContextsFailed.WithLabelValues(failureReason(err)).Inc()
	},
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, dialogue.ErrStartFailure):
		return metrics.ReasonStart
	case errors.Is(err, dialogue.ErrStuckTraversal):
		return metrics.ReasonStuck
	case errors.Is(err, dialogue.ErrCycleAbort):
		return metrics.ReasonCycle
	case errors.Is(err, dialogue.ErrInvalidChoice):
		return metrics.ReasonInvalidChoice
	}
	return metrics.ReasonOther
}

// New creates a Manager serving graphs and starts its worker and the
// session sweep. A nil mem uses memory.Default(). Zero TTL fields in conf
// take the config defaults.
func New(ctx context.Context, graphs []*dialogue.Graph, conf config.EngineConf, settings dialogue.Settings, mem *memory.Memory) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.Default()
	}
	if conf.SessionIdleTTLSec <= 0 {
		conf.SessionIdleTTLSec = config.DefaultSessionIdleTTLSec
	}
	if conf.EndedSessionTTLSec <= 0 {
		conf.EndedSessionTTLSec = config.DefaultEndedSessionTTLSec
	}
	if conf.SweepIntervalSec <= 0 {
		conf.SweepIntervalSec = config.DefaultSweepIntervalSec
	}
	m := &Manager{
		conf:     conf,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		sessions: make(map[uuid.UUID]*session),
		mem:      mem,
		settings: settings,
		rng:      newRand(settings.RandomSeed),
	}
	if err := m.SetCatalog(graphs...); err != nil {
		return nil, err
	}

	depth := conf.QueueDepth
	if depth < 1 {
		depth = 1
	}
	m.pool = newWorkerPool[*op, struct{}](
		ctx,
		1,
		depth,
		func(_ context.Context, o *op) (struct{}, error) {
			o.run()
			close(o.done)
			return struct{}{}, nil
		},
	)
	go m.sweepLoop(ctx, time.Duration(conf.SweepIntervalSec)*time.Second)
	return m, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SetCatalog atomically replaces the served graphs. Running sessions keep
// the graph they started with.
func (m *Manager) SetCatalog(graphs ...*dialogue.Graph) error {
	c := make(catalog, len(graphs))
	for _, g := range graphs {
		if g == nil {
			return errors.New("session: nil dialogue graph")
		}
		if _, dup := c[g.Name()]; dup {
			return fmt.Errorf("session: duplicate dialogue name %q", g.Name())
		}
		c[g.Name()] = g
	}
	m.catalog.Store(&c)
	return nil
}

// Dialogues lists the catalog sorted by name.
func (m *Manager) Dialogues() []DialogueInfo {
	return m.dialogues(func(*dialogue.Graph) bool { return true })
}

// DialoguesFor lists the dialogues that involve the named participant.
func (m *Manager) DialoguesFor(name string) []DialogueInfo {
	return m.dialogues(func(g *dialogue.Graph) bool {
		return slices.Contains(g.ParticipantNames(), name)
	})
}

func (m *Manager) dialogues(keep func(*dialogue.Graph) bool) []DialogueInfo {
	c := *m.catalog.Load()
	out := make([]DialogueInfo, 0, len(c))
	for _, g := range c {
		if !keep(g) {
			continue
		}
		out = append(out, DialogueInfo{
			Name:         g.Name(),
			GUID:         g.GUID(),
			Nodes:        g.NodeCount(),
			Starts:       len(g.StartIndices()),
			Participants: g.ParticipantNames(),
		})
	}
	slices.SortFunc(out, func(a, b DialogueInfo) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// do runs fn on the worker and waits for it. Returns ErrQueueFull when the
// queue is full and ErrTimeout when fn does not finish in time; a timed out
// fn still runs to completion later.
func do[R any](ctx context.Context, m *Manager, name string, fn func() (R, error)) (R, error) {
	var (
		res  R
		err  error
		zero R
	)
	if m.closed.Load() {
		return zero, ErrShutdown
	}
	start := time.Now()
	o := &op{done: make(chan struct{})}
	o.run = func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("session: %s panicked: %v", name, r)
				m.logger.Error("session operation panicked", "op", name, "err", err)
			}
		}()
		res, err = fn()
	}

	if !m.pool.Submit(o) {
		metrics.OpsDropped.Inc()
		return zero, fmt.Errorf("%w (capacity %d)", ErrQueueFull, m.pool.QueueCap())
	}

	timeout := time.Duration(m.conf.OpTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	select {
	case <-o.done:
		metrics.OpDuration.WithLabelValues(name).Observe(float64(time.Since(start).Microseconds()) / 1000)
		return res, err
	case <-time.After(timeout):
		return zero, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *Manager) startOptions() []dialogue.StartOption {
	return []dialogue.StartOption{
		dialogue.WithMemory(m.mem),
		dialogue.WithSettings(m.settings),
		dialogue.WithLogger(m.logger),
		dialogue.WithRand(m.rng),
		dialogue.WithHooks(metricsHooks),
	}
}

// Start begins a conversation of dialogueName between ps.
func (m *Manager) Start(ctx context.Context, dialogueName string, ps []*participant.Values) (Snapshot, error) {
	g, ok := (*m.catalog.Load())[dialogueName]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownDialogue, dialogueName)
	}
	return do(ctx, m, "start", func() (Snapshot, error) {
		bound := make([]participant.Participant, len(ps))
		for i, p := range ps {
			bound[i] = p
		}
		c, err := dialogue.Start(g, bound, m.startOptions()...)
		if err != nil {
			return Snapshot{}, err
		}
		s := &session{ctx: c, participants: ps, touched: time.Now()}
		m.sessions[c.ID()] = s
		metrics.ContextsStarted.Inc()
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.logger.Info("session started", c.LogAttrs()...)
		return s.snapshot(), nil
	})
}

// Get returns the current state of session id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return m.step(ctx, "get", id, nil)
}

// Choose picks option index of session id. Invalid choices return
// dialogue.ErrInvalidChoice with the unchanged state. Traversal failures end
// the session and are reported in Snapshot.Error.
func (m *Manager) Choose(ctx context.Context, id uuid.UUID, index int) (Snapshot, error) {
	return m.step(ctx, "choose", id, func(c *dialogue.Context) error {
		return c.ChooseOption(index)
	})
}

// ChooseFromAll picks option index from the full option list.
func (m *Manager) ChooseFromAll(ctx context.Context, id uuid.UUID, index int) (Snapshot, error) {
	return m.step(ctx, "choose_from_all", id, func(c *dialogue.Context) error {
		return c.ChooseOptionFromAll(index)
	})
}

// Reevaluate recomputes the options of session id.
func (m *Manager) Reevaluate(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return m.step(ctx, "reevaluate", id, func(c *dialogue.Context) error {
		return c.ReevaluateOptions()
	})
}

func (m *Manager) step(ctx context.Context, name string, id uuid.UUID, fn func(*dialogue.Context) error) (Snapshot, error) {
	return do(ctx, m, name, func() (Snapshot, error) {
		s, ok := m.sessions[id]
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.touched = time.Now()
		if fn == nil {
			return s.snapshot(), nil
		}
		err := fn(s.ctx)
		if errors.Is(err, dialogue.ErrInvalidChoice) || errors.Is(err, dialogue.ErrDialogueEnded) {
			return s.snapshot(), err
		}
		if name != "reevaluate" {
			metrics.OptionsChosen.Inc()
		}
		return s.snapshot(), nil
	})
}

// End removes session id.
func (m *Manager) End(ctx context.Context, id uuid.UUID) error {
	_, err := do(ctx, m, "end", func() (struct{}, error) {
		s, ok := m.sessions[id]
		if !ok {
			return struct{}{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		delete(m.sessions, id)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.logger.Info("session ended", s.ctx.LogAttrs()...)
		return struct{}{}, nil
	})
	return err
}

// ClearMemory forgets every visit and selector pick.
func (m *Manager) ClearMemory(ctx context.Context) error {
	_, err := do(ctx, m, "clear_memory", func() (struct{}, error) {
		m.mem.Clear()
		m.logger.Info("dialogue memory cleared")
		return struct{}{}, nil
	})
	return err
}

// ExportMemory returns a copy of the memory contents.
func (m *Manager) ExportMemory(ctx context.Context) (map[uuid.UUID]memory.DialogueState, error) {
	return do(ctx, m, "export_memory", func() (map[uuid.UUID]memory.DialogueState, error) {
		return m.mem.Export(), nil
	})
}

// ApplySettings switches the settings used by sessions started from now on.
func (m *Manager) ApplySettings(ctx context.Context, s dialogue.Settings, clearMemory bool) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := do(ctx, m, "apply_settings", func() (struct{}, error) {
		if s.RandomSeed != m.settings.RandomSeed {
			m.rng = newRand(s.RandomSeed)
		}
		m.settings = s
		if clearMemory {
			m.mem.Clear()
		}
		m.logger.Info("dialogue settings applied",
			"no_satisfied_child", string(s.NoSatisfiedChild), "memory_cleared", clearMemory)
		return struct{}{}, nil
	})
	return err
}

// Sweep removes sessions that ended more than the ended TTL before now and
// sessions left untouched for longer than the idle TTL. It returns the
// number removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int, error) {
	idle := time.Duration(m.conf.SessionIdleTTLSec) * time.Second
	ended := time.Duration(m.conf.EndedSessionTTLSec) * time.Second
	return do(ctx, m, "sweep", func() (int, error) {
		removed := 0
		for id, s := range m.sessions {
			age := now.Sub(s.touched)
			reason := ""
			switch {
			case s.ctx.Ended() && age > ended:
				reason = metrics.ExpiredEnded
			case age > idle:
				reason = metrics.ExpiredIdle
			default:
				continue
			}
			delete(m.sessions, id)
			removed++
			metrics.SessionsExpired.WithLabelValues(reason).Inc()
			m.logger.Info("session expired", append(s.ctx.LogAttrs(), "reason", reason, "age", age.Round(time.Second).String())...)
		}
		if removed > 0 {
			metrics.ActiveSessions.Set(float64(len(m.sessions)))
		}
		return removed, nil
	})
}

func (m *Manager) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx, time.Now()); err != nil && !errors.Is(err, ErrShutdown) {
				m.logger.Warn("session sweep failed", "err", err)
			}
		}
	}
}

// QueueUtilization returns queue used / capacity (0 to 1).
func (m *Manager) QueueUtilization() float64 {
	if m.pool.QueueCap() == 0 {
		return 0
	}
	return float64(m.pool.QueueLen()) / float64(m.pool.QueueCap())
}

// Shutdown rejects new operations and waits for queued ones to finish.
func (m *Manager) Shutdown() {
	if m.closed.CompareAndSwap(false, true) {
		close(m.stop)
	}
	m.pool.Drain()
}
