// internal/game/engine.go
//
// Server-authoritative game state for the bubble game.
// Responsibilities:
//   - Own the single mutable GameState behind one mutex.
//   - Advance: move bubbles up, drop the ones off the field, level up,
//     and (in poll mode) run the spawn tick.
//   - Hit: remove every bubble matching a label and score one point each.
//   - Optional timer-driven spawner that takes the same lock.
//
// Every poll is a tick: Advance is not a read.
package game

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/wsrjk/bblgm/internal/words"
)

const (
	maxNameLen    = 24
	anonymousName = "anonymous"
)

// SpawnDriver selects what triggers spawn attempts.
type SpawnDriver int

const (
	// SpawnOnPoll folds the spawn tick into Advance, using elapsed time since
	// the last attempt. Only request handlers mutate state.
	SpawnOnPoll SpawnDriver = iota
	// SpawnOnTimer leaves spawning to RunSpawner.
	SpawnOnTimer
)

// Engine is the state container shared by all request handlers.
type Engine struct {
	mu      sync.Mutex
	tuning  Tuning
	driver  SpawnDriver
	now     func() time.Time
	rng     Rand
	pool    *words.Pool
	spawner *Spawner
	st      state
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithRand replaces the spawn randomness source.
func WithRand(r Rand) Option { return func(e *Engine) { e.rng = r } }

// WithPool sets the label pool.
func WithPool(p *words.Pool) Option { return func(e *Engine) { e.pool = p } }

// WithSpawnDriver selects poll- or timer-driven spawning.
func WithSpawnDriver(d SpawnDriver) Option { return func(e *Engine) { e.driver = d } }

// New constructs an engine at level 1 with an empty field.
func New(t Tuning, opts ...Option) *Engine {
	t = t.sanitize()
	e := &Engine{tuning: t, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	e.spawner = NewSpawner(t, e.pool, e.rng)
	e.st = state{
		bubbles:       []Bubble{},
		level:         1,
		speed:         t.Speed,
		spawnInterval: t.SpawnInterval,
		nextID:        1,
	}
	return e
}

// Advance runs one tick and returns the resulting state.
func (e *Engine) Advance() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.moveLocked()
	e.levelUpLocked()
	if e.driver == SpawnOnPoll {
		now := e.now()
		if e.st.lastSpawn.IsZero() || now.Sub(e.st.lastSpawn) >= e.st.spawnInterval {
			e.attemptSpawnLocked()
			e.st.lastSpawn = now
		}
	}
	return e.snapshotLocked()
}

// moveLocked lifts every bubble by the current speed and drops those that
// crossed the top of the field.
func (e *Engine) moveLocked() {
	kept := e.st.bubbles[:0]
	for _, b := range e.st.bubbles {
		b.Y -= e.st.speed
		if b.Y < e.tuning.OffFieldY {
			continue
		}
		kept = append(kept, b)
	}
	e.st.bubbles = kept
}

// levelUpLocked advances at most one level per call.
func (e *Engine) levelUpLocked() {
	if e.st.level >= e.tuning.MaxLevel || e.st.score < e.st.level*e.tuning.LevelStep {
		return
	}
	e.st.level++
	e.st.speed += e.tuning.SpeedStep
	e.st.spawnInterval -= e.tuning.SpawnStep
	if e.st.spawnInterval < e.tuning.MinSpawnInterval {
		e.st.spawnInterval = e.tuning.MinSpawnInterval
	}
	log.Debug().
		Int("level", e.st.level).
		Float64("speed", e.st.speed).
		Dur("spawnInterval", e.st.spawnInterval).
		Msg("level up")
}

func (e *Engine) attemptSpawnLocked() {
	label, x, err := e.spawner.Attempt(e.st.bubbles, e.st.level)
	if err != nil {
		log.Debug().Err(err).Int("live", len(e.st.bubbles)).Msg("spawn skipped")
		return
	}
	e.insertLocked(label, x)
}

func (e *Engine) insertLocked(label string, x int) Bubble {
	b := Bubble{ID: e.st.nextID, Letter: label, X: x, Y: e.tuning.SpawnY}
	e.st.nextID++
	e.st.bubbles = append(e.st.bubbles, b)
	return b
}

// Spawn inserts a bubble labeled label at x, subject to the spawn cap and the
// minimum horizontal distance. It reports false when the insert was refused.
func (e *Engine) Spawn(label string, x int) (Bubble, bool) {
	label = words.Normalize(label)
	if label == "" {
		return Bubble{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.st.bubbles) >= e.tuning.MaxBubbles || !fits(e.st.bubbles, x, e.tuning.MinDistance) {
		return Bubble{}, false
	}
	return e.insertLocked(label, x), true
}

// Hit removes every live bubble whose label equals label (case-insensitive)
// and adds one point per removal. Empty input matches nothing.
func (e *Engine) Hit(label string) HitResult {
	want := words.Normalize(label)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	if want != "" {
		kept := e.st.bubbles[:0]
		for _, b := range e.st.bubbles {
			if b.Letter == want {
				removed++
				continue
			}
			kept = append(kept, b)
		}
		e.st.bubbles = kept
	}
	e.st.score += removed

	newHigh := false
	if removed > 0 && (e.st.highScore == nil || e.st.score > e.st.highScore.Score) {
		name := e.st.playerName
		if name == "" {
			name = anonymousName
		}
		e.st.highScore = &HighScore{Name: name, Score: e.st.score}
		newHigh = true
	}

	return HitResult{
		Snapshot:     e.snapshotLocked(),
		Correct:      removed > 0,
		Removed:      removed,
		NewHighScore: newHigh,
	}
}

// SetPlayerName sets the display name used for new high scores. The name is
// trimmed and cut to 24 runes; an empty name leaves the current one. It
// returns the name in effect afterwards.
func (e *Engine) SetPlayerName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != "" {
		e.st.playerName = name
	}
	return e.st.playerName
}

// PlayerName returns the current display name ("" if unset).
func (e *Engine) PlayerName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.playerName
}

// Snapshot returns the current state without ticking.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// SpawnInterval returns the current spawn interval.
func (e *Engine) SpawnInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.spawnInterval
}

// Speed returns the current per-tick displacement.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.speed
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Bubbles: make([]Bubble, len(e.st.bubbles)),
		Score:   e.st.score,
		Level:   e.st.level,
	}
	copy(s.Bubbles, e.st.bubbles)
	if e.st.highScore != nil {
		hs := *e.st.highScore
		s.HighScore = &hs
	}
	return s
}

// RunSpawner attempts a spawn every spawn interval until ctx is done. The
// timer is re-armed with the interval in effect after each attempt, so level
// changes take effect on the next period.
func (e *Engine) RunSpawner(ctx context.Context) {
	timer := time.NewTimer(e.SpawnInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			e.mu.Lock()
			e.attemptSpawnLocked()
			e.st.lastSpawn = e.now()
			next := e.st.spawnInterval
			e.mu.Unlock()
			timer.Reset(next)
		}
	}
}
