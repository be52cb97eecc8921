package game

import (
	"errors"
	"math/rand/v2"

	"github.com/wsrjk/bblgm/internal/words"
)

// Reasons a spawn attempt is dropped. Callers treat all of them as "skip this tick".
var (
	ErrFieldFull = errors.New("spawn: field full")
	ErrNoLabel   = errors.New("spawn: no free label")
	ErrTooClose  = errors.New("spawn: too close to a live bubble")
)

// Rand is the randomness a Spawner needs. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Spawner picks labels and positions for new bubbles.
type Spawner struct {
	t    Tuning
	pool *words.Pool
	rng  Rand
}

// NewSpawner returns a spawner drawing from pool. A nil rng uses the
// math/rand/v2 global source; a nil pool uses words.Default().
func NewSpawner(t Tuning, pool *words.Pool, rng Rand) *Spawner {
	if rng == nil {
		rng = globalRand{}
	}
	if pool == nil {
		pool = words.Default()
	}
	return &Spawner{t: t, pool: pool, rng: rng}
}

// Attempt proposes one new bubble against the live set. There is no retry: a
// position that lands too close to a live bubble drops the attempt.
func (s *Spawner) Attempt(live []Bubble, level int) (label string, x int, err error) {
	if len(live) >= s.t.MaxBubbles {
		return "", 0, ErrFieldFull
	}
	free := s.freeLabels(live, level)
	if len(free) == 0 {
		return "", 0, ErrNoLabel
	}
	label = free[s.rng.IntN(len(free))]
	x = s.t.MinX + s.rng.IntN(s.t.MaxX-s.t.MinX+1)
	if !fits(live, x, s.t.MinDistance) {
		return "", 0, ErrTooClose
	}
	return label, x, nil
}

// labelsFor returns the label pool for a level.
func (s *Spawner) labelsFor(level int) []string {
	if s.t.MultiLetterLevel > 0 && level >= s.t.MultiLetterLevel && len(s.pool.Words()) > 0 {
		return s.pool.Words()
	}
	return s.pool.Letters()
}

// freeLabels drops labels already carried by a live bubble.
func (s *Spawner) freeLabels(live []Bubble, level int) []string {
	all := s.labelsFor(level)
	if len(live) == 0 {
		return all
	}
	used := make(map[string]struct{}, len(live))
	for _, b := range live {
		used[b.Letter] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, l := range all {
		if _, ok := used[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// fits reports whether x keeps at least minDist from every live bubble.
func fits(live []Bubble, x, minDist int) bool {
	for _, b := range live {
		d := b.X - x
		if d < 0 {
			d = -d
		}
		if d < minDist {
			return false
		}
	}
	return true
}
