package game

import "time"

// Tuning holds the gameplay constants. All of them can be overridden from the
// environment (see internal/config).
type Tuning struct {
	Speed            float64       // initial px per tick
	SpeedStep        float64       // speed added per level
	SpawnInterval    time.Duration // initial time between spawn attempts
	SpawnStep        time.Duration // interval removed per level
	MinSpawnInterval time.Duration // interval floor
	MaxBubbles       int           // spawn cap
	MinDistance      int           // min horizontal gap between live bubbles, percent
	MinX, MaxX       int           // spawn range, percent (inclusive)
	SpawnY           float64       // starting y, bottom of the field
	OffFieldY        float64       // bubbles with y below this are removed
	MaxLevel         int
	LevelStep        int // level n ends once score reaches n*LevelStep
	MultiLetterLevel int // first level using word labels; 0 disables
}

// DefaultTuning returns the stock gameplay constants.
func DefaultTuning() Tuning {
	return Tuning{
		Speed:            2,
		SpeedStep:        0.5,
		SpawnInterval:    time.Second,
		SpawnStep:        100 * time.Millisecond,
		MinSpawnInterval: 300 * time.Millisecond,
		MaxBubbles:       12,
		MinDistance:      10,
		MinX:             5,
		MaxX:             95,
		SpawnY:           600,
		OffFieldY:        0,
		MaxLevel:         10,
		LevelStep:        10,
		MultiLetterLevel: 5,
	}
}

// sanitize fills in values that would otherwise stall or break the game.
func (t Tuning) sanitize() Tuning {
	d := DefaultTuning()
	if t.MinSpawnInterval <= 0 {
		t.MinSpawnInterval = d.MinSpawnInterval
	}
	if t.SpawnInterval < t.MinSpawnInterval {
		t.SpawnInterval = t.MinSpawnInterval
	}
	if t.MaxX < t.MinX {
		t.MinX, t.MaxX = t.MaxX, t.MinX
	}
	if t.MaxLevel < 1 {
		t.MaxLevel = 1
	}
	if t.LevelStep < 1 {
		t.LevelStep = d.LevelStep
	}
	if t.MinDistance < 0 {
		t.MinDistance = 0
	}
	return t
}
