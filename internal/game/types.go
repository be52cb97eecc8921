// internal/game/types.go
//
// Core type definitions for the bubble game engine.
// Defines:
//   - Bubble: a labeled entity drifting up the field.
//   - HighScore: best score seen by this process.
//   - Snapshot / HitResult: copies of state handed to callers.

package game

import "time"

// Bubble is a single live entity. X is a percentage of the field width (0–100);
// Y is in pixels and decreases toward the top of the field.
type Bubble struct {
	ID     int64   `json:"id"`
	Letter string  `json:"letter"`
	X      int     `json:"x"`
	Y      float64 `json:"y"`
}

// HighScore is the best score reached so far and the player who reached it.
type HighScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Snapshot is a deep copy of the observable game state.
type Snapshot struct {
	Bubbles   []Bubble   `json:"bubbles"`
	Score     int        `json:"score"`
	Level     int        `json:"level"`
	HighScore *HighScore `json:"high_score,omitempty"`
}

// HitResult is returned by Engine.Hit.
type HitResult struct {
	Snapshot
	Correct      bool // at least one bubble removed
	Removed      int  // number of bubbles removed (== score delta)
	NewHighScore bool // HighScore was replaced by this hit
}

// state is the single mutable record owned by an Engine. Guarded by Engine.mu.
type state struct {
	bubbles       []Bubble
	score         int
	level         int
	speed         float64
	spawnInterval time.Duration
	playerName    string
	highScore     *HighScore
	nextID        int64
	lastSpawn     time.Time
}
