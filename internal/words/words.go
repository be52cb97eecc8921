// internal/words/words.go
//
// Label pools for spawned bubbles.
//
// Responsibilities:
//   - Provide the single-letter alphabet (A–Z) used at low levels.
//   - Load the multi-letter word pool used at higher levels, either from a
//     file (LABELS_FILE) or from the embedded default list.
//   - Normalize player input the same way labels are stored (trimmed, upper).
//
// Constraints:
//   • Words are 2–4 ASCII letters.
//   • Lists are normalized to uppercase and de-duplicated.

package words

import (
	"bufio"
	_ "embed"
	"errors"
	"os"
	"strings"
	"sync"
)

//go:embed default_labels.txt
var embeddedLabels string

const (
	minWordLen = 2
	maxWordLen = 4
)

// ErrEmptyPool is returned when a label file contains no usable words.
var ErrEmptyPool = errors.New("words: label pool is empty")

// Pool holds the labels a spawner can draw from.
type Pool struct {
	letters []string
	words   []string
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the pool built from the embedded word list.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = &Pool{letters: alphabet(), words: normalizeLines(embeddedLabels)}
	})
	return defaultPool
}

// Load builds a pool from path, one word per line.
// An empty path yields the embedded default.
func Load(path string) (*Pool, error) {
	if path == "" {
		return Default(), nil
	}
	list, err := readWordFile(path)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{letters: alphabet(), words: list}, nil
}

// NewPool builds a pool from an explicit word list (used by tests and callers
// that generate their own vocabulary).
func NewPool(list []string) *Pool {
	return &Pool{letters: alphabet(), words: normalizeLines(strings.Join(list, "\n"))}
}

// Letters returns the single-letter labels A–Z.
func (p *Pool) Letters() []string { return p.letters }

// Words returns the multi-letter labels.
func (p *Pool) Words() []string { return p.words }

// Normalize trims and uppercases a label or player input.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func alphabet() []string {
	out := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

// readWordFile loads one word per line, skipping blanks and # comments.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return normalizeLines(strings.Join(lines, "\n")), nil
}

// normalizeLines keeps valid, unique words in input order.
func normalizeLines(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(s, "\n") {
		w := Normalize(line)
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		if len(w) < minWordLen || len(w) > maxWordLen || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// isAlpha reports whether s is all uppercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
