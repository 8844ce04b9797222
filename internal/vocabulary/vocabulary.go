// Package vocabulary supplies the ordered list of English words a game is
// played with: the built-in default list or a comma-separated list uploaded
// by the player.
package vocabulary

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/samber/lo"
)

// Delimiter separates entries in an external vocabulary list.
const Delimiter = ","

// maxListBytes bounds how much of an uploaded list is read.
const maxListBytes = 1 << 20

// ErrEmptyList is reported (and logged) when an external source yields no
// usable entries.
var ErrEmptyList = errors.New("vocabulary: list contains no words")

var defaultWords = []string{
	"house", "car", "book", "water", "food", "family", "friend", "work", "school", "time",
	"day", "night", "morning", "afternoon", "evening", "week", "month", "year", "today", "tomorrow",
	"yesterday", "love", "happy", "sad", "angry", "beautiful", "good", "bad", "big", "small",
	"hot", "cold", "new", "old", "fast", "slow", "easy", "difficult", "important", "interesting",
}

// Default returns a fresh copy of the built-in word list in its canonical
// order.
func Default() []string {
	return append([]string(nil), defaultWords...)
}

// Parse splits text on [Delimiter], trims each entry and drops empty ones.
// Newlines are treated as delimiters too so one-word-per-line files work.
func Parse(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", Delimiter)
	text = strings.ReplaceAll(text, "\n", Delimiter)
	words := lo.Map(strings.Split(text, Delimiter), func(w string, _ int) string {
		return strings.TrimSpace(w)
	})
	return lo.Compact(words)
}

// Source selects where a word list comes from. The zero value is the
// default list.
type Source struct {
	// Reader, when non-nil, supplies an external list.
	Reader io.Reader

	// Name labels the source in logs (file name, "upload", ...).
	Name string
}

// FromReader returns a Source reading an external list from r.
func FromReader(name string, r io.Reader) Source {
	return Source{Reader: r, Name: name}
}

// Load returns the words of src. It never fails: any read error or an
// empty external list falls back to [Default] and is logged.
func Load(src Source) []string {
	if src.Reader == nil {
		return Default()
	}
	words, err := read(src.Reader)
	if err != nil {
		slog.Warn("vocabulary: falling back to default list", "source", src.Name, "err", err)
		return Default()
	}
	return words
}

// LoadFile is [Load] for a file on disk. An empty path selects the default
// list.
func LoadFile(path string) []string {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("vocabulary: falling back to default list", "source", path, "err", err)
		return Default()
	}
	defer f.Close()
	return Load(FromReader(path, f))
}

func read(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("vocabulary: read list: %w", err)
	}
	words := Parse(string(data))
	if len(words) == 0 {
		return nil, ErrEmptyList
	}
	return words, nil
}

// Shuffle returns a uniformly random permutation of a copy of words using
// the Fisher–Yates algorithm. The input is not modified. A nil rnd uses the
// package-global source.
func Shuffle(words []string, rnd *rand.Rand) []string {
	out := append([]string(nil), words...)
	intN := rand.IntN
	if rnd != nil {
		intN = rnd.IntN
	}
	for i := len(out) - 1; i > 0; i-- {
		j := intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
