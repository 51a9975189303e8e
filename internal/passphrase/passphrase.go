// Package passphrase generates and validates the human-memorable room keys
// shared between two peers, e.g. "brave-falcon-quiet-otter".
package passphrase

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWords is the number of words in a generated passphrase.
	DefaultWords = 4

	maxLength = 100
)

var validPattern = regexp.MustCompile(`^[a-z]+-[a-z]+-[a-z]+-[a-z]+$`)

// Valid reports whether s has the word-word-word-word shape accepted as a
// room key.
func Valid(s string) bool {
	return len(s) < maxLength && validPattern.MatchString(s)
}

// Codec draws passphrases from two word pools.
type Codec struct {
	descriptors []string
	entities    []string
}

// Default returns a codec over the built-in word pools.
func Default() *Codec {
	return &Codec{
		descriptors: defaultDescriptors,
		entities:    defaultEntities,
	}
}

// Generate returns words random words joined by hyphens, alternating between
// the descriptor and entity pools.
func (c *Codec) Generate(words int) (string, error) {
	if words <= 0 {
		words = DefaultWords
	}

	parts := make([]string, 0, words)
	for i := 0; i < words; i++ {
		pool := c.descriptors
		if i%2 == 1 {
			pool = c.entities
		}

		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
		if err != nil {
			return "", fmt.Errorf("draw word: %w", err)
		}
		parts = append(parts, pool[n.Int64()])
	}
	return strings.Join(parts, "-"), nil
}

// WordList is the YAML layout of a replacement word list file.
type WordList struct {
	Descriptors []string `yaml:"descriptors"`
	Entities    []string `yaml:"entities"`
}

// LoadFile reads a YAML word list file.
func LoadFile(path string) (*Codec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from operator-provided CLI flag
	if err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return Parse(data)
}

// Parse builds a codec from YAML word list data. Every word must be
// lowercase alphabetic so generated passphrases pass Valid.
func Parse(data []byte) (*Codec, error) {
	var list WordList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse word list: %w", err)
	}

	if len(list.Descriptors) == 0 || len(list.Entities) == 0 {
		return nil, errors.New("word list needs both descriptors and entities")
	}
	for _, pool := range [][]string{list.Descriptors, list.Entities} {
		for _, w := range pool {
			if !isWord(w) {
				return nil, fmt.Errorf("invalid word %q", w)
			}
		}
	}

	return &Codec{
		descriptors: list.Descriptors,
		entities:    list.Entities,
	}, nil
}

func isWord(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
