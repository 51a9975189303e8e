package passphrase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"brave-falcon-quiet-otter", true},
		{"a-b-c-d", true},
		{"brave-falcon-quiet", false},
		{"brave-falcon-quiet-otter-extra", false},
		{"Brave-falcon-quiet-otter", false},
		{"brave-falcon-quiet-0tter", false},
		{"brave_falcon_quiet_otter", false},
		{"brave--quiet-otter", false},
		{"", false},
		{strings.Repeat("a", 30) + "-" + strings.Repeat("b", 30) + "-" + strings.Repeat("c", 30) + "-" + strings.Repeat("d", 7), false},
		{strings.Repeat("a", 30) + "-" + strings.Repeat("b", 30) + "-" + strings.Repeat("c", 30) + "-" + strings.Repeat("d", 6), true},
	}

	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateAlternatesPools(t *testing.T) {
	c := Default()
	descriptors := toSet(defaultDescriptors)
	entities := toSet(defaultEntities)

	for i := 0; i < 50; i++ {
		p, err := c.Generate(DefaultWords)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !Valid(p) {
			t.Fatalf("generated passphrase %q is not valid", p)
		}

		words := strings.Split(p, "-")
		for j, w := range words {
			pool := descriptors
			if j%2 == 1 {
				pool = entities
			}
			if _, ok := pool[w]; !ok {
				t.Fatalf("word %d of %q (%q) not drawn from the expected pool", j, p, w)
			}
		}
	}
}

func TestGenerateWordCount(t *testing.T) {
	p, err := Default().Generate(6)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := len(strings.Split(p, "-")); got != 6 {
		t.Fatalf("word count=%d, want 6", got)
	}

	p, err = Default().Generate(0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := len(strings.Split(p, "-")); got != DefaultWords {
		t.Fatalf("word count=%d, want %d", got, DefaultWords)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	data := "descriptors: [calm]\nentities: [heron]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	p, err := c.Generate(4)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p != "calm-heron-calm-heron" {
		t.Fatalf("Generate=%q, want calm-heron-calm-heron", p)
	}
}

func TestParseRejectsBadLists(t *testing.T) {
	for _, data := range []string{
		"descriptors: [calm]\n",
		"entities: [heron]\n",
		"descriptors: [Calm]\nentities: [heron]\n",
		"descriptors: [calm]\nentities: [blue-heron]\n",
		"descriptors: [",
	} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", data)
		}
	}
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
