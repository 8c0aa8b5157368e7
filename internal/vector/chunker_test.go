package vector_test

import (
	"strings"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

func TestChunkerShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	c, err := vector.NewChunker("gpt-4o-mini", 100, 20)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	text := "quarterly revenue grew by twelve percent"
	chunks := c.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("short text should be returned untouched, got %q", chunks[0])
	}
}

func TestChunkerSplitsLongText(t *testing.T) {
	t.Parallel()

	const size, overlap = 40, 10
	c, err := vector.NewChunker("gpt-4o-mini", size, overlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	text := strings.TrimSpace(strings.Repeat("alpha bravo charlie delta echo ", 60))
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if n := c.CountTokens(chunk); n > size {
			t.Errorf("chunk %d has %d tokens, want <= %d", i, n, size)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}

	// Overlapping windows must cover every token, so the decoded chunks
	// joined together contain at least the full text's words.
	var joined strings.Builder
	for _, chunk := range chunks {
		joined.WriteString(chunk)
		joined.WriteByte(' ')
	}
	for _, word := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		if !strings.Contains(joined.String(), word) {
			t.Errorf("chunks lost word %q", word)
		}
	}
}

func TestChunkerConsecutiveChunksOverlap(t *testing.T) {
	t.Parallel()

	c, err := vector.NewChunker("gpt-4o-mini", 20, 8)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	words := []string{
		"one", "two", "three", "four", "five", "six", "seven", "eight",
		"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
		"sixteen", "seventeen", "eighteen", "nineteen", "twenty",
		"apple", "banana", "cherry", "damson", "elder", "fig", "grape",
		"haw", "imbe", "jujube", "kiwi", "lemon", "mango", "nectar",
	}
	chunks := c.Split(strings.Join(words, " "))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// The tail of each chunk reappears at the head of the next.
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		tail := prevWords[len(prevWords)-1]
		if !strings.Contains(chunks[i], tail) {
			t.Errorf("chunk %d does not repeat %q from the previous chunk", i, tail)
		}
	}
}

func TestChunkerEmptyText(t *testing.T) {
	t.Parallel()

	c, err := vector.NewChunker("gpt-4o-mini", 0, 0)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	if chunks := c.Split("   \n\t  "); chunks != nil {
		t.Errorf("expected nil for blank text, got %v", chunks)
	}
}

func TestChunkerRejectsOverlapNotBelowSize(t *testing.T) {
	t.Parallel()

	if _, err := vector.NewChunker("gpt-4o-mini", 50, 50); err == nil {
		t.Error("expected error when overlap equals size")
	}
	if _, err := vector.NewChunker("gpt-4o-mini", 50, 80); err == nil {
		t.Error("expected error when overlap exceeds size")
	}
}

func TestChunkerUnknownModelFallsBack(t *testing.T) {
	t.Parallel()

	c, err := vector.NewChunker("some-future-model", 50, 10)
	if err != nil {
		t.Fatalf("unknown model should fall back to a default encoding: %v", err)
	}
	if n := c.CountTokens("hello world"); n == 0 {
		t.Error("fallback encoding produced zero tokens")
	}
}
