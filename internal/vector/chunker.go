package vector

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/tokens"
)

const (
	// DefaultChunkTokens keeps chunks small enough that several fit a
	// completion prompt alongside history.
	DefaultChunkTokens = 800

	// DefaultChunkOverlap repeats trailing context at the head of the
	// next chunk so sentences split at a boundary stay findable.
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping windows measured in
// tokenizer tokens rather than bytes, so chunk sizes line up with the
// embedding model's own accounting.
type Chunker struct {
	enc     *tiktoken.Tiktoken
	size    int
	overlap int
}

// NewChunker builds a chunker using model's tokenizer. Zero size or
// overlap select the defaults; overlap must stay below size or the
// window would never advance.
func NewChunker(model string, size, overlap int) (*Chunker, error) {
	if size <= 0 {
		size = DefaultChunkTokens
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	enc, err := tokens.Encoding(model)
	if err != nil {
		return nil, err
	}
	return &Chunker{enc: enc, size: size, overlap: overlap}, nil
}

// Split breaks text into chunks of at most size tokens, each sharing
// overlap tokens with its predecessor. Text that fits one window is
// returned untouched.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	toks := c.enc.Encode(text, nil, nil)
	if len(toks) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(toks)+step-1)/step)
	for start := 0; start < len(toks); start += step {
		end := start + c.size
		if end > len(toks) {
			end = len(toks)
		}
		chunk := strings.TrimSpace(c.enc.Decode(toks[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(toks) {
			break
		}
	}
	return chunks
}

// CountTokens reports text's length under the chunker's tokenizer.
func (c *Chunker) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
