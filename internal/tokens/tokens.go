// Package tokens provides model-aware token counting for chunking and
// prompt budgeting.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers models tiktoken has no mapping for, including
// non-OpenAI chat models whose budgets we still need to approximate.
const fallbackEncoding = "cl100k_base"

var (
	encMu    sync.Mutex
	encCache = make(map[string]*tiktoken.Tiktoken)
)

// Encoding returns the tokenizer for model. Loading an encoding parses
// its vocabulary, so results are cached per model.
func Encoding(model string) (*tiktoken.Tiktoken, error) {
	encMu.Lock()
	defer encMu.Unlock()

	if enc, ok := encCache[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s encoding: %w", fallbackEncoding, err)
		}
	}
	encCache[model] = enc
	return enc, nil
}

// Count reports how many tokens text encodes to for model. If no
// tokenizer can be loaded it estimates four characters per token, which
// overcounts slightly for English prose and keeps budgets conservative.
func Count(text, model string) int {
	enc, err := Encoding(model)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
