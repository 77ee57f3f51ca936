package condenser

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// TokenCounter counts tokens for a model, grounded on teacher's
// pkg/utils.TokenCounter (tiktoken-go, with a cl100k_base fallback for
// models tiktoken doesn't recognize directly and a process-wide encoding
// cache since building an encoding is comparatively expensive).
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter builds a counter for model, falling back to cl100k_base
// when the model isn't recognized by tiktoken.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, ok := encodingCache[model]
	cacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// CountMessages counts tokens across messages, including the per-message
// role-framing overhead OpenAI's own counting guide accounts for.
func (c *TokenCounter) CountMessages(messages []event.Message) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const tokensPerMessage = 3
	total := 3 // reply is always primed with <|start|>assistant<|message|>
	for _, m := range messages {
		total += tokensPerMessage
		total += len(c.encoding.Encode(string(m.Role()), nil, nil))
		total += len(c.encoding.Encode(m.Text(), nil, nil))
	}
	return total
}
