package llm

import (
	"errors"
	"strings"
)

// ErrUnsupportedOption is returned when a caller requests a feature the
// gateway does not support - currently only streaming (spec §4.1:
// "Streaming is explicitly unsupported and MUST fail with
// UnsupportedOption if requested").
var ErrUnsupportedOption = errors.New("llm: unsupported option")

// ErrNoResponse means the provider returned zero choices/completions - a
// retriable condition per spec §4.1.
var ErrNoResponse = errors.New("llm: provider returned no response")

// ErrAuth means the provider rejected credentials - non-retriable.
var ErrAuth = errors.New("llm: authentication failed")

// ContextWindowExceededError means the prompt plus requested output
// exceeds the model's context window - non-retriable (the caller should
// condense history and try again, not retry the same request).
type ContextWindowExceededError struct {
	Detail string
}

func (e *ContextWindowExceededError) Error() string {
	return "llm: context window exceeded: " + e.Detail
}

// ProviderError wraps a transport/provider-level failure, tagging whether
// the gateway's retry policy should retry it.
type ProviderError struct {
	StatusCode  int
	Detail      string
	Recoverable bool
}

func (e *ProviderError) Error() string {
	return "llm: provider error: " + e.Detail
}

// knownContextWindowPatterns are substrings seen in provider error
// messages that, lacking a typed exception, indicate the context window
// was exceeded. Ported from the pattern list in
// original_source/openhands/sdk/llm/llm.go
// is_context_window_exceeded_exception, which LiteLLM's inconsistent
// exception wrapping makes necessary.
var knownContextWindowPatterns = []string{
	"contextwindowexceedederror",
	"prompt is too long",
	"input length and `max_tokens` exceed context limit",
	"please reduce the length of either one",
	"the request exceeds the available context size",
	"context length exceeded",
}

// IsContextWindowExceeded reports whether err indicates the model's
// context window was exceeded, either because it already carries the
// typed ContextWindowExceededError or because its message matches a known
// provider pattern.
func IsContextWindowExceeded(err error) bool {
	if err == nil {
		return false
	}
	var cwe *ContextWindowExceededError
	if errors.As(err, &cwe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range knownContextWindowPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsRetriable classifies errors per spec §4.1's retry policy: transient
// network error, rate limit, service unavailable, timeout, internal
// server error, and "zero choices" are retriable; bad request,
// context-window-exceeded, and auth errors are not.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoResponse) {
		return true
	}
	if errors.Is(err, ErrAuth) {
		return false
	}
	if IsContextWindowExceeded(err) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	// Unclassified errors (e.g. plain net.Error timeouts) are treated as
	// transient and thus retriable, matching LLM_RETRY_EXCEPTIONS' broad
	// inclusion of connection/timeout/server errors in the original.
	return true
}
