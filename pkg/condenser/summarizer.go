package condenser

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/llm"
)

// Summarizer turns a run of messages into prose that preserves their key
// facts. The condenser calls it once per chunk and, for long histories,
// a second time to merge chunk summaries into one.
type Summarizer interface {
	Summarize(ctx context.Context, messages []event.Message) (string, error)
}

// GatewaySummarizer is the default Summarizer, backed by an LLM Gateway
// call. Grounded directly in teacher's pkg/agent/summarization.go
// SummarizationService: same prompts, same chunk-then-combine strategy
// for histories longer than chunkSize messages.
type GatewaySummarizer struct {
	gateway   *llm.Gateway
	chunkSize int
}

// NewGatewaySummarizer builds a summarizer around gw. chunkSize <= 0
// defaults to 20, matching teacher's SummarizeConversationChunked
// default.
func NewGatewaySummarizer(gw *llm.Gateway, chunkSize int) *GatewaySummarizer {
	if chunkSize <= 0 {
		chunkSize = 20
	}
	return &GatewaySummarizer{gateway: gw, chunkSize: chunkSize}
}

const summarizationSystemPrompt = `You are a conversation summarization assistant. Your task is to create a concise, accurate summary of the conversation below.

REQUIREMENTS:
1. Preserve ALL key facts, decisions, and action items
2. Maintain the logical flow and context
3. Include important user preferences or requirements mentioned
4. Keep technical details that might be referenced later
5. Note any unresolved questions or pending tasks
6. Use clear, direct language
7. Aim for 30-50% of original length while keeping all essential information

Format your summary as a coherent narrative, not bullet points unless the conversation naturally requires it.`

const combineSummariesSystemPrompt = `You are a conversation summarization assistant. You will receive multiple summaries of different parts of a long conversation. Combine them into one coherent, comprehensive summary.

Preserve ALL key information from all summaries while eliminating redundancy.`

// Summarize produces one summary for messages, chunking and then
// combining when there are more than chunkSize messages.
func (s *GatewaySummarizer) Summarize(ctx context.Context, messages []event.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	if len(messages) <= s.chunkSize {
		return s.summarizeChunk(ctx, messages)
	}

	var summaries []string
	for i := 0; i < len(messages); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(messages) {
			end = len(messages)
		}
		summary, err := s.summarizeChunk(ctx, messages[i:end])
		if err != nil {
			return "", fmt.Errorf("condenser: summarize chunk %d: %w", i/s.chunkSize, err)
		}
		summaries = append(summaries, summary)
	}
	return s.combineSummaries(ctx, summaries)
}

func (s *GatewaySummarizer) summarizeChunk(ctx context.Context, messages []event.Message) (string, error) {
	userPrompt := fmt.Sprintf("Please summarize this conversation:\n\n%s\nProvide a comprehensive summary that preserves all important context:",
		formatConversation(messages))
	return s.generate(ctx, summarizationSystemPrompt, userPrompt)
}

func (s *GatewaySummarizer) combineSummaries(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 1 {
		return summaries[0], nil
	}
	userPrompt := fmt.Sprintf("Please combine these conversation summaries into one comprehensive summary:\n\n%s\n\nProvide a unified summary:",
		strings.Join(summaries, "\n\n---\n\n"))
	return s.generate(ctx, combineSummariesSystemPrompt, userPrompt)
}

func (s *GatewaySummarizer) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []event.Message{
		event.NewMessage(event.RoleSystem, []event.ContentPart{event.TextPart(systemPrompt)}),
		event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(userPrompt)}),
	}
	resp, err := s.gateway.Complete(ctx, messages, nil, llm.Options{})
	if err != nil {
		return "", fmt.Errorf("condenser: generate summary: %w", err)
	}
	summary := strings.TrimSpace(resp.Message.Text())
	if summary == "" {
		return "", fmt.Errorf("condenser: empty summary generated")
	}
	return summary, nil
}

func formatConversation(messages []event.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		role := string(m.Role())
		if len(role) > 0 {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", role, m.Text())
	}
	return sb.String()
}
