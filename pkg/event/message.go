// Package event defines the typed payloads that flow through the agent
// runtime: messages exchanged with the LLM, and the append-only event log
// that records everything that happened in a conversation.
package event

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind discriminates ContentPart variants.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// ContentPart is a tagged union: exactly one of Text or ImageURLs is
// meaningful, selected by Kind. Constructed via TextPart/ImagePart below;
// the zero value has an empty Kind, which is neither PartText nor PartImage.
type ContentPart struct {
	Kind      PartKind
	Text      string
	ImageURLs []string

	// CacheBreakpoint marks this part as the end of a prompt-cache-eligible
	// prefix, for providers that support prompt caching.
	CacheBreakpoint bool
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: PartText, Text: text}
}

// ImagePart builds an image content part from one or more image URLs
// (data: URLs or remote URLs, provider-dependent).
func ImagePart(urls ...string) ContentPart {
	return ContentPart{Kind: PartImage, ImageURLs: append([]string(nil), urls...)}
}

// ToolCall is an LLM-issued request to invoke a tool, attached to an
// assistant Message whether it arrived via native function-calling or was
// parsed out of prompt-mocked grammar.
type ToolCall struct {
	ID        string
	ToolName  string
	Arguments string // raw JSON, validated later against the tool's schema
}

// Flags captures per-message feature toggles that the gateway consults when
// building a provider request.
type Flags struct {
	VisionEnabled         bool
	CacheEnabled          bool
	FunctionCallingEnabled bool
}

// Message is immutable once constructed: all fields are set by the
// constructors below and never mutated afterward. Callers that need a
// modified copy should build a new Message.
type Message struct {
	role          Role
	content       []ContentPart
	toolCallID    string // set on RoleTool messages: which call this answers
	toolCalls     []ToolCall
	reasoningText string
	flags         Flags
}

// NewMessage constructs an immutable Message. content is copied so later
// mutation of the caller's slice cannot affect this Message.
func NewMessage(role Role, content []ContentPart, opts ...MessageOption) Message {
	m := Message{
		role:    role,
		content: append([]ContentPart(nil), content...),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// MessageOption configures optional Message fields at construction time.
type MessageOption func(*Message)

func WithToolCallID(id string) MessageOption {
	return func(m *Message) { m.toolCallID = id }
}

func WithToolCalls(calls ...ToolCall) MessageOption {
	return func(m *Message) { m.toolCalls = append([]ToolCall(nil), calls...) }
}

func WithReasoningText(text string) MessageOption {
	return func(m *Message) { m.reasoningText = text }
}

func WithFlags(f Flags) MessageOption {
	return func(m *Message) { m.flags = f }
}

func (m Message) Role() Role                 { return m.role }
func (m Message) ToolCallID() string          { return m.toolCallID }
func (m Message) ReasoningText() string       { return m.reasoningText }
func (m Message) Flags() Flags                { return m.flags }
func (m Message) HasToolCalls() bool          { return len(m.toolCalls) > 0 }

// Content returns a defensive copy of the message's content parts.
func (m Message) Content() []ContentPart {
	return append([]ContentPart(nil), m.content...)
}

// ToolCalls returns a defensive copy of the message's tool calls.
func (m Message) ToolCalls() []ToolCall {
	return append([]ToolCall(nil), m.toolCalls...)
}

// Text concatenates all text parts, the common case for plain messages.
func (m Message) Text() string {
	var out string
	for _, p := range m.content {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}
