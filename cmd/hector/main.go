// Command hector is the direct-execution CLI: it loads a single LLMConfig,
// builds its llm.Gateway and tool set, and drives a conversation.Conversation
// in-process, either for one prompt (run) or an interactive loop (chat).
// Grounded in teacher's cmd/hector chat_direct.go REPL, restyled around
// spec.md's conversation status machine instead of a2a.Task streaming.
//
// Usage:
//
//	hector run --config hector.yaml "summarize this repo"
//	hector chat --config hector.yaml
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/hector-core/pkg/condenser"
	"github.com/kadirpekel/hector-core/pkg/config"
	"github.com/kadirpekel/hector-core/pkg/conversation"
	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/eventstore"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/logging"
	"github.com/kadirpekel/hector-core/pkg/mcp"
	"github.com/kadirpekel/hector-core/pkg/secret"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// commonFlags is shared between run and chat: the service config plus the
// knobs a single local conversation needs.
type commonFlags struct {
	Config             string `short:"c" type:"path" help:"Path to an LLMConfig YAML file."`
	APIKey             string `help:"API key, overrides the config file and OPENAI_API_KEY." env:"OPENAI_API_KEY"`
	BaseURL            string `help:"OpenAI-compatible base URL override (e.g. a local Ollama endpoint)."`
	Model              string `help:"Model name override."`
	Workspace          string `short:"w" type:"path" default:"." help:"Workspace directory handed to tools."`
	MCPURL             string `help:"HTTP(S) URL of an MCP server to load tools from."`
	ConfirmationPolicy string `default:"never" help:"\"never\" or \"always\"."`
	MaxIterations      int    `default:"0" help:"Iteration cap for one Run call; 0 uses the engine default."`
	LogLevel           string `default:"warn" help:"Log level: debug, info, warn, error."`
}

// RunCmd executes a single prompt to completion and prints the assistant's
// reply.
type RunCmd struct {
	commonFlags
	Prompt string `arg:"" help:"The message to send."`
}

// ChatCmd starts an interactive REPL against one conversation.
type ChatCmd struct {
	commonFlags
}

var cli struct {
	Run  RunCmd  `cmd:"" help:"Send one message and print the reply."`
	Chat ChatCmd `cmd:"" help:"Start an interactive chat session."`
}

func main() {
	_ = config.LoadEnvFiles()

	ctx := kong.Parse(&cli,
		kong.Name("hector"),
		kong.Description("hector-core direct-execution agent CLI"),
		kong.UsageOnError(),
	)

	ctx.FatalIfErrorf(ctx.Run())
}

// Run executes the run command: one prompt, one reply.
func (c *RunCmd) Run() error {
	conv, cleanup, err := buildConversation(c.commonFlags)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	msg := event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(c.Prompt)})
	if err := conv.Append(ctx, event.NewMessageEvent(event.SourceUser, msg)); err != nil {
		return fmt.Errorf("hector: append message: %w", err)
	}

	before := len(conv.Events())
	if err := conv.Run(ctx); err != nil {
		return fmt.Errorf("hector: run: %w", err)
	}
	printNewAssistantMessages(conv.Events()[before:])
	return nil
}

// Run executes the chat command: an interactive REPL over one conversation.
func (c *ChatCmd) Run() error {
	conv, cleanup, err := buildConversation(c.commonFlags)
	if err != nil {
		return err
	}
	defer func() { cleanup() }()

	fmt.Println("hector chat - type /quit to exit, /clear to reset history")
	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("you> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "/quit", "/exit":
			return nil
		case "/clear":
			cleanup()
			conv, cleanup, err = buildConversation(c.commonFlags)
			if err != nil {
				return err
			}
			continue
		}

		msg := event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(line)})
		if err := conv.Append(ctx, event.NewMessageEvent(event.SourceUser, msg)); err != nil {
			fmt.Fprintf(os.Stderr, "append message: %v\n", err)
			continue
		}

		before := len(conv.Events())
		if err := conv.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			continue
		}
		printNewAssistantMessages(conv.Events()[before:])
	}
}

func printNewAssistantMessages(events []event.Event) {
	for _, ev := range events {
		msg, ok := ev.Message()
		if !ok || msg.Role() != event.RoleAssistant {
			continue
		}
		if text := msg.Text(); text != "" {
			fmt.Printf("assistant> %s\n", text)
		}
	}
}

// buildConversation loads the service config, wires its gateway and tools,
// and returns a fresh idle Conversation plus a cleanup func that closes any
// MCP connections it opened.
func buildConversation(f commonFlags) (*conversation.Conversation, func(), error) {
	level, err := logging.ParseLevel(f.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("hector: %w", err)
	}
	logging.Init(level, os.Stderr, "simple")

	svc, err := loadServiceConfig(f)
	if err != nil {
		return nil, nil, err
	}

	gw := llm.New(llm.Config{
		Provider: llm.NewOpenAIProvider(svc.APIKey.Reveal(), svc.BaseURL, svc.Model),
		Cost: llm.CostModel{
			InputCostPerToken:  svc.InputCostPerToken,
			OutputCostPerToken: svc.OutputCostPerToken,
		},
	})

	var tools []tool.Definition
	var closers []func() error
	if f.MCPURL != "" {
		mcpCfg := mcp.Config{Name: "cli", URL: f.MCPURL}
		client, err := mcp.New(mcpCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("hector: mcp: %w", err)
		}
		defs, err := client.Definitions(context.Background())
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("hector: mcp: %w", err)
		}
		tools = defs
		closers = append(closers, client.Close)
	}

	policy, err := parsePolicy(f.ConfirmationPolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("hector: %w", err)
	}

	conv, err := conversation.New(conversation.Config{
		ID:            "local",
		WorkspacePath: f.Workspace,
		Gateway:       gw,
		Condenser:     condenser.NoOpCondenser{},
		Tools:         tools,
		Confirmation:  policy,
		MaxIterations: f.MaxIterations,
		Store:         eventstore.NewMemoryStore(),
	})
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, fmt.Errorf("hector: %w", err)
	}

	cleanup := func() {
		conv.Close()
		for _, c := range closers {
			c()
		}
	}
	return conv, cleanup, nil
}

func parsePolicy(name string) (conversation.Policy, error) {
	switch name {
	case "", "never":
		return conversation.NeverConfirm{}, nil
	case "always":
		return conversation.AlwaysConfirm{}, nil
	default:
		return nil, fmt.Errorf("confirmation-policy must be \"never\" or \"always\"")
	}
}

// loadServiceConfig loads an LLMConfig from f.Config if given, otherwise
// builds one directly from flags/environment (zero-config mode).
func loadServiceConfig(f commonFlags) (config.LLMConfig, error) {
	if f.Config != "" {
		loader, err := config.NewLoader(config.LoaderOptions{Type: config.SourceFile, Path: f.Config})
		if err != nil {
			return config.LLMConfig{}, fmt.Errorf("hector: %w", err)
		}
		cfg, err := loader.Load()
		if err != nil {
			return config.LLMConfig{}, fmt.Errorf("hector: %w", err)
		}
		applyOverrides(&cfg, f)
		return cfg, nil
	}

	cfg := config.LLMConfig{ServiceID: "cli"}
	applyOverrides(&cfg, f)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return config.LLMConfig{}, fmt.Errorf("hector: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.LLMConfig, f commonFlags) {
	if f.APIKey != "" {
		cfg.APIKey = secret.New(f.APIKey)
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.Model != "" {
		cfg.Model = f.Model
	}
}
