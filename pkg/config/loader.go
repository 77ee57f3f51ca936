package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/consul"
	"github.com/knadh/koanf/providers/etcd"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SourceType selects where the Loader reads a service's LLMConfig from.
type SourceType string

const (
	SourceFile      SourceType = "file"
	SourceConsul    SourceType = "consul"
	SourceEtcd      SourceType = "etcd"
	SourceZookeeper SourceType = "zookeeper"
)

// LoaderOptions configures one Load call, mirroring teacher's
// LoaderOptions (Type/Path/Endpoints/Watch/OnChange).
type LoaderOptions struct {
	Type      SourceType
	Path      string
	Endpoints []string

	// Watch starts a background goroutine that calls OnChange whenever
	// the source's provider reports a change (consul/etcd polling,
	// zookeeper watch). Ignored for SourceFile, which has no watch
	// support in any of the providers this package wires.
	Watch    bool
	OnChange func(LLMConfig) error
}

// Loader loads one LLMConfig from a layered source: the provider's raw
// bytes, parsed as YAML, with ${VAR} environment expansion applied before
// a strict, unknown-key-rejecting decode.
type Loader struct {
	k        *koanf.Koanf
	opts     LoaderOptions
	stopChan chan struct{}
}

// NewLoader validates opts and builds a Loader.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Type == "" {
		opts.Type = SourceFile
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	if len(opts.Endpoints) == 0 {
		switch opts.Type {
		case SourceConsul:
			opts.Endpoints = []string{"localhost:8500"}
		case SourceEtcd:
			opts.Endpoints = []string{"localhost:2379"}
		case SourceZookeeper:
			opts.Endpoints = []string{"localhost:2181"}
		}
	}

	return &Loader{k: koanf.New("."), opts: opts, stopChan: make(chan struct{})}, nil
}

// Load reads, expands, and strictly decodes the configured source into an
// LLMConfig with defaults applied and validated. If opts.Watch is set, a
// background goroutine keeps watching and invokes OnChange on every
// subsequent change.
func (l *Loader) Load() (LLMConfig, error) {
	provider, err := l.buildProvider()
	if err != nil {
		return LLMConfig{}, err
	}

	if err := l.k.Load(provider, l.parserFor(l.opts.Type)); err != nil {
		return LLMConfig{}, fmt.Errorf("config: load from %s: %w", l.opts.Type, err)
	}

	cfg, err := l.expandAndDecode()
	if err != nil {
		return LLMConfig{}, err
	}

	if l.opts.Watch {
		go l.watch(provider)
	}
	return cfg, nil
}

// parserFor returns the YAML parser for sources that hand back raw bytes
// (file, zookeeper); consul/etcd's koanf providers decode their own
// key/value pairs and need no parser, matching teacher's koanf_loader.go.
func (l *Loader) parserFor(t SourceType) koanf.Parser {
	if t == SourceFile || t == SourceZookeeper {
		return yaml.Parser()
	}
	return nil
}

func (l *Loader) buildProvider() (koanf.Provider, error) {
	switch l.opts.Type {
	case SourceFile:
		return file.Provider(l.opts.Path), nil

	case SourceConsul:
		cc := consulapi.DefaultConfig()
		cc.Address = l.opts.Endpoints[0]
		return consul.Provider(consul.Config{Cfg: cc, Key: l.opts.Path}), nil

	case SourceEtcd:
		return etcd.Provider(etcd.Config{
			Endpoints:   l.opts.Endpoints,
			DialTimeout: 5 * time.Second,
			Key:         l.opts.Path,
		}), nil

	case SourceZookeeper:
		return newZookeeperProvider(l.opts.Endpoints, l.opts.Path)

	default:
		return nil, fmt.Errorf("config: unsupported source type %q", l.opts.Type)
	}
}

func (l *Loader) expandAndDecode() (LLMConfig, error) {
	expanded := expandEnvVarsInData(l.k.Raw())
	expandedMap, ok := expanded.(map[string]any)
	if !ok {
		return LLMConfig{}, fmt.Errorf("config: unexpected shape after env expansion")
	}

	expandedKoanf := koanf.New(".")
	if err := expandedKoanf.Load(confmap.Provider(expandedMap, "."), nil); err != nil {
		return LLMConfig{}, fmt.Errorf("config: reload expanded config: %w", err)
	}

	cfg, err := decodeStrict(expandedKoanf.Raw())
	if err != nil {
		return LLMConfig{}, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

// watcher is implemented by providers that support change notification
// (consul/etcd poll internally; zookeeperProvider blocks on GetW).
type watcher interface {
	Watch(callback func(event any, err error)) error
}

func (l *Loader) watch(provider koanf.Provider) {
	w, ok := provider.(watcher)
	if !ok {
		slog.Warn("config: provider does not support watching", "type", l.opts.Type)
		return
	}

	err := w.Watch(func(event any, err error) {
		select {
		case <-l.stopChan:
			return
		default:
		}
		if err != nil {
			slog.Warn("config: watch error", "error", err)
			return
		}
		if reloadErr := l.k.Load(provider, l.parserFor(l.opts.Type)); reloadErr != nil {
			slog.Warn("config: failed to reload after watch event", "error", reloadErr)
			return
		}
		cfg, decodeErr := l.expandAndDecode()
		if decodeErr != nil {
			slog.Warn("config: reloaded config is invalid", "error", decodeErr)
			return
		}
		if l.opts.OnChange != nil {
			if err := l.opts.OnChange(cfg); err != nil {
				slog.Warn("config: OnChange callback failed", "error", err)
			}
		}
	})
	if err != nil {
		slog.Warn("config: watch stopped", "error", err)
	}
}

// Stop ends a background watch goroutine started by Load.
func (l *Loader) Stop() {
	close(l.stopChan)
}

// ParseSourceType parses a source type name, accepting "zk" as a
// zookeeper alias the way teacher's ParseConfigType does.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file":
		return SourceFile, nil
	case "consul":
		return SourceConsul, nil
	case "etcd":
		return SourceEtcd, nil
	case "zookeeper", "zk":
		return SourceZookeeper, nil
	default:
		return "", fmt.Errorf("config: invalid source type %q (valid: file, consul, etcd, zookeeper)", s)
	}
}
