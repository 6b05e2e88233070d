package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat 解析格式名称，接受 yaml/yml/json，大小写不敏感。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Option 配置加载选项。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

// WithDelim 设置键路径分隔符，默认 "."。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// Config 是并发安全的配置快照。Reload 原子替换内部 koanf 实例。
type Config struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string
	format Format
	opts   options
}

// New 从文件加载配置，格式由扩展名决定（.yaml/.yml/.json）。
func New(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, err
	}

	c := newConfig(format, opts)
	c.path = path
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromBytes 从字节数据加载配置。空数据得到空配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	c := newConfig(format, opts)
	k, err := c.parse(data)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

func newConfig(format Format, opts []Option) *Config {
	o := options{delim: ".", tag: "koanf"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Config{format: format, opts: o, k: koanf.New(o.delim)}
}

func (c *Config) parse(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(c.opts.delim)
	if len(data) == 0 {
		return k, nil
	}
	var parser koanf.Parser = yaml.Parser()
	if c.format == FormatJSON {
		parser = json.Parser()
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}

// Reload 重新读取配置文件。解析失败时保留旧配置。
func (c *Config) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := c.parse(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
func (c *Config) Unmarshal(path string, target any) error {
	c.mu.RLock()
	k := c.k
	c.mu.RUnlock()

	if err := k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: c.opts.tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Exists 报告 path 是否存在。
func (c *Config) Exists(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.Exists(path)
}

// Path 返回配置文件路径，从字节创建时为空。
func (c *Config) Path() string { return c.path }

// Format 返回配置格式。
func (c *Config) Format() Format { return c.format }
