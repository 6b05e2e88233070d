package xpolicy

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// 限流策略消息键。
const (
	MsgNoUser       = "RateLimitingPolicy.NoUser"
	MsgRateExceeded = "RateLimitingPolicy.RateExceeded"
)

var defaultMessages = map[language.Tag]map[string]string{
	language.English: {
		MsgNoUser:       "Could not identify a user for rate limiting.",
		MsgRateExceeded: "Rate limit exceeded.",
	},
	language.Chinese: {
		MsgNoUser:       "无法识别用于限流的用户。",
		MsgRateExceeded: "超出调用频率限制。",
	},
}

// Messages 本地化消息目录。第一个语言为兜底语言。
//
// 并发安全：Set 与 Format 可以同时调用。
type Messages struct {
	mu      sync.RWMutex
	builder *catalog.Builder
	matcher language.Matcher
	tags    []language.Tag
	texts   map[string]map[language.Tag]string // key -> 语言 -> 原文
}

// NewMessages 创建包含默认消息（en、zh）的目录。
func NewMessages() *Messages {
	m := &Messages{
		builder: catalog.NewBuilder(catalog.Fallback(language.English)),
		texts:   make(map[string]map[language.Tag]string),
	}
	m.tags = []language.Tag{language.English, language.Chinese}
	for _, tag := range m.tags {
		for key, msg := range defaultMessages[tag] {
			m.add(tag, key, msg)
		}
	}
	m.matcher = language.NewMatcher(m.tags)
	return m
}

// Set 注册或覆盖一条消息，新语言会加入匹配候选。
// msg 在 Format 带参数调用时按 fmt 动词解释，无参数时原样输出。
func (m *Messages) Set(tag language.Tag, key, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := false
	for _, t := range m.tags {
		if t == tag {
			known = true
			break
		}
	}
	if !known {
		m.tags = append(m.tags, tag)
		m.matcher = language.NewMatcher(m.tags)
	}
	m.add(tag, key, msg)
}

func (m *Messages) add(tag language.Tag, key, msg string) {
	// SetString 仅在 msg 语法错误时失败，此处 msg 为纯文本
	_ = m.builder.SetString(tag, key, msg)
	if m.texts[key] == nil {
		m.texts[key] = make(map[language.Tag]string)
	}
	m.texts[key][tag] = msg
}

// Format 按 tag 最接近的语言渲染 key，未知 key 渲染为 "!key!"。
func (m *Messages) Format(tag language.Tag, key string, args ...any) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	texts, ok := m.texts[key]
	if !ok {
		return "!" + key + "!"
	}
	_, idx, _ := m.matcher.Match(tag)
	matched := m.tags[idx]
	if len(args) == 0 {
		if msg, ok := texts[matched]; ok {
			return msg
		}
		for _, t := range m.tags {
			if msg, ok := texts[t]; ok {
				return msg
			}
		}
	}
	p := message.NewPrinter(matched, message.Catalog(m.builder))
	return p.Sprintf(key, args...)
}
