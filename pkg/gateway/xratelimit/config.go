package xratelimit

import (
	"fmt"
	"strings"

	"github.com/omeyang/xgate/pkg/config/xconf"
)

// Granularity 计数粒度。
//
// 文本解析不区分大小写，未知取值原样保留并按 Service 粒度处理。
type Granularity string

const (
	GranularityUser        Granularity = "User"
	GranularityApplication Granularity = "Application"
	GranularityService     Granularity = "Service"
)

var granularities = []Granularity{GranularityUser, GranularityApplication, GranularityService}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (g *Granularity) UnmarshalText(text []byte) error {
	*g = Granularity(canonical(string(text), granularities))
	return nil
}

// Period 配置的限流周期。
//
// 文本解析不区分大小写，未知取值原样保留并映射为月。
type Period string

const (
	PeriodSecond Period = "Second"
	PeriodMinute Period = "Minute"
	PeriodHour   Period = "Hour"
	PeriodDay    Period = "Day"
	PeriodMonth  Period = "Month"
	PeriodYear   Period = "Year"
)

var periods = []Period{PeriodSecond, PeriodMinute, PeriodHour, PeriodDay, PeriodMonth, PeriodYear}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (p *Period) UnmarshalText(text []byte) error {
	*p = Period(canonical(string(text), periods))
	return nil
}

func canonical[T ~string](s string, known []T) string {
	s = strings.TrimSpace(s)
	for _, k := range known {
		if strings.EqualFold(s, string(k)) {
			return string(k)
		}
	}
	return s
}

// Config 限流策略配置。
type Config struct {
	// Limit 每个窗口允许的请求数。
	Limit int64 `json:"limit" yaml:"limit" koanf:"limit"`

	Granularity Granularity `json:"granularity" yaml:"granularity" koanf:"granularity"`

	Period Period `json:"period" yaml:"period" koanf:"period"`

	// UserHeader 标识用户的请求头，Granularity 为 User 时必填。
	UserHeader string `json:"userHeader,omitempty" yaml:"userHeader" koanf:"userHeader"`
}

// Validate 校验配置。
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Granularity == GranularityUser && c.UserHeader == "" {
		return fmt.Errorf("%w: userHeader is required for User granularity", ErrInvalidConfig)
	}
	return nil
}

func (c Config) normalize() Config {
	c.Granularity = Granularity(canonical(string(c.Granularity), granularities))
	c.Period = Period(canonical(string(c.Period), periods))
	return c
}

// ParseConfig 解析并校验 JSON 或 YAML 格式的策略配置。
func ParseConfig(data []byte, format xconf.Format) (Config, error) {
	cfg, err := xconf.NewFromBytes(data, format)
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(cfg, "")
}

// LoadConfig 从已加载的配置中读取 path 下的策略配置并校验，path 为空时读取整个配置。
func LoadConfig(cfg *xconf.Config, path string) (Config, error) {
	var c Config
	if err := cfg.Unmarshal(path, &c); err != nil {
		return Config{}, err
	}
	c = c.normalize()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
