package xpolicy

// Headers 请求头，按名称精确匹配。
type Headers map[string]string

// Get 返回 name 对应的值。不存在与空值可以区分。
func (h Headers) Get(name string) (string, bool) {
	v, ok := h[name]
	return v, ok
}

// Application 调用方应用。
type Application struct {
	OrganizationID string `json:"organizationId"`
	ApplicationID  string `json:"applicationId"`
	Version        string `json:"version,omitempty"`
}

// Service 被调用的服务。
type Service struct {
	OrganizationID string `json:"organizationId"`
	ServiceID      string `json:"serviceId"`
	Version        string `json:"version,omitempty"`
}

// Contract 应用与服务之间的订阅关系，由 API Key 解析得到。
type Contract struct {
	Application Application `json:"application"`
	Service     Service     `json:"service"`
}

// Request 进入网关的服务请求。
//
// 策略评估期间 Request 可能在其他 goroutine 上被读取，策略不得修改它。
type Request struct {
	APIKey   string   `json:"apiKey"`
	Headers  Headers  `json:"headers,omitempty"`
	Contract Contract `json:"contract"`
}
