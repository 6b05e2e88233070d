package xratelimit

import (
	"strings"

	"github.com/omeyang/xgate/pkg/gateway/xpolicy"
)

const (
	sep        = "||"
	tagUser    = "USER"
	tagApp     = "APP"
	tagService = "SERVICE"
)

// BucketID 推导请求的计数桶标识。
//
// Granularity 为 User 且请求缺少 cfg.UserHeader 时返回 ("", false)；
// 未知粒度按 Service 处理。结果只取决于 req 与 cfg。
func BucketID(req *xpolicy.Request, cfg Config) (string, bool) {
	if req == nil {
		return "", false
	}
	app := req.Contract.Application
	switch cfg.Granularity {
	case GranularityUser:
		user, ok := req.Headers.Get(cfg.UserHeader)
		if !ok {
			return "", false
		}
		return join(req.APIKey, tagUser, app.OrganizationID, app.ApplicationID, user), true
	case GranularityApplication:
		return join(req.APIKey, tagApp, app.OrganizationID, app.ApplicationID), true
	default:
		svc := req.Contract.Service
		return join(req.APIKey, tagService, svc.OrganizationID, svc.ServiceID), true
	}
}

func join(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p)
	}
	return b.String()
}
