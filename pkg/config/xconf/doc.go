// Package xconf 提供基于 koanf 的配置加载。
//
// 支持 YAML/JSON 两种格式，可从文件或字节数据加载。
// 从文件加载的配置支持 Reload 以及基于 fsnotify 的变更监视。
//
//	cfg, err := xconf.New("/etc/xgate/xgatectl.yaml")
//	if err != nil {
//	    return err
//	}
//	var limiter LimiterConfig
//	if err := cfg.Unmarshal("limiter", &limiter); err != nil {
//	    return err
//	}
//
// 结构体字段映射默认使用 koanf 标签。
package xconf
