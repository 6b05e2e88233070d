package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xgate/pkg/gateway/xpolicy"
)

// requestFlags 描述一个服务请求的命令行参数。
func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "api-key", Aliases: []string{"k"}, Usage: "请求的 API Key", Required: true},
		&cli.StringFlag{Name: "app-org", Usage: "调用方应用所属组织"},
		&cli.StringFlag{Name: "app-id", Usage: "调用方应用 ID"},
		&cli.StringFlag{Name: "app-version", Usage: "调用方应用版本"},
		&cli.StringFlag{Name: "svc-org", Usage: "服务所属组织"},
		&cli.StringFlag{Name: "svc-id", Usage: "服务 ID"},
		&cli.StringFlag{Name: "svc-version", Usage: "服务版本"},
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "请求头，格式 Name=Value，可重复"},
	}
}

func requestFromFlags(cmd *cli.Command) (*xpolicy.Request, error) {
	headers, err := parseHeaders(cmd.StringSlice("header"))
	if err != nil {
		return nil, err
	}
	return &xpolicy.Request{
		APIKey:  cmd.String("api-key"),
		Headers: headers,
		Contract: xpolicy.Contract{
			Application: xpolicy.Application{
				OrganizationID: cmd.String("app-org"),
				ApplicationID:  cmd.String("app-id"),
				Version:        cmd.String("app-version"),
			},
			Service: xpolicy.Service{
				OrganizationID: cmd.String("svc-org"),
				ServiceID:      cmd.String("svc-id"),
				Version:        cmd.String("svc-version"),
			},
		},
	}, nil
}

// parseHeaders 解析 Name=Value 形式的请求头，值可以为空。
func parseHeaders(pairs []string) (xpolicy.Headers, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(xpolicy.Headers, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &usageError{msg: fmt.Sprintf("invalid header %q, want Name=Value", pair)}
		}
		headers[name] = value
	}
	return headers, nil
}
