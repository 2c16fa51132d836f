package utils

import (
	"ipapi-client/internal/logger"
	"ipapi-client/pkg/ipapi"
)

// PlanFromEnv：IPAPI_KEY 非空时使用专业档，否则免费档
func PlanFromEnv() ipapi.Plan {
	if key := Getenv("IPAPI_KEY", ""); key != "" {
		return ipapi.Pro(key)
	}
	return ipapi.Free()
}

// ServiceOptionsFromEnv：IPAPI_TIMEOUT 缺省 15s；IPAPI_BASE_URL 仅在对接自建代理或测试时设置
func ServiceOptionsFromEnv() []ipapi.Option {
	opts := []ipapi.Option{ipapi.WithTimeout(GetenvDuration("IPAPI_TIMEOUT", ipapi.DefaultTimeout))}
	if base := Getenv("IPAPI_BASE_URL", ""); base != "" {
		opts = append(opts, ipapi.WithBaseURL(base))
	}
	if ua := Getenv("IPAPI_USER_AGENT", ""); ua != "" {
		opts = append(opts, ipapi.WithUserAgent(ua))
	}
	return opts
}

// NewService：以给定方案与环境变量选项构造查询服务，extra 在环境变量之后应用
func NewService(plan ipapi.Plan, extra ...ipapi.Option) *ipapi.Service {
	s := ipapi.New(plan, append(ServiceOptionsFromEnv(), extra...)...)
	logger.L().Debug("ipapi_env", "plan", plan.String(), "timeout", s.Timeout().String())
	return s
}

// NewServiceFromEnv：方案与选项均取自环境变量
func NewServiceFromEnv(extra ...ipapi.Option) *ipapi.Service {
	return NewService(PlanFromEnv(), extra...)
}
