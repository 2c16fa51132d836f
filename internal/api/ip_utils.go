package api

import (
	"net"
	"net/http"
	"strings"
)

// 按优先级读取的反向代理头
var proxyHeaders = []string{"x-forwarded-for", "cf-connecting-ip", "x-real-ip", "x-client-ip"}

// 文档注释：获取访问者 IP
// 背景：/ip 未携带 ip 参数时以访问者 IP 作为查询目标（代理自身出口 IP 对调用方没有意义）；同时用于布隆去重键。
// 约束：信任常见代理头；部署于不可信代理链路时需在网关层过滤这些头。
func getVisitorIP(r *http.Request) string {
	h := r.Header
	for _, name := range proxyHeaders {
		if x := h.Get(name); x != "" {
			return strings.TrimSpace(strings.Split(x, ",")[0])
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if y := forwardedFor(x); y != "" {
			return y
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// forwardedFor：取 RFC 7239 Forwarded 头首个 for= 的值，去掉引号与 IPv6 方括号
func forwardedFor(x string) string {
	i := strings.Index(strings.ToLower(x), "for=")
	if i < 0 {
		return ""
	}
	y := x[i+4:]
	if p := strings.IndexAny(y, ";,"); p >= 0 {
		y = y[:p]
	}
	y = strings.Trim(y, "\" ")
	if strings.HasPrefix(y, "[") {
		if p := strings.IndexByte(y, ']'); p > 0 {
			return y[1:p]
		}
	}
	return y
}
