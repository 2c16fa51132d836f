package middleware

import (
	"net"
	"net/http"
	"strings"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/utils"
)

// 文档注释：代理访问白名单（IP/CIDR）
// 背景：代理使用专业档 key 时，只允许受信网段调用，避免额度被外部消耗。
// 约束：来源 IP 以 RemoteAddr 为准；realIPHeader 非空时取该头首个有效 IP。支持 IPv4/IPv6。
type Allowlist struct {
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowlist：entries 为单 IP 或 CIDR，无法解析的条目被忽略
func NewAllowlist(entries []string, realIPHeader string) *Allowlist {
	a := &Allowlist{ips: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if _, n, err := net.ParseCIDR(e); err == nil {
				a.cidrs = append(a.cidrs, n)
			}
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			a.ips[ip.String()] = struct{}{}
		}
	}
	return a
}

func (a *Allowlist) allowed(ip net.IP) bool {
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (a *Allowlist) sourceIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			if ip := net.ParseIP(strings.TrimSpace(strings.Split(raw, ",")[0])); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

// Wrap：不在白名单内的请求返回 403
func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.sourceIP(r)
		if ip == nil || !a.allowed(ip) {
			logger.L().Debug("allowlist_block", "remote", r.RemoteAddr)
			w.Header().Set("content-type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AllowlistFromEnv：PROXY_ALLOW 为逗号分隔的 IP/CIDR，为空时不启用（返回 nil）；
// PROXY_ALLOW_LOCAL=true 追加回环地址；PROXY_REAL_IP_HEADER 指定上游真实 IP 头
func AllowlistFromEnv() *Allowlist {
	raw := utils.Getenv("PROXY_ALLOW", "")
	var entries []string
	if raw != "" {
		entries = strings.Split(raw, ",")
	}
	if utils.GetenvBool("PROXY_ALLOW_LOCAL", false) {
		entries = append(entries, "127.0.0.1", "::1")
	}
	if len(entries) == 0 {
		return nil
	}
	a := NewAllowlist(entries, utils.Getenv("PROXY_REAL_IP_HEADER", ""))
	logger.L().Info("allowlist_enabled", "ips", len(a.ips), "cidrs", len(a.cidrs))
	return a
}
