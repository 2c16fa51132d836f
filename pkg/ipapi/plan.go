package ipapi

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tier：计费档位
type Tier int

const (
	TierFree Tier = iota
	TierPro
)

func (t Tier) String() string {
	if t == TierPro {
		return "pro"
	}
	return "free"
}

const (
	freeBaseURL = "http://ip-api.com"
	proBaseURL  = "https://pro.ip-api.com"

	pathSingle = "json"
	pathBatch  = "batch"

	keyParam = "key"
)

// 文档注释：计费方案
// 背景：免费档走 HTTP 且无凭据；专业档走 HTTPS、使用 pro 子域，并在每个请求上携带 key 参数。
// 约束：值类型，构造后不可变；仅能通过 Free/Pro 构造。
type Plan struct {
	tier Tier
	key  string
}

// Free：免费档方案
func Free() Plan { return Plan{tier: TierFree} }

// Pro：携带 API 凭据的专业档方案
func Pro(key string) Plan { return Plan{tier: TierPro, key: strings.TrimSpace(key)} }

func (p Plan) Tier() Tier { return p.tier }

// Key：专业档凭据；免费档为空
func (p Plan) Key() string {
	if p.tier != TierPro {
		return ""
	}
	return p.key
}

// BaseURL：方案对应的协议与主机
func (p Plan) BaseURL() string {
	if p.tier == TierPro {
		return proBaseURL
	}
	return freeBaseURL
}

func (p Plan) String() string { return p.tier.String() }

// 文档注释：解析请求端点
// 参数：base 为空时使用方案默认地址；path 为 json 或 batch；query 仅对 json 生效，作为转义后的路径段追加。
// 返回：带 key 参数（专业档）的完整 URL。
// 异常：基础地址无法解析为带协议与主机的 URL 时返回 ErrInvalidURL；查询主体无法构成合法路径段时返回 ErrMalformedURL。
func (p Plan) resolve(base, path, query string) (*url.URL, error) {
	if base == "" {
		base = p.BaseURL()
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, base)
	}
	if query != "" {
		if !validSegment(query) {
			return nil, fmt.Errorf("%w: query %q", ErrMalformedURL, query)
		}
		seg, err := url.Parse(u.String() + "/" + url.PathEscape(query))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
		}
		u = seg
	}
	if p.tier == TierPro {
		q := u.Query()
		q.Set(keyParam, p.key)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// IP 与域名不会包含控制字符或非法 UTF-8
func validSegment(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
