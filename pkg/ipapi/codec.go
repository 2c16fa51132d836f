package ipapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// encodeQuery：将单查参数合并到已解析的端点上（保留端点已有的 key 参数）
// 约束：fields 为调用方顺序的线上名称，不重新排序；参数整体按键名排序编码，保证可复现。
func encodeQuery(u *url.URL, req Request) *url.URL {
	out := *u
	q := out.Query()
	if len(req.Fields) > 0 {
		q.Set("fields", JoinFields(req.Fields))
	}
	if req.Language != "" {
		q.Set(languageParam, req.Language)
	}
	out.RawQuery = q.Encode()
	return &out
}

// encodeBatch：批量请求体为请求对象数组；缺失的 fields/lang 键省略而非写 null
func encodeBatch(reqs []Request) ([]byte, error) {
	if reqs == nil {
		reqs = []Request{}
	}
	b, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequestData, err)
	}
	return b, nil
}

// 文档注释：解码单个查询结果
// 背景：服务端按请求的字段子集返回部分字段；单个字段类型不符时仅置空该字段，不影响其余字段。
// 异常：顶层不是 JSON 对象（包括截断、裸字符串、null）时返回 ErrInvalidResponseData，不构造任何结果。
func DecodeResult(data []byte) (*Result, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return resultFromObject(obj), nil
}

// 文档注释：解码批量查询结果
// 背景：输出顺序与长度以服务端数组为准，不按 query 重新配对；非对象元素解码为空结果。
// 异常：顶层不是 JSON 数组时返回 ErrInvalidResponseData。
func DecodeResults(data []byte) ([]Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected array", ErrInvalidResponseData)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseData, err)
	}
	out := make([]Result, len(items))
	for i, raw := range items {
		obj, err := decodeObject(raw)
		if err != nil {
			continue
		}
		out[i] = *resultFromObject(obj)
	}
	return out, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrInvalidResponseData)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseData, err)
	}
	return obj, nil
}

func resultFromObject(obj map[string]json.RawMessage) *Result {
	r := &Result{}
	for _, f := range AllFields() {
		raw, ok := obj[f.WireName()]
		if !ok || isNull(raw) {
			continue
		}
		switch f {
		case FieldLatitude:
			r.Latitude = decodeFloat(raw)
		case FieldLongitude:
			r.Longitude = decodeFloat(raw)
		case FieldMobile:
			r.Mobile = decodeBool(raw)
		case FieldProxy:
			r.Proxy = decodeBool(raw)
		case FieldStatus:
			if s := decodeString(raw); s != nil {
				if st, ok := parseStatus(*s); ok {
					r.Status = &st
				}
			}
		default:
			*r.stringSlot(f) = decodeString(raw)
		}
	}
	return r
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(raw json.RawMessage) *string {
	var v string
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return &v
}

func decodeFloat(raw json.RawMessage) *float64 {
	var v float64
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return &v
}

func decodeBool(raw json.RawMessage) *bool {
	var v bool
	if json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return &v
}
