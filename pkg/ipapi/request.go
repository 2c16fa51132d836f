package ipapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MaxBatchSize：服务端单次批量查询上限
const MaxBatchSize = 100

// 文档注释：单次查询描述（单查与批量条目共用）
// 背景：Query 为空表示查询调用方自身出口 IP（仅单查有效）；Fields 为空表示使用服务端默认字段集；Language 为 ISO 639 代码。
// 约束：纯数据容器，不做校验；批量条目的非空校验在 Service.Batch 中完成。
type Request struct {
	Query    string
	Fields   []Field
	Language string
}

type wireRequest struct {
	Query  string `json:"query"`
	Fields string `json:"fields,omitempty"`
	Lang   string `json:"lang,omitempty"`
}

// MarshalJSON：按批量接口格式输出，缺省值的键直接省略
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{Query: r.Query, Fields: JoinFields(r.Fields), Lang: r.Language})
}

// UnmarshalJSON：解析批量接口格式；兼容服务端允许的纯字符串条目
// 约束：fields 中无法识别的名称被忽略
func (r *Request) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var q string
		if err := json.Unmarshal(b, &q); err != nil {
			return err
		}
		*r = Request{Query: q}
		return nil
	}
	var w wireRequest
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Request{Query: w.Query, Language: w.Lang, Fields: ParseFields(w.Fields)}
	return nil
}

// ParseFields：解析逗号分隔的字段列表（语义名或线上名均可），返回 nil 表示未指定
func ParseFields(csv string) []Field {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []Field
	for _, part := range strings.Split(csv, ",") {
		if f, ok := FieldFromName(part); ok {
			out = append(out, f)
		}
	}
	return out
}
