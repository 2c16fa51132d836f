package main

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"ipapi-client/pkg/ipapi"
)

// printJSON：缩进输出；终端下附加语法高亮（color.NoColor 已按是否为终端判定）
func printJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = pretty.Pretty(b)
	if !color.NoColor {
		b = pretty.Color(b, nil)
	}
	_, err = w.Write(b)
	return err
}

// reportFailures：把 status=fail 的结果以红色逐条写到 w，返回失败条数
func reportFailures(w io.Writer, results []ipapi.Result) int {
	red := color.New(color.FgRed)
	n := 0
	for i := range results {
		r := &results[i]
		if !r.Failed() {
			continue
		}
		n++
		query, msg := "", ""
		if r.IP != nil {
			query = *r.IP
		}
		if r.Message != nil {
			msg = *r.Message
		}
		red.Fprintf(w, "fail: %s: %s\n", query, msg)
	}
	return n
}
