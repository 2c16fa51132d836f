package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ipapi-client/internal/logger"
	"ipapi-client/pkg/ipapi"
)

// 文档注释：YAML 批量请求文件
// 背景：顶层 lang/fields 为缺省值，queries 条目可以是纯字符串，也可以是带 query/fields/lang 的映射。
//
//	lang: en
//	fields: [status, country, query]
//	queries:
//	  - 8.8.8.8
//	  - query: 24.48.0.1
//	    lang: fr
type batchFile struct {
	Lang    string        `yaml:"lang"`
	Fields  []string      `yaml:"fields"`
	Queries []yamlRequest `yaml:"queries"`
}

type yamlRequest struct {
	Query  string   `yaml:"query"`
	Fields []string `yaml:"fields"`
	Lang   string   `yaml:"lang"`
}

func (y *yamlRequest) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*y = yamlRequest{Query: n.Value}
		return nil
	}
	type plain yamlRequest
	return n.Decode((*plain)(y))
}

func fieldsFromNames(names []string) ([]ipapi.Field, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]ipapi.Field, 0, len(names))
	for _, name := range names {
		f, ok := ipapi.FieldFromName(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		out = append(out, f)
	}
	return out, nil
}

// requests：把文件内容展开为请求列表，条目未指定时继承顶层缺省值
func (b *batchFile) requests() ([]ipapi.Request, error) {
	defFields, err := fieldsFromNames(b.Fields)
	if err != nil {
		return nil, err
	}
	out := make([]ipapi.Request, 0, len(b.Queries))
	for i, q := range b.Queries {
		if q.Query == "" {
			return nil, fmt.Errorf("queries[%d]: empty query", i)
		}
		req := ipapi.Request{Query: q.Query, Language: b.Lang, Fields: defFields}
		if q.Lang != "" {
			req.Language = q.Lang
		}
		if len(q.Fields) > 0 {
			if req.Fields, err = fieldsFromNames(q.Fields); err != nil {
				return nil, fmt.Errorf("queries[%d]: %w", i, err)
			}
		}
		out = append(out, req)
	}
	return out, nil
}

func loadBatchFile(path string) ([]ipapi.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bf.requests()
}

// chunk：按 size 切分，size 不大于 MaxBatchSize
func chunk(reqs []ipapi.Request, size int) [][]ipapi.Request {
	if size <= 0 || size > ipapi.MaxBatchSize {
		size = ipapi.MaxBatchSize
	}
	var out [][]ipapi.Request
	for len(reqs) > size {
		out = append(out, reqs[:size])
		reqs = reqs[size:]
	}
	if len(reqs) > 0 {
		out = append(out, reqs)
	}
	return out
}

// runChunks：顺序发送每一批，pause 为批次间隔（免费档批量接口每分钟 15 次）；
// fn 在每批完成后调用，返回错误即中止
func runChunks(ctx context.Context, svc *ipapi.Service, reqs []ipapi.Request, size int, pause time.Duration, fn func(batch []ipapi.Request, results []ipapi.Result) error) error {
	for i, b := range chunk(reqs, size) {
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
		results, err := svc.Batch(ctx, b)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i+1, err)
		}
		logger.L().Debug("batch_chunk_done", "chunk", i+1, "requests", len(b), "results", len(results))
		if err := fn(b, results); err != nil {
			return err
		}
	}
	return nil
}

func newBatchCmd(c *cli) *cobra.Command {
	var (
		file  string
		pause time.Duration
	)
	cmd := &cobra.Command{
		Use:   "batch -f requests.yaml",
		Short: "Run the lookups listed in a YAML file",
		Long: `Run the lookups listed in a YAML file.

More than 100 queries are sent as consecutive batches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadBatchFile(file)
			if err != nil {
				return err
			}
			var all []ipapi.Result
			err = runChunks(cmd.Context(), c.svc, reqs, ipapi.MaxBatchSize, pause, func(_ []ipapi.Request, results []ipapi.Result) error {
				all = append(all, results...)
				return nil
			})
			if err != nil {
				return err
			}
			reportFailures(cmd.ErrOrStderr(), all)
			return printJSON(cmd.OutOrStdout(), all)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML request file")
	cmd.Flags().DurationVar(&pause, "pause", 0, "pause between consecutive batches")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
