package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/migrate"
	"ipapi-client/internal/store"
	"ipapi-client/internal/utils"
	"ipapi-client/pkg/ipapi"
)

// readQueries：逐行读取查询，忽略空行与 # 注释
func readQueries(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024), 1024*1024)
	var out []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// ingestSummary：导入结束后的计数
type ingestSummary struct {
	Queries int
	Saved   int
	Failed  int
}

func (s ingestSummary) String() string {
	return fmt.Sprintf("%s queries, %s saved, %s failed",
		humanize.Comma(int64(s.Queries)), humanize.Comma(int64(s.Saved)), humanize.Comma(int64(s.Failed)))
}

// 文档注释：批量查询并写入结果
// 背景：每批最多 100 条，批内成功结果单事务写入；status=fail 只计数不写入。
// 约束：任一批查询或写库失败即中止，已提交的批次保留。
func ingest(ctx context.Context, svc *ipapi.Service, st *store.Store, reqs []ipapi.Request, size int, pause time.Duration) (ingestSummary, error) {
	var sum ingestSummary
	err := runChunks(ctx, svc, reqs, size, pause, func(batch []ipapi.Request, results []ipapi.Result) error {
		var recs []store.Record
		failed := 0
		for i := range results {
			if !results[i].Succeeded() {
				failed++
				continue
			}
			if i < len(batch) {
				recs = append(recs, store.Record{Query: batch[i].Query, Lang: batch[i].Language, Result: results[i]})
			}
		}
		n, err := st.SaveResults(ctx, recs)
		if err != nil {
			return err
		}
		if err := st.IncrStats(ctx, len(results), failed); err != nil {
			return err
		}
		sum.Queries += len(results)
		sum.Saved += n
		sum.Failed += failed
		logger.L().Info("ingest_progress", "done", humanize.Comma(int64(sum.Queries)), "total", humanize.Comma(int64(len(reqs))))
		return nil
	})
	return sum, err
}

func newIngestCmd(c *cli) *cobra.Command {
	var (
		file   string
		fields string
		lang   string
		size   int
		pause  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ingest -f ips.txt",
		Short: "Look up every line of a file and store the results in PostgreSQL",
		Long: `Look up every line of a file and store the results in PostgreSQL.

Connection settings come from PG_* variables. Blank lines and lines starting with # are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := parseFields(fields)
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			queries, err := readQueries(f)
			f.Close()
			if err != nil {
				return err
			}
			reqs := make([]ipapi.Request, len(queries))
			for i, q := range queries {
				reqs[i] = ipapi.Request{Query: q, Fields: fs, Language: lang}
			}

			db, err := utils.OpenPostgresFromEnv()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("ingest needs PostgreSQL, PG_ENABLE is false")
			}
			defer db.Close()
			if err := migrate.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			sum, err := ingest(cmd.Context(), c.svc, store.AttachDB(db), reqs, size, pause)
			fmt.Fprintln(cmd.OutOrStdout(), sum.String())
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one IP address or domain per line")
	cmd.Flags().StringVar(&fields, "fields", "", "comma separated fields, semantic or wire names")
	cmd.Flags().StringVar(&lang, "lang", "", "response language")
	cmd.Flags().IntVar(&size, "chunk", ipapi.MaxBatchSize, "queries per batch request (at most 100)")
	cmd.Flags().DurationVar(&pause, "pause", 4*time.Second, "pause between batches, the free plan allows 15 batch requests per minute")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
