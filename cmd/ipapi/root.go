package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/utils"
	"ipapi-client/pkg/ipapi"
)

// cli：命令间共享的全局参数与查询服务
type cli struct {
	key      string
	baseURL  string
	timeout  time.Duration
	logLevel string

	svc *ipapi.Service
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ipapi",
		Short: "ipapi queries the ip-api.com geolocation service",
		Long: `ipapi queries the ip-api.com geolocation service

Uses the free endpoint unless a pro key is given with --key or IPAPI_KEY.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.logLevel != "" {
				logger.SetupWith(cmd.ErrOrStderr(), c.logLevel, utils.Getenv("LOG_FORMAT", "text"))
			}
			c.svc = c.service()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.key, "key", "", "pro API key (default $IPAPI_KEY)")
	pf.StringVar(&c.baseURL, "base-url", "", "override the endpoint scheme and host (default $IPAPI_BASE_URL)")
	pf.DurationVar(&c.timeout, "timeout", 0, "per request timeout (default $IPAPI_TIMEOUT or 15s)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newLookupCmd(c), newBatchCmd(c), newIngestCmd(c))
	return root
}

// service：命令行参数优先于环境变量
func (c *cli) service() *ipapi.Service {
	plan := utils.PlanFromEnv()
	if c.key != "" {
		plan = ipapi.Pro(c.key)
	}
	var opts []ipapi.Option
	if c.timeout > 0 {
		opts = append(opts, ipapi.WithTimeout(c.timeout))
	}
	if c.baseURL != "" {
		opts = append(opts, ipapi.WithBaseURL(c.baseURL))
	}
	return utils.NewService(plan, opts...)
}

// parseFields：与 ipapi.ParseFields 不同，未知字段名直接报错
func parseFields(csv string) ([]ipapi.Field, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var out []ipapi.Field
	for _, part := range strings.Split(csv, ",") {
		f, ok := ipapi.FieldFromName(part)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", strings.TrimSpace(part))
		}
		out = append(out, f)
	}
	return out, nil
}
