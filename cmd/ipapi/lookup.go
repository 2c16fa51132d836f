package main

import (
	"github.com/spf13/cobra"

	"ipapi-client/pkg/ipapi"
)

func newLookupCmd(c *cli) *cobra.Command {
	var (
		fields    string
		lang      string
		allFields bool
	)
	cmd := &cobra.Command{
		Use:   "lookup [query]",
		Short: "Look up one IP address or domain",
		Long: `Look up one IP address or domain.

Without a query the caller's own public address is looked up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipapi.Request{Language: lang}
			if len(args) == 1 {
				req.Query = args[0]
			}
			if allFields {
				req.Fields = ipapi.AllFields()
			} else {
				fs, err := parseFields(fields)
				if err != nil {
					return err
				}
				req.Fields = fs
			}
			res, err := c.svc.Fetch(cmd.Context(), req)
			if err != nil {
				return err
			}
			reportFailures(cmd.ErrOrStderr(), []ipapi.Result{*res})
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&fields, "fields", "", "comma separated fields, semantic or wire names")
	cmd.Flags().StringVar(&lang, "lang", "", "response language (en, de, es, pt-BR, fr, ja, zh-CN, ru)")
	cmd.Flags().BoolVar(&allFields, "all-fields", false, "request every field")
	cmd.MarkFlagsMutuallyExclusive("fields", "all-fields")
	return cmd
}
