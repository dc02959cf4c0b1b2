package payload

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/stats"
)

var output string

func NewPayloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "commands to manage stored payloads",
	}
	cmd.PersistentFlags().StringVarP(&output,
		"output",
		"o",
		util.OutputTable,
		"output format (table, json, yaml)")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newReverseCmd())
	cmd.AddCommand(newDuplicatesCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists stored payloads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				recs, err := rt.Service.ListPayloads(cmd.Context())
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), output, recs, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "FILENAME\tDIGEST\tSEASONS\tCREATED")
					for _, r := range recs {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
							r.Filename,
							r.ShortDigest(),
							strings.Join(r.Seasons, ","),
							r.CreatedAt.Format(time.DateTime))
					}
				})
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete filename",
		Short: "deletes a stored payload and reverses its contribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				res, err := rt.Service.DeletePayload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printReverse(cmd, res)
			}, util.WithNotifications())
		},
	}
}

func newReverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse file",
		Short: "reverses the contribution of a local result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				res, err := rt.Service.Reverse(cmd.Context(), raw)
				if err != nil {
					return err
				}
				return printReverse(cmd, res)
			}, util.WithNotifications())
		},
	}
}

func printReverse(cmd *cobra.Command, res *stats.ReverseResult) error {
	if len(res.Approximated) > 0 {
		log.GetFromContext(cmd.Context()).Warn("reverted without race history",
			log.Strings("drivers", res.Approximated))
	}
	return util.Print(cmd.OutOrStdout(), output, res, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "payload\t%s\n", res.Filename)
		fmt.Fprintf(tw, "seasons\t%s\n", strings.Join(res.AffectedSeasons, ","))
		fmt.Fprintf(tw, "removed drivers\t%s\n", strings.Join(res.DriversRemoved, ","))
	})
}

func newDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dupes",
		Short: "lists stored payloads with identical content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				groups, err := rt.Service.ScanDuplicates(cmd.Context())
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), output, groups, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "DIGEST\tFILENAMES")
					for _, g := range groups {
						fmt.Fprintf(tw, "%s\t%s\n",
							g.Digest, strings.Join(g.Filenames, ","))
					}
				})
			})
		},
	}
}
