package query

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/ranking"
)

type scopeFlags struct {
	season string
	career bool
	output string
}

func (s *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.season,
		"season",
		"s",
		"",
		"season to query (default is the current season)")
	cmd.Flags().BoolVar(&s.career,
		"career",
		false,
		"query the career view over all seasons")
	cmd.Flags().StringVarP(&s.output,
		"output",
		"o",
		util.OutputTable,
		"output format (table, json, yaml)")
	cmd.MarkFlagsMutuallyExclusive("season", "career")
}

func (s *scopeFlags) selector() model.Selector {
	if s.career {
		return model.CareerSelector()
	}
	if s.season == "" {
		return model.SeasonSelector(config.CurrentSeason)
	}
	return model.SeasonSelector(s.season)
}

func NewRankCmd() *cobra.Command {
	var scope scopeFlags
	req := ranking.Request{}
	cmd := &cobra.Command{
		Use:   "rank metric",
		Short: "ranks the drivers by a metric",
		Long: fmt.Sprintf("Ranks the drivers by a metric.\n\nAvailable metrics: %s",
			strings.Join(metricNames(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := ranking.ParseMetric(args[0])
			if err != nil {
				return err
			}
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				page, err := rt.Service.Rank(cmd.Context(), scope.selector(), metric, req)
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), scope.output, page,
					func(tw *tabwriter.Writer) {
						fmt.Fprintf(tw, "POS\tDRIVER\t%s\n", strings.ToUpper(metric.Label()))
						for _, r := range page.Rows {
							fmt.Fprintf(tw, "%d\t%s\t%s\n",
								r.Position, r.Name, formatValue(metric, r.Value))
						}
					})
			})
		},
	}
	scope.register(cmd)
	cmd.Flags().IntVar(&req.PageSize, "size", ranking.DefaultPageSize, "number of rows")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "number of rows to skip")
	cmd.Flags().StringVar(&req.Center, "center", "",
		"driver to center the page on (overrides offset)")
	return cmd
}

func metricNames() []string {
	ret := []string{}
	for _, m := range ranking.Metrics() {
		ret = append(ret, string(m))
	}
	return ret
}

func formatValue(m ranking.Metric, v float64) string {
	if m.Percentage() {
		return fmt.Sprintf("%.1f%%", v)
	}
	return fmt.Sprintf("%g", v)
}

func NewDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driver",
		Short: "commands to query and manage drivers",
	}
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWipeCmd())
	return cmd
}

func newShowCmd() *cobra.Command {
	var scope scopeFlags
	cmd := &cobra.Command{
		Use:   "show name",
		Short: "shows the statistics of a driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				res, err := rt.Service.GetDriver(cmd.Context(), scope.selector(), args[0])
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), scope.output, res,
					func(tw *tabwriter.Writer) {
						d := res.Record
						fmt.Fprintf(tw, "Driver\t%s (%s)\n", d.Name, d.Country)
						for _, m := range ranking.Metrics() {
							fmt.Fprintf(tw, "%s\t%s\n", m.Label(), formatValue(m, m.Value(d)))
						}
					})
			})
		},
	}
	scope.register(cmd)
	return cmd
}

func newSearchCmd() *cobra.Command {
	var scope scopeFlags
	cmd := &cobra.Command{
		Use:   "search query",
		Short: "lists driver names equal or similar to query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				res, err := rt.Service.FindDrivers(cmd.Context(), scope.selector(), args[0])
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), scope.output, res,
					func(tw *tabwriter.Writer) {
						for _, n := range res.Exact {
							fmt.Fprintf(tw, "exact\t%s\n", n)
						}
						for _, n := range res.Similar {
							fmt.Fprintf(tw, "similar\t%s\n", n)
						}
					})
			})
		},
	}
	scope.register(cmd)
	return cmd
}

func newWipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe name",
		Short: "removes a driver from all seasons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				seasons, err := rt.Service.WipeDriver(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				log.GetFromContext(cmd.Context()).Info("driver removed",
					log.String("driver", args[0]),
					log.Strings("seasons", seasons))
				return nil
			}, util.WithNotifications())
		},
	}
}
