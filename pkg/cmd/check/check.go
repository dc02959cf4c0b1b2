package check

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
)

var (
	output       string
	failOnIssues bool
)

var errIssuesFound = errors.New("validation issues found")

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "validates the stored season data",
		Long: `Runs the consistency checks over every driver record of every season.
Findings are reported, the data is not changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				warnings, err := rt.Service.Validate(cmd.Context())
				if err != nil {
					return err
				}
				err = util.Print(cmd.OutOrStdout(), output, warnings, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "KIND\tSEASON\tDRIVER\tMESSAGE")
					for _, w := range warnings {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", w.Kind, w.Season, w.Driver, w.Message)
					}
				})
				if err != nil {
					return err
				}
				log.GetFromContext(cmd.Context()).Info("check done",
					log.Int("issues", len(warnings)))
				if failOnIssues && len(warnings) > 0 {
					return errIssuesFound
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output,
		"output",
		"o",
		util.OutputTable,
		"output format (table, json, yaml)")
	cmd.Flags().BoolVar(&failOnIssues,
		"fail",
		false,
		"exit with an error if issues were found")
	return cmd
}
