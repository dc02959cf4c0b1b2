package season

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
)

var output string

func NewSeasonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "season",
		Short: "commands to manage seasons",
	}
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newRenameCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists all seasons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				seasons, err := rt.Service.ListSeasons(cmd.Context())
				if err != nil {
					return err
				}
				return util.Print(cmd.OutOrStdout(), output, seasons, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "SEASON\tDRIVERS\tRACES\tCURRENT")
					for _, s := range seasons {
						current := ""
						if s.Current {
							current = "*"
						}
						fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Drivers, s.Races, current)
					}
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output,
		"output",
		"o",
		util.OutputTable,
		"output format (table, json, yaml)")
	return cmd
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create name",
		Short: "creates an empty season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				if err := rt.Service.CreateSeason(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.GetFromContext(cmd.Context()).Info("season created",
					log.String("season", args[0]))
				return nil
			}, util.WithNotifications())
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete name",
		Short: "deletes a season (the current season is refused)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				if err := rt.Service.DeleteSeason(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.GetFromContext(cmd.Context()).Info("season deleted",
					log.String("season", args[0]))
				return nil
			}, util.WithNotifications())
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename from to",
		Short: "renames a season",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				if err := rt.Service.RenameSeason(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				log.GetFromContext(cmd.Context()).Info("season renamed",
					log.String("from", args[0]),
					log.String("to", args[1]))
				return nil
			}, util.WithNotifications())
		},
	}
}
