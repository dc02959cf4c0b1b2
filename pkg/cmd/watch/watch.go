package watch

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/inbox"
)

var (
	season     string
	settleTime string
)

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "ingests result files dropped into an inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return util.RunWithRuntime(ctx, func(rt *util.Runtime) error {
				return watchInbox(ctx, rt)
			}, util.WithNotifications())
		},
	}
	cmd.Flags().StringVar(&config.InboxDir,
		"inbox",
		"inbox",
		"directory watched for new result files")
	cmd.Flags().StringVarP(&season,
		"season",
		"s",
		"",
		"target season (default is the current season)")
	cmd.Flags().StringVar(&settleTime,
		"settle-time",
		"1s",
		"a file must be unchanged this long before it is ingested")
	return cmd
}

func watchInbox(ctx context.Context, rt *util.Runtime) error {
	logger := log.GetFromContext(ctx).Named("inbox")
	settle, err := time.ParseDuration(settleTime)
	if err != nil {
		logger.Warn("Invalid settle time, using default", log.ErrorField(err))
	}
	w, err := inbox.New(config.InboxDir, rt.Service,
		inbox.WithLogger(logger),
		inbox.WithSeason(season),
		inbox.WithSettleTime(settle))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
