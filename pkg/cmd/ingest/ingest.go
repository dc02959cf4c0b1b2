package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/stats"
)

var season string

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest file...",
		Short: "ingests iRacing event result files",
		Long: `Applies the race session of each file to a season and stores the file.
Files already ingested are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.RunWithRuntime(cmd.Context(), func(rt *util.Runtime) error {
				return ingestFiles(cmd.Context(), rt.Service, args)
			}, util.WithNotifications())
		},
	}
	cmd.Flags().StringVarP(&season,
		"season",
		"s",
		"",
		"target season (default is the current season)")
	return cmd
}

func ingestFiles(ctx context.Context, svc *stats.Service, files []string) error {
	logger := log.GetFromContext(ctx).Named("ingest")
	var errs []error
	for _, f := range files {
		res, err := ingestFile(ctx, svc, f)
		var dup *model.DuplicateError
		switch {
		case errors.As(err, &dup):
			logger.Warn("already ingested",
				log.String("file", f),
				log.String("existing", dup.Existing))
		case err != nil:
			logger.Error("could not ingest",
				log.String("file", f),
				log.ErrorField(err))
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
		default:
			logger.Info("ingested",
				log.String("file", f),
				log.String("season", res.Season),
				log.String("stored", res.Filename),
				log.Int("rows", res.RowsProcessed),
				log.Int("warnings", len(res.Warnings)))
		}
	}
	return errors.Join(errs...)
}

//nolint:whitespace // can't make both editor and linter happy
func ingestFile(
	ctx context.Context, svc *stats.Service, name string,
) (*stats.IngestResult, error) {
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return svc.Ingest(ctx, season, filepath.Base(name), raw)
}
