//nolint:funlen,errcheck //ok for this test code
package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
	"github.com/mpapenbr/iracelog-league-stats/testsupport/testdb"
)

func initStore(t *testing.T) *Store {
	t.Helper()
	return New(testdb.InitTestDb())
}

func sampleSeason(name string) *model.Season {
	d := model.NewDriverRecord("Alice")
	d.Country = "us"
	d.Races = 1
	d.Wins = 1
	d.Podiums = 1
	d.Top10s = 1
	d.RacesWeighted = 1
	d.FinishWeighted = 1
	d.AvgFinish = 1
	d.RaceDistances = []int{20}
	return &model.Season{Name: name, Drivers: model.Drivers{"Alice": d}}
}

func sampleRecord(content []byte, filename string, seasons ...string) *model.IngestionRecord {
	rec := model.NewIngestionRecord(utils.HashContent(content), filename, filename, len(content))
	rec.CreatedAt = rec.CreatedAt.Truncate(time.Millisecond)
	rec.Seasons = seasons
	return rec
}

func TestSeasonLifecycle(t *testing.T) {
	ctx := context.Background()
	s := initStore(t)
	repo := s.Season()

	require.NoError(t, repo.Create(ctx, "S1"))
	assert.ErrorIs(t, repo.Create(ctx, "S1"), model.ErrSeasonExists)
	assert.ErrorIs(t, repo.Create(ctx, "career"), model.ErrInvalidSeasonName)

	require.NoError(t, repo.Save(ctx, sampleSeason("S2")))
	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, names)

	loaded, err := repo.Load(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, sampleSeason("S2").Drivers, loaded.Drivers)

	require.NoError(t, repo.Rename(ctx, "S2", "S3"))
	assert.ErrorIs(t, repo.Rename(ctx, "S3", "S1"), model.ErrSeasonExists)
	assert.ErrorIs(t, repo.Rename(ctx, "S2", "S4"), model.ErrSeasonNotFound)
	loaded, err = repo.Load(ctx, "S3")
	require.NoError(t, err)
	assert.Len(t, loaded.Drivers, 1)

	require.NoError(t, repo.Delete(ctx, "S3"))
	assert.ErrorIs(t, repo.Delete(ctx, "S3"), model.ErrSeasonNotFound)
	_, err = repo.Load(ctx, "S3")
	assert.ErrorIs(t, err, model.ErrSeasonNotFound)
}

func TestCommitIngestionAndReversal(t *testing.T) {
	ctx := context.Background()
	s := initStore(t)
	content := []byte(`{"data":{}}`)
	rec := sampleRecord(content, "20240101_120000_race.json", "S1")

	require.NoError(t, s.CommitIngestion(ctx, rec, content, []*model.Season{sampleSeason("S1")}))

	found, err := s.Payload().FindByDigest(ctx, rec.Digest)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, []string{"S1"}, found.Seasons)
	assert.True(t, rec.CreatedAt.Equal(found.CreatedAt))

	got, err := s.Payload().Content(ctx, rec.Filename)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// same content under another name
	other := sampleRecord(content, "other.json", "S1")
	err = s.CommitIngestion(ctx, other, content, []*model.Season{sampleSeason("S1")})
	var dup *model.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, rec.Filename, dup.Existing)

	require.NoError(t, s.CommitReversal(ctx, rec,
		[]*model.Season{{Name: "S1", Drivers: model.Drivers{}}}))
	_, err = s.Payload().FindByDigest(ctx, rec.Digest)
	assert.ErrorIs(t, err, model.ErrPayloadNotFound)
	_, err = s.Payload().Content(ctx, rec.Filename)
	assert.ErrorIs(t, err, model.ErrPayloadNotFound)
	season, err := s.Season().Load(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, season.Drivers)
}

func TestPayloadAssociationsFollowSeason(t *testing.T) {
	ctx := context.Background()
	s := initStore(t)
	content := []byte("x")
	rec := sampleRecord(content, "x.json", "S1", "S2")
	require.NoError(t, s.CommitIngestion(ctx, rec, content,
		[]*model.Season{sampleSeason("S1"), sampleSeason("S2")}))

	require.NoError(t, s.Season().Delete(ctx, "S1"))
	require.NoError(t, s.Season().Rename(ctx, "S2", "S9"))
	got, err := s.Payload().LoadByFilename(ctx, "x.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"S9"}, got.Seasons)
}

func TestLoadAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := initStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.json", "b.json", "c.json"} {
		content := []byte(name)
		rec := sampleRecord(content, name)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.CommitIngestion(ctx, rec, content, nil))
	}
	recs, err := s.Payload().LoadAll(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, r := range recs {
		names = append(names, r.Filename)
	}
	assert.Equal(t, []string{"c.json", "b.json", "a.json"}, names)
}
