//nolint:funlen // ok for tests
package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/ranking"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/file"
	"github.com/mpapenbr/iracelog-league-stats/testsupport/basedata"
)

type collector struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *collector) Notify(_ context.Context, ev notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) kinds() []notify.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := []notify.EventKind{}
	for _, ev := range c.events {
		ret = append(ret, ev.Kind)
	}
	return ret
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 20, 15, 0, 0, time.UTC)
}

func newService(t *testing.T, current string, opts ...Option) *Service {
	t.Helper()
	store, err := file.New(t.TempDir(), file.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	return New(store, Config{CurrentSeason: current}, opts...)
}

func loadSeason(t *testing.T, s *Service, name string) model.Drivers {
	t.Helper()
	drivers, err := s.Dataset(context.Background(), model.SeasonSelector(name))
	require.NoError(t, err)
	return drivers
}

func TestIngestAliceAndBob(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1", WithClock(fixedClock))

	res, err := s.Ingest(ctx, "", "race one.json", basedata.AliceAndBob())
	require.NoError(t, err)
	assert.Equal(t, "S1", res.Season)
	assert.Equal(t, 2, res.RowsProcessed)
	assert.Equal(t, 2, res.DriversUpdated)
	assert.Equal(t, "20240301_201500_race_one.json", res.Filename)

	page, err := s.Rank(ctx, model.SeasonSelector("S1"), ranking.Points, ranking.Request{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Alice", page.Rows[0].Name)
	assert.Equal(t, "Bob", page.Rows[1].Name)

	alice, err := s.GetDriver(ctx, model.SeasonSelector("S1"), "alice")
	require.NoError(t, err)
	assert.Equal(t, "case-insensitive", alice.MatchedBy)
	assert.Equal(t, 1, alice.Record.Wins)
	assert.Equal(t, 0, alice.Record.Poles)
	assert.Equal(t, "us", alice.Record.Country)

	bob, err := s.GetDriver(ctx, model.SeasonSelector("S1"), "Bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Record.Poles)
	assert.InDelta(t, 2.0, bob.Record.AvgIncidents, 1e-9)

	_, err = s.GetDriver(ctx, model.SeasonSelector("S1"), "Carl")
	assert.ErrorIs(t, err, model.ErrDriverNotFound)
}

func TestIngestDuplicateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	raw := basedata.AliceAndBob()

	first, err := s.Ingest(ctx, "S1", "a.json", raw)
	require.NoError(t, err)
	before := loadSeason(t, s, "S1")

	_, err = s.Ingest(ctx, "S1", "b.json", raw)
	var dup *model.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.ErrorIs(t, err, model.ErrDuplicatePayload)
	assert.Equal(t, first.Filename, dup.Existing)

	// also refused for another season
	_, err = s.Ingest(ctx, "S2", "b.json", raw)
	assert.ErrorIs(t, err, model.ErrDuplicatePayload)

	if diff := cmp.Diff(before, loadSeason(t, s, "S1")); diff != "" {
		t.Errorf("season changed by duplicate (-want +got):\n%s", diff)
	}
	recs, err := s.ListPayloads(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestIngestErrors(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "")

	_, err := s.Ingest(ctx, "", "x.json", basedata.AliceAndBob())
	assert.ErrorIs(t, err, model.ErrSeasonNotFound)

	_, err = s.Ingest(ctx, "../x", "x.json", basedata.AliceAndBob())
	assert.ErrorIs(t, err, model.ErrInvalidSeasonName)

	_, err = s.Ingest(ctx, "S1", "x.json", []byte(`{"data":{"session_results":[]}}`))
	assert.ErrorIs(t, err, model.ErrMalformedPayload)

	_, err = s.Ingest(ctx, "S1", "x.json", []byte(`not json`))
	assert.ErrorIs(t, err, model.ErrMalformedPayload)

	seasons, err := s.ListSeasons(ctx)
	require.NoError(t, err)
	assert.Empty(t, seasons)
}

func TestStoredFilenamesAreUnique(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1", WithClock(fixedClock))
	a, err := s.Ingest(ctx, "", "race.json", basedata.FinishOnly(1, "X", 0))
	require.NoError(t, err)
	b, err := s.Ingest(ctx, "", "race.json", basedata.FinishOnly(2, "X", 1))
	require.NoError(t, err)
	assert.Equal(t, "20240301_201500_race.json", a.Filename)
	assert.Equal(t, "20240301_201500_race_1.json", b.Filename)
}

func TestConcurrentIngestion(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Ingest(ctx, "", "race.json", basedata.FinishOnly(i+1, "X", i%3))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	x := loadSeason(t, s, "S1")["X"]
	require.NotNil(t, x)
	assert.Equal(t, n, x.Races)
	assert.Len(t, x.RaceDistances, n)
	assert.Len(t, x.History, n)
	recs, err := s.ListPayloads(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, n)
}

func TestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	raw := basedata.AliceAndBob()
	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Ingest(ctx, "", "race.json", raw)
		}(i)
	}
	wg.Wait()
	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrDuplicatePayload):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, loadSeason(t, s, "S1")["Alice"].Races)
}

func TestReverseAndDeletePayload(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	first := basedata.AliceAndBob()
	second := basedata.FinishOnly(2, "Alice", 2)

	_, err := s.Ingest(ctx, "", "one.json", first)
	require.NoError(t, err)
	snapshot := loadSeason(t, s, "S1")
	stored, err := s.Ingest(ctx, "", "two.json", second)
	require.NoError(t, err)
	assert.Equal(t, 2, loadSeason(t, s, "S1")["Alice"].Races)

	res, err := s.DeletePayload(ctx, stored.Filename)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, res.AffectedSeasons)
	assert.Equal(t, stored.Filename, res.Filename)
	if diff := cmp.Diff(snapshot, loadSeason(t, s, "S1")); diff != "" {
		t.Errorf("DeletePayload() mismatch (-want +got):\n%s", diff)
	}

	res, err = s.Reverse(ctx, first)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, res.DriversRemoved)
	assert.Empty(t, loadSeason(t, s, "S1"))
	recs, err := s.ListPayloads(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// payload can be ingested again after reversal
	_, err = s.Ingest(ctx, "", "one.json", first)
	require.NoError(t, err)

	// unknown payload changes nothing
	res, err = s.Reverse(ctx, basedata.FinishOnly(99, "Nobody", 0))
	require.NoError(t, err)
	assert.Empty(t, res.AffectedSeasons)

	_, err = s.DeletePayload(ctx, "missing.json")
	assert.ErrorIs(t, err, model.ErrPayloadNotFound)
}

func TestCareerRanking(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	_, err := s.Ingest(ctx, "S1", "a.json", basedata.FinishOnly(1, "X", 2))
	require.NoError(t, err)
	_, err = s.Ingest(ctx, "S2", "b.json", basedata.FinishOnly(2, "X", 0))
	require.NoError(t, err)
	_, err = s.Ingest(ctx, "S2", "c.json", basedata.FinishOnly(3, "Y", 1))
	require.NoError(t, err)

	x, err := s.GetDriver(ctx, model.CareerSelector(), "X")
	require.NoError(t, err)
	assert.Equal(t, 2, x.Record.Races)
	assert.Equal(t, 1, x.Record.Wins)
	assert.InDelta(t, 2.0, x.Record.AvgFinish, 1e-9)

	page, err := s.Rank(ctx, model.CareerSelector(), ranking.AvgFinish, ranking.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, []string{page.Rows[0].Name, page.Rows[1].Name})

	found, err := s.FindDrivers(ctx, model.CareerSelector(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, found.Exact)
}

func TestCareerViewFollowsChanges(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "rebuilt per query"},
		{name: "cached", opts: []Option{WithCareerCacheTTL(time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newService(t, "S1", tt.opts...)
			_, err := s.Ingest(ctx, "S1", "a.json", basedata.FinishOnly(1, "X", 0))
			require.NoError(t, err)

			x, err := s.GetDriver(ctx, model.CareerSelector(), "X")
			require.NoError(t, err)
			assert.Equal(t, 1, x.Record.Races)

			res, err := s.Ingest(ctx, "S2", "b.json", basedata.FinishOnly(2, "X", 1))
			require.NoError(t, err)
			x, err = s.GetDriver(ctx, model.CareerSelector(), "X")
			require.NoError(t, err)
			assert.Equal(t, 2, x.Record.Races)

			_, err = s.DeletePayload(ctx, res.Filename)
			require.NoError(t, err)
			x, err = s.GetDriver(ctx, model.CareerSelector(), "X")
			require.NoError(t, err)
			assert.Equal(t, 1, x.Record.Races)

			_, err = s.WipeDriver(ctx, "X")
			require.NoError(t, err)
			_, err = s.GetDriver(ctx, model.CareerSelector(), "X")
			assert.ErrorIs(t, err, model.ErrDriverNotFound)
		})
	}
}

func TestCareerSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	newOn := func() *Service {
		store, err := file.New(dir, file.WithRetry(1, time.Millisecond))
		require.NoError(t, err)
		return New(store, Config{CurrentSeason: "S1"})
	}
	writer := newOn()
	reader := newOn()

	_, err := writer.Ingest(ctx, "S1", "a.json", basedata.FinishOnly(1, "X", 1))
	require.NoError(t, err)
	x, err := reader.GetDriver(ctx, model.CareerSelector(), "X")
	require.NoError(t, err)
	assert.Equal(t, 1, x.Record.Races)

	_, err = writer.Ingest(ctx, "S1", "b.json", basedata.FinishOnly(2, "X", 2))
	require.NoError(t, err)
	career, err := reader.GetDriver(ctx, model.CareerSelector(), "X")
	require.NoError(t, err)
	season, err := reader.GetDriver(ctx, model.SeasonSelector("S1"), "X")
	require.NoError(t, err)
	assert.Equal(t, 2, season.Record.Races)
	assert.Equal(t, season.Record.Races, career.Record.Races)
}

// vanishingSeasons lists a season that is gone by the time it is loaded
type vanishingSeasons struct {
	api.SeasonRepository
}

func (v vanishingSeasons) List(ctx context.Context) ([]string, error) {
	names, err := v.SeasonRepository.List(ctx)
	return append(names, "Gone"), err
}

type vanishingRepos struct {
	*file.Store
}

func (r vanishingRepos) Season() api.SeasonRepository {
	return vanishingSeasons{r.Store.Season()}
}

func TestCareerSkipsDeletedSeason(t *testing.T) {
	ctx := context.Background()
	store, err := file.New(t.TempDir(), file.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	s := New(vanishingRepos{store}, Config{CurrentSeason: "S1"})
	_, err = s.Ingest(ctx, "S1", "a.json", basedata.FinishOnly(1, "X", 1))
	require.NoError(t, err)

	drivers, err := s.Dataset(ctx, model.CareerSelector())
	require.NoError(t, err)
	require.Contains(t, drivers, "X")
	assert.Equal(t, 1, drivers["X"].Races)
}

func TestSeasonManagement(t *testing.T) {
	ctx := context.Background()
	events := &collector{}
	dispatcher := notify.NewDispatcher(events)
	s := newService(t, "S1", WithDispatcher(dispatcher))

	require.NoError(t, s.CreateSeason(ctx, "S1"))
	assert.ErrorIs(t, s.CreateSeason(ctx, "S1"), model.ErrSeasonExists)
	require.NoError(t, s.CreateSeason(ctx, "Old"))
	_, err := s.Ingest(ctx, "", "a.json", basedata.AliceAndBob())
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteSeason(ctx, "S1"), model.ErrCurrentSeason)
	require.NoError(t, s.DeleteSeason(ctx, "Old"))
	assert.ErrorIs(t, s.DeleteSeason(ctx, "Old"), model.ErrSeasonNotFound)

	require.NoError(t, s.RenameSeason(ctx, "S1", "Spring"))
	assert.Equal(t, "Spring", s.CurrentSeason())
	assert.ErrorIs(t, s.SetCurrentSeason(ctx, "S1"), model.ErrSeasonNotFound)

	infos, err := s.ListSeasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SeasonInfo{
		{Name: "Spring", Drivers: 2, Races: 1, Current: true},
	}, infos)

	dispatcher.Wait()
	assert.ElementsMatch(t, []notify.EventKind{
		notify.SeasonCreated, notify.SeasonCreated, notify.SeasonUpdated,
		notify.SeasonDeleted, notify.SeasonRenamed,
	}, events.kinds())
}

func TestWipeDriverAndValidate(t *testing.T) {
	ctx := context.Background()
	s := newService(t, "S1")
	_, err := s.Ingest(ctx, "S1", "a.json", basedata.AliceAndBob())
	require.NoError(t, err)
	_, err = s.Ingest(ctx, "S2", "b.json", basedata.FinishOnly(2, "Alice", 3))
	require.NoError(t, err)

	seasons, err := s.WipeDriver(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, seasons)
	_, err = s.WipeDriver(ctx, "Alice")
	assert.ErrorIs(t, err, model.ErrDriverNotFound)
	assert.NotContains(t, loadSeason(t, s, "S1"), "Alice")

	warnings, err := s.Validate(ctx)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
