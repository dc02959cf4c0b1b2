package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

type memRepo struct {
	recs    []*model.IngestionRecord
	content map[string][]byte
}

func (m *memRepo) add(filename string, content []byte) {
	if m.content == nil {
		m.content = map[string][]byte{}
	}
	m.recs = append(m.recs, &model.IngestionRecord{
		Filename: filename, Digest: utils.HashContent(content),
	})
	m.content[filename] = content
}

func (m *memRepo) LoadAll(ctx context.Context) ([]*model.IngestionRecord, error) {
	return m.recs, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (m *memRepo) FindByDigest(ctx context.Context, digest string) (
	*model.IngestionRecord, error,
) {
	for _, r := range m.recs {
		if r.Digest == digest {
			return r, nil
		}
	}
	return nil, model.ErrPayloadNotFound
}

//nolint:whitespace // can't make both editor and linter happy
func (m *memRepo) LoadByFilename(ctx context.Context, filename string) (
	*model.IngestionRecord, error,
) {
	for _, r := range m.recs {
		if r.Filename == filename {
			return r, nil
		}
	}
	return nil, model.ErrPayloadNotFound
}

func (m *memRepo) Content(ctx context.Context, filename string) ([]byte, error) {
	if c, ok := m.content[filename]; ok {
		return c, nil
	}
	return nil, model.ErrPayloadNotFound
}

func TestCheck(t *testing.T) {
	repo := &memRepo{}
	repo.add("20240101_100000_a.json", []byte(`{"a":1}`))
	d := New(repo)
	ctx := context.Background()

	digest, err := d.Check(ctx, []byte(`{"a":2}`))
	assert.NoError(t, err)
	assert.Equal(t, utils.HashContent([]byte(`{"a":2}`)), digest)

	_, err = d.Check(ctx, []byte(`{"a":1}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDuplicatePayload))
	var dup *model.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "20240101_100000_a.json", dup.Existing)
}

func TestScan(t *testing.T) {
	repo := &memRepo{}
	repo.add("b.json", []byte(`{"x":1}`))
	repo.add("a.json", []byte(`{"x":1}`))
	repo.add("c.json", []byte(`{"x":2}`))
	repo.add("d.json", []byte(`{"y":1}`))
	repo.add("e.json", []byte(`{"y":1}`))
	// record without content is skipped
	repo.recs = append(repo.recs, &model.IngestionRecord{Filename: "gone.json"})

	groups, err := New(repo).Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []Group{
		{Digest: utils.HashContent([]byte(`{"x":1}`)), Filenames: []string{"a.json", "b.json"}},
		{Digest: utils.HashContent([]byte(`{"y":1}`)), Filenames: []string{"d.json", "e.json"}},
	}, groups)
}
