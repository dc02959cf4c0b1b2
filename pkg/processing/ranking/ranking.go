// Package ranking orders driver records by a metric and cuts pages from the result.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/names"
)

const DefaultPageSize = 5

type Row struct {
	Position int                 `json:"position"` // 1-based position in the full ranking
	Name     string              `json:"name"`
	Country  string              `json:"country"`
	Value    float64             `json:"value"`
	Record   *model.DriverRecord `json:"-"`
}

// Request selects the page to return. If Center is set the page is placed
// around that driver and Offset is ignored.
type Request struct {
	PageSize int
	Offset   int
	Center   string
}

type Page struct {
	Metric    Metric `json:"metric"`
	Total     int    `json:"total"`
	Offset    int    `json:"offset"`
	Rows      []Row  `json:"rows"`
	Target    string `json:"target,omitempty"`    // driver the page is centered on
	MatchedBy string `json:"matchedBy,omitempty"` // name matching strategy used for Target
}

// sortKey is used in descending order, so best values come first.
func sortKey(m Metric, d *model.DriverRecord) float64 {
	info := metrics[m]
	v := info.value(d)
	if info.lowerIsBetter {
		if info.weight(d) == 0 {
			return math.Inf(-1)
		}
		return -v
	}
	return v
}

// Sort returns all drivers ordered by m. Ties are ordered by name.
func Sort(drivers model.Drivers, m Metric) ([]Row, error) {
	if _, ok := metrics[m]; !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownMetric, m)
	}
	type keyed struct {
		row Row
		key float64
	}
	items := lo.MapToSlice(drivers, func(name string, d *model.DriverRecord) keyed {
		return keyed{
			row: Row{Name: name, Country: d.Country, Value: m.Value(d), Record: d},
			key: sortKey(m, d),
		}
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key > items[j].key
		}
		li, lj := strings.ToLower(items[i].row.Name), strings.ToLower(items[j].row.Name)
		if li != lj {
			return li < lj
		}
		return items[i].row.Name < items[j].row.Name
	})
	ret := make([]Row, len(items))
	for i := range items {
		ret[i] = items[i].row
		ret[i].Position = i + 1
	}
	return ret, nil
}

// Rank sorts drivers by m and returns the requested page.
func Rank(drivers model.Drivers, m Metric, req Request) (*Page, error) {
	rows, err := Sort(drivers, m)
	if err != nil {
		return nil, err
	}
	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := &Page{Metric: m, Total: len(rows)}

	start := req.Offset
	if req.Center != "" {
		idx, used, ok := names.Match(req.Center, lo.Map(rows, func(r Row, _ int) string {
			return r.Name
		}))
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrDriverNotFound, req.Center)
		}
		page.Target = rows[idx].Name
		page.MatchedBy = used.String()
		start = CenterStart(idx, size, len(rows))
	}
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + min(size, len(rows)-start)
	page.Offset = start
	page.Rows = rows[start:end]
	return page, nil
}

// CenterStart computes the offset of a page of size places that shows the
// entry at idx. Entries within the first page show the first page.
func CenterStart(idx, size, total int) int {
	if idx < size {
		return 0
	}
	start := idx - size/2
	end := min(start+size, total)
	return max(0, end-size)
}
