package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/n1shan1/pms-trade-capture/internal/outbox"
)

func TestGroupByPortfolio_PreservesFirstSeenOrder(t *testing.T) {
	entries := []outbox.Entry{
		{ID: 1, PortfolioID: "pf-b"},
		{ID: 2, PortfolioID: "pf-a"},
		{ID: 3, PortfolioID: "pf-b"},
		{ID: 4, PortfolioID: "pf-a"},
	}

	groups := groupByPortfolio(entries)
	assert.Len(t, groups, 2)

	assert.Equal(t, "pf-b", groups[0][0].PortfolioID)
	assert.Equal(t, []int64{1, 3}, ids(groups[0]))

	assert.Equal(t, "pf-a", groups[1][0].PortfolioID)
	assert.Equal(t, []int64{2, 4}, ids(groups[1]))
}

func ids(entries []outbox.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestLookup_FindsByID(t *testing.T) {
	group := []outbox.Entry{{ID: 1}, {ID: 2}, {ID: 3}}
	got := lookup(group, 2)
	assert.Equal(t, int64(2), got.ID)
}

func TestLookup_MissingIDReturnsZeroValue(t *testing.T) {
	group := []outbox.Entry{{ID: 1}}
	got := lookup(group, 99)
	assert.Equal(t, outbox.Entry{}, got)
}

func TestNextBackoff_StartsAtBaseThenDoublesAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	max := 800 * time.Millisecond

	b := nextBackoff(0, base, max)
	assert.Equal(t, base, b)

	b = nextBackoff(b, base, max)
	assert.Equal(t, 200*time.Millisecond, b)

	b = nextBackoff(b, base, max)
	assert.Equal(t, 400*time.Millisecond, b)

	b = nextBackoff(b, base, max)
	assert.Equal(t, 800*time.Millisecond, b)

	b = nextBackoff(b, base, max)
	assert.Equal(t, max, b)
}
