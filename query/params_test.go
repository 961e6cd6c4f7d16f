package query

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOrder_Direction(t *testing.T) {
	tests := []struct {
		order SortOrder
		want  string
	}{
		{SortAscending, "ASC"},
		{"ascending", "ASC"},
		{"ASC", "ASC"},
		{SortDescending, "DESC"},
		{"descending", "DESC"},
		{SortNone, ""},
		{"sideways", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.Direction())
		})
	}
}

func TestListParameters_Offset(t *testing.T) {
	assert.Equal(t, 0, ListParameters{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, ListParameters{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 0, ListParameters{Page: 0, Limit: 10}.Offset())
	assert.Equal(t, 0, ListParameters{Page: -3, Limit: 10}.Offset())
	assert.Equal(t, 0, ListParameters{Page: 4, Limit: 0}.Offset())
}

func TestParams_NotifiesOnlyOnChange(t *testing.T) {
	p := NewParams(ListParameters{Page: 1, Limit: 10})

	var got []ListParameters
	unsubscribe := p.Subscribe(func(lp ListParameters) { got = append(got, lp) })

	p.SetPage(1)
	p.SetPage(2)
	p.SetLimit(20)
	p.SetSort("name", SortAscending)
	p.SetSort("name", SortAscending)
	p.SetSearch("ana")

	require.Len(t, got, 4)
	assert.Equal(t, 2, got[0].Page)
	assert.Equal(t, 20, got[1].Limit)
	assert.Equal(t, "name", got[2].SortField)
	assert.Equal(t, ListParameters{Search: "ana", Page: 2, Limit: 20, SortField: "name", SortOrder: SortAscending}, got[3])
	assert.Equal(t, got[3], p.Snapshot())

	unsubscribe()
	unsubscribe()
	p.SetPage(5)
	assert.Len(t, got, 4)
}

func TestParams_UpdateBatchesFields(t *testing.T) {
	p := NewParams(ListParameters{Page: 3, Limit: 10})

	calls := 0
	p.Subscribe(func(ListParameters) { calls++ })
	p.Update(func(lp *ListParameters) {
		lp.Search = "maria"
		lp.Page = 1
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, ListParameters{Search: "maria", Page: 1, Limit: 10}, p.Snapshot())
}

func TestParams_SubscribersInOrder(t *testing.T) {
	p := NewParams(ListParameters{})

	var order []string
	p.Subscribe(func(ListParameters) { order = append(order, "first") })
	p.Subscribe(func(ListParameters) { order = append(order, "second") })
	p.Subscribe(func(ListParameters) { order = append(order, "third") })
	p.SetLimit(5)

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestParams_ResetPageOnSearch(t *testing.T) {
	p := NewParams(ListParameters{Page: 4, Limit: 10}, WithResetPageOnSearch())

	p.SetSearch("joão")
	assert.Equal(t, 1, p.Snapshot().Page)

	p.SetPage(3)
	p.SetSearch("joão")
	assert.Equal(t, 3, p.Snapshot().Page, "unchanged search keeps the page")

	plain := NewParams(ListParameters{Page: 4})
	plain.SetSearch("joão")
	assert.Equal(t, 4, plain.Snapshot().Page)
}

func TestParams_ConcurrentUpdates(t *testing.T) {
	p := NewParams(ListParameters{Limit: 10})

	var mu sync.Mutex
	seen := 0
	p.Subscribe(func(ListParameters) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			p.SetPage(page)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, seen, 1)
	assert.LessOrEqual(t, seen, 50)
}
