package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

func TestCompileContestSelector(t *testing.T) {
	cs := newTestContestService(t)

	int64Ptr := func(v int64) *int64 { return &v }

	tests := []struct {
		name     string
		selector *ContestSelector
		expected *dbtypes.ContestFilter
		kind     error
		ids      []string
	}{
		{
			name:     "nil selector",
			selector: nil,
			kind:     ErrInputInvalid,
		},
		{
			name:     "empty filter matches everything",
			selector: &ContestSelector{Filter: &ContestQueryFilter{}},
			expected: &dbtypes.ContestFilter{},
		},
		{
			name:     "explicit empty items",
			selector: &ContestSelector{Items: []ContestItemMatcher{}},
			kind:     ErrInputInvalid,
		},
		{
			name:     "item without criteria",
			selector: &ContestSelector{Items: []ContestItemMatcher{{}}},
			kind:     ErrInputInvalid,
		},
		{
			name: "item with both criteria",
			selector: &ContestSelector{Items: []ContestItemMatcher{
				{InternalKey: "cup", ChainId: 1, ContractAddress: testAddress(1)},
			}},
			kind: ErrInputInvalid,
		},
		{
			name: "item with chain only",
			selector: &ContestSelector{Items: []ContestItemMatcher{
				{ChainId: 1},
			}},
			kind: ErrInputInvalid,
		},
		{
			name: "item with malformed address",
			selector: &ContestSelector{Items: []ContestItemMatcher{
				{ChainId: 1, ContractAddress: "0x1234"},
			}},
			kind: ErrInputInvalid,
		},
		{
			name: "items are normalized",
			selector: &ContestSelector{Items: []ContestItemMatcher{
				{InternalKey: " cup-1 "},
				{ChainId: 10, ContractAddress: "0x00000000000000000000000000000000000000AB"},
			}},
			expected: &dbtypes.ContestFilter{
				Matchers: []dbtypes.ContestMatcher{
					{InternalKey: "cup-1"},
					{ChainID: 10, ContractAddress: "0x00000000000000000000000000000000000000ab"},
				},
			},
		},
		{
			name:     "unsupported chain",
			selector: &ContestSelector{Filter: &ContestQueryFilter{ChainIds: []int64{999999}}},
			kind:     ErrResourceUnsupported,
			ids:      []string{"999999"},
		},
		{
			name:     "unsupported chains are sorted and deduplicated",
			selector: &ContestSelector{Filter: &ContestQueryFilter{ChainIds: []int64{5, 1, 3, 5}}},
			kind:     ErrResourceUnsupported,
			ids:      []string{"3", "5"},
		},
		{
			name:     "explicit empty chain ids",
			selector: &ContestSelector{Filter: &ContestQueryFilter{ChainIds: []int64{}}},
			kind:     ErrInputInvalid,
		},
		{
			name:     "unknown status",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Statuses: []string{"active", "paused"}}},
			kind:     ErrInputInvalid,
		},
		{
			name:     "explicit empty statuses",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Statuses: []string{}}},
			kind:     ErrInputInvalid,
		},
		{
			name: "statuses and chains are deduplicated",
			selector: &ContestSelector{Filter: &ContestQueryFilter{
				ChainIds: []int64{1, 10, 1},
				Statuses: []string{"Active", "active", "sealed"},
			}},
			expected: &dbtypes.ContestFilter{
				ChainIds: []int64{1, 10},
				Statuses: []string{"active", "sealed"},
			},
		},
		{
			name: "time range",
			selector: &ContestSelector{Filter: &ContestQueryFilter{TimeRange: &TimeRange{
				From: "2025-03-01T00:00:00Z",
				To:   "2025-03-02T00:00:00+02:00",
			}}},
			expected: &dbtypes.ContestFilter{
				MinEnd:   int64Ptr(1740787200000),
				MaxStart: int64Ptr(1740866400000),
			},
		},
		{
			name: "inverted time range",
			selector: &ContestSelector{Filter: &ContestQueryFilter{TimeRange: &TimeRange{
				From: "2025-03-02T00:00:00Z",
				To:   "2025-03-01T00:00:00Z",
			}}},
			kind: ErrInputInvalid,
		},
		{
			name: "unparseable time range",
			selector: &ContestSelector{Filter: &ContestQueryFilter{TimeRange: &TimeRange{
				From: "last week",
			}}},
			kind: ErrInputInvalid,
		},
		{
			name:     "keyword is trimmed and lowercased",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Keyword: "  Spring CUP "}},
			expected: &dbtypes.ContestFilter{Keyword: "spring cup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := cs.CompileContestSelector(tt.selector)
			if tt.kind != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.kind)
				if tt.ids != nil {
					var queryErr *QueryError
					require.ErrorAs(t, err, &queryErr)
					assert.Equal(t, tt.ids, queryErr.Ids)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, compiled)
		})
	}
}
