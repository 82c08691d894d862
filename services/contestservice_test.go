package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JiaJunDeng5930/ChainContest-sub000/cache"
	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
)

var testBaseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) {
	t.Helper()

	err := db.InitDB(&types.DatabaseConfig{
		Engine: "sqlite",
		Sqlite: &types.SqliteDatabaseConfig{
			File: ":memory:",
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyEmbeddedDbSchema(-2))
	t.Cleanup(db.MustCloseDB)
}

func insertFixtures(t *testing.T, fn func(tx *sqlx.Tx) error) {
	t.Helper()
	require.NoError(t, db.RunDBTransaction(fn))
}

func newTestContestService(t *testing.T) *ContestService {
	t.Helper()

	logger, _ := test.NewNullLogger()
	return NewContestService(logger.WithField("service", "contest-query"), &ContestServiceConfig{
		SupportedChainIds: []int64{1, 10, 8453, 31337},
		DefaultPageSize:   25,
		MaxPageSize:       100,
	})
}

func testMillis(offset time.Duration) int64 {
	return testBaseTime.Add(offset).UnixMilli()
}

func testContest(id string, chainId int64, address string, status string, start, end time.Duration) *dbtypes.Contest {
	return &dbtypes.Contest{
		ID:              id,
		ChainID:         chainId,
		ContractAddress: address,
		Status:          status,
		TimeWindowStart: testMillis(start),
		TimeWindowEnd:   testMillis(end),
		OriginTag:       "factory",
		Metadata:        "{}",
		CreatedAt:       testMillis(start),
		UpdatedAt:       testMillis(start),
	}
}

func testAddress(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func strPtr(s string) *string {
	return &s
}

func TestQueryContestsKeysetCompleteness(t *testing.T) {
	setupTestDB(t)
	cs := newTestContestService(t)
	ctx := context.Background()

	// several contests share an end time so the id tie breaker matters
	contests := []*dbtypes.Contest{
		testContest("c-01", 1, testAddress(1), ContestStatusActive, 0, 1*time.Hour),
		testContest("c-02", 1, testAddress(2), ContestStatusActive, 0, 2*time.Hour),
		testContest("c-03", 1, testAddress(3), ContestStatusSealed, 0, 2*time.Hour),
		testContest("c-04", 10, testAddress(4), ContestStatusActive, 0, 2*time.Hour),
		testContest("c-05", 10, testAddress(5), ContestStatusSettled, 0, 3*time.Hour),
		testContest("c-06", 8453, testAddress(6), ContestStatusActive, 0, 4*time.Hour),
		testContest("c-07", 8453, testAddress(7), ContestStatusRegistered, 0, 4*time.Hour),
	}
	insertFixtures(t, func(tx *sqlx.Tx) error {
		return db.InsertContests(contests, tx)
	})

	selector := &ContestSelector{Filter: &ContestQueryFilter{}}
	pagination := &Pagination{PageSize: 3}

	seen := map[string]int{}
	collected := []*Contest{}
	pages := 0
	for {
		page, err := cs.QueryContests(ctx, selector, nil, pagination)
		require.NoError(t, err)
		pages++
		for _, item := range page.Items {
			seen[item.Contest.ID]++
			collected = append(collected, item.Contest)
		}
		if page.NextCursor == nil {
			break
		}
		assert.Len(t, page.Items, 3)
		pagination = &Pagination{PageSize: 3, Cursor: *page.NextCursor}
		require.Less(t, pages, 10, "pagination does not terminate")
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, len(contests))
	for id, count := range seen {
		assert.Equal(t, 1, count, "contest %v returned more than once", id)
	}

	expectedOrder := []string{"c-07", "c-06", "c-05", "c-04", "c-03", "c-02", "c-01"}
	for i, contest := range collected {
		assert.Equal(t, expectedOrder[i], contest.ID)
	}
}

func TestQueryContestsConcurrentInsert(t *testing.T) {
	setupTestDB(t)
	cs := newTestContestService(t)
	ctx := context.Background()

	insertFixtures(t, func(tx *sqlx.Tx) error {
		return db.InsertContests([]*dbtypes.Contest{
			testContest("c-1", 1, testAddress(1), ContestStatusActive, 0, 1*time.Hour),
			testContest("c-2", 1, testAddress(2), ContestStatusActive, 0, 2*time.Hour),
			testContest("c-3", 1, testAddress(3), ContestStatusActive, 0, 3*time.Hour),
		}, tx)
	})

	selector := &ContestSelector{Filter: &ContestQueryFilter{}}
	page, err := cs.QueryContests(ctx, selector, nil, &Pagination{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c-3", page.Items[0].Contest.ID)
	require.NotNil(t, page.NextCursor)

	// a newer contest sorts before the issued cursor and stays invisible
	insertFixtures(t, func(tx *sqlx.Tx) error {
		return db.InsertContests([]*dbtypes.Contest{
			testContest("c-4", 1, testAddress(4), ContestStatusActive, 0, 4*time.Hour),
		}, tx)
	})

	page, err = cs.QueryContests(ctx, selector, nil, &Pagination{PageSize: 5, Cursor: *page.NextCursor})
	require.NoError(t, err)
	ids := []string{}
	for _, item := range page.Items {
		ids = append(ids, item.Contest.ID)
	}
	assert.Equal(t, []string{"c-2", "c-1"}, ids)
	assert.Nil(t, page.NextCursor)
}

func TestQueryContestsPageSizeClamp(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	logger, _ := test.NewNullLogger()
	cs := NewContestService(logger, &ContestServiceConfig{
		SupportedChainIds: []int64{1},
		DefaultPageSize:   2,
		MaxPageSize:       3,
	})

	contests := []*dbtypes.Contest{}
	for i := 1; i <= 5; i++ {
		contests = append(contests, testContest(fmt.Sprintf("c-%v", i), 1, testAddress(i), ContestStatusActive, 0, time.Duration(i)*time.Hour))
	}
	insertFixtures(t, func(tx *sqlx.Tx) error {
		return db.InsertContests(contests, tx)
	})

	tests := []struct {
		name       string
		pagination *Pagination
		expected   int
	}{
		{name: "default page size", pagination: nil, expected: 2},
		{name: "zero selects default", pagination: &Pagination{PageSize: 0}, expected: 2},
		{name: "negative selects default", pagination: &Pagination{PageSize: -4}, expected: 2},
		{name: "oversized is clamped", pagination: &Pagination{PageSize: 1000}, expected: 3},
		{name: "in range", pagination: &Pagination{PageSize: 1}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := cs.QueryContests(ctx, &ContestSelector{Filter: &ContestQueryFilter{}}, nil, tt.pagination)
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.expected)
			assert.NotNil(t, page.NextCursor)
		})
	}
}

func TestContestServicePageSizeCeiling(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name       string
		config     *ContestServiceConfig
		pagination *Pagination
		expected   int
	}{
		{name: "configured max above ceiling", config: &ContestServiceConfig{MaxPageSize: 500}, pagination: &Pagination{PageSize: 300}, expected: 100},
		{name: "configured default above ceiling", config: &ContestServiceConfig{DefaultPageSize: 250, MaxPageSize: 500}, pagination: nil, expected: 100},
		{name: "configured max below ceiling", config: &ContestServiceConfig{MaxPageSize: 50}, pagination: &Pagination{PageSize: 300}, expected: 50},
		{name: "unset config", config: &ContestServiceConfig{}, pagination: &Pagination{PageSize: 101}, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewContestService(logger, tt.config)
			assert.Equal(t, tt.expected, cs.pageSize(tt.pagination))
		})
	}
}

func TestQueryContestsValidation(t *testing.T) {
	cs := newTestContestService(t)
	ctx := context.Background()

	creatorCursor, err := EncodeCursor(CursorKindCreator, testBaseTime, "req-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		selector   *ContestSelector
		pagination *Pagination
		kind       error
		ids        []string
	}{
		{
			name:     "unsupported chain",
			selector: &ContestSelector{Filter: &ContestQueryFilter{ChainIds: []int64{999999}}},
			kind:     ErrResourceUnsupported,
			ids:      []string{"999999"},
		},
		{
			name: "unsupported chains from items and filter",
			selector: &ContestSelector{
				Items:  []ContestItemMatcher{{ChainId: 77, ContractAddress: testAddress(1)}},
				Filter: &ContestQueryFilter{ChainIds: []int64{1, 999999, 77}},
			},
			kind: ErrResourceUnsupported,
			ids:  []string{"77", "999999"},
		},
		{
			name:     "missing selector",
			selector: &ContestSelector{},
			kind:     ErrInputInvalid,
		},
		{
			name:       "malformed cursor",
			selector:   &ContestSelector{Filter: &ContestQueryFilter{}},
			pagination: &Pagination{Cursor: "not-base64!!"},
			kind:       ErrInputInvalid,
		},
		{
			name:       "cursor of another query family",
			selector:   &ContestSelector{Filter: &ContestQueryFilter{}},
			pagination: &Pagination{Cursor: creatorCursor},
			kind:       ErrInputInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := cs.QueryContests(ctx, tt.selector, nil, tt.pagination)
			require.Error(t, err)
			assert.Nil(t, page)
			assert.ErrorIs(t, err, tt.kind)
			if tt.ids != nil {
				var queryErr *QueryError
				require.ErrorAs(t, err, &queryErr)
				assert.Equal(t, tt.ids, queryErr.Ids)
			}
		})
	}
}

func TestQueryContestsFiltered(t *testing.T) {
	setupTestDB(t)
	cs := newTestContestService(t)
	ctx := context.Background()

	keyed := testContest("c-keyed", 1, testAddress(0xabc), ContestStatusActive, 0, 5*time.Hour)
	keyed.InternalKey = strPtr("Spring_Cup")
	insertFixtures(t, func(tx *sqlx.Tx) error {
		return db.InsertContests([]*dbtypes.Contest{
			keyed,
			testContest("c-old", 1, testAddress(0xdef), ContestStatusSettled, -48*time.Hour, -24*time.Hour),
			testContest("c-op", 10, testAddress(0x123), ContestStatusActive, 0, 2*time.Hour),
			testContest("c-base", 8453, testAddress(0x456), ContestStatusFrozen, 1*time.Hour, 3*time.Hour),
		}, tx)
	})

	tests := []struct {
		name     string
		selector *ContestSelector
		expected []string
	}{
		{
			name:     "chain filter",
			selector: &ContestSelector{Filter: &ContestQueryFilter{ChainIds: []int64{10, 8453}}},
			expected: []string{"c-base", "c-op"},
		},
		{
			name:     "status filter",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Statuses: []string{"ACTIVE"}}},
			expected: []string{"c-keyed", "c-op"},
		},
		{
			name: "time range overlap",
			selector: &ContestSelector{Filter: &ContestQueryFilter{TimeRange: &TimeRange{
				From: testBaseTime.Add(150 * time.Minute).Format(time.RFC3339),
				To:   testBaseTime.Add(4 * time.Hour).Format(time.RFC3339),
			}}},
			expected: []string{"c-keyed", "c-base"},
		},
		{
			name: "open ended time range",
			selector: &ContestSelector{Filter: &ContestQueryFilter{TimeRange: &TimeRange{
				To: testBaseTime.Add(-30 * time.Hour).Format(time.RFC3339),
			}}},
			expected: []string{"c-old"},
		},
		{
			name:     "keyword on internal key",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Keyword: "  spring_"}},
			expected: []string{"c-keyed"},
		},
		{
			name:     "keyword underscore is literal",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Keyword: "a_c"}},
			expected: []string{},
		},
		{
			name:     "keyword on contract address",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Keyword: "0DEF"}},
			expected: []string{"c-old"},
		},
		{
			name: "item matchers are or combined",
			selector: &ContestSelector{Items: []ContestItemMatcher{
				{InternalKey: "Spring_Cup"},
				{ChainId: 10, ContractAddress: "0x" + fmt.Sprintf("%040X", 0x123)},
			}},
			expected: []string{"c-keyed", "c-op"},
		},
		{
			name: "items combined with filter",
			selector: &ContestSelector{
				Items: []ContestItemMatcher{
					{InternalKey: "Spring_Cup"},
					{ChainId: 10, ContractAddress: testAddress(0x123)},
				},
				Filter: &ContestQueryFilter{ChainIds: []int64{10}},
			},
			expected: []string{"c-op"},
		},
		{
			name:     "no match is an empty page",
			selector: &ContestSelector{Filter: &ContestQueryFilter{Statuses: []string{ContestStatusCancelled}}},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := cs.QueryContests(ctx, tt.selector, nil, nil)
			require.NoError(t, err)
			ids := []string{}
			for _, item := range page.Items {
				ids = append(ids, item.Contest.ID)
			}
			assert.Equal(t, tt.expected, ids)
			assert.Nil(t, page.NextCursor)
		})
	}
}

func TestQueryContestsIncludes(t *testing.T) {
	setupTestDB(t)
	cs := newTestContestService(t)
	ctx := context.Background()

	withMetadata := testContest("c-1", 1, testAddress(1), ContestStatusSettled, 0, 2*time.Hour)
	withMetadata.Metadata = `{"creatorWallet":"0x00000000000000000000000000000000000000AA","hostedContests":4,"totalRewards":"999","title":"Weekly"}`
	metadataOnly := testContest("c-2", 1, testAddress(2), ContestStatusSettled, 0, 1*time.Hour)
	metadataOnly.Metadata = `{"totalRewards":"750"}`

	insertFixtures(t, func(tx *sqlx.Tx) error {
		if err := db.InsertContests([]*dbtypes.Contest{withMetadata, metadataOnly}, tx); err != nil {
			return err
		}
		if err := db.InsertParticipants([]*dbtypes.Participant{
			{ContestID: "c-1", WalletAddress: testAddress(11), Amount: "100", OccurredAt: testMillis(20 * time.Minute)},
			{ContestID: "c-1", WalletAddress: testAddress(12), Amount: "200", OccurredAt: testMillis(10 * time.Minute)},
		}, tx); err != nil {
			return err
		}
		if err := db.InsertRewardClaims([]*dbtypes.RewardClaim{
			{ContestID: "c-1", WalletAddress: testAddress(11), Amount: "500000000000000000", ClaimedAt: testMillis(3 * time.Hour)},
			{ContestID: "c-1", WalletAddress: testAddress(12), Amount: "1500000000000000000", ClaimedAt: testMillis(4 * time.Hour)},
		}, tx); err != nil {
			return err
		}
		return db.InsertLeaderboardVersions([]*dbtypes.LeaderboardVersion{
			{ContestID: "c-1", Version: 1, Entries: `[{"rank":1,"walletAddress":"0xAA"}]`, WrittenAt: testMillis(2 * time.Hour)},
			{ContestID: "c-1", Version: 2, Entries: `{"entries":[{"rank":1,"wallet":"0xBB","score":12.5}]}`, WrittenAt: testMillis(3 * time.Hour)},
		}, tx)
	})

	selector := &ContestSelector{Filter: &ContestQueryFilter{}}

	t.Run("no includes", func(t *testing.T) {
		page, err := cs.QueryContests(ctx, selector, nil, nil)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Nil(t, page.Items[0].Participants)
		assert.Nil(t, page.Items[0].Rewards)
		assert.Nil(t, page.Items[0].Leaderboard)
		assert.Nil(t, page.Items[0].CreatorSummary)
		assert.Equal(t, "Weekly", *page.Items[0].Contest.Metadata.Title)
	})

	t.Run("all includes", func(t *testing.T) {
		page, err := cs.QueryContests(ctx, selector, &ContestIncludes{
			Participants:   true,
			Rewards:        true,
			Leaderboard:    &LeaderboardInclude{Mode: LeaderboardModeLatest},
			CreatorSummary: true,
		}, nil)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)

		first := page.Items[0]
		assert.Equal(t, "c-1", first.Contest.ID)
		require.Len(t, first.Participants, 2)
		assert.Equal(t, testAddress(12), first.Participants[0].WalletAddress)
		assert.Equal(t, testAddress(11), first.Participants[1].WalletAddress)
		require.Len(t, first.Rewards, 2)
		require.NotNil(t, first.Leaderboard)
		assert.Equal(t, int64(2), first.Leaderboard.Version)
		assert.Equal(t, []LeaderboardEntry{{Rank: 1, WalletAddress: "0xbb", Score: strPtr("12.5")}}, first.Leaderboard.Entries)

		require.NotNil(t, first.CreatorSummary)
		assert.Equal(t, "0x00000000000000000000000000000000000000aa", *first.CreatorSummary.CreatorWallet)
		assert.Equal(t, uint64(4), *first.CreatorSummary.HostedContests)
		assert.Equal(t, "2000000000000000000", *first.CreatorSummary.TotalRewards)

		second := page.Items[1]
		assert.Equal(t, "c-2", second.Contest.ID)
		assert.Empty(t, second.Participants)
		assert.NotNil(t, second.Participants)
		assert.Nil(t, second.Leaderboard)
		require.NotNil(t, second.CreatorSummary)
		assert.Equal(t, "0", *second.CreatorSummary.TotalRewards)
	})

	t.Run("creator summary falls back to metadata total", func(t *testing.T) {
		page, err := cs.QueryContests(ctx, selector, &ContestIncludes{CreatorSummary: true}, nil)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "999", *page.Items[0].CreatorSummary.TotalRewards)
		assert.Equal(t, "750", *page.Items[1].CreatorSummary.TotalRewards)
		assert.Nil(t, page.Items[1].CreatorSummary.CreatorWallet)
	})

	t.Run("missing leaderboard version fails the page", func(t *testing.T) {
		page, err := cs.QueryContests(ctx, selector, &ContestIncludes{
			Leaderboard: &LeaderboardInclude{Mode: LeaderboardModeVersion, Version: 2},
		}, nil)
		assert.Nil(t, page)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueryContestsLeaderboardCache(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	logger, _ := test.NewNullLogger()
	cs := NewContestService(logrus.NewEntry(logger), &ContestServiceConfig{
		SupportedChainIds: []int64{1},
		LeaderboardCache:  cache.NewTieredCacheWithRemote(1, nil),
	})

	insertFixtures(t, func(tx *sqlx.Tx) error {
		if err := db.InsertContests([]*dbtypes.Contest{testContest("c-1", 1, testAddress(1), ContestStatusSealed, 0, time.Hour)}, tx); err != nil {
			return err
		}
		return db.InsertLeaderboardVersions([]*dbtypes.LeaderboardVersion{
			{ContestID: "c-1", Version: 3, Entries: `[{"rank":1,"walletAddress":"0xAA"}]`, WrittenAt: testMillis(time.Hour)},
		}, tx)
	})

	include := &LeaderboardInclude{Mode: LeaderboardModeVersion, Version: 3}
	records, err := cs.ResolveLeaderboards(ctx, []string{"c-1"}, include)
	require.NoError(t, err)
	assert.Equal(t, "0xaa", records["c-1"].Entries[0].WalletAddress)

	// snapshots are immutable, the cached copy is served afterwards
	insertFixtures(t, func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM leaderboard_versions")
		return err
	})

	records, err = cs.ResolveLeaderboards(ctx, []string{"c-1"}, include)
	require.NoError(t, err)
	require.NotNil(t, records["c-1"])
	assert.Equal(t, int64(3), records["c-1"].Version)
	assert.True(t, testBaseTime.Add(time.Hour).Equal(records["c-1"].WrittenAt))
	assert.Equal(t, "0xaa", records["c-1"].Entries[0].WalletAddress)

	// latest is always read from the store
	records, err = cs.ResolveLeaderboards(ctx, []string{"c-1"}, &LeaderboardInclude{Mode: LeaderboardModeLatest})
	require.NoError(t, err)
	assert.Nil(t, records["c-1"])
}
