package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JiaJunDeng5930/ChainContest-sub000/cache"
	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

var logger_cq = logrus.StandardLogger().WithField("module", "contest_query")

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ContestService answers the read-only contest queries. It holds no mutable
// state and is safe for concurrent use.
type ContestService struct {
	logger              logrus.FieldLogger
	supportedChains     map[int64]bool
	defaultPageSize     int
	maxPageSize         int
	leaderboardCache    *cache.TieredCache
	leaderboardCacheTtl time.Duration
}

type ContestServiceConfig struct {
	SupportedChainIds   []int64
	DefaultPageSize     int
	MaxPageSize         int
	LeaderboardCache    *cache.TieredCache
	LeaderboardCacheTtl time.Duration
}

var GlobalContestService *ContestService

// InitContestService initializes the global contest service from the loaded config.
func InitContestService(logger logrus.FieldLogger) error {
	if GlobalContestService != nil {
		return nil
	}

	config := &ContestServiceConfig{
		SupportedChainIds: utils.Config.Chains.SupportedChainIds,
		DefaultPageSize:   utils.Config.Query.DefaultPageSize,
		MaxPageSize:       utils.Config.Query.MaxPageSize,
	}

	if utils.Config.LeaderboardCache.Enabled {
		tieredCache, err := cache.NewTieredCache(utils.Config.LeaderboardCache.LocalSizeMB, utils.Config.LeaderboardCache.RedisAddr, utils.Config.LeaderboardCache.RedisPrefix)
		if err != nil {
			return err
		}
		config.LeaderboardCache = tieredCache
		config.LeaderboardCacheTtl = utils.Config.LeaderboardCache.Ttl
	}

	GlobalContestService = NewContestService(logger, config)
	return nil
}

func NewContestService(logger logrus.FieldLogger, config *ContestServiceConfig) *ContestService {
	supportedChains := make(map[int64]bool, len(config.SupportedChainIds))
	for _, chainId := range config.SupportedChainIds {
		supportedChains[chainId] = true
	}

	cs := &ContestService{
		logger:              logger,
		supportedChains:     supportedChains,
		defaultPageSize:     config.DefaultPageSize,
		maxPageSize:         config.MaxPageSize,
		leaderboardCache:    config.LeaderboardCache,
		leaderboardCacheTtl: config.LeaderboardCacheTtl,
	}
	if cs.maxPageSize <= 0 || cs.maxPageSize > maxPageSize {
		cs.maxPageSize = maxPageSize
	}
	if cs.defaultPageSize <= 0 {
		cs.defaultPageSize = defaultPageSize
	}
	if cs.defaultPageSize > cs.maxPageSize {
		cs.defaultPageSize = cs.maxPageSize
	}
	return cs
}

// Pagination requests one page. PageSize is clamped to the configured
// bounds, never above 100, and non-positive values select the default size.
type Pagination struct {
	PageSize int    `json:"pageSize"`
	Cursor   string `json:"cursor"`
}

func (cs *ContestService) pageSize(pagination *Pagination) int {
	if pagination == nil || pagination.PageSize <= 0 {
		return cs.defaultPageSize
	}
	if pagination.PageSize > cs.maxPageSize {
		return cs.maxPageSize
	}
	return pagination.PageSize
}

func (cs *ContestService) decodeCursor(kind CursorKind, pagination *Pagination) (*CursorKey, error) {
	if pagination == nil || pagination.Cursor == "" {
		return nil, nil
	}
	return DecodeCursor(kind, pagination.Cursor)
}

type Contest struct {
	ID              string           `json:"id"`
	ChainID         int64            `json:"chainId"`
	ContractAddress string           `json:"contractAddress"`
	InternalKey     *string          `json:"internalKey"`
	Status          string           `json:"status"`
	TimeWindowStart time.Time        `json:"timeWindowStart"`
	TimeWindowEnd   time.Time        `json:"timeWindowEnd"`
	OriginTag       string           `json:"originTag"`
	SealedAt        *time.Time       `json:"sealedAt"`
	Metadata        *ContestMetadata `json:"metadata"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func millisToTimePtr(millis *int64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(*millis).UTC()
	return &t
}

func buildContest(row *dbtypes.Contest) *Contest {
	return &Contest{
		ID:              row.ID,
		ChainID:         row.ChainID,
		ContractAddress: row.ContractAddress,
		InternalKey:     row.InternalKey,
		Status:          row.Status,
		TimeWindowStart: time.UnixMilli(row.TimeWindowStart).UTC(),
		TimeWindowEnd:   time.UnixMilli(row.TimeWindowEnd).UTC(),
		OriginTag:       row.OriginTag,
		SealedAt:        millisToTimePtr(row.SealedAt),
		Metadata:        decodeContestMetadata(row.Metadata),
		CreatedAt:       time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(row.UpdatedAt).UTC(),
	}
}

// ContestIncludes selects the optional sub-aggregates of QueryContests.
type ContestIncludes struct {
	Participants   bool
	Rewards        bool
	Leaderboard    *LeaderboardInclude
	CreatorSummary bool
}

type CreatorSummary struct {
	CreatorWallet  *string `json:"creatorWallet"`
	HostedContests *uint64 `json:"hostedContests"`
	TotalRewards   *string `json:"totalRewards"`
}

// ContestAggregate is one contest with its requested sub-aggregates.
// Participants and Rewards are nil unless requested.
type ContestAggregate struct {
	Contest        *Contest             `json:"contest"`
	Participants   []*ParticipantRecord `json:"participants"`
	Rewards        []*RewardClaimRecord `json:"rewards"`
	Leaderboard    *LeaderboardRecord   `json:"leaderboard,omitempty"`
	CreatorSummary *CreatorSummary      `json:"creatorSummary,omitempty"`
}

type ContestPage struct {
	Items      []*ContestAggregate `json:"items"`
	NextCursor *string             `json:"nextCursor"`
}

// QueryContests lists the contests matching selector, newest time window end
// first, and hydrates the requested sub-aggregates.
func (cs *ContestService) QueryContests(ctx context.Context, selector *ContestSelector, includes *ContestIncludes, pagination *Pagination) (page *ContestPage, err error) {
	defer observeQuery("contests", time.Now(), &err)

	filter, err := cs.CompileContestSelector(selector)
	if err != nil {
		return nil, err
	}
	cursor, err := cs.decodeCursor(CursorKindContest, pagination)
	if err != nil {
		return nil, err
	}
	if includes == nil {
		includes = &ContestIncludes{}
	}

	pageSize := cs.pageSize(pagination)
	var keyset *dbtypes.KeysetCursor
	if cursor != nil {
		keyset = &dbtypes.KeysetCursor{
			SortKey:    cursor.SortKey.UnixMilli(),
			TieBreaker: cursor.TieBreaker,
		}
	}

	rows, err := db.GetContestsFiltered(ctx, filter, keyset, uint32(pageSize+1))
	if err != nil {
		cs.logger.WithError(err).Error("error loading contests")
		return nil, err
	}
	cs.logger.Debugf("contest query: %v rows, page size %v, cursor %v", len(rows), pageSize, cursor != nil)

	page = &ContestPage{
		Items: make([]*ContestAggregate, 0, pageSize),
	}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		page.NextCursor, err = encodeNextCursor(CursorKindContest, time.UnixMilli(last.TimeWindowEnd), last.ID)
		if err != nil {
			return nil, err
		}
		rows = rows[:pageSize]
	}

	contestIds := make([]string, len(rows))
	for i, row := range rows {
		contestIds[i] = row.ID
		page.Items = append(page.Items, &ContestAggregate{
			Contest: buildContest(row),
		})
	}

	if len(contestIds) == 0 {
		return page, nil
	}

	err = cs.hydrateContests(ctx, page.Items, contestIds, includes)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (cs *ContestService) hydrateContests(ctx context.Context, items []*ContestAggregate, contestIds []string, includes *ContestIncludes) error {
	if includes.Participants {
		participants, err := LoadParticipants(ctx, contestIds, nil)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.Participants = participants[item.Contest.ID]
			if item.Participants == nil {
				item.Participants = []*ParticipantRecord{}
			}
		}
	}

	if includes.Rewards {
		rewards, err := LoadRewardClaims(ctx, contestIds, nil)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.Rewards = rewards[item.Contest.ID]
			if item.Rewards == nil {
				item.Rewards = []*RewardClaimRecord{}
			}
		}
	}

	if includes.Leaderboard != nil {
		leaderboards, err := cs.ResolveLeaderboards(ctx, contestIds, includes.Leaderboard)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.Leaderboard = leaderboards[item.Contest.ID]
		}
	}

	if includes.CreatorSummary {
		for _, item := range items {
			item.CreatorSummary = cs.buildCreatorSummary(item, includes.Rewards)
		}
	}

	return nil
}

// buildCreatorSummary combines the creator fields of the contest metadata
// with the reward total. The total is computed from the hydrated reward
// claims when available and taken from metadata otherwise.
func (cs *ContestService) buildCreatorSummary(item *ContestAggregate, rewardsHydrated bool) *CreatorSummary {
	metadata := item.Contest.Metadata
	summary := &CreatorSummary{
		CreatorWallet:  metadata.CreatorWallet,
		HostedContests: metadata.HostedContests,
		TotalRewards:   metadata.TotalRewards,
	}

	if rewardsHydrated {
		amounts := make([]string, len(item.Rewards))
		for i, reward := range item.Rewards {
			amounts[i] = reward.Amount
		}
		total, err := SumAmounts(amounts)
		if err != nil {
			cs.logger.WithError(err).Warnf("invalid reward amount in contest %v, using metadata total", item.Contest.ID)
		} else {
			summary.TotalRewards = &total
		}
	}

	if summary.CreatorWallet == nil && summary.HostedContests == nil && summary.TotalRewards == nil {
		return nil
	}
	return summary
}
