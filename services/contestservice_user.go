package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

// UserContestFilter restricts the activity timeline of a user. ContestIds is
// an optional allow-list, the remaining fields behave like ContestQueryFilter.
type UserContestFilter struct {
	ContestIds []string   `json:"contestIds"`
	ChainIds   []int64    `json:"chainIds"`
	Statuses   []string   `json:"statuses"`
	TimeRange  *TimeRange `json:"timeRange"`
}

type UserContestEntry struct {
	Contest        *Contest             `json:"contest"`
	Participations []*ParticipantRecord `json:"participations"`
	RewardClaims   []*RewardClaimRecord `json:"rewardClaims"`
	LastActivity   time.Time            `json:"lastActivity"`
}

type UserContestPage struct {
	Items      []*UserContestEntry `json:"items"`
	NextCursor *string             `json:"nextCursor"`
}

type userContestActivity struct {
	contest      *dbtypes.Contest
	lastActivity int64
}

func emptyUserContestPage() *UserContestPage {
	return &UserContestPage{
		Items: []*UserContestEntry{},
	}
}

func (cs *ContestService) compileUserContestFilter(filter *UserContestFilter) (*dbtypes.ContestFilter, map[string]bool, error) {
	compiled := &dbtypes.ContestFilter{}
	if filter == nil {
		return compiled, nil, nil
	}

	var allowList map[string]bool
	if filter.ContestIds != nil {
		if len(filter.ContestIds) == 0 {
			return nil, nil, newInputInvalid("contestIds must not be empty")
		}
		allowList = make(map[string]bool, len(filter.ContestIds))
		for _, contestId := range filter.ContestIds {
			contestId = strings.TrimSpace(contestId)
			if contestId == "" {
				return nil, nil, newInputInvalid("contestIds must not contain empty ids")
			}
			allowList[contestId] = true
		}
	}

	unsupported := map[int64]bool{}
	err := cs.compileFilter(compiled, filter.ChainIds, filter.Statuses, filter.TimeRange, unsupported)
	if err != nil {
		return nil, nil, err
	}
	if err := unsupportedChainsError(unsupported); err != nil {
		return nil, nil, err
	}

	return compiled, allowList, nil
}

// QueryUserContests returns the contests a user took part in, most recent
// activity first. Activity is the latest participation or reward claim of
// any wallet currently bound to the user. Unknown users and users without
// active wallets get an empty page.
//
// The activity time is not a stored column, so all contests with activity
// of the user are loaded and ordered in memory before paginating. The
// contest lookup is split into IN lists of at most db.MaxInListSize ids.
func (cs *ContestService) QueryUserContests(ctx context.Context, userId string, filter *UserContestFilter, pagination *Pagination) (page *UserContestPage, err error) {
	defer observeQuery("user_contests", time.Now(), &err)

	compiled, allowList, err := cs.compileUserContestFilter(filter)
	if err != nil {
		return nil, err
	}
	cursor, err := cs.decodeCursor(CursorKindActivity, pagination)
	if err != nil {
		return nil, err
	}
	pageSize := cs.pageSize(pagination)

	identity, err := db.GetUserIdentityByExternalId(ctx, userId)
	if err != nil {
		cs.logger.WithError(err).Error("error loading user identity")
		return nil, err
	}
	if identity == nil {
		return emptyUserContestPage(), nil
	}

	wallets, err := db.GetActiveWallets(ctx, identity.IdentityID)
	if err != nil {
		return nil, err
	}
	wallets = normalizeWallets(wallets)
	if len(wallets) == 0 {
		return emptyUserContestPage(), nil
	}

	lastActivity, err := loadContestActivity(ctx, wallets)
	if err != nil {
		cs.logger.WithError(err).Error("error loading user activity")
		return nil, err
	}

	contestIds := make([]string, 0, len(lastActivity))
	for contestId := range lastActivity {
		if allowList != nil && !allowList[contestId] {
			continue
		}
		contestIds = append(contestIds, contestId)
	}
	if len(contestIds) == 0 {
		return emptyUserContestPage(), nil
	}

	contests, err := loadActivityContests(ctx, compiled, contestIds)
	if err != nil {
		return nil, err
	}

	activities := make([]*userContestActivity, 0, len(contests))
	for _, contest := range contests {
		activity := &userContestActivity{
			contest:      contest,
			lastActivity: lastActivity[contest.ID],
		}
		if cursor != nil && !activityAfterCursor(activity, cursor) {
			continue
		}
		activities = append(activities, activity)
	}

	sort.Slice(activities, func(i, j int) bool {
		if activities[i].lastActivity != activities[j].lastActivity {
			return activities[i].lastActivity > activities[j].lastActivity
		}
		return activities[i].contest.ID > activities[j].contest.ID
	})

	cs.logger.Debugf("user activity query: %v wallets, %v contests, page size %v", len(wallets), len(activities), pageSize)

	page = emptyUserContestPage()
	if len(activities) > pageSize {
		last := activities[pageSize-1]
		page.NextCursor, err = encodeNextCursor(CursorKindActivity, time.UnixMilli(last.lastActivity), last.contest.ID)
		if err != nil {
			return nil, err
		}
		activities = activities[:pageSize]
	}
	if len(activities) == 0 {
		return page, nil
	}

	pageContestIds := make([]string, len(activities))
	for i, activity := range activities {
		pageContestIds[i] = activity.contest.ID
	}

	participants, err := LoadParticipants(ctx, pageContestIds, wallets)
	if err != nil {
		return nil, err
	}
	rewardClaims, err := LoadRewardClaims(ctx, pageContestIds, wallets)
	if err != nil {
		return nil, err
	}

	for _, activity := range activities {
		entry := &UserContestEntry{
			Contest:        buildContest(activity.contest),
			Participations: participants[activity.contest.ID],
			RewardClaims:   rewardClaims[activity.contest.ID],
			LastActivity:   time.UnixMilli(activity.lastActivity).UTC(),
		}
		if entry.Participations == nil {
			entry.Participations = []*ParticipantRecord{}
		}
		if entry.RewardClaims == nil {
			entry.RewardClaims = []*RewardClaimRecord{}
		}
		page.Items = append(page.Items, entry)
	}

	return page, nil
}

// loadActivityContests applies filter to the given contest ids, one IN list
// chunk at a time. The result is unordered.
func loadActivityContests(ctx context.Context, filter *dbtypes.ContestFilter, contestIds []string) ([]*dbtypes.Contest, error) {
	contests := make([]*dbtypes.Contest, 0, len(contestIds))
	for _, chunk := range db.ChunkInList(contestIds) {
		chunkFilter := *filter
		chunkFilter.ContestIds = chunk
		rows, err := db.GetContestsFiltered(ctx, &chunkFilter, nil, 0)
		if err != nil {
			return nil, err
		}
		contests = append(contests, rows...)
	}
	return contests, nil
}

// loadContestActivity merges the latest participation and reward claim time
// per contest into a single last activity timestamp.
func loadContestActivity(ctx context.Context, wallets []string) (map[string]int64, error) {
	participations, err := db.GetParticipationActivity(ctx, wallets)
	if err != nil {
		return nil, err
	}
	claims, err := db.GetRewardClaimActivity(ctx, wallets)
	if err != nil {
		return nil, err
	}

	lastActivity := make(map[string]int64, len(participations)+len(claims))
	for _, activities := range [][]*dbtypes.ContestActivity{participations, claims} {
		for _, activity := range activities {
			if current, ok := lastActivity[activity.ContestID]; !ok || activity.LastAction > current {
				lastActivity[activity.ContestID] = activity.LastAction
			}
		}
	}
	return lastActivity, nil
}

// activityAfterCursor reports whether activity sorts strictly after cursor
// under (lastActivity DESC, contestId DESC).
func activityAfterCursor(activity *userContestActivity, cursor *CursorKey) bool {
	cursorTime := cursor.SortKey.UnixMilli()
	if activity.lastActivity != cursorTime {
		return activity.lastActivity < cursorTime
	}
	return activity.contest.ID < cursor.TieBreaker
}
