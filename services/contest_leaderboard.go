package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/JiaJunDeng5930/ChainContest-sub000/cache"
	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

type LeaderboardMode string

const (
	LeaderboardModeLatest  LeaderboardMode = "latest"
	LeaderboardModeVersion LeaderboardMode = "version"
)

// largest integer magnitude a float64 holds exactly
const maxExactFloatRank = 1 << 53

type LeaderboardInclude struct {
	Mode    LeaderboardMode
	Version int64
}

type LeaderboardEntry struct {
	Rank          int64   `json:"rank"`
	WalletAddress string  `json:"walletAddress"`
	Score         *string `json:"score,omitempty"`
}

type LeaderboardRecord struct {
	ContestID string             `json:"contestId"`
	Version   int64              `json:"version"`
	WrittenAt time.Time          `json:"writtenAt"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// rawLeaderboardEntry covers the field spellings found in stored snapshots.
type rawLeaderboardEntry struct {
	Rank             any    `mapstructure:"rank"`
	Score            any    `mapstructure:"score"`
	WalletAddress    string `mapstructure:"walletAddress"`
	WalletAddressAlt string `mapstructure:"wallet_address"`
	Wallet           string `mapstructure:"wallet"`
	Address          string `mapstructure:"address"`
}

// ParseLeaderboardInclude parses "latest" or "version:N".
func ParseLeaderboardInclude(value string) (*LeaderboardInclude, error) {
	value = strings.TrimSpace(value)
	if value == string(LeaderboardModeLatest) {
		return &LeaderboardInclude{Mode: LeaderboardModeLatest}, nil
	}

	versionStr, found := strings.CutPrefix(value, "version:")
	if !found {
		return nil, newInputInvalid("invalid leaderboard include %q", value)
	}
	version, err := strconv.ParseInt(versionStr, 10, 64)
	if err != nil || version < 0 {
		return nil, newInputInvalid("invalid leaderboard version %q", versionStr)
	}
	return &LeaderboardInclude{Mode: LeaderboardModeVersion, Version: version}, nil
}

func leaderboardCacheKey(contestId string, version int64) string {
	return fmt.Sprintf("leaderboard:%v:%v", contestId, version)
}

// ResolveLeaderboards returns the requested leaderboard snapshot of every
// contest. In latest mode contests without a leaderboard map to nil, in
// version mode a missing snapshot for any contest fails with ErrNotFound.
func (cs *ContestService) ResolveLeaderboards(ctx context.Context, contestIds []string, include *LeaderboardInclude) (map[string]*LeaderboardRecord, error) {
	if include == nil {
		return nil, newInputInvalid("missing leaderboard include")
	}

	records := make(map[string]*LeaderboardRecord, len(contestIds))
	if len(contestIds) == 0 {
		return records, nil
	}

	switch include.Mode {
	case LeaderboardModeLatest:
		rows, err := db.GetLatestLeaderboards(ctx, contestIds)
		if err != nil {
			return nil, err
		}
		for _, contestId := range contestIds {
			records[contestId] = nil
		}
		for _, row := range rows {
			if records[row.ContestID] != nil {
				continue
			}
			records[row.ContestID] = normalizeLeaderboard(row)
		}
		return records, nil

	case LeaderboardModeVersion:
		missing := []string{}
		for _, contestId := range contestIds {
			if record := cs.getCachedLeaderboard(ctx, contestId, include.Version); record != nil {
				records[contestId] = record
			} else {
				missing = append(missing, contestId)
			}
		}

		if len(missing) > 0 {
			rows, err := db.GetLeaderboardsByVersion(ctx, missing, include.Version)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				if records[row.ContestID] != nil {
					continue
				}
				record := normalizeLeaderboard(row)
				records[row.ContestID] = record
				cs.setCachedLeaderboard(ctx, record)
			}
		}

		notFound := []string{}
		for _, contestId := range contestIds {
			if records[contestId] == nil {
				notFound = append(notFound, contestId)
			}
		}
		if len(notFound) > 0 {
			sort.Strings(notFound)
			return nil, &QueryError{
				Kind:    ErrNotFound,
				Message: fmt.Sprintf("leaderboard version %v not found", include.Version),
				Ids:     notFound,
			}
		}
		return records, nil
	}

	return nil, newInputInvalid("unknown leaderboard mode %q", include.Mode)
}

func (cs *ContestService) getCachedLeaderboard(ctx context.Context, contestId string, version int64) *LeaderboardRecord {
	if cs.leaderboardCache == nil {
		return nil
	}

	record := &LeaderboardRecord{}
	err := cs.leaderboardCache.Get(ctx, leaderboardCacheKey(contestId, version), record)
	if err != nil {
		if !errors.Is(err, cache.CacheMissError) {
			cs.logger.WithError(err).Warnf("error reading leaderboard %v:%v from cache", contestId, version)
		}
		return nil
	}
	return record
}

func (cs *ContestService) setCachedLeaderboard(ctx context.Context, record *LeaderboardRecord) {
	if cs.leaderboardCache == nil {
		return
	}

	err := cs.leaderboardCache.Set(ctx, leaderboardCacheKey(record.ContestID, record.Version), record, cs.leaderboardCacheTtl)
	if err != nil {
		cs.logger.WithError(err).Warnf("error caching leaderboard %v:%v", record.ContestID, record.Version)
	}
}

func normalizeLeaderboard(row *dbtypes.LeaderboardVersion) *LeaderboardRecord {
	return &LeaderboardRecord{
		ContestID: row.ContestID,
		Version:   row.Version,
		WrittenAt: time.UnixMilli(row.WrittenAt).UTC(),
		Entries:   normalizeLeaderboardEntries(row.Entries),
	}
}

// normalizeLeaderboardEntries decodes a stored snapshot, which is either a
// bare array of entries or an object holding them under "entries". Entries
// without an integral rank or a wallet are dropped, duplicate ranks are kept.
func normalizeLeaderboardEntries(raw string) []LeaderboardEntry {
	entries := []LeaderboardEntry{}

	var document any
	if err := decodeJsonDocument(raw, &document); err != nil {
		logger_cq.WithError(err).Warn("ignoring unparseable leaderboard snapshot")
		return entries
	}

	var rawEntries []any
	switch value := document.(type) {
	case []any:
		rawEntries = value
	case map[string]any:
		if list, ok := value["entries"].([]any); ok {
			rawEntries = list
		}
	}

	for _, rawEntry := range rawEntries {
		entry := rawLeaderboardEntry{}
		if err := mapstructure.Decode(rawEntry, &entry); err != nil {
			continue
		}

		rank, ok := parseLeaderboardRank(entry.Rank)
		if !ok {
			continue
		}

		wallet := entry.WalletAddress
		for _, alias := range []string{entry.WalletAddressAlt, entry.Wallet, entry.Address} {
			if wallet != "" {
				break
			}
			wallet = alias
		}
		wallet = normalizeAddress(wallet)
		if wallet == "" {
			continue
		}

		entries = append(entries, LeaderboardEntry{
			Rank:          rank,
			WalletAddress: wallet,
			Score:         parseLeaderboardScore(entry.Score),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].WalletAddress < entries[j].WalletAddress
	})

	return entries
}

// parseLeaderboardRank accepts integer ranks and integral floats such as
// "2.0". Floats are only accepted while they are exact in float64.
func parseLeaderboardRank(value any) (int64, bool) {
	var raw string
	switch v := value.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0, false
	}

	rank, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		return rank, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if math.Abs(f) > maxExactFloatRank {
		return 0, false
	}
	return int64(f), true
}

func parseLeaderboardScore(value any) *string {
	var score string
	switch v := value.(type) {
	case json.Number:
		score = v.String()
	case string:
		score = v
	default:
		return nil
	}
	return &score
}
