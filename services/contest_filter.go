package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

// Contest lifecycle states.
const (
	ContestStatusRegistered = "registered"
	ContestStatusActive     = "active"
	ContestStatusFrozen     = "frozen"
	ContestStatusSealed     = "sealed"
	ContestStatusSettled    = "settled"
	ContestStatusCancelled  = "cancelled"
)

var knownContestStatuses = map[string]bool{
	ContestStatusRegistered: true,
	ContestStatusActive:     true,
	ContestStatusFrozen:     true,
	ContestStatusSealed:     true,
	ContestStatusSettled:    true,
	ContestStatusCancelled:  true,
}

// ContestItemMatcher selects one contest, either by internal key or by the
// chain id and contract address pair.
type ContestItemMatcher struct {
	InternalKey     string `json:"internalKey,omitempty"`
	ChainId         int64  `json:"chainId,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

type TimeRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// ContestQueryFilter restricts a contest query. A nil slice means the
// dimension is unrestricted, an empty non-nil slice is rejected.
type ContestQueryFilter struct {
	ChainIds  []int64    `json:"chainIds"`
	Statuses  []string   `json:"statuses"`
	TimeRange *TimeRange `json:"timeRange"`
	Keyword   string     `json:"keyword"`
}

// ContestSelector is the input of QueryContests. Items are OR combined and
// the optional filter is applied on top of them.
type ContestSelector struct {
	Items  []ContestItemMatcher `json:"items"`
	Filter *ContestQueryFilter  `json:"filter"`
}

// CompileContestSelector validates a selector and turns it into a predicate
// set for the contests table.
func (cs *ContestService) CompileContestSelector(selector *ContestSelector) (*dbtypes.ContestFilter, error) {
	if selector == nil || (selector.Items == nil && selector.Filter == nil) {
		return nil, newInputInvalid("selector requires items or a filter")
	}

	compiled := &dbtypes.ContestFilter{}
	unsupported := map[int64]bool{}

	if selector.Items != nil {
		if len(selector.Items) == 0 {
			return nil, newInputInvalid("selector items must not be empty")
		}

		compiled.Matchers = make([]dbtypes.ContestMatcher, 0, len(selector.Items))
		for idx, item := range selector.Items {
			internalKey := strings.TrimSpace(item.InternalKey)
			hasPair := item.ChainId != 0 || item.ContractAddress != ""

			switch {
			case internalKey != "" && hasPair:
				return nil, newInputInvalid("item %v must match either by internal key or by chain and contract", idx)
			case internalKey != "":
				compiled.Matchers = append(compiled.Matchers, dbtypes.ContestMatcher{InternalKey: internalKey})
			case hasPair:
				if item.ChainId <= 0 {
					return nil, newInputInvalid("item %v has an invalid chain id", idx)
				}
				if !common.IsHexAddress(item.ContractAddress) {
					return nil, newInputInvalid("item %v has an invalid contract address", idx)
				}
				if !cs.supportedChains[item.ChainId] {
					unsupported[item.ChainId] = true
				}
				compiled.Matchers = append(compiled.Matchers, dbtypes.ContestMatcher{
					ChainID:         item.ChainId,
					ContractAddress: normalizeAddress(item.ContractAddress),
				})
			default:
				return nil, newInputInvalid("item %v has no match criteria", idx)
			}
		}
	}

	if selector.Filter != nil {
		err := cs.compileFilter(compiled, selector.Filter.ChainIds, selector.Filter.Statuses, selector.Filter.TimeRange, unsupported)
		if err != nil {
			return nil, err
		}
		compiled.Keyword = strings.ToLower(strings.TrimSpace(selector.Filter.Keyword))
	}

	if err := unsupportedChainsError(unsupported); err != nil {
		return nil, err
	}

	return compiled, nil
}

// compileFilter validates the chain, status and time range restrictions and
// applies them to compiled. Unsupported chain ids are collected into
// unsupported so the caller can report all of them at once.
func (cs *ContestService) compileFilter(compiled *dbtypes.ContestFilter, chainIds []int64, statuses []string, timeRange *TimeRange, unsupported map[int64]bool) error {
	if chainIds != nil {
		if len(chainIds) == 0 {
			return newInputInvalid("chainIds must not be empty")
		}
		seen := map[int64]bool{}
		for _, chainId := range chainIds {
			if seen[chainId] {
				continue
			}
			seen[chainId] = true
			if !cs.supportedChains[chainId] {
				unsupported[chainId] = true
			}
			compiled.ChainIds = append(compiled.ChainIds, chainId)
		}
	}

	if statuses != nil {
		if len(statuses) == 0 {
			return newInputInvalid("statuses must not be empty")
		}
		seen := map[string]bool{}
		for _, status := range statuses {
			status = strings.ToLower(strings.TrimSpace(status))
			if !knownContestStatuses[status] {
				return newInputInvalid("unknown contest status %q", status)
			}
			if seen[status] {
				continue
			}
			seen[status] = true
			compiled.Statuses = append(compiled.Statuses, status)
		}
	}

	if timeRange != nil {
		var from, to *time.Time
		if timeRange.From != "" {
			t, err := time.Parse(time.RFC3339Nano, timeRange.From)
			if err != nil {
				return newInputInvalid("invalid time range start %q", timeRange.From)
			}
			from = &t
		}
		if timeRange.To != "" {
			t, err := time.Parse(time.RFC3339Nano, timeRange.To)
			if err != nil {
				return newInputInvalid("invalid time range end %q", timeRange.To)
			}
			to = &t
		}
		if from != nil && to != nil && from.After(*to) {
			return newInputInvalid("time range start is after its end")
		}
		if from != nil {
			minEnd := from.UnixMilli()
			compiled.MinEnd = &minEnd
		}
		if to != nil {
			maxStart := to.UnixMilli()
			compiled.MaxStart = &maxStart
		}
	}

	return nil
}

func unsupportedChainsError(unsupported map[int64]bool) error {
	if len(unsupported) == 0 {
		return nil
	}

	chainIds := make([]int64, 0, len(unsupported))
	for chainId := range unsupported {
		chainIds = append(chainIds, chainId)
	}
	sort.Slice(chainIds, func(i, j int) bool {
		return chainIds[i] < chainIds[j]
	})

	ids := make([]string, len(chainIds))
	for i, chainId := range chainIds {
		ids[i] = strconv.FormatInt(chainId, 10)
	}
	return &QueryError{
		Kind:    ErrResourceUnsupported,
		Message: "unsupported chain ids",
		Ids:     ids,
	}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
