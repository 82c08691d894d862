package dbtypes

// ContestMatcher selects a single contest either by internal key or by its
// chain id and contract address.
type ContestMatcher struct {
	InternalKey     string
	ChainID         int64
	ContractAddress string
}

// ContestFilter is a compiled predicate set for the contests table.
// Empty slices and nil pointers mean "no restriction".
type ContestFilter struct {
	Matchers   []ContestMatcher // OR combined
	ContestIds []string
	ChainIds   []int64
	Statuses   []string
	MinEnd     *int64 // time_window_end >= MinEnd
	MaxStart   *int64 // time_window_start <= MaxStart
	Keyword    string // lowercased partial match
}

// KeysetCursor is a decoded pagination position: rows strictly after
// (SortKey, TieBreaker) in descending order are returned.
type KeysetCursor struct {
	SortKey    int64
	TieBreaker string
}

type CreatorRequestFilter struct {
	UserID   string
	ChainIds []int64
}
