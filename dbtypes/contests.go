package dbtypes

// All *At / time window columns hold unix milliseconds.

type Contest struct {
	ID              string  `db:"id"`
	ChainID         int64   `db:"chain_id"`
	ContractAddress string  `db:"contract_address"`
	InternalKey     *string `db:"internal_key"`
	Status          string  `db:"status"`
	TimeWindowStart int64   `db:"time_window_start"`
	TimeWindowEnd   int64   `db:"time_window_end"`
	OriginTag       string  `db:"origin_tag"`
	SealedAt        *int64  `db:"sealed_at"`
	Metadata        string  `db:"metadata"`
	CreatedAt       int64   `db:"created_at"`
	UpdatedAt       int64   `db:"updated_at"`
}

type Participant struct {
	ContestID      string  `db:"contest_id"`
	WalletAddress  string  `db:"wallet_address"`
	VaultReference *string `db:"vault_reference"`
	Amount         string  `db:"amount"`
	OccurredAt     int64   `db:"occurred_at"`
}

type RewardClaim struct {
	ContestID     string `db:"contest_id"`
	WalletAddress string `db:"wallet_address"`
	Amount        string `db:"amount"`
	ClaimedAt     int64  `db:"claimed_at"`
}

type LeaderboardVersion struct {
	ContestID string `db:"contest_id"`
	Version   int64  `db:"version"`
	Entries   string `db:"entries"`
	WrittenAt int64  `db:"written_at"`
}

type UserIdentity struct {
	IdentityID     string `db:"identity_id"`
	ExternalUserID string `db:"external_user_id"`
	CreatedAt      int64  `db:"created_at"`
}

type WalletBinding struct {
	IdentityID    string `db:"identity_id"`
	WalletAddress string `db:"wallet_address"`
	BoundAt       int64  `db:"bound_at"`
	UnboundAt     *int64 `db:"unbound_at"`
}

// ContestActivity is the latest event timestamp of one event type for a contest.
type ContestActivity struct {
	ContestID  string `db:"contest_id"`
	LastAction int64  `db:"last_action"`
}

type ContestCreationRequest struct {
	RequestID string `db:"request_id"`
	UserID    string `db:"user_id"`
	ChainID   int64  `db:"chain_id"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

type ContestDeploymentArtifact struct {
	ArtifactID      *string `db:"artifact_id"`
	RequestID       *string `db:"request_id"`
	ContestID       *string `db:"contest_id"`
	ContractAddress *string `db:"contract_address"`
	TransactionHash *string `db:"transaction_hash"`
	Status          *string `db:"status"`
	CreatedAt       *int64  `db:"created_at"`
	UpdatedAt       *int64  `db:"updated_at"`
}

// CreatorRequestRow is one creation request left-joined with its deployment
// artifact and the contest the deployment produced. Joined columns are nil
// when the respective row does not exist.
type CreatorRequestRow struct {
	ContestCreationRequest
	Artifact ContestDeploymentArtifact `db:"artifact"`
	Contest  NullableContest           `db:"contest"`
}

type NullableContest struct {
	ID              *string `db:"id"`
	ChainID         *int64  `db:"chain_id"`
	ContractAddress *string `db:"contract_address"`
	InternalKey     *string `db:"internal_key"`
	Status          *string `db:"status"`
	TimeWindowStart *int64  `db:"time_window_start"`
	TimeWindowEnd   *int64  `db:"time_window_end"`
	OriginTag       *string `db:"origin_tag"`
	SealedAt        *int64  `db:"sealed_at"`
	Metadata        *string `db:"metadata"`
	CreatedAt       *int64  `db:"created_at"`
	UpdatedAt       *int64  `db:"updated_at"`
}
