package services

import (
	"context"
	"time"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
)

type ParticipantRecord struct {
	ContestID      string    `json:"contestId"`
	WalletAddress  string    `json:"walletAddress"`
	VaultReference *string   `json:"vaultReference"`
	Amount         string    `json:"amount"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type RewardClaimRecord struct {
	ContestID     string    `json:"contestId"`
	WalletAddress string    `json:"walletAddress"`
	Amount        string    `json:"amount"`
	ClaimedAt     time.Time `json:"claimedAt"`
}

func normalizeWallets(wallets []string) []string {
	if len(wallets) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(wallets))
	normalized := make([]string, 0, len(wallets))
	for _, wallet := range wallets {
		wallet = normalizeAddress(wallet)
		if wallet == "" || seen[wallet] {
			continue
		}
		seen[wallet] = true
		normalized = append(normalized, wallet)
	}
	return normalized
}

// LoadParticipants returns the participations of every given contest,
// ascending by time. A non-empty wallets list restricts the result to
// those wallets.
func LoadParticipants(ctx context.Context, contestIds []string, wallets []string) (map[string][]*ParticipantRecord, error) {
	result := make(map[string][]*ParticipantRecord, len(contestIds))
	if len(contestIds) == 0 {
		return result, nil
	}

	rows, err := db.GetParticipantsByContestIds(ctx, contestIds, normalizeWallets(wallets))
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ContestID] = append(result[row.ContestID], &ParticipantRecord{
			ContestID:      row.ContestID,
			WalletAddress:  row.WalletAddress,
			VaultReference: row.VaultReference,
			Amount:         row.Amount,
			OccurredAt:     time.UnixMilli(row.OccurredAt).UTC(),
		})
	}
	return result, nil
}

// LoadRewardClaims returns the reward claims of every given contest,
// ascending by time. A non-empty wallets list restricts the result to
// those wallets.
func LoadRewardClaims(ctx context.Context, contestIds []string, wallets []string) (map[string][]*RewardClaimRecord, error) {
	result := make(map[string][]*RewardClaimRecord, len(contestIds))
	if len(contestIds) == 0 {
		return result, nil
	}

	rows, err := db.GetRewardClaimsByContestIds(ctx, contestIds, normalizeWallets(wallets))
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ContestID] = append(result[row.ContestID], &RewardClaimRecord{
			ContestID:     row.ContestID,
			WalletAddress: row.WalletAddress,
			Amount:        row.Amount,
			ClaimedAt:     time.UnixMilli(row.ClaimedAt).UTC(),
		})
	}
	return result, nil
}
