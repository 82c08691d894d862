package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

func InsertRewardClaims(claims []*dbtypes.RewardClaim, tx *sqlx.Tx) error {
	if len(claims) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "INSERT INTO reward_claims (contest_id, wallet_address, amount, claimed_at) VALUES ")
	argIdx := 0
	fieldCount := 4

	args := make([]any, len(claims)*fieldCount)
	for i, claim := range claims {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprintf(&sql, "($%v, $%v, $%v, $%v)", argIdx+1, argIdx+2, argIdx+3, argIdx+4)

		args[argIdx+0] = claim.ContestID
		args[argIdx+1] = claim.WalletAddress
		args[argIdx+2] = claim.Amount
		args[argIdx+3] = claim.ClaimedAt
		argIdx += fieldCount
	}

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

func GetRewardClaimsByContestIds(ctx context.Context, contestIds []string, wallets []string) ([]*dbtypes.RewardClaim, error) {
	if len(contestIds) == 0 {
		return []*dbtypes.RewardClaim{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "SELECT contest_id, wallet_address, amount, claimed_at FROM reward_claims WHERE contest_id IN ")
	args := appendInList(&sql, []any{}, contestIds)
	if len(wallets) > 0 {
		fmt.Fprint(&sql, " AND wallet_address IN ")
		args = appendInList(&sql, args, wallets)
	}
	fmt.Fprint(&sql, " ORDER BY contest_id ASC, claimed_at ASC, wallet_address ASC")

	claims := []*dbtypes.RewardClaim{}
	err := ReaderDb.SelectContext(ctx, &claims, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching reward claims: %v", err)
		return nil, err
	}
	return claims, nil
}

// GetRewardClaimActivity returns the latest claim timestamp per contest over
// the given wallets.
func GetRewardClaimActivity(ctx context.Context, wallets []string) ([]*dbtypes.ContestActivity, error) {
	if len(wallets) == 0 {
		return []*dbtypes.ContestActivity{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "SELECT contest_id, MAX(claimed_at) AS last_action FROM reward_claims WHERE wallet_address IN ")
	args := appendInList(&sql, []any{}, wallets)
	fmt.Fprint(&sql, " GROUP BY contest_id")

	activity := []*dbtypes.ContestActivity{}
	err := ReaderDb.SelectContext(ctx, &activity, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching reward claim activity: %v", err)
		return nil, err
	}
	return activity, nil
}
