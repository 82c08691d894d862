package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

func InsertParticipants(participants []*dbtypes.Participant, tx *sqlx.Tx) error {
	if len(participants) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "INSERT INTO participants (contest_id, wallet_address, vault_reference, amount, occurred_at) VALUES ")
	argIdx := 0
	fieldCount := 5

	args := make([]any, len(participants)*fieldCount)
	for i, participant := range participants {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprintf(&sql, "($%v, $%v, $%v, $%v, $%v)", argIdx+1, argIdx+2, argIdx+3, argIdx+4, argIdx+5)

		args[argIdx+0] = participant.ContestID
		args[argIdx+1] = participant.WalletAddress
		args[argIdx+2] = participant.VaultReference
		args[argIdx+3] = participant.Amount
		args[argIdx+4] = participant.OccurredAt
		argIdx += fieldCount
	}

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

// GetParticipantsByContestIds loads all participations of the given contests in
// one query, optionally restricted to a set of wallets.
func GetParticipantsByContestIds(ctx context.Context, contestIds []string, wallets []string) ([]*dbtypes.Participant, error) {
	if len(contestIds) == 0 {
		return []*dbtypes.Participant{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "SELECT contest_id, wallet_address, vault_reference, amount, occurred_at FROM participants WHERE contest_id IN ")
	args := appendInList(&sql, []any{}, contestIds)
	if len(wallets) > 0 {
		fmt.Fprint(&sql, " AND wallet_address IN ")
		args = appendInList(&sql, args, wallets)
	}
	fmt.Fprint(&sql, " ORDER BY contest_id ASC, occurred_at ASC, wallet_address ASC")

	participants := []*dbtypes.Participant{}
	err := ReaderDb.SelectContext(ctx, &participants, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching participants: %v", err)
		return nil, err
	}
	return participants, nil
}

// GetParticipationActivity returns the latest participation timestamp per
// contest over the given wallets.
func GetParticipationActivity(ctx context.Context, wallets []string) ([]*dbtypes.ContestActivity, error) {
	if len(wallets) == 0 {
		return []*dbtypes.ContestActivity{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "SELECT contest_id, MAX(occurred_at) AS last_action FROM participants WHERE wallet_address IN ")
	args := appendInList(&sql, []any{}, wallets)
	fmt.Fprint(&sql, " GROUP BY contest_id")

	activity := []*dbtypes.ContestActivity{}
	err := ReaderDb.SelectContext(ctx, &activity, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching participation activity: %v", err)
		return nil, err
	}
	return activity, nil
}
