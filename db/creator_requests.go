package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

var creatorArtifactFields = []string{
	"artifact_id", "request_id", "contest_id", "contract_address", "transaction_hash", "status", "created_at", "updated_at",
}

var creatorContestFields = []string{
	"id", "chain_id", "contract_address", "internal_key", "status", "time_window_start", "time_window_end",
	"origin_tag", "sealed_at", "metadata", "created_at", "updated_at",
}

func InsertContestCreationRequests(requests []*dbtypes.ContestCreationRequest, tx *sqlx.Tx) error {
	for _, request := range requests {
		_, err := tx.Exec(`INSERT INTO contest_creation_requests (request_id, user_id, chain_id, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			request.RequestID, request.UserID, request.ChainID, request.Payload, request.CreatedAt, request.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func InsertContestDeploymentArtifacts(artifacts []*dbtypes.ContestDeploymentArtifact, tx *sqlx.Tx) error {
	for _, artifact := range artifacts {
		_, err := tx.Exec(`INSERT INTO contest_deployment_artifacts (artifact_id, request_id, contest_id, contract_address, transaction_hash, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			artifact.ArtifactID, artifact.RequestID, artifact.ContestID, artifact.ContractAddress, artifact.TransactionHash, artifact.Status, artifact.CreatedAt, artifact.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetCreatorRequestsFiltered returns the creation requests of one user joined
// with their deployment artifact and resulting contest, ordered by
// (created_at DESC, request_id DESC) and strictly after cursor when set.
func GetCreatorRequestsFiltered(ctx context.Context, filter *dbtypes.CreatorRequestFilter, cursor *dbtypes.KeysetCursor, limit uint32) ([]*dbtypes.CreatorRequestRow, error) {
	var sql strings.Builder
	args := []any{}

	fmt.Fprint(&sql, `SELECT r.request_id, r.user_id, r.chain_id, r.payload, r.created_at, r.updated_at`)
	for _, field := range creatorArtifactFields {
		fmt.Fprintf(&sql, ", a.%v AS \"artifact.%v\"", field, field)
	}
	for _, field := range creatorContestFields {
		fmt.Fprintf(&sql, ", c.%v AS \"contest.%v\"", field, field)
	}
	fmt.Fprint(&sql, `
	FROM contest_creation_requests AS r
	LEFT JOIN contest_deployment_artifacts AS a ON a.request_id = r.request_id
	LEFT JOIN contests AS c ON c.id = a.contest_id`)

	args = append(args, filter.UserID)
	fmt.Fprintf(&sql, " WHERE r.user_id = $%v", len(args))

	if len(filter.ChainIds) > 0 {
		fmt.Fprint(&sql, " AND r.chain_id IN ")
		args = appendInList(&sql, args, filter.ChainIds)
	}
	if cursor != nil {
		args = append(args, cursor.SortKey, cursor.SortKey, cursor.TieBreaker)
		fmt.Fprintf(&sql, " AND (r.created_at < $%v OR (r.created_at = $%v AND r.request_id < $%v))", len(args)-2, len(args)-1, len(args))
	}

	fmt.Fprint(&sql, " ORDER BY r.created_at DESC, r.request_id DESC")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sql, " LIMIT $%v", len(args))
	}

	rows := []*dbtypes.CreatorRequestRow{}
	err := ReaderDb.SelectContext(ctx, &rows, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching creator requests: %v", err)
		return nil, err
	}
	return rows, nil
}
