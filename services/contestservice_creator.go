package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

type CreatorContestFilter struct {
	ChainIds []int64 `json:"chainIds"`
}

type ContestCreationRequest struct {
	RequestID string          `json:"requestId"`
	UserID    string          `json:"userId"`
	ChainID   int64           `json:"chainId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ContestDeploymentArtifact struct {
	ArtifactID      string    `json:"artifactId"`
	ContestID       *string   `json:"contestId"`
	ContractAddress *string   `json:"contractAddress"`
	TransactionHash *string   `json:"transactionHash"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreatorContestRecord is a creation request with its deployment artifact
// and resulting contest, both nil while they don't exist yet.
type CreatorContestRecord struct {
	Request  *ContestCreationRequest    `json:"request"`
	Artifact *ContestDeploymentArtifact `json:"artifact"`
	Contest  *Contest                   `json:"contest"`
}

type CreatorContestPage struct {
	Items      []*CreatorContestRecord `json:"items"`
	NextCursor *string                 `json:"nextCursor"`
}

// QueryCreatorContests lists the contest creation requests of a user, newest
// first.
func (cs *ContestService) QueryCreatorContests(ctx context.Context, userId string, filter *CreatorContestFilter, pagination *Pagination) (page *CreatorContestPage, err error) {
	defer observeQuery("creator_contests", time.Now(), &err)

	dbFilter := &dbtypes.CreatorRequestFilter{
		UserID: userId,
	}
	if filter != nil {
		compiled := &dbtypes.ContestFilter{}
		unsupported := map[int64]bool{}
		err = cs.compileFilter(compiled, filter.ChainIds, nil, nil, unsupported)
		if err != nil {
			return nil, err
		}
		if err := unsupportedChainsError(unsupported); err != nil {
			return nil, err
		}
		dbFilter.ChainIds = compiled.ChainIds
	}

	cursor, err := cs.decodeCursor(CursorKindCreator, pagination)
	if err != nil {
		return nil, err
	}
	pageSize := cs.pageSize(pagination)

	var keyset *dbtypes.KeysetCursor
	if cursor != nil {
		keyset = &dbtypes.KeysetCursor{
			SortKey:    cursor.SortKey.UnixMilli(),
			TieBreaker: cursor.TieBreaker,
		}
	}

	rows, err := db.GetCreatorRequestsFiltered(ctx, dbFilter, keyset, uint32(pageSize+1))
	if err != nil {
		cs.logger.WithError(err).Error("error loading creator requests")
		return nil, err
	}

	page = &CreatorContestPage{
		Items: make([]*CreatorContestRecord, 0, pageSize),
	}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		page.NextCursor, err = encodeNextCursor(CursorKindCreator, time.UnixMilli(last.CreatedAt), last.RequestID)
		if err != nil {
			return nil, err
		}
		rows = rows[:pageSize]
	}

	for _, row := range rows {
		page.Items = append(page.Items, buildCreatorContestRecord(row))
	}
	return page, nil
}

func buildCreatorContestRecord(row *dbtypes.CreatorRequestRow) *CreatorContestRecord {
	record := &CreatorContestRecord{
		Request: &ContestCreationRequest{
			RequestID: row.RequestID,
			UserID:    row.UserID,
			ChainID:   row.ChainID,
			CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
			UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
		},
	}
	if json.Valid([]byte(row.Payload)) {
		record.Request.Payload = json.RawMessage(row.Payload)
	}

	if artifact := row.Artifact; artifact.ArtifactID != nil {
		record.Artifact = &ContestDeploymentArtifact{
			ArtifactID:      *artifact.ArtifactID,
			ContestID:       artifact.ContestID,
			ContractAddress: artifact.ContractAddress,
			TransactionHash: artifact.TransactionHash,
		}
		if artifact.Status != nil {
			record.Artifact.Status = *artifact.Status
		}
		if artifact.CreatedAt != nil {
			record.Artifact.CreatedAt = time.UnixMilli(*artifact.CreatedAt).UTC()
		}
		if artifact.UpdatedAt != nil {
			record.Artifact.UpdatedAt = time.UnixMilli(*artifact.UpdatedAt).UTC()
		}
	}

	if contest := row.Contest; contest.ID != nil {
		record.Contest = buildContest(&dbtypes.Contest{
			ID:              *contest.ID,
			ChainID:         derefOr(contest.ChainID, 0),
			ContractAddress: derefOr(contest.ContractAddress, ""),
			InternalKey:     contest.InternalKey,
			Status:          derefOr(contest.Status, ""),
			TimeWindowStart: derefOr(contest.TimeWindowStart, 0),
			TimeWindowEnd:   derefOr(contest.TimeWindowEnd, 0),
			OriginTag:       derefOr(contest.OriginTag, ""),
			SealedAt:        contest.SealedAt,
			Metadata:        derefOr(contest.Metadata, ""),
			CreatedAt:       derefOr(contest.CreatedAt, 0),
			UpdatedAt:       derefOr(contest.UpdatedAt, 0),
		})
	}

	return record
}

func derefOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
