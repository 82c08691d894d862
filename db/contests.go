package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

const contestColumns = "id, chain_id, contract_address, internal_key, status, time_window_start, time_window_end, origin_tag, sealed_at, metadata, created_at, updated_at"

func InsertContests(contests []*dbtypes.Contest, tx *sqlx.Tx) error {
	if len(contests) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO contests ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO contests ",
		}),
		"(", contestColumns, ")",
		" VALUES ",
	)
	argIdx := 0
	fieldCount := 12

	args := make([]any, len(contests)*fieldCount)
	for i, contest := range contests {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprint(&sql, "(")
		for f := 0; f < fieldCount; f++ {
			if f > 0 {
				fmt.Fprint(&sql, ", ")
			}
			fmt.Fprintf(&sql, "$%v", argIdx+f+1)
		}
		fmt.Fprint(&sql, ")")

		args[argIdx+0] = contest.ID
		args[argIdx+1] = contest.ChainID
		args[argIdx+2] = contest.ContractAddress
		args[argIdx+3] = contest.InternalKey
		args[argIdx+4] = contest.Status
		args[argIdx+5] = contest.TimeWindowStart
		args[argIdx+6] = contest.TimeWindowEnd
		args[argIdx+7] = contest.OriginTag
		args[argIdx+8] = contest.SealedAt
		args[argIdx+9] = contest.Metadata
		args[argIdx+10] = contest.CreatedAt
		args[argIdx+11] = contest.UpdatedAt
		argIdx += fieldCount
	}
	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  " ON CONFLICT (id) DO UPDATE SET chain_id = excluded.chain_id, contract_address = excluded.contract_address, internal_key = excluded.internal_key, status = excluded.status, time_window_start = excluded.time_window_start, time_window_end = excluded.time_window_end, origin_tag = excluded.origin_tag, sealed_at = excluded.sealed_at, metadata = excluded.metadata, updated_at = excluded.updated_at",
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

// appendContestFilter appends the filter predicates using filterOp as the
// first conjunction and returns the extended args and the next conjunction.
func appendContestFilter(sql *strings.Builder, args []any, filterOp string, filter *dbtypes.ContestFilter) ([]any, string) {
	if filter == nil {
		return args, filterOp
	}

	if len(filter.Matchers) > 0 {
		fmt.Fprintf(sql, " %v (", filterOp)
		for i, matcher := range filter.Matchers {
			if i > 0 {
				fmt.Fprint(sql, " OR ")
			}
			if matcher.InternalKey != "" {
				args = append(args, matcher.InternalKey)
				fmt.Fprintf(sql, "internal_key = $%v", len(args))
			} else {
				args = append(args, matcher.ChainID, matcher.ContractAddress)
				fmt.Fprintf(sql, "(chain_id = $%v AND contract_address = $%v)", len(args)-1, len(args))
			}
		}
		fmt.Fprint(sql, ")")
		filterOp = "AND"
	}
	if len(filter.ContestIds) > 0 {
		fmt.Fprintf(sql, " %v id IN ", filterOp)
		args = appendInList(sql, args, filter.ContestIds)
		filterOp = "AND"
	}
	if len(filter.ChainIds) > 0 {
		fmt.Fprintf(sql, " %v chain_id IN ", filterOp)
		args = appendInList(sql, args, filter.ChainIds)
		filterOp = "AND"
	}
	if len(filter.Statuses) > 0 {
		fmt.Fprintf(sql, " %v status IN ", filterOp)
		args = appendInList(sql, args, filter.Statuses)
		filterOp = "AND"
	}
	if filter.MinEnd != nil {
		args = append(args, *filter.MinEnd)
		fmt.Fprintf(sql, " %v time_window_end >= $%v", filterOp, len(args))
		filterOp = "AND"
	}
	if filter.MaxStart != nil {
		args = append(args, *filter.MaxStart)
		fmt.Fprintf(sql, " %v time_window_start <= $%v", filterOp, len(args))
		filterOp = "AND"
	}
	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		args = append(args, pattern, pattern)
		fmt.Fprintf(sql, ` %v (LOWER(contract_address) LIKE $%v ESCAPE '\' OR LOWER(COALESCE(internal_key, '')) LIKE $%v ESCAPE '\')`, filterOp, len(args)-1, len(args))
		filterOp = "AND"
	}

	return args, filterOp
}

// GetContestsFiltered returns contests matching filter ordered by
// (time_window_end DESC, id DESC), strictly after cursor when set.
func GetContestsFiltered(ctx context.Context, filter *dbtypes.ContestFilter, cursor *dbtypes.KeysetCursor, limit uint32) ([]*dbtypes.Contest, error) {
	var sql strings.Builder
	args := []any{}

	fmt.Fprint(&sql, "SELECT ", contestColumns, " FROM contests")

	filterOp := "WHERE"
	args, filterOp = appendContestFilter(&sql, args, filterOp, filter)
	if cursor != nil {
		args = append(args, cursor.SortKey, cursor.SortKey, cursor.TieBreaker)
		fmt.Fprintf(&sql, " %v (time_window_end < $%v OR (time_window_end = $%v AND id < $%v))", filterOp, len(args)-2, len(args)-1, len(args))
	}

	fmt.Fprint(&sql, " ORDER BY time_window_end DESC, id DESC")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sql, " LIMIT $%v", len(args))
	}

	contests := []*dbtypes.Contest{}
	err := ReaderDb.SelectContext(ctx, &contests, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching filtered contests: %v", err)
		return nil, err
	}
	return contests, nil
}

func GetContestsByIds(ctx context.Context, ids []string) ([]*dbtypes.Contest, error) {
	if len(ids) == 0 {
		return []*dbtypes.Contest{}, nil
	}

	contests := []*dbtypes.Contest{}
	for _, chunk := range ChunkInList(ids) {
		var sql strings.Builder
		fmt.Fprint(&sql, "SELECT ", contestColumns, " FROM contests WHERE id IN ")
		args := appendInList(&sql, []any{}, chunk)

		rows := []*dbtypes.Contest{}
		err := ReaderDb.SelectContext(ctx, &rows, sql.String(), args...)
		if err != nil {
			logger.Errorf("Error while fetching contests by ids: %v", err)
			return nil, err
		}
		contests = append(contests, rows...)
	}
	return contests, nil
}
