package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
)

func InsertLeaderboardVersions(versions []*dbtypes.LeaderboardVersion, tx *sqlx.Tx) error {
	if len(versions) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO leaderboard_versions ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO leaderboard_versions ",
		}),
		"(contest_id, version, entries, written_at) VALUES ",
	)
	argIdx := 0
	fieldCount := 4

	args := make([]any, len(versions)*fieldCount)
	for i, version := range versions {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprintf(&sql, "($%v, $%v, $%v, $%v)", argIdx+1, argIdx+2, argIdx+3, argIdx+4)

		args[argIdx+0] = version.ContestID
		args[argIdx+1] = version.Version
		args[argIdx+2] = version.Entries
		args[argIdx+3] = version.WrittenAt
		argIdx += fieldCount
	}
	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  " ON CONFLICT (contest_id, version) DO UPDATE SET entries = excluded.entries, written_at = excluded.written_at",
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

// GetLatestLeaderboards returns the highest version row of every given contest
// that has a leaderboard.
func GetLatestLeaderboards(ctx context.Context, contestIds []string) ([]*dbtypes.LeaderboardVersion, error) {
	if len(contestIds) == 0 {
		return []*dbtypes.LeaderboardVersion{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, `
	SELECT lv.contest_id, lv.version, lv.entries, lv.written_at
	FROM leaderboard_versions AS lv
	INNER JOIN (
		SELECT contest_id, MAX(version) AS version
		FROM leaderboard_versions
		WHERE contest_id IN `)
	args := appendInList(&sql, []any{}, contestIds)
	fmt.Fprint(&sql, `
		GROUP BY contest_id
	) AS latest ON latest.contest_id = lv.contest_id AND latest.version = lv.version
	ORDER BY lv.contest_id ASC`)

	versions := []*dbtypes.LeaderboardVersion{}
	err := ReaderDb.SelectContext(ctx, &versions, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching latest leaderboards: %v", err)
		return nil, err
	}
	return versions, nil
}

func GetLeaderboardsByVersion(ctx context.Context, contestIds []string, version int64) ([]*dbtypes.LeaderboardVersion, error) {
	if len(contestIds) == 0 {
		return []*dbtypes.LeaderboardVersion{}, nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "SELECT contest_id, version, entries, written_at FROM leaderboard_versions WHERE version = $1 AND contest_id IN ")
	args := appendInList(&sql, []any{version}, contestIds)
	fmt.Fprint(&sql, " ORDER BY contest_id ASC")

	versions := []*dbtypes.LeaderboardVersion{}
	err := ReaderDb.SelectContext(ctx, &versions, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching leaderboards by version: %v", err)
		return nil, err
	}
	return versions, nil
}
