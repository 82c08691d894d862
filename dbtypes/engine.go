package dbtypes

// DBEngineType selects the SQL dialect of a query, see db.EngineQuery.
type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEngineSqlite DBEngineType = 1
	DBEnginePgsql  DBEngineType = 2
)

func (e DBEngineType) String() string {
	switch e {
	case DBEngineSqlite:
		return "sqlite"
	case DBEnginePgsql:
		return "pgsql"
	default:
		return "any"
	}
}
