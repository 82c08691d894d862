package db

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"

	_ "github.com/jackc/pgx/v4/stdlib"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

// DB is a pointer to the contest database
var DbEngine dbtypes.DBEngineType
var ReaderDb *sqlx.DB
var writerDb *sqlx.DB
var writerMutex sync.Mutex

var logger = logrus.StandardLogger().WithField("module", "db")

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) error {
	// The golang sql driver does not properly implement PingContext
	// therefore we use a timer to catch db connection timeouts
	dbConnectionTimeout := time.NewTimer(15 * time.Second)

	go func() {
		<-dbConnectionTimeout.C
		logger.Fatalf("timeout while connecting to %s", dataBaseName)
	}()

	err := dbConn.Ping()
	dbConnectionTimeout.Stop()
	if err != nil {
		return fmt.Errorf("unable to Ping %s: %w", dataBaseName, err)
	}

	return nil
}

func initSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, *sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)", config.File)
	if config.File == ":memory:" {
		// every connection to :memory: opens a separate database
		dsn = config.File
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	err = checkDbConn(dbConn, "database")
	if err != nil {
		return nil, nil, err
	}
	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, dbConn, nil
}

func initPgsql(writer *types.PgsqlDatabaseConfig, reader *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB, error) {
	if writer.MaxOpenConns == 0 {
		writer.MaxOpenConns = 50
	}
	if writer.MaxIdleConns == 0 {
		writer.MaxIdleConns = 10
	}
	if writer.MaxOpenConns < writer.MaxIdleConns {
		writer.MaxIdleConns = writer.MaxOpenConns
	}

	if reader.MaxOpenConns == 0 {
		reader.MaxOpenConns = 50
	}
	if reader.MaxIdleConns == 0 {
		reader.MaxIdleConns = 10
	}
	if reader.MaxOpenConns < reader.MaxIdleConns {
		reader.MaxIdleConns = reader.MaxOpenConns
	}

	logger.Infof("initializing pgsql writer connection to %v with %v/%v conn limit", writer.Host, writer.MaxIdleConns, writer.MaxOpenConns)
	dbConnWriter, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", writer.Username, writer.Password, writer.Host, writer.Port, writer.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("error getting pgsql writer database: %w", err)
	}

	err = checkDbConn(dbConnWriter, "database")
	if err != nil {
		return nil, nil, err
	}
	dbConnWriter.SetConnMaxIdleTime(time.Second * 30)
	dbConnWriter.SetConnMaxLifetime(time.Second * 60)
	dbConnWriter.SetMaxOpenConns(writer.MaxOpenConns)
	dbConnWriter.SetMaxIdleConns(writer.MaxIdleConns)

	logger.Infof("initializing pgsql reader connection to %v with %v/%v conn limit", reader.Host, reader.MaxIdleConns, reader.MaxOpenConns)
	dbConnReader, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", reader.Username, reader.Password, reader.Host, reader.Port, reader.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("error getting pgsql reader database: %w", err)
	}

	err = checkDbConn(dbConnReader, "read replica database")
	if err != nil {
		return nil, nil, err
	}
	dbConnReader.SetConnMaxIdleTime(time.Second * 30)
	dbConnReader.SetConnMaxLifetime(time.Second * 60)
	dbConnReader.SetMaxOpenConns(reader.MaxOpenConns)
	dbConnReader.SetMaxIdleConns(reader.MaxIdleConns)
	return dbConnWriter, dbConnReader, nil
}

// InitDB opens the reader and writer pools for the configured engine.
func InitDB(config *types.DatabaseConfig) error {
	var err error
	switch config.Engine {
	case "sqlite":
		if config.Sqlite == nil {
			return fmt.Errorf("missing sqlite database config")
		}
		DbEngine = dbtypes.DBEngineSqlite
		writerDb, ReaderDb, err = initSqlite(config.Sqlite)
	case "pgsql":
		if config.Pgsql == nil {
			return fmt.Errorf("missing pgsql database config")
		}
		readerConfig := config.Pgsql
		writerConfig := (*types.PgsqlDatabaseConfig)(config.PgsqlWriter)
		if writerConfig == nil || writerConfig.Host == "" {
			writerConfig = readerConfig
		}
		DbEngine = dbtypes.DBEnginePgsql
		writerDb, ReaderDb, err = initPgsql(writerConfig, readerConfig)
	default:
		return fmt.Errorf("unknown database engine type: %s", config.Engine)
	}
	if err != nil {
		return err
	}

	logger.Infof("database ready (engine: %v)", DbEngine)
	return nil
}

func MustInitDB() {
	err := InitDB(&utils.Config.Database)
	if err != nil {
		utils.LogFatal(err, "error initializing database", 0)
	}
}

func MustCloseDB() {
	err := writerDb.Close()
	if err != nil {
		logger.Errorf("Error closing writer db connection: %v", err)
	}
	if ReaderDb != writerDb {
		err = ReaderDb.Close()
		if err != nil {
			logger.Errorf("Error closing reader db connection: %v", err)
		}
	}
}

// RunDBTransaction runs handler inside a writer transaction. The query engine
// itself never writes, this is used by maintenance tooling and test fixtures.
func RunDBTransaction(handler func(tx *sqlx.Tx) error) error {
	if DbEngine == dbtypes.DBEngineSqlite {
		writerMutex.Lock()
		defer writerMutex.Unlock()
	}

	tx, err := writerDb.Beginx()
	if err != nil {
		return fmt.Errorf("error starting db transactions: %v", err)
	}

	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing db transaction: %v", err)
	}

	return nil
}

func ApplyEmbeddedDbSchema(version int64) error {
	var engineDialect string
	var schemaDirectory string
	switch DbEngine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		return fmt.Errorf("unknown database engine")
	}
	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	if version == -2 {
		if err := goose.Up(writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else if version == -1 {
		if err := goose.UpByOne(writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else {
		if err := goose.UpTo(writerDb.DB, schemaDirectory, version, goose.WithAllowMissing()); err != nil {
			return err
		}
	}

	return nil
}

func EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[DbEngine] != "" {
		return queryMap[DbEngine]
	}
	return queryMap[dbtypes.DBEngineAny]
}

// MaxInListSize bounds the number of values bound into a single IN list,
// below the bind parameter limits of sqlite and postgres.
var MaxInListSize = 500

// ChunkInList splits values into slices of at most MaxInListSize entries.
func ChunkInList[T any](values []T) [][]T {
	chunkSize := MaxInListSize
	if chunkSize <= 0 {
		chunkSize = len(values)
	}
	chunks := make([][]T, 0, len(values)/max(chunkSize, 1)+1)
	for start := 0; start < len(values); start += chunkSize {
		chunks = append(chunks, values[start:min(start+chunkSize, len(values))])
	}
	return chunks
}

// appendInList appends one placeholder per value to sql and the values to args.
func appendInList[T any](sql *strings.Builder, args []any, values []T) []any {
	fmt.Fprint(sql, "(")
	for i, value := range values {
		if i > 0 {
			fmt.Fprint(sql, ", ")
		}
		args = append(args, value)
		fmt.Fprintf(sql, "$%v", len(args))
	}
	fmt.Fprint(sql, ")")
	return args
}

// escapeLike escapes LIKE wildcards so the value matches literally.
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
