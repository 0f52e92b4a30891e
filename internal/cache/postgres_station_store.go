package cache

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
)

const (
	postgresBackend     = "postgres"
	stationsTable       = "stations"
	defaultPingTimeout  = 5 * time.Second
	defaultMaxPoolConns = 10
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var stationColumns = []string{
	"ext_id", "name", "address", "operator", "latitude", "longitude", "power_kw", "status", "last_seen_utc",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PgxPool is the subset of *pgxpool.Pool the store uses.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStationStore keeps stations in the stations table keyed by ext_id.
type PostgresStationStore struct {
	pool PgxPool
}

var _ models.StationRepository = (*PostgresStationStore)(nil)

func NewPostgresStationStore(pool PgxPool) *PostgresStationStore {
	return &PostgresStationStore{pool: pool}
}

// NewPostgresPool opens a pgx pool and validates the connection.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: empty DSN")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	cfg.MaxConns = defaultMaxPoolConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing migration connection")
		}
	}()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// upsertQuery builds the insert-or-replace statement for one station.
func upsertQuery(st models.Station) (string, []any, error) {
	updates := make([]string, 0, len(stationColumns)-1)
	for _, col := range stationColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	return psql.Insert(stationsTable).
		Columns(stationColumns...).
		Values(st.ExtID, st.Name, st.Address, st.Operator, st.Latitude, st.Longitude, st.PowerKW, st.Status, st.LastSeenUTC).
		Suffix("ON CONFLICT (ext_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
}

func (s *PostgresStationStore) Upsert(ctx context.Context, stations []models.Station) (err error) {
	if len(stations) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return NewPersistenceError(postgresBackend, fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("Error rolling back station upsert")
			}
		}
	}()

	for _, st := range stations {
		query, args, buildErr := upsertQuery(st)
		if buildErr != nil {
			return NewPersistenceError(postgresBackend, fmt.Errorf("building upsert: %w", buildErr))
		}
		if _, execErr := tx.Exec(ctx, query, args...); execErr != nil {
			return NewPersistenceError(postgresBackend, fmt.Errorf("upserting station %s: %w", st.ExtID, execErr))
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return NewPersistenceError(postgresBackend, fmt.Errorf("committing upsert: %w", commitErr))
	}

	log.Debug().Int("count", len(stations)).Msg("Upserted stations to postgres")
	return nil
}

func (s *PostgresStationStore) ListWithin(ctx context.Context, box geo.BoundingBox) ([]models.Station, error) {
	query, args, err := psql.Select(stationColumns...).
		From(stationsTable).
		Where(squirrel.And{
			squirrel.GtOrEq{"latitude": box.MinLat},
			squirrel.LtOrEq{"latitude": box.MaxLat},
			squirrel.GtOrEq{"longitude": box.MinLon},
			squirrel.LtOrEq{"longitude": box.MaxLon},
		}).
		OrderBy("ext_id").
		ToSql()
	if err != nil {
		return nil, NewPersistenceError(postgresBackend, fmt.Errorf("building select: %w", err))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, NewPersistenceError(postgresBackend, fmt.Errorf("querying stations: %w", err))
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(
			&st.ExtID, &st.Name, &st.Address, &st.Operator,
			&st.Latitude, &st.Longitude, &st.PowerKW, &st.Status, &st.LastSeenUTC,
		); err != nil {
			return nil, NewPersistenceError(postgresBackend, fmt.Errorf("scanning station: %w", err))
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, NewPersistenceError(postgresBackend, fmt.Errorf("iterating stations: %w", err))
	}
	return stations, nil
}
