package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/versehub/console/internal/data/database"
	"github.com/versehub/console/internal/data/pgxutil"
	"github.com/versehub/console/internal/domain/analytics"
	"github.com/versehub/console/internal/domain/geo"
	apperrors "github.com/versehub/console/internal/errors"
	"github.com/versehub/console/internal/ports"
)

// Advisory lock namespace for retention sweeps so concurrent instances don't delete the same batch.
const (
	advisoryLockRetentionMajor  = 2000
	advisoryLockRetentionVisits = 1
)

var errVisitRequired = errors.New("visit is required")

// VisitRepo persists visitor analytics in Postgres.
type VisitRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.VisitRepository = (*VisitRepo)(nil)

// NewVisitRepo creates a VisitRepo.
func NewVisitRepo(db *sql.DB) *VisitRepo {
	return &VisitRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

var visitColumns = []string{
	"id", "subject_id", "path", "ip", "browser", "os", "device",
	"country", "country_code", "city", "region", "lat", "lon", "created_at",
}

// visitRow is the flat table shape of analytics.Visit.
type visitRow struct {
	ID          int64     `db:"id"`
	SubjectID   string    `db:"subject_id"`
	Path        string    `db:"path"`
	IP          string    `db:"ip"`
	Browser     string    `db:"browser"`
	OS          string    `db:"os"`
	Device      string    `db:"device"`
	Country     string    `db:"country"`
	CountryCode string    `db:"country_code"`
	City        string    `db:"city"`
	Region      string    `db:"region"`
	Lat         *float64  `db:"lat"`
	Lon         *float64  `db:"lon"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r visitRow) toVisit() *analytics.Visit {
	return &analytics.Visit{
		ID:        r.ID,
		SubjectID: r.SubjectID,
		Path:      r.Path,
		Record: geo.Record{
			IP:          r.IP,
			Browser:     r.Browser,
			OS:          r.OS,
			Device:      r.Device,
			Country:     r.Country,
			CountryCode: r.CountryCode,
			City:        r.City,
			Region:      r.Region,
			Lat:         r.Lat,
			Lon:         r.Lon,
		},
		CreatedAt: r.CreatedAt,
	}
}

// Create inserts v and fills its ID and CreatedAt.
func (r *VisitRepo) Create(ctx context.Context, v *analytics.Visit) error {
	if v == nil {
		return errVisitRequired
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = r.timeProvider.Now().UTC()
	}
	lat, lon := v.Record.Lat, v.Record.Lon
	if lat == nil || lon == nil {
		lat, lon = nil, nil
	}

	const q = `
		INSERT INTO visits (subject_id, path, ip, browser, os, device, country, country_code, city, region, lat, lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	rec := v.Record
	err := r.DB.QueryRowContext(ctx, q,
		v.SubjectID, v.Path, rec.IP, rec.Browser, rec.OS, rec.Device,
		rec.Country, rec.CountryCode, rec.City, rec.Region, lat, lon, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert visit: %w", apperrors.MapDBError(err))
	}
	return nil
}

// List returns visits newest first, filtered by opts.
func (r *VisitRepo) List(ctx context.Context, opts analytics.VisitListOptions) ([]*analytics.Visit, error) {
	opts = opts.Normalize()

	queryOpts := []database.ListQueryOption{
		database.WithColumns(visitColumns...),
		database.WithLimit(opts.Limit),
		database.WithOffset(opts.Offset),
		database.WithOrderBy("created_at", "DESC"),
	}
	if opts.Country != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("country", database.Equal, opts.Country),
		))
	}
	if opts.Device != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("device", database.Equal, opts.Device),
		))
	}
	if opts.Since != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("created_at", database.GreaterThanOrEqual, opts.Since.UTC()),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("visits", queryOpts...))

	var rows []visitRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[visitRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", apperrors.MapDBError(err))
	}

	out := make([]*analytics.Visit, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toVisit())
	}
	return out, nil
}

// DeleteOlderThan removes up to batchSize visits created before cutoff.
// Returns 0 without deleting when another instance holds the retention lock.
func (r *VisitRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, apperrors.ValidationField("batch_size", "batch size must be positive")
	}

	var deleted int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockRetentionMajor, advisoryLockRetentionVisits).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := tx.ExecContext(ctx, `
				DELETE FROM visits
				WHERE id IN (
					SELECT id FROM visits
					WHERE created_at < $1
					ORDER BY created_at
					LIMIT $2
				)`, cutoff.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("delete old visits: %w", err)
			}
			deleted, err = res.RowsAffected()
			return err
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return deleted, nil
}
