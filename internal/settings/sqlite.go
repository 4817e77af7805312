package settings

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/offer"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS readings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	at           INTEGER NOT NULL,
	app          TEXT NOT NULL,
	price        TEXT NOT NULL,
	distance_km  TEXT NOT NULL,
	duration_min TEXT NOT NULL,
	verdict      INTEGER NOT NULL,
	per_km       TEXT NOT NULL,
	per_hour     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_at ON readings(at);
`

// SQLiteStore persists settings and history in a single SQLite file.
type SQLiteStore struct {
	db       *sql.DB
	defaults offer.ThresholdConfig
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "create settings directory")
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "open settings database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "migrate settings database").WithMetadata("path", path)
	}
	return &SQLiteStore{db: db, defaults: offer.DefaultThresholds()}, nil
}

// WithDefaults sets the thresholds reported for keys never saved.
func (s *SQLiteStore) WithDefaults(def offer.ThresholdConfig) *SQLiteStore {
	s.defaults = def
	return s
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Thresholds(ctx context.Context) (offer.ThresholdConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?, ?, ?)`,
		KeyGoodKm, KeyBadKm, KeyGoodHour, KeyBadHour)
	if err != nil {
		return s.defaults, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "query thresholds")
	}
	defer rows.Close()

	values := make(map[string]string, 4)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return s.defaults, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "scan threshold")
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return s.defaults, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "read thresholds")
	}
	return fromValues(s.defaults, func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}), nil
}

func (s *SQLiteStore) SaveThresholds(ctx context.Context, cfg offer.ThresholdConfig) (err error) {
	if err := validate(cfg); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSettingsFailed, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSettingsFailed, "prepare threshold upsert")
	}
	defer stmt.Close()

	for k, v := range toValues(cfg) {
		if _, err = stmt.ExecContext(ctx, k, v.String()); err != nil {
			return apperrors.Wrap(err, apperrors.CodeSettingsFailed, "save threshold").WithMetadata("key", k)
		}
	}
	if err = tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSettingsFailed, "commit thresholds")
	}
	return nil
}

func (s *SQLiteStore) RecordReading(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (at, app, price, distance_km, duration_min, verdict, per_km, per_hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.At.UnixMilli(), string(r.App),
		r.Reading.Price.String(), r.Reading.DistanceKM.String(), r.Reading.DurationMin.String(),
		int(r.Verdict), r.PerKm.String(), r.PerHour.String())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSettingsFailed, "record reading")
	}
	return nil
}

// RecentReadings returns newest first.
func (s *SQLiteStore) RecentReadings(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, app, price, distance_km, duration_min, verdict, per_km, per_hour
		FROM readings ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "query readings")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			at                               int64
			app                              string
			price, dist, dur, perKm, perHour string
			verdict                          int
		)
		if err := rows.Scan(&at, &app, &price, &dist, &dur, &verdict, &perKm, &perHour); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "scan reading")
		}
		rec, err := decodeRecord(at, app, verdict, price, dist, dur, perKm, perHour)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "read readings")
	}
	return out, nil
}

func decodeRecord(at int64, app string, verdict int, fields ...string) (Record, error) {
	nums := make([]decimal.Decimal, len(fields))
	var errs []error
	for i, f := range fields {
		d, err := decimal.NewFromString(f)
		errs = append(errs, err)
		nums[i] = d
	}
	if err := errors.Join(errs...); err != nil {
		return Record{}, apperrors.Wrap(err, apperrors.CodeSettingsFailed, "decode reading")
	}
	return Record{
		At:      time.UnixMilli(at),
		App:     offer.App(app),
		Reading: offer.RideReading{Price: nums[0], DistanceKM: nums[1], DurationMin: nums[2]},
		Verdict: offer.Verdict(verdict),
		PerKm:   nums[3],
		PerHour: nums[4],
	}, nil
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ History = (*SQLiteStore)(nil)
)
