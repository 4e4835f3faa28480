package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSnapshotSQL = `INSERT INTO analysis_snapshots (
        asset,
        bucket_ts,
        price,
        rsi,
        macd,
        score,
        trend,
        quality,
        signal_count,
        signals,
        synthetic
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (asset, bucket_ts) DO UPDATE
    SET
        price        = EXCLUDED.price,
        rsi          = EXCLUDED.rsi,
        macd         = EXCLUDED.macd,
        score        = EXCLUDED.score,
        trend        = EXCLUDED.trend,
        quality      = EXCLUDED.quality,
        signal_count = EXCLUDED.signal_count,
        signals      = EXCLUDED.signals,
        synthetic    = EXCLUDED.synthetic;`

	listSnapshotsBetweenSQL = `SELECT
        asset,
        bucket_ts,
        price,
        rsi,
        macd,
        score,
        trend,
        quality,
        signal_count,
        signals,
        synthetic,
        created_at
    FROM analysis_snapshots
    WHERE asset = $1
      AND bucket_ts >= $2
      AND bucket_ts < $3
    ORDER BY bucket_ts;`

	listRecentSnapshotsSQL = `SELECT
        asset,
        bucket_ts,
        price,
        rsi,
        macd,
        score,
        trend,
        quality,
        signal_count,
        signals,
        synthetic,
        created_at
    FROM analysis_snapshots
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM analysis_snapshots;`

	insertEntryAlertSQL = `INSERT INTO entry_alerts (
        asset,
        bucket_ts,
        quality,
        score,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (asset, bucket_ts) DO UPDATE
    SET quality  = EXCLUDED.quality,
        score    = EXCLUDED.score,
        channels = EXCLUDED.channels
    RETURNING id, asset, bucket_ts, quality, score, channels, created_at;`

	listRecentEntryAlertsSQL = `SELECT
        id,
        asset,
        bucket_ts,
        quality,
        score,
        channels,
        created_at
    FROM entry_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteEntryAlertsBeforeSQL = `DELETE FROM entry_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for analysis snapshot persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot AnalysisSnapshot) error
	ListSnapshotsBetween(ctx context.Context, asset string, from, to time.Time) ([]AnalysisSnapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]AnalysisSnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// EntryAlertStore defines operations for entry alert auditing.
type EntryAlertStore interface {
	InsertEntryAlert(ctx context.Context, alert EntryAlertRecord) (EntryAlertRecord, error)
	ListRecentEntryAlerts(ctx context.Context, limit int) ([]EntryAlertRecord, error)
	DeleteEntryAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to analysis snapshots and entry alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSnapshot persists or updates an analysis snapshot.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot AnalysisSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertSnapshotSQL,
		snapshot.Asset,
		snapshot.Bucket,
		snapshot.Price.String(),
		snapshot.RSI.String(),
		snapshot.MACD.String(),
		snapshot.Score.String(),
		snapshot.Trend,
		snapshot.Quality,
		snapshot.SignalCount,
		[]byte(snapshot.Signals),
		snapshot.Synthetic,
	)
	if execErr != nil {
		return fmt.Errorf("upsert analysis snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists one asset's snapshots within a time window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, asset string, from, to time.Time) ([]AnalysisSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, asset, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]AnalysisSnapshot, 0)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// ListRecentSnapshots lists the most recent snapshots ordered by descending bucket.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]AnalysisSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]AnalysisSnapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// InsertEntryAlert persists an entry alert emission.
func (s *Store) InsertEntryAlert(ctx context.Context, alert EntryAlertRecord) (EntryAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return EntryAlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertEntryAlertSQL,
		alert.Asset,
		alert.BucketTS,
		alert.Quality,
		alert.Score.String(),
		alert.Channels,
	)

	var rec EntryAlertRecord
	var scoreStr string
	if scanErr := row.Scan(
		&rec.ID,
		&rec.Asset,
		&rec.BucketTS,
		&rec.Quality,
		&scoreStr,
		&rec.Channels,
		&rec.CreatedAt,
	); scanErr != nil {
		return EntryAlertRecord{}, fmt.Errorf("insert entry alert: %w", scanErr)
	}

	var convErr error
	rec.Score, convErr = decimal.NewFromString(scoreStr)
	if convErr != nil {
		return EntryAlertRecord{}, fmt.Errorf("parse alert score: %w", convErr)
	}

	return rec, nil
}

// ListRecentEntryAlerts lists most recent entry alerts.
func (s *Store) ListRecentEntryAlerts(ctx context.Context, limit int) ([]EntryAlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEntryAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent entry alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]EntryAlertRecord, 0, limit)
	for rows.Next() {
		var rec EntryAlertRecord
		var scoreStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.Asset,
			&rec.BucketTS,
			&rec.Quality,
			&scoreStr,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.Score, convErr = decimal.NewFromString(scoreStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert score: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteEntryAlertsBefore deletes historical entry alerts.
func (s *Store) DeleteEntryAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteEntryAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete entry alerts before: %w", execErr)
	}
	return nil
}

func scanSnapshot(rows pgx.Rows) (AnalysisSnapshot, error) {
	var (
		asset       string
		bucket      time.Time
		priceStr    string
		rsiStr      string
		macdStr     string
		scoreStr    string
		trend       string
		quality     string
		signalCount int
		signals     json.RawMessage
		synthetic   bool
		createdAt   time.Time
	)

	if err := rows.Scan(
		&asset,
		&bucket,
		&priceStr,
		&rsiStr,
		&macdStr,
		&scoreStr,
		&trend,
		&quality,
		&signalCount,
		&signals,
		&synthetic,
		&createdAt,
	); err != nil {
		return AnalysisSnapshot{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return AnalysisSnapshot{}, fmt.Errorf("parse price: %w", err)
	}
	rsi, err := decimal.NewFromString(rsiStr)
	if err != nil {
		return AnalysisSnapshot{}, fmt.Errorf("parse rsi: %w", err)
	}
	macd, err := decimal.NewFromString(macdStr)
	if err != nil {
		return AnalysisSnapshot{}, fmt.Errorf("parse macd: %w", err)
	}
	score, err := decimal.NewFromString(scoreStr)
	if err != nil {
		return AnalysisSnapshot{}, fmt.Errorf("parse score: %w", err)
	}

	return AnalysisSnapshot{
		Asset:       asset,
		Bucket:      bucket,
		Price:       price,
		RSI:         rsi,
		MACD:        macd,
		Score:       score,
		Trend:       trend,
		Quality:     quality,
		SignalCount: signalCount,
		Signals:     signals,
		Synthetic:   synthetic,
		CreatedAt:   createdAt,
	}, nil
}
