package snapshotrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/logging"
	"github.com/Amund211/blitzstats/internal/reporting"
)

type PostgresSnapshotRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresSnapshotRepository(db *sqlx.DB, schema string) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db, schema}
}

type dbSnapshot struct {
	ID                string    `db:"id"`
	Region            string    `db:"region"`
	AccountID         int       `db:"account_id"`
	QueriedAt         time.Time `db:"queried_at"`
	DataFormatVersion int       `db:"data_format_version"`
	SnapshotData      []byte    `db:"snapshot_data"`
}

func (p *PostgresSnapshotRepository) StoreLastSnapshot(ctx context.Context, snapshot *domain.PlayerSnapshot) error {
	if snapshot == nil {
		err := fmt.Errorf("%w: snapshot is nil", domain.ErrIncompleteSnapshot)
		reporting.Report(ctx, err)
		return err
	}

	extra := map[string]string{
		"region":    string(snapshot.Region),
		"accountID": strconv.Itoa(snapshot.AccountID),
	}

	if snapshot.AccountID <= 0 {
		err := fmt.Errorf("%w: missing account id", domain.ErrIncompleteSnapshot)
		reporting.Report(ctx, err, extra)
		return err
	}

	snapshotData, err := snapshotToDataStorage(snapshot)
	if err != nil {
		err := fmt.Errorf("failed to convert snapshot to data storage: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}

	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}

	// The id of an existing row is kept, so it identifies the session
	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO last_snapshots
		(id, region, account_id, queried_at, data_format_version, snapshot_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (region, account_id) DO UPDATE SET
			queried_at = EXCLUDED.queried_at,
			data_format_version = EXCLUDED.data_format_version,
			snapshot_data = EXCLUDED.snapshot_data,
			updated_at = now()`,
		dbID.String(),
		string(snapshot.Region),
		snapshot.AccountID,
		snapshot.Timestamp,
		DATA_FORMAT_VERSION,
		snapshotData,
	)
	if err != nil {
		err := fmt.Errorf("failed to upsert last snapshot: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, extra)
		return err
	}

	logging.FromContext(ctx).InfoContext(ctx, "Stored last snapshot", "dataFormatVersion", DATA_FORMAT_VERSION)

	return nil
}

func (p *PostgresSnapshotRepository) GetLastSnapshot(ctx context.Context, region domain.Region, accountID int) (*domain.PlayerSnapshot, error) {
	extra := map[string]string{
		"region":    string(region),
		"accountID": strconv.Itoa(accountID),
	}

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, extra)
		return nil, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, extra)
		return nil, err
	}

	var row dbSnapshot
	err = txx.GetContext(
		ctx,
		&row,
		`SELECT
			id, region, account_id, queried_at, data_format_version, snapshot_data
		FROM last_snapshots
		WHERE region = $1 AND account_id = $2`,
		string(region),
		accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotStarted
	} else if err != nil {
		err := fmt.Errorf("failed to query last snapshot: %w", err)
		reporting.Report(ctx, err, extra)
		return nil, err
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, extra)
		return nil, err
	}

	if row.DataFormatVersion != DATA_FORMAT_VERSION {
		err := fmt.Errorf("unsupported data format version %d", row.DataFormatVersion)
		reporting.Report(ctx, err, extra)
		return nil, err
	}

	snapshot, err := snapshotFromDataStorage(region, row.AccountID, row.QueriedAt, row.SnapshotData)
	if err != nil {
		err := fmt.Errorf("failed to read stored snapshot: %w", err)
		reporting.Report(ctx, err, extra)
		return nil, err
	}

	return snapshot, nil
}
