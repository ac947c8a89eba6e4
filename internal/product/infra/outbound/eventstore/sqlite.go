// en internal/product/infra/outbound/eventstore/sqlite.go
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// EventStoreSQLite implementa el port EventStore para despliegue local.
// SQLite serializa los escritores, así que la transacción basta para que
// el check-and-append sea atómico; el índice único es el respaldo.
type EventStoreSQLite struct {
	db *sql.DB
}

var _ domain.EventStore = (*EventStoreSQLite)(nil)

func NewEventStoreSQLite(db *sql.DB) *EventStoreSQLite {
	return &EventStoreSQLite{db: db}
}

// InitSQLite crea el esquema del event store si no existe.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS event_store (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			ts             TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			version        INTEGER NOT NULL,
			event_type     TEXT NOT NULL,
			payload        TEXT NOT NULL,
			UNIQUE (aggregate_id, version)
		)
	`)
	return err
}

func (s *EventStoreSQLite) Append(ctx context.Context, aggregateID string, envs []sharedEvents.Envelope, expectedVersion int) error {
	if len(envs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var current int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_store WHERE aggregate_id = ?`, aggregateID,
	).Scan(&current); err != nil {
		return fmt.Errorf("failed to read stream version: %w", err)
	}

	if expectedVersion != domain.VersionAny && expectedVersion != current {
		err = fmt.Errorf("%w: aggregate %s expected %d, current %d",
			domain.ErrConcurrencyConflict, aggregateID, expectedVersion, current)
		return err
	}

	for i, env := range envs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO event_store (ts, aggregate_id, aggregate_type, version, event_type, payload)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			env.OccurredAt.UTC().Format(time.RFC3339Nano), aggregateID, domain.AggregateType,
			current+1+i, env.EventType, string(env.Payload),
		); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				err = fmt.Errorf("%w: aggregate %s version %d already stored",
					domain.ErrConcurrencyConflict, aggregateID, current+1+i)
			}
			return err
		}
	}

	return tx.Commit()
}

func (s *EventStoreSQLite) Load(ctx context.Context, aggregateID string) ([]sharedEvents.Envelope, error) {
	records, err := s.ScanByAggregate(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	envs := make([]sharedEvents.Envelope, 0, len(records))
	for _, r := range records {
		envs = append(envs, r.Envelope())
	}
	return envs, nil
}

func (s *EventStoreSQLite) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	var current int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_store WHERE aggregate_id = ?`, aggregateID,
	).Scan(&current)
	return current, err
}

func (s *EventStoreSQLite) AggregateIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT aggregate_id FROM event_store ORDER BY aggregate_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *EventStoreSQLite) ScanAll(ctx context.Context) ([]sharedEvents.Record, error) {
	return s.scan(ctx,
		`SELECT id, ts, aggregate_id, aggregate_type, version, event_type, payload
		 FROM event_store ORDER BY id`)
}

func (s *EventStoreSQLite) ScanByAggregate(ctx context.Context, aggregateID string) ([]sharedEvents.Record, error) {
	return s.scan(ctx,
		`SELECT id, ts, aggregate_id, aggregate_type, version, event_type, payload
		 FROM event_store WHERE aggregate_id = ? ORDER BY version`, aggregateID)
}

func (s *EventStoreSQLite) scan(ctx context.Context, query string, args ...interface{}) ([]sharedEvents.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []sharedEvents.Record
	for rows.Next() {
		var r sharedEvents.Record
		var ts, payload string
		if err := rows.Scan(&r.Seq, &ts, &r.AggregateID, &r.AggregateType, &r.Version, &r.EventType, &payload); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		r.Timestamp = parsed
		r.Payload = []byte(payload)
		records = append(records, r)
	}
	return records, rows.Err()
}
