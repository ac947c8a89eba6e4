package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// EventStorePostgres persiste los streams en una tabla append-only.
// El índice único (aggregate_id, version) respalda el guard optimista
// ante cualquier carrera que escape al advisory lock.
type EventStorePostgres struct {
	db *sql.DB
}

var _ domain.EventStore = (*EventStorePostgres)(nil)

func NewEventStorePostgres(db *sql.DB) *EventStorePostgres {
	return &EventStorePostgres{db: db}
}

// InitPostgres crea el esquema del event store si no existe.
func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS event_store (
			id             BIGSERIAL PRIMARY KEY,
			ts             TIMESTAMPTZ NOT NULL,
			aggregate_id   TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			version        INT NOT NULL,
			event_type     TEXT NOT NULL,
			payload        JSONB NOT NULL,
			UNIQUE (aggregate_id, version)
		)
	`)
	return err
}

func (s *EventStorePostgres) Append(ctx context.Context, aggregateID string, envs []sharedEvents.Envelope, expectedVersion int) error {
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

	// Serializa check-and-append por agregado sin bloquear otros streams.
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, aggregateID); err != nil {
		return fmt.Errorf("failed to take stream lock: %w", err)
	}

	var current int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_store WHERE aggregate_id = $1`, aggregateID,
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
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			env.OccurredAt, aggregateID, domain.AggregateType, current+1+i, env.EventType, []byte(env.Payload),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				err = fmt.Errorf("%w: aggregate %s version %d already stored",
					domain.ErrConcurrencyConflict, aggregateID, current+1+i)
			}
			return err
		}
	}

	return tx.Commit()
}

func (s *EventStorePostgres) Load(ctx context.Context, aggregateID string) ([]sharedEvents.Envelope, error) {
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

func (s *EventStorePostgres) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	var current int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_store WHERE aggregate_id = $1`, aggregateID,
	).Scan(&current)
	return current, err
}

func (s *EventStorePostgres) AggregateIDs(ctx context.Context) ([]string, error) {
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

func (s *EventStorePostgres) ScanAll(ctx context.Context) ([]sharedEvents.Record, error) {
	return s.scan(ctx,
		`SELECT id, ts, aggregate_id, aggregate_type, version, event_type, payload
		 FROM event_store ORDER BY id`)
}

func (s *EventStorePostgres) ScanByAggregate(ctx context.Context, aggregateID string) ([]sharedEvents.Record, error) {
	return s.scan(ctx,
		`SELECT id, ts, aggregate_id, aggregate_type, version, event_type, payload
		 FROM event_store WHERE aggregate_id = $1 ORDER BY version`, aggregateID)
}

func (s *EventStorePostgres) scan(ctx context.Context, query string, args ...interface{}) ([]sharedEvents.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []sharedEvents.Record
	for rows.Next() {
		var r sharedEvents.Record
		var payload []byte
		if err := rows.Scan(&r.Seq, &r.Timestamp, &r.AggregateID, &r.AggregateType, &r.Version, &r.EventType, &payload); err != nil {
			return nil, err
		}
		r.Payload = payload
		records = append(records, r)
	}
	return records, rows.Err()
}
