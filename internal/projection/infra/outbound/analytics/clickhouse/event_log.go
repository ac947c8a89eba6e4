package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/davicafu/inventorylab/internal/projection/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// EventLogRepo implementa EventAnalytics para ClickHouse: cada evento
// consumido por la proyección se registra en una tabla de analítica.
type EventLogRepo struct {
	db *sql.DB
}

// Verificación estática de la interfaz.
var _ domain.EventAnalytics = (*EventLogRepo)(nil)

// NewEventLogRepo es el constructor.
func NewEventLogRepo(addr string, dbName string) (*EventLogRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &EventLogRepo{db: conn}, nil
}

// LogBatch inserta un lote de eventos consumidos. ClickHouse funciona mejor
// con inserciones en lotes.
func (r *EventLogRepo) LogBatch(ctx context.Context, envs []sharedEvents.Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO stock_events_log (aggregate_id, event_type, version, occurred_at, payload, ingested_at)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	ingestedAt := time.Now()
	for _, env := range envs {
		if _, err := stmt.ExecContext(
			ctx,
			env.AggregateID,
			env.EventType,
			int32(env.Version),
			env.OccurredAt,
			string(env.Payload),
			ingestedAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for event %s v%d: %w", env.AggregateID, env.Version, err)
		}
	}

	return tx.Commit()
}

// CountByType devuelve el número de eventos registrados por tipo en un rango.
func (r *EventLogRepo) CountByType(ctx context.Context, start, end time.Time) (map[string]uint64, error) {
	query := `
		SELECT event_type, count() AS total
		FROM stock_events_log
		WHERE ingested_at BETWEEN ? AND ?
		GROUP BY event_type
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var eventType string
		var total uint64
		if err := rows.Scan(&eventType, &total); err != nil {
			return nil, err
		}
		counts[eventType] = total
	}
	return counts, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *EventLogRepo) InitSchema() error {
	// Tabla optimizada para analítica: particionada por mes, ordenada por
	// los campos de consulta habituales.
	query := `
		CREATE TABLE IF NOT EXISTS stock_events_log (
			aggregate_id String,
			event_type   String,
			version      Int32,
			occurred_at  DateTime64(3),
			payload      String,
			ingested_at  DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ingested_at)
		ORDER BY (aggregate_id, event_type, ingested_at);
	`
	_, err := r.db.Exec(query)
	return err
}
