package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/centxo/adser-dashboard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMetricStore implements MetricStore using PostgreSQL.
type PostgresMetricStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMetricStore creates a PostgreSQL-backed metric store.
func NewPostgresMetricStore(pool *pgxpool.Pool) *PostgresMetricStore {
	return &PostgresMetricStore{pool: pool}
}

const metricRecordColumns = `
	id, team, adser, date,
	message, plan_message, spend, plan_spend, net_messages, lost_messages,
	deposit, turnover, turnover_adser, silent, duplicate, has_user,
	spam, blocked, under_18, over_50, foreign_count`

// ListRecords returns records of the filter's teams inside the date range.
func (s *PostgresMetricStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*models.MetricRecord, error) {
	if len(filter.Teams) == 0 {
		return []*models.MetricRecord{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT`+metricRecordColumns+`
		FROM metric_records
		WHERE team = ANY($1) AND date >= $2 AND date <= $3
		ORDER BY date, team, adser NULLS FIRST
	`, filter.Teams, filter.Start, filter.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list metric records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.MetricRecord, 0)
	for rows.Next() {
		var r models.MetricRecord
		if err := rows.Scan(
			&r.ID, &r.Team, &r.Adser, &r.Date,
			&r.Message, &r.PlanMessage, &r.Spend, &r.PlanSpend, &r.NetMessages, &r.LostMessages,
			&r.Deposit, &r.Turnover, &r.TurnoverAdser, &r.Silent, &r.Duplicate, &r.HasUser,
			&r.Spam, &r.Blocked, &r.Under18, &r.Over50, &r.Foreign,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric record: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric records: %w", err)
	}

	return records, nil
}

// LatestExchangeRate returns the most recently captured rate.
func (s *PostgresMetricStore) LatestExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := s.pool.QueryRow(ctx, `
		SELECT id, rate, timestamp
		FROM exchange_rates
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&rate.ID, &rate.Rate, &rate.Timestamp)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest exchange rate: %w", err)
	}

	return &rate, nil
}

// Health checks if the database is reachable.
func (s *PostgresMetricStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

