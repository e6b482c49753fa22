package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/centxo/adser-dashboard/internal/models"
)

// ClickHouseMetricStore implements MetricStore on a ClickHouse replica of the
// sheet tables. Rows carry no surrogate id there.
type ClickHouseMetricStore struct {
	conn driver.Conn
}

// NewClickHouseMetricStore creates a ClickHouse-backed metric store.
func NewClickHouseMetricStore(conn driver.Conn) *ClickHouseMetricStore {
	return &ClickHouseMetricStore{conn: conn}
}

// ListRecords returns records of the filter's teams inside the date range.
func (s *ClickHouseMetricStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*models.MetricRecord, error) {
	if len(filter.Teams) == 0 {
		return []*models.MetricRecord{}, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT
			team, adser, date,
			message, plan_message, spend, plan_spend, net_messages, lost_messages,
			deposit, turnover, turnover_adser, silent, duplicate, has_user,
			spam, blocked, under_18, over_50, foreign_count
		FROM metric_records
		WHERE has(?, team) AND date >= ? AND date <= ?
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
			&r.Team, &r.Adser, &r.Date,
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
func (s *ClickHouseMetricStore) LatestExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT rate, timestamp
		FROM exchange_rates
		ORDER BY timestamp DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest exchange rate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get latest exchange rate: %w", err)
		}
		return nil, nil
	}

	var rate models.ExchangeRate
	if err := rows.Scan(&rate.Rate, &rate.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
	}
	return &rate, nil
}

// Health checks if ClickHouse is reachable.
func (s *ClickHouseMetricStore) Health(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
