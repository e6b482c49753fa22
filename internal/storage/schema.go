package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS metric_records (
		id             BIGSERIAL PRIMARY KEY,
		team           TEXT NOT NULL,
		adser          TEXT,
		date           TIMESTAMPTZ NOT NULL,
		message        DOUBLE PRECISION NOT NULL DEFAULT 0,
		plan_message   DOUBLE PRECISION NOT NULL DEFAULT 0,
		spend          DOUBLE PRECISION NOT NULL DEFAULT 0,
		plan_spend     DOUBLE PRECISION NOT NULL DEFAULT 0,
		net_messages   DOUBLE PRECISION NOT NULL DEFAULT 0,
		lost_messages  DOUBLE PRECISION NOT NULL DEFAULT 0,
		deposit        DOUBLE PRECISION NOT NULL DEFAULT 0,
		turnover       DOUBLE PRECISION NOT NULL DEFAULT 0,
		turnover_adser DOUBLE PRECISION NOT NULL DEFAULT 0,
		silent         DOUBLE PRECISION NOT NULL DEFAULT 0,
		duplicate      DOUBLE PRECISION NOT NULL DEFAULT 0,
		has_user       DOUBLE PRECISION NOT NULL DEFAULT 0,
		spam           DOUBLE PRECISION NOT NULL DEFAULT 0,
		blocked        DOUBLE PRECISION NOT NULL DEFAULT 0,
		under_18       DOUBLE PRECISION NOT NULL DEFAULT 0,
		over_50        DOUBLE PRECISION NOT NULL DEFAULT 0,
		foreign_count  DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_records_team_date ON metric_records (team, date)`,
	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id        BIGSERIAL PRIMARY KEY,
		rate      DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exchange_rates_timestamp ON exchange_rates (timestamp DESC)`,
}

// EnsureSchema creates the dashboard tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
