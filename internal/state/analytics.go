// ./internal/state/analytics.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yieldroute/srm/internal/types"
)

// GetStrategySummary aggregates persisted cycle outcomes for one strategy.
// Sums run in the database over the NUMERIC columns and come back as decimal
// strings, so no precision is lost on the way out.
func GetStrategySummary(strategyID types.StrategyID) (*types.StrategySummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE NOT success),
			COALESCE(SUM(profit) FILTER (WHERE success), 0)::TEXT,
			COALESCE(SUM(loss) FILTER (WHERE success), 0)::TEXT,
			COALESCE(SUM(debt_payment) FILTER (WHERE success), 0)::TEXT,
			MAX(record_timestamp)
		FROM cycle_records
		WHERE strategy_id = $1;
	`

	summary := &types.StrategySummary{StrategyID: strategyID}
	var lastCycleAt sql.NullTime
	err := DB.QueryRow(query, strategyID.String()).Scan(
		&summary.CycleCount,
		&summary.FailedCycles,
		&summary.CumulativeProfit,
		&summary.CumulativeLoss,
		&summary.TotalDebtPayments,
		&lastCycleAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate strategy summary: %w", err)
	}
	if lastCycleAt.Valid {
		at := lastCycleAt.Time
		summary.LastCycleAt = &at
	}

	return summary, nil
}

// GetStrategyIDs returns the distinct strategies with persisted cycles,
// most recently active first.
func GetStrategyIDs() ([]types.StrategyID, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT strategy_id
		FROM cycle_records
		GROUP BY strategy_id
		ORDER BY MAX(record_timestamp) DESC;
	`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy ids: %w", err)
	}
	defer rows.Close()

	ids := make([]types.StrategyID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan strategy id: %w", err)
		}
		ids = append(ids, types.StrategyID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("strategy id iteration failed: %w", err)
	}
	return ids, nil
}

// GetFailedCyclesSince returns failed cycle records newer than the cutoff,
// newest first. Used by the health endpoint to flag recent trouble.
func GetFailedCyclesSince(cutoff time.Time) ([]types.CycleRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT record_id, cycle_number, strategy_id, record_timestamp,
			requested_withdrawal, profit, loss, debt_payment, amount_freed,
			total_assets_before, total_assets_after, tracked_debt, price_per_share,
			success, COALESCE(message, '')
		FROM cycle_records
		WHERE NOT success AND record_timestamp > $1
		ORDER BY record_timestamp DESC;
	`

	rows, err := DB.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed cycles: %w", err)
	}
	defer rows.Close()

	return scanCycleRecords(rows)
}
