// ./internal/state/record_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yieldroute/srm/internal/types"
)

// SaveCycleRecord persists one completed (or failed) engine cycle.
func SaveCycleRecord(record types.CycleRecord) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO cycle_records (
			cycle_number, strategy_id, record_timestamp,
			requested_withdrawal, profit, loss, debt_payment, amount_freed,
			total_assets_before, total_assets_after, tracked_debt, price_per_share,
			success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING record_id;
	`

	var recordID int64
	err := DB.QueryRow(
		query,
		record.CycleNumber, record.StrategyID.String(), record.Timestamp,
		record.RequestedWithdrawal, record.Profit, record.Loss, record.DebtPayment, record.AmountFreed,
		record.TotalAssetsBefore, record.TotalAssetsAfter, record.TrackedDebt, record.PricePerShare,
		record.Success, record.Message,
	).Scan(&recordID)

	if err != nil {
		return 0, fmt.Errorf("failed to save cycle record: %w", err)
	}

	log.Info().
		Int64("record_id", recordID).
		Int("cycle_number", record.CycleNumber).
		Str("strategy_id", record.StrategyID.String()).
		Bool("success", record.Success).
		Msg("Cycle record saved to database")

	return recordID, nil
}

// GetRecentCycleRecords returns the most recent cycle records, newest first.
func GetRecentCycleRecords(limit int) ([]types.CycleRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT record_id, cycle_number, strategy_id, record_timestamp,
			requested_withdrawal, profit, loss, debt_payment, amount_freed,
			total_assets_before, total_assets_after, tracked_debt, price_per_share,
			success, COALESCE(message, '')
		FROM cycle_records
		ORDER BY record_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle records: %w", err)
	}
	defer rows.Close()

	return scanCycleRecords(rows)
}

// GetCycleRecordByID returns a single cycle record.
func GetCycleRecordByID(recordID int64) (*types.CycleRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT record_id, cycle_number, strategy_id, record_timestamp,
			requested_withdrawal, profit, loss, debt_payment, amount_freed,
			total_assets_before, total_assets_after, tracked_debt, price_per_share,
			success, COALESCE(message, '')
		FROM cycle_records
		WHERE record_id = $1;
	`

	var record types.CycleRecord
	var strategyID string
	err := DB.QueryRow(query, recordID).Scan(
		&record.RecordID, &record.CycleNumber, &strategyID, &record.Timestamp,
		&record.RequestedWithdrawal, &record.Profit, &record.Loss, &record.DebtPayment, &record.AmountFreed,
		&record.TotalAssetsBefore, &record.TotalAssetsAfter, &record.TrackedDebt, &record.PricePerShare,
		&record.Success, &record.Message,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("cycle record %d not found", recordID)
		}
		return nil, fmt.Errorf("failed to get cycle record %d: %w", recordID, err)
	}
	record.StrategyID = types.StrategyID(strategyID)

	return &record, nil
}

// scanCycleRecords drains a result set of cycle record rows.
func scanCycleRecords(rows *sql.Rows) ([]types.CycleRecord, error) {
	records := make([]types.CycleRecord, 0)
	for rows.Next() {
		var record types.CycleRecord
		var strategyID string
		err := rows.Scan(
			&record.RecordID, &record.CycleNumber, &strategyID, &record.Timestamp,
			&record.RequestedWithdrawal, &record.Profit, &record.Loss, &record.DebtPayment, &record.AmountFreed,
			&record.TotalAssetsBefore, &record.TotalAssetsAfter, &record.TrackedDebt, &record.PricePerShare,
			&record.Success, &record.Message,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle record row: %w", err)
		}
		record.StrategyID = types.StrategyID(strategyID)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cycle record iteration failed: %w", err)
	}
	return records, nil
}
