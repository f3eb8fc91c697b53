package simulation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/cryptosim/internal/database"
	"github.com/aristath/cryptosim/internal/domain"
	"github.com/aristath/cryptosim/internal/utils"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrResultNotFound is returned when no stored result exists for a symbol.
var ErrResultNotFound = errors.New("simulation result not found")

// StoredResult is a result document together with the inputs that produced it.
type StoredResult struct {
	Result     domain.SimulationResult `json:"result"`
	Parameters Parameters              `json:"parameters"`
	BatchID    string                  `json:"batch_id"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Repository persists simulation results and batch records in simulations.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new simulation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "simulation").Logger(),
	}
}

// ReplaceAll deletes every stored result and writes results plus the batch
// record in one transaction. Readers see the previous set until commit.
func (r *Repository) ReplaceAll(ctx context.Context, batch *BatchReport, results []StoredResult) error {
	reportJSON, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch report: %w", err)
	}

	rows := make([]resultRow, 0, len(results))
	for _, res := range results {
		row, err := encodeResult(res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	done := utils.MeasureDBQuery("replace_all_results", r.log)
	err = database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM simulation_results"); err != nil {
			return fmt.Errorf("failed to clear simulation results: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO simulation_results
				(symbol, batch_id, days, simulations, parameters, paths, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.symbol, row.batchID, row.days, row.simulations,
				row.parameters, row.paths, row.createdAt,
			); err != nil {
				return fmt.Errorf("failed to insert result for %s: %w", row.symbol, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO simulation_batches
				(batch_id, seed, started_at, completed_at, succeeded, skipped, report)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			batch.BatchID,
			int64(batch.Seed),
			batch.StartedAt.Unix(),
			batch.CompletedAt.Unix(),
			len(batch.Succeeded),
			len(batch.Skipped),
			string(reportJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	done(int64(len(rows)))

	r.log.Debug().
		Str("batch_id", batch.BatchID).
		Int("results", len(rows)).
		Msg("Replaced simulation results")
	return nil
}

// GetBySymbol returns the stored result for symbol or ErrResultNotFound.
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*StoredResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT symbol, batch_id, days, simulations, parameters, paths, created_at
		FROM simulation_results
		WHERE symbol = ?
	`, symbol)

	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for %s: %w", symbol, err)
	}
	return res, nil
}

// List returns all stored results ordered by symbol.
func (r *Repository) List(ctx context.Context) ([]StoredResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, batch_id, days, simulations, parameters, paths, created_at
		FROM simulation_results
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

// LatestBatch returns the most recently completed batch, or nil if none ran yet.
func (r *Repository) LatestBatch(ctx context.Context) (*BatchReport, error) {
	var reportJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT report FROM simulation_batches
		ORDER BY completed_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest batch: %w", err)
	}

	var report BatchReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch report: %w", err)
	}
	return &report, nil
}

type resultRow struct {
	symbol      string
	batchID     string
	days        int
	simulations int
	parameters  string
	paths       []byte
	createdAt   int64
}

func encodeResult(res StoredResult) (resultRow, error) {
	params, err := json.Marshal(res.Parameters)
	if err != nil {
		return resultRow{}, fmt.Errorf("failed to marshal parameters for %s: %w", res.Result.Symbol, err)
	}
	paths, err := msgpack.Marshal(res.Result.Arrays())
	if err != nil {
		return resultRow{}, fmt.Errorf("failed to encode paths for %s: %w", res.Result.Symbol, err)
	}

	return resultRow{
		symbol:      res.Result.Symbol,
		batchID:     res.BatchID,
		days:        res.Result.Days(),
		simulations: len(res.Result.Paths),
		parameters:  string(params),
		paths:       paths,
		createdAt:   res.CreatedAt.Unix(),
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(s scanner) (*StoredResult, error) {
	var row resultRow
	if err := s.Scan(
		&row.symbol, &row.batchID, &row.days, &row.simulations,
		&row.parameters, &row.paths, &row.createdAt,
	); err != nil {
		return nil, err
	}

	var params Parameters
	if err := json.Unmarshal([]byte(row.parameters), &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters for %s: %w", row.symbol, err)
	}
	var arrays [][][4]float64
	if err := msgpack.Unmarshal(row.paths, &arrays); err != nil {
		return nil, fmt.Errorf("failed to decode paths for %s: %w", row.symbol, err)
	}

	return &StoredResult{
		Result:     Aggregate(row.symbol, domain.PathsFromArrays(arrays)),
		Parameters: params,
		BatchID:    row.batchID,
		CreatedAt:  time.Unix(row.createdAt, 0).UTC(),
	}, nil
}
