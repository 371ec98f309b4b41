// Package store persists exported simulation histories in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/report"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no simulation has the requested ID.
var ErrNotFound = errors.New("simulation not found")

// Store persists simulation envelopes and their round records.
type Store struct {
	db *sqlx.DB
}

// Summary describes a stored simulation without its records.
type Summary struct {
	SimulationID      uuid.UUID
	Seed              int64
	CreatedAt         time.Time
	Rounds            int
	Users             int
	Bidders           []string
	UncontestedPolicy string
	HistoryHash       string
}

type simulationRow struct {
	ID                string `db:"id"`
	Seed              int64  `db:"seed"`
	CreatedAt         string `db:"created_at"`
	Rounds            int    `db:"rounds"`
	Users             int    `db:"users"`
	Bidders           string `db:"bidders"`
	UncontestedPolicy string `db:"uncontested_policy"`
	HistoryHash       string `db:"history_hash"`
}

type recordRow struct {
	SimulationID string          `db:"simulation_id"`
	Seq          int             `db:"seq"`
	Bidder       int             `db:"bidder"`
	BidderName   string          `db:"bidder_name"`
	Round        int             `db:"round"`
	Bid          sql.NullFloat64 `db:"bid"`
	UserID       int             `db:"user_id"`
	Clicked      sql.NullBool    `db:"clicked"`
	Balance      float64         `db:"balance"`
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes env and all of its records in one transaction.
func (s *Store) Save(ctx context.Context, env *report.Envelope) (err error) {
	bidders, err := json.Marshal(env.Bidders)
	if err != nil {
		return fmt.Errorf("encode bidders: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := env.SimulationID.String()
	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO simulations (id, seed, created_at, rounds, users, bidders, uncontested_policy, history_hash)
		 VALUES (:id, :seed, :created_at, :rounds, :users, :bidders, :uncontested_policy, :history_hash)`,
		simulationRow{
			ID:                id,
			Seed:              env.Seed,
			CreatedAt:         env.CreatedAt.UTC().Format(time.RFC3339Nano),
			Rounds:            env.Rounds,
			Users:             env.Users,
			Bidders:           string(bidders),
			UncontestedPolicy: env.UncontestedPolicy,
			HistoryHash:       env.HistoryHash,
		})
	if err != nil {
		return fmt.Errorf("insert simulation %s: %w", id, err)
	}

	stmt, err := tx.PrepareNamedContext(ctx,
		`INSERT INTO round_records (simulation_id, seq, bidder, bidder_name, round, bid, user_id, clicked, balance)
		 VALUES (:simulation_id, :seq, :bidder, :bidder_name, :round, :bid, :user_id, :clicked, :balance)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range env.Records {
		if _, err = stmt.ExecContext(ctx, toRecordRow(id, i, record)); err != nil {
			return fmt.Errorf("insert record %d of simulation %s: %w", i, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit simulation %s: %w", id, err)
	}
	return nil
}

// Load returns the stored envelope with its records in append order.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*report.Envelope, error) {
	var row simulationRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM simulations WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get simulation %s: %w", id, err)
	}

	summary, err := row.summary()
	if err != nil {
		return nil, err
	}

	rows := []recordRow{}
	err = s.db.SelectContext(ctx, &rows,
		`SELECT * FROM round_records WHERE simulation_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("select records of simulation %s: %w", id, err)
	}

	records := make([]core.RoundRecord, len(rows))
	for i, r := range rows {
		records[i] = r.record()
	}

	return &report.Envelope{
		SimulationID:      summary.SimulationID,
		Seed:              summary.Seed,
		CreatedAt:         summary.CreatedAt,
		Rounds:            summary.Rounds,
		Users:             summary.Users,
		Bidders:           summary.Bidders,
		UncontestedPolicy: summary.UncontestedPolicy,
		HistoryHash:       summary.HistoryHash,
		Records:           records,
	}, nil
}

// List returns every stored simulation, oldest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows := []simulationRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM simulations ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summary, err := row.summary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Delete removes a simulation and its records.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete simulation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete simulation %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r simulationRow) summary() (Summary, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("parse simulation id %q: %w", r.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return Summary{}, fmt.Errorf("parse created_at of simulation %s: %w", r.ID, err)
	}
	var bidders []string
	if err := json.Unmarshal([]byte(r.Bidders), &bidders); err != nil {
		return Summary{}, fmt.Errorf("decode bidders of simulation %s: %w", r.ID, err)
	}
	return Summary{
		SimulationID:      id,
		Seed:              r.Seed,
		CreatedAt:         createdAt,
		Rounds:            r.Rounds,
		Users:             r.Users,
		Bidders:           bidders,
		UncontestedPolicy: r.UncontestedPolicy,
		HistoryHash:       r.HistoryHash,
	}, nil
}

func toRecordRow(simulationID string, seq int, record core.RoundRecord) recordRow {
	row := recordRow{
		SimulationID: simulationID,
		Seq:          seq,
		Bidder:       record.Bidder,
		BidderName:   record.BidderName,
		Round:        record.Round,
		UserID:       int(record.User),
		Balance:      record.Balance,
	}
	if record.Bid != nil {
		row.Bid = sql.NullFloat64{Float64: *record.Bid, Valid: true}
	}
	if record.Clicked != nil {
		row.Clicked = sql.NullBool{Bool: *record.Clicked, Valid: true}
	}
	return row
}

func (r recordRow) record() core.RoundRecord {
	record := core.RoundRecord{
		Bidder:     r.Bidder,
		BidderName: r.BidderName,
		Round:      r.Round,
		User:       core.UserID(r.UserID),
		Balance:    r.Balance,
	}
	if r.Bid.Valid {
		bid := r.Bid.Float64
		record.Bid = &bid
	}
	if r.Clicked.Valid {
		clicked := r.Clicked.Bool
		record.Clicked = &clicked
	}
	return record
}
