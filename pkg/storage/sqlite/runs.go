package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/fedkm/coordinator"
	pkgerrors "github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/survival"
)

var _ coordinator.RunRepository = (*runRepo)(nil)

type runRepo struct {
	db *Database
}

func NewRunRepository(db *Database) coordinator.RunRepository {
	return &runRepo{db: db}
}

type dbRun struct {
	ID        string
	State     string
	Request   []byte
	Nodes     []byte
	Axis      []byte
	Curve     []byte
	Error     sql.NullString
	CreatedAt string
	UpdatedAt string
}

func (r *runRepo) Save(ctx context.Context, run coordinator.Run) error {
	if run.ID == "" {
		return pkgerrors.ErrEmptyKey
	}

	row, err := toDBRun(run)
	if err != nil {
		return err
	}

	query := `INSERT INTO runs (id, state, request, nodes, axis, curve, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			request = excluded.request,
			nodes = excluded.nodes,
			axis = excluded.axis,
			curve = excluded.curve,
			error = excluded.error,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query,
		row.ID, row.State, row.Request, row.Nodes, row.Axis, row.Curve, row.Error, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return nil
}

func (r *runRepo) Get(ctx context.Context, id string) (coordinator.Run, error) {
	if id == "" {
		return coordinator.Run{}, pkgerrors.ErrEmptyKey
	}

	query := `SELECT id, state, request, nodes, axis, curve, error, created_at, updated_at FROM runs WHERE id = ?`

	var row dbRun
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID, &row.State, &row.Request, &row.Nodes, &row.Axis, &row.Curve, &row.Error, &row.CreatedAt, &row.UpdatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return coordinator.Run{}, pkgerrors.ErrNotFound
	case err != nil:
		return coordinator.Run{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return fromDBRun(row)
}

func (r *runRepo) List(ctx context.Context, offset, limit uint64) ([]coordinator.Run, uint64, error) {
	var total uint64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, state, request, nodes, axis, curve, error, created_at, updated_at FROM runs ORDER BY seq LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	defer rows.Close()

	runs := make([]coordinator.Run, 0)
	for rows.Next() {
		var row dbRun
		if err := rows.Scan(
			&row.ID, &row.State, &row.Request, &row.Nodes, &row.Axis, &row.Curve, &row.Error, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
		}
		run, err := fromDBRun(row)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return runs, total, nil
}

func toDBRun(run coordinator.Run) (dbRun, error) {
	request, err := json.Marshal(run.Request)
	if err != nil {
		return dbRun{}, fmt.Errorf("marshal error: %w", err)
	}
	nodes, err := json.Marshal(run.Nodes)
	if err != nil {
		return dbRun{}, fmt.Errorf("marshal error: %w", err)
	}
	axis, err := jsonBytes(run.Axis)
	if err != nil {
		return dbRun{}, err
	}
	var curve []byte
	if run.Curve != nil {
		if curve, err = json.Marshal(run.Curve); err != nil {
			return dbRun{}, fmt.Errorf("marshal error: %w", err)
		}
	}

	return dbRun{
		ID:        run.ID,
		State:     string(run.State),
		Request:   request,
		Nodes:     nodes,
		Axis:      axis,
		Curve:     curve,
		Error:     sql.NullString{String: run.Error, Valid: run.Error != ""},
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: run.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func fromDBRun(row dbRun) (coordinator.Run, error) {
	run := coordinator.Run{
		ID:    row.ID,
		State: coordinator.RunState(row.State),
		Error: row.Error.String,
	}

	if err := json.Unmarshal(row.Request, &run.Request); err != nil {
		return coordinator.Run{}, fmt.Errorf("unmarshal error: %w", err)
	}
	if err := json.Unmarshal(row.Nodes, &run.Nodes); err != nil {
		return coordinator.Run{}, fmt.Errorf("unmarshal error: %w", err)
	}
	if len(row.Axis) > 0 {
		if err := json.Unmarshal(row.Axis, &run.Axis); err != nil {
			return coordinator.Run{}, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	if len(row.Curve) > 0 {
		var c survival.Curve
		if err := json.Unmarshal(row.Curve, &c); err != nil {
			return coordinator.Run{}, fmt.Errorf("unmarshal error: %w", err)
		}
		run.Curve = &c
	}

	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return coordinator.Run{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, row.UpdatedAt); err != nil {
		return coordinator.Run{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return run, nil
}

func jsonBytes(v []float64) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}

	return b, nil
}
