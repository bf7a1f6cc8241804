package coordinator

import (
	"context"
	"errors"

	pkgerrors "github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/storage"
)

// RunRepository persists run records.
type RunRepository interface {
	// Save creates the run or replaces the stored run with the same ID.
	Save(ctx context.Context, r Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns runs in creation order and the total number of runs.
	List(ctx context.Context, offset, limit uint64) ([]Run, uint64, error)
}

type runRepository struct {
	db storage.Storage
}

// NewRunRepository keeps runs in a key-value storage.
func NewRunRepository(db storage.Storage) RunRepository {
	return &runRepository{db: db}
}

func (rr *runRepository) Save(ctx context.Context, r Run) error {
	err := rr.db.Update(ctx, r.ID, r)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return rr.db.Create(ctx, r.ID, r)
	}

	return err
}

func (rr *runRepository) Get(ctx context.Context, id string) (Run, error) {
	data, err := rr.db.Get(ctx, id)
	if err != nil {
		return Run{}, err
	}
	r, ok := data.(Run)
	if !ok {
		return Run{}, pkgerrors.ErrInvalidData
	}

	return r, nil
}

func (rr *runRepository) List(ctx context.Context, offset, limit uint64) ([]Run, uint64, error) {
	data, total, err := rr.db.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	runs := make([]Run, len(data))
	for i := range data {
		r, ok := data[i].(Run)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		runs[i] = r
	}

	return runs, total, nil
}
