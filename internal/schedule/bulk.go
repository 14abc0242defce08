package schedule

import (
	"context"
	"errors"
	"fmt"
)

// CopyOperation copies one doctor's template onto another.
type CopyOperation struct {
	SourceDoctorID int64 `json:"source_doctor_id"`
	TargetDoctorID int64 `json:"target_doctor_id"`
	Overwrite      bool  `json:"overwrite"`
}

// CopyResult tallies a copy. Skipped is always zero for overwrite copies.
type CopyResult struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}

// DeleteAllResult reports how many entries a delete-all removed.
type DeleteAllResult struct {
	Deleted int `json:"deleted"`
}

// BulkOperations copies and clears whole templates.
type BulkOperations struct {
	repo  Repository
	store *TemplateStore
}

func NewBulkOperations(repo Repository, store *TemplateStore) *BulkOperations {
	if repo == nil || store == nil {
		panic("schedule: repository and template store required")
	}
	return &BulkOperations{repo: repo, store: store}
}

// CopySchedule applies op. An overwrite copy is a single transaction. A merge
// copy adds entries one at a time and counts overlapping ones as skipped.
func (b *BulkOperations) CopySchedule(ctx context.Context, op CopyOperation) (CopyResult, error) {
	if op.SourceDoctorID == op.TargetDoctorID {
		return CopyResult{}, ErrSameDoctor
	}
	for _, id := range []int64{op.SourceDoctorID, op.TargetDoctorID} {
		exists, err := b.repo.DoctorExists(ctx, id)
		if err != nil {
			return CopyResult{}, fmt.Errorf("schedule: load doctor %d: %w", id, err)
		}
		if !exists {
			return CopyResult{}, fmt.Errorf("%w: %d", ErrDoctorNotFound, id)
		}
	}

	source, err := b.store.ListForDoctor(ctx, op.SourceDoctorID)
	if err != nil {
		return CopyResult{}, err
	}
	if source.IsEmpty() {
		return CopyResult{}, fmt.Errorf("%w: doctor %d", ErrEmptySource, op.SourceDoctorID)
	}

	if op.Overwrite {
		return b.overwrite(ctx, op, source.Entries())
	}
	return b.merge(ctx, op, source.Entries())
}

func (b *BulkOperations) overwrite(ctx context.Context, op CopyOperation, entries []WorkingHoursEntry) (CopyResult, error) {
	var result CopyResult
	err := b.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.LockDoctor(ctx, op.TargetDoctorID); err != nil {
			return err
		}
		if _, err := tx.DeleteAllForDoctor(ctx, op.TargetDoctorID); err != nil {
			return err
		}
		copied := 0
		for _, entry := range entries {
			if _, err := insertChecked(ctx, tx, op.TargetDoctorID, entry.Day, entry.Interval); err != nil {
				return err
			}
			copied++
		}
		result = CopyResult{Copied: copied}
		return tx.RecordChange(ctx, Change{
			Type:     EventWorkingHoursCopied,
			DoctorID: op.TargetDoctorID,
			SourceID: op.SourceDoctorID,
			Count:    copied,
		})
	})
	if err != nil {
		return CopyResult{}, err
	}
	return result, nil
}

func (b *BulkOperations) merge(ctx context.Context, op CopyOperation, entries []WorkingHoursEntry) (CopyResult, error) {
	var result CopyResult
	for _, entry := range entries {
		_, err := b.store.AddEntry(ctx, op.TargetDoctorID, entry.Day, entry.Interval)
		switch {
		case err == nil:
			result.Copied++
		case errors.Is(err, ErrOverlap):
			result.Skipped++
		default:
			return result, fmt.Errorf("schedule: copy entry %d: %w", entry.ID, err)
		}
	}
	return result, nil
}
