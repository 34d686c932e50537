// internal/statestore/subjects.go
package statestore

import (
	"context"
	"encoding/json"

	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/models"
)

// Subjects is the typed view of the store for SubjectRecord documents.
// Mutators receive the freshly decoded record and modify it in place; fields
// they do not touch are preserved verbatim, including the external profile
// payload.
type Subjects struct {
	store *Store
}

func NewSubjects(store *Store) *Subjects {
	return &Subjects{store: store}
}

// Get fetches and decodes the record for one subject.
func (s *Subjects) Get(ctx context.Context, subjectID string) (*models.SubjectRecord, error) {
	raw, err := s.store.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	var rec models.SubjectRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, stderrors.NewStorageIOError("decode", err)
	}
	return &rec, nil
}

// Create stores a new subject record unless one already exists.
func (s *Subjects) Create(ctx context.Context, rec *models.SubjectRecord) (bool, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return false, stderrors.NewStorageIOError("encode", err)
	}
	return s.store.CreateIfAbsent(ctx, rec.ID, doc)
}

// Update applies mutate to the subject's record under its key mutex.
// Returning an error from mutate aborts the update with the record unchanged.
func (s *Subjects) Update(ctx context.Context, subjectID string, mutate func(rec *models.SubjectRecord) error) (*models.SubjectRecord, error) {
	var updated models.SubjectRecord
	_, err := s.store.Update(ctx, subjectID, func(current []byte) ([]byte, error) {
		var rec models.SubjectRecord
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, stderrors.NewStorageIOError("decode", err)
		}
		if err := mutate(&rec); err != nil {
			return nil, err
		}
		next, err := json.Marshal(&rec)
		if err != nil {
			return nil, stderrors.NewStorageIOError("encode", err)
		}
		updated = rec
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// IDs returns a snapshot of all known subject identifiers.
func (s *Subjects) IDs(ctx context.Context) ([]string, error) {
	return s.store.Keys(ctx)
}
