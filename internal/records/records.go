// Package records owns the in-memory defect record set and its ingestion.
package records

import (
	"fmt"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
)

// Store is an ordered, validated collection of defect records.
// It is owned by the caller; analyzers only ever see Snapshot copies.
type Store struct {
	columns model.FieldSet
	records []model.DefectRecord
}

// New returns an empty store for a source supplying the given columns.
func New(columns model.FieldSet) *Store {
	return &Store{columns: columns}
}

// FromDataset builds a store from an existing dataset, validating every record.
func FromDataset(ds model.Dataset) (*Store, error) {
	s := New(ds.Columns)
	if err := s.AddAll(ds.Records); err != nil {
		return nil, err
	}
	return s, nil
}

// Columns returns the schema columns of the store.
func (s *Store) Columns() model.FieldSet {
	return s.columns
}

// Len returns the number of records held.
func (s *Store) Len() int {
	return len(s.records)
}

// Add validates and appends a record.
func (s *Store) Add(rec model.DefectRecord) error {
	if err := Validate(rec, s.columns); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

// AddAll appends records in order, stopping at the first invalid one.
func (s *Store) AddAll(recs []model.DefectRecord) error {
	for i, rec := range recs {
		if err := s.Add(rec); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return nil
}

// Clear drops every record and keeps the schema.
func (s *Store) Clear() {
	s.records = nil
}

// Records returns a copy of the held records.
func (s *Store) Records() []model.DefectRecord {
	out := make([]model.DefectRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Snapshot returns an independent dataset for analysis.
func (s *Store) Snapshot() model.Dataset {
	return model.Dataset{Columns: s.columns, Records: s.Records()}
}

// Require fails with MissingColumn when any field is absent from the schema.
func (s *Store) Require(fields ...model.Field) error {
	return Require(s.Snapshot(), "records", fields...)
}

// Require fails with MissingColumn when the dataset lacks one of the fields.
func Require(ds model.Dataset, op string, fields ...model.Field) error {
	if f, missing := ds.Columns.Missing(fields...); missing {
		return qcerr.New(qcerr.MissingColumn, op, f.String(), "")
	}
	return nil
}

// Validate rejects records whose counts would put the defect rate outside [0, 100].
func Validate(rec model.DefectRecord, columns model.FieldSet) error {
	if columns.Has(model.FieldDefectCount) && rec.DefectCount < 0 {
		return qcerr.New(qcerr.MalformedRecord, "validate", model.FieldDefectCount.String(),
			fmt.Sprintf("defect_count %d is negative", rec.DefectCount))
	}
	if columns.Has(model.FieldInspectionCount) && rec.InspectionCount <= 0 {
		return qcerr.New(qcerr.MalformedRecord, "validate", model.FieldInspectionCount.String(),
			fmt.Sprintf("inspection_count %d must be positive", rec.InspectionCount))
	}
	if columns.Has(model.FieldDefectCount) && columns.Has(model.FieldInspectionCount) && rec.DefectCount > rec.InspectionCount {
		return qcerr.New(qcerr.MalformedRecord, "validate", model.FieldDefectCount.String(),
			fmt.Sprintf("defect_count %d exceeds inspection_count %d", rec.DefectCount, rec.InspectionCount))
	}
	return nil
}
