// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package manifest holds the persisted action plan that decouples
// classification from execution. A manifest is written once, then read
// any number of times by the executor, verifier, and reporter.
package manifest

import (
	"fmt"
	"io"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/parquet-go/parquet-go"
)

const idMetadataKey = "relocator.manifest.id"

const readBatchSize = 1000

// Manifest is an ordered, immutable collection of action records.
type Manifest struct {
	ID      string
	Records []ActionRecord
}

// New stamps a fresh manifest with a ULID.
func New(records []ActionRecord) *Manifest {
	return &Manifest{
		ID:      ulid.Make().String(),
		Records: records,
	}
}

// MoveRecords returns only the records the executor should replay.
func (m *Manifest) MoveRecords() []ActionRecord {
	var out []ActionRecord
	for _, rec := range m.Records {
		if rec.Action == ActionMove {
			out = append(out, rec)
		}
	}
	return out
}

// WriteFile persists the manifest as a Parquet file at path.
func (m *Manifest) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest file: %w", err)
	}

	writer := parquet.NewGenericWriter[ActionRecord](f,
		parquet.KeyValueMetadata(idMetadataKey, m.ID),
	)
	if _, err := writer.Write(m.Records); err != nil {
		_ = writer.Close()
		_ = f.Close()
		return fmt.Errorf("write manifest rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close manifest writer: %w", err)
	}
	return f.Close()
}

// ReadFile loads a manifest from a Parquet file at path.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest file: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat manifest file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open manifest parquet: %w", err)
	}

	m := &Manifest{}
	if id, ok := pf.Lookup(idMetadataKey); ok {
		m.ID = id
	}

	reader := parquet.NewGenericReader[ActionRecord](pf)
	defer func() { _ = reader.Close() }()

	buf := make([]ActionRecord, readBatchSize)
	for {
		n, err := reader.Read(buf)
		m.Records = append(m.Records, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return m, nil
}
