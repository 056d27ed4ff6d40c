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

package manifest

import "path"

// Action says whether a record should be replayed by the executor.
type Action string

const (
	ActionMove  Action = "MOVE"
	ActionError Action = "ERROR"
)

// DestinationKey is the coarse classification bucket a record is
// assigned to.
type DestinationKey string

const (
	DestArchive  DestinationKey = "ARCHIVE"
	DestDiscard  DestinationKey = "DISCARD"
	DestLabsDump DestinationKey = "LABS_DUMP"
	DestGet      DestinationKey = "GET"
	DestDefault  DestinationKey = "DEFAULT"
	DestError    DestinationKey = "ERROR"
)

// DestinationPrefix maps each destination key to its fixed key prefix.
var DestinationPrefix = map[DestinationKey]string{
	DestArchive:  "archive/",
	DestDiscard:  "discard/",
	DestLabsDump: "labs_dump/",
	DestGet:      "get/",
	DestDefault:  "shared/",
	DestError:    "error/",
}

// Path returns the destination key for fileName under this bucket's
// fixed prefix.
func (k DestinationKey) Path(fileName string) string {
	return DestinationPrefix[k] + fileName
}

// ActionRecord is one row of the manifest: a single object's
// classification outcome and intended destination. Records are written
// exactly once and never mutated after manifest creation.
type ActionRecord struct {
	SourceContainer string         `parquet:"source_container"`
	SourcePath      string         `parquet:"source_path"`
	FileName        string         `parquet:"file_name"`
	SizeBytes       int64          `parquet:"size_bytes"`
	ContentHash     string         `parquet:"content_hash"`
	Action          Action         `parquet:"action"`
	DestinationKey  DestinationKey `parquet:"destination_key"`
	DestinationPath string         `parquet:"destination_path"`
}

// NewMoveRecord builds the record for a successfully classified object.
func NewMoveRecord(container, key string, size int64, hash string, dest DestinationKey) ActionRecord {
	name := path.Base(key)
	return ActionRecord{
		SourceContainer: container,
		SourcePath:      key,
		FileName:        name,
		SizeBytes:       size,
		ContentHash:     hash,
		Action:          ActionMove,
		DestinationKey:  dest,
		DestinationPath: dest.Path(name),
	}
}

// NewErrorRecord builds the record for an object whose classification
// failed. The error text rides in destination_path for diagnostics; the
// record stays in the manifest so it remains a complete inventory of the
// scanned prefix.
func NewErrorRecord(container, key string, size int64, hash string, classifyErr error) ActionRecord {
	return ActionRecord{
		SourceContainer: container,
		SourcePath:      key,
		FileName:        path.Base(key),
		SizeBytes:       size,
		ContentHash:     hash,
		Action:          ActionError,
		DestinationKey:  DestError,
		DestinationPath: classifyErr.Error(),
	}
}
