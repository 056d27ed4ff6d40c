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

package objstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Stat when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo contains metadata about an object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ContentHash returns the checksum used for duplicate detection and
// post-copy integrity comparison. For S3-compatible stores this is the
// ETag with its surrounding quotes stripped.
func (oi ObjectInfo) ContentHash() string {
	return strings.Trim(oi.ETag, `"`)
}

// ObjectStore provides the blob-store operations the reorganizer needs
// across different providers.
type ObjectStore interface {
	// List returns metadata for every object under prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Stat retrieves metadata about an object without downloading it.
	// Returns an error wrapping ErrNotFound when the object is absent.
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// ReadRange reads at most the first n bytes of an object.
	ReadRange(ctx context.Context, bucket, key string, n int64) ([]byte, error)

	// CopyStep advances a server-side copy from srcKey to dstKey. An empty
	// token starts the copy; a non-empty return token means the copy is not
	// finished and the caller must call again with it. An empty return token
	// means the copy completed.
	CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// DownloadObject downloads an object to a temp file under tmpdir.
	// Returns the temp filename, size, whether the object was not found, and error.
	DownloadObject(ctx context.Context, tmpdir, bucket, key string) (filename string, size int64, notFound bool, err error)

	// UploadObject uploads a local file to the store.
	UploadObject(ctx context.Context, bucket, key, sourceFilename string) error
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
