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

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cardinalhq/relocator/internal/objstore"
)

// Location is a manifest address: either a local file path or a remote
// object URI like s3://bucket/key.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

// Remote reports whether the location needs a blob store to reach.
func (l Location) Remote() bool { return l.Bucket != "" }

// ParseLocation accepts local paths and s3:// or azure:// URIs.
func ParseLocation(location string) (Location, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return Location{Path: location}, nil
	}
	switch u.Scheme {
	case "s3", "azure":
		key := u.Path
		if len(key) > 0 && key[0] == '/' {
			key = key[1:]
		}
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("manifest URI %q needs a bucket and key", location)
		}
		return Location{Bucket: u.Host, Key: key}, nil
	case "file":
		return Location{Path: u.Path}, nil
	default:
		return Location{}, fmt.Errorf("unsupported manifest scheme %q", u.Scheme)
	}
}

// Load reads a manifest from a local path or stages it down from the
// blob store. The store may be nil for local locations. The manifest is
// a flat, portable artifact: the same file loads identically from disk
// or from a bucket.
func Load(ctx context.Context, store objstore.ObjectStore, location string) (*Manifest, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if !loc.Remote() {
		return ReadFile(loc.Path)
	}
	if store == nil {
		return nil, fmt.Errorf("manifest %q is remote but no store is configured", location)
	}

	tmpdir, err := os.MkdirTemp("", "relocator-manifest-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpdir) }()

	filename, _, notFound, err := store.DownloadObject(ctx, tmpdir, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("stage manifest %s: %w", location, err)
	}
	if notFound {
		return nil, fmt.Errorf("manifest %s: %w", location, objstore.ErrNotFound)
	}
	return ReadFile(filename)
}

// Save writes a manifest to a local path or stages it up to the blob
// store.
func Save(ctx context.Context, store objstore.ObjectStore, location string, m *Manifest) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}
	if !loc.Remote() {
		return m.WriteFile(loc.Path)
	}
	if store == nil {
		return fmt.Errorf("manifest %q is remote but no store is configured", location)
	}

	tmpdir, err := os.MkdirTemp("", "relocator-manifest-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpdir) }()

	staged := filepath.Join(tmpdir, m.ID+".parquet")
	if err := m.WriteFile(staged); err != nil {
		return err
	}
	if err := store.UploadObject(ctx, loc.Bucket, loc.Key, staged); err != nil {
		return fmt.Errorf("stage manifest %s: %w", location, err)
	}
	return nil
}
