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

package cmd

import (
	"context"
	"fmt"

	"github.com/cardinalhq/relocator/internal/awsclient"
	"github.com/cardinalhq/relocator/internal/manifest"
	"github.com/cardinalhq/relocator/internal/objstore"
	"github.com/cardinalhq/relocator/internal/storageprofile"
)

// storeForBucket resolves the storage profile for bucketName and builds
// a client against the right cloud provider.
func storeForBucket(ctx context.Context, bucketName string) (objstore.ObjectStore, error) {
	profiler, err := storageprofile.SetupStorageProfiles()
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage profiles: %w", err)
	}
	profile, err := profiler.GetStorageProfileForBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage profile for bucket %s: %w", bucketName, err)
	}
	managers, err := objstore.NewCloudManagers(ctx,
		awsclient.WithAssumeRoleSessionName("relocator-"+myInstanceID))
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud managers: %w", err)
	}
	return managers.NewClient(ctx, profile)
}

// loadManifest reads a manifest from a local path or a remote URI,
// building a staging client only when the location needs one.
func loadManifest(ctx context.Context, location string) (*manifest.Manifest, error) {
	loc, err := manifest.ParseLocation(location)
	if err != nil {
		return nil, err
	}
	var store objstore.ObjectStore
	if loc.Remote() {
		if store, err = storeForBucket(ctx, loc.Bucket); err != nil {
			return nil, err
		}
	}
	return manifest.Load(ctx, store, location)
}

// saveManifest writes a manifest to a local path or a remote URI.
func saveManifest(ctx context.Context, location string, m *manifest.Manifest) error {
	loc, err := manifest.ParseLocation(location)
	if err != nil {
		return err
	}
	var store objstore.ObjectStore
	if loc.Remote() {
		if store, err = storeForBucket(ctx, loc.Bucket); err != nil {
			return err
		}
	}
	return manifest.Save(ctx, store, location, m)
}

// recordStore builds a client for the bucket the manifest's records live
// in. A manifest always describes exactly one source bucket.
func recordStore(ctx context.Context, m *manifest.Manifest) (objstore.ObjectStore, error) {
	if len(m.Records) == 0 {
		return nil, fmt.Errorf("manifest %s has no records", m.ID)
	}
	return storeForBucket(ctx, m.Records[0].SourceContainer)
}
