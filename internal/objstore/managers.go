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
	"fmt"

	"github.com/cardinalhq/relocator/internal/awsclient"
	"github.com/cardinalhq/relocator/internal/azureclient"
	"github.com/cardinalhq/relocator/internal/storageprofile"
)

// ClientProvider creates ObjectStore clients for storage profiles.
type ClientProvider interface {
	NewClient(ctx context.Context, profile storageprofile.StorageProfile) (ObjectStore, error)
}

// CloudManagers holds all cloud provider managers for unified access. It
// implements ClientProvider to allow callers to create storage clients
// without depending on the concrete struct, enabling easier testing.
type CloudManagers struct {
	AWS   *awsclient.Manager
	Azure *azureclient.Manager
}

var _ ClientProvider = (*CloudManagers)(nil)

// NewCloudManagers creates managers for all supported cloud providers.
// AWS options are passed through to the AWS manager.
func NewCloudManagers(ctx context.Context, awsOpts ...awsclient.ManagerOption) (ClientProvider, error) {
	awsManager, err := awsclient.NewManager(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS manager: %w", err)
	}

	azureManager, err := azureclient.NewManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure manager: %w", err)
	}

	return &CloudManagers{
		AWS:   awsManager,
		Azure: azureManager,
	}, nil
}

// NewClient creates an ObjectStore for the given profile. An empty cloud
// provider defaults to AWS; "gcp" uses the S3-compatible endpoint.
func (m *CloudManagers) NewClient(ctx context.Context, profile storageprofile.StorageProfile) (ObjectStore, error) {
	switch profile.CloudProvider {
	case "aws", "gcp", "":
		s3c, err := m.AWS.GetS3ForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return newS3Store(s3c), nil
	case "azure":
		blobClient, err := m.Azure.GetBlobForProfile(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
		}
		return newAzureStore(blobClient), nil
	default:
		return nil, fmt.Errorf("unsupported cloud provider: %s", profile.CloudProvider)
	}
}
