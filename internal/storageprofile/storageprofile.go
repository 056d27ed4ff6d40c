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

package storageprofile

import (
	"context"
	"log/slog"
	"os"
)

// StorageProfile describes how to reach one bucket. The empty cloud
// provider defaults to AWS.
type StorageProfile struct {
	CloudProvider string `json:"cloud_provider" yaml:"cloud_provider"`
	Region        string `json:"region" yaml:"region"`
	Role          string `json:"role,omitempty" yaml:"role,omitempty"`
	Bucket        string `json:"bucket" yaml:"bucket"`
	Endpoint      string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	InsecureTLS   bool   `json:"insecure_tls,omitempty" yaml:"insecure_tls,omitempty"`
	UsePathStyle  bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
	UseSSL        bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`
}

type StorageProfileProvider interface {
	GetStorageProfileForBucket(ctx context.Context, bucketName string) (StorageProfile, error)
}

// SetupStorageProfiles builds a provider from the profile file named by
// STORAGE_PROFILE_FILE, or falls back to a default-credentials profile
// per bucket when no file is configured.
func SetupStorageProfiles() (StorageProfileProvider, error) {
	storagePath := os.Getenv("STORAGE_PROFILE_FILE")
	if storagePath == "" {
		slog.Info("No storage profile file configured, using ambient credentials")
		return NewDefaultProvider(), nil
	}
	slog.Info("Using file storage profile provider", "path", storagePath)
	return NewFileProvider(storagePath)
}

type defaultProvider struct{}

// NewDefaultProvider returns a provider that hands out an AWS profile with
// ambient credentials for any bucket.
func NewDefaultProvider() StorageProfileProvider {
	return &defaultProvider{}
}

func (p *defaultProvider) GetStorageProfileForBucket(ctx context.Context, bucketName string) (StorageProfile, error) {
	return StorageProfile{
		CloudProvider: "aws",
		Bucket:        bucketName,
	}, nil
}
