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
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileProvider struct {
	profiles map[string]StorageProfile
}

var _ StorageProfileProvider = (*fileProvider)(nil)

// NewFileProvider reads storage profiles from a YAML file. A filename of
// the form "env:VARNAME" reads the YAML document from that environment
// variable instead.
func NewFileProvider(filename string) (StorageProfileProvider, error) {
	if after, ok := strings.CutPrefix(filename, "env:"); ok {
		contents := os.Getenv(after)
		if contents == "" {
			return nil, fmt.Errorf("environment variable %s is not set", after)
		}
		return newFileProviderFromContents(filename, []byte(contents))
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage profiles from file %s: %w", filename, err)
	}

	return newFileProviderFromContents(filename, contents)
}

func newFileProviderFromContents(filename string, contents []byte) (StorageProfileProvider, error) {
	var profiles []StorageProfile

	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal storage profiles from file %s: %w", filename, err)
	}

	byBucket := make(map[string]StorageProfile, len(profiles))
	for _, p := range profiles {
		if p.Bucket == "" {
			return nil, fmt.Errorf("storage profile in %s has no bucket name", filename)
		}
		if _, ok := byBucket[p.Bucket]; ok {
			return nil, fmt.Errorf("duplicate storage profile for bucket %s in %s", p.Bucket, filename)
		}
		byBucket[p.Bucket] = p
	}

	return &fileProvider{profiles: byBucket}, nil
}

func (p *fileProvider) GetStorageProfileForBucket(ctx context.Context, bucketName string) (StorageProfile, error) {
	profile, ok := p.profiles[bucketName]
	if !ok {
		return StorageProfile{}, fmt.Errorf("no storage profile found for bucket %s", bucketName)
	}
	return profile, nil
}
