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

// Package report derives duplicate and collision findings from a
// manifest. Reporting is a pure function of the manifest rows; it never
// touches the store.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cardinalhq/relocator/internal/manifest"
)

// DuplicateGroup is a set of distinct source objects sharing one
// content hash.
type DuplicateGroup struct {
	ContentHash string
	SourcePaths []string
}

// CollisionGroup is a set of distinct source objects all headed for the
// same destination key. Executing such a manifest would leave only the
// last writer's bytes at that key.
type CollisionGroup struct {
	DestinationPath string
	Sources         []manifest.ActionRecord
}

// Report holds the findings for one manifest.
type Report struct {
	ManifestID string
	Duplicates []DuplicateGroup
	Collisions []CollisionGroup
}

// Empty reports whether there are no findings at all.
func (r Report) Empty() bool {
	return len(r.Duplicates) == 0 && len(r.Collisions) == 0
}

// Build scans every record in the manifest for duplicate content and
// destination collisions. ERROR records participate too: their hash
// was captured before classification failed, so they still count
// toward duplicate sets. Groups are sorted by their key and the paths
// within each group are sorted, so output is stable across runs.
func Build(m *manifest.Manifest) Report {
	r := Report{ManifestID: m.ID}

	byHash := make(map[string][]string)
	byDest := make(map[string][]manifest.ActionRecord)
	for _, rec := range m.Records {
		if rec.ContentHash != "" {
			byHash[rec.ContentHash] = append(byHash[rec.ContentHash], rec.SourcePath)
		}
		if rec.DestinationPath != "" {
			byDest[rec.DestinationPath] = append(byDest[rec.DestinationPath], rec)
		}
	}

	for hash, paths := range byHash {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		r.Duplicates = append(r.Duplicates, DuplicateGroup{ContentHash: hash, SourcePaths: paths})
	}
	sort.Slice(r.Duplicates, func(i, j int) bool {
		return r.Duplicates[i].ContentHash < r.Duplicates[j].ContentHash
	})

	for dest, recs := range byDest {
		if len(recs) < 2 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].SourcePath < recs[j].SourcePath })
		r.Collisions = append(r.Collisions, CollisionGroup{DestinationPath: dest, Sources: recs})
	}
	sort.Slice(r.Collisions, func(i, j int) bool {
		return r.Collisions[i].DestinationPath < r.Collisions[j].DestinationPath
	})

	return r
}

// RenderDuplicates formats the duplicates section as plain text.
func (r Report) RenderDuplicates() string {
	var b strings.Builder
	for _, g := range r.Duplicates {
		fmt.Fprintf(&b, "%s:\n", g.ContentHash)
		for _, p := range g.SourcePaths {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	return b.String()
}

// RenderCollisions formats the collisions section as plain text. Each
// contributing source is listed with its size and hash so an operator
// can tell overwrite-alike collisions from true conflicts.
func (r Report) RenderCollisions() string {
	var b strings.Builder
	for _, g := range r.Collisions {
		fmt.Fprintf(&b, "%s:\n", g.DestinationPath)
		for _, rec := range g.Sources {
			fmt.Fprintf(&b, "  %s (%d bytes, %s)\n", rec.SourcePath, rec.SizeBytes, rec.ContentHash)
		}
	}
	return b.String()
}

// WriteFiles writes duplicates.txt and collisions.txt under dir. A
// finding file is only written when its section is nonempty; a clean
// manifest leaves the directory untouched.
func (r Report) WriteFiles(dir string) error {
	if len(r.Duplicates) > 0 {
		path := filepath.Join(dir, "duplicates.txt")
		if err := os.WriteFile(path, []byte(r.RenderDuplicates()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if len(r.Collisions) > 0 {
		path := filepath.Join(dir, "collisions.txt")
		if err := os.WriteFile(path, []byte(r.RenderCollisions()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
