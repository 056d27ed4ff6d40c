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

package classify

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/cardinalhq/relocator/internal/manifest"
)

// Sample is a prefix of an object's content. Truncated means the object
// is larger than the sampled window.
type Sample struct {
	Data      []byte
	Truncated bool
}

// Sampler lazily fetches the content sample for the object under
// consideration. Rules that decide on the name alone never invoke it.
type Sampler func(ctx context.Context) (Sample, error)

// Rule is one predicate→outcome pair in the classification chain.
type Rule struct {
	Name    string
	Matches func(key string) bool
	Decide  func(ctx context.Context, sample Sampler) (manifest.DestinationKey, error)
}

func extIn(exts ...string) func(string) bool {
	return func(key string) bool {
		ext := strings.ToLower(path.Ext(key))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

func fixed(dest manifest.DestinationKey) func(context.Context, Sampler) (manifest.DestinationKey, error) {
	return func(context.Context, Sampler) (manifest.DestinationKey, error) {
		return dest, nil
	}
}

func containsFold(data []byte, keyword string) bool {
	return bytes.Contains(bytes.ToLower(data), []byte(strings.ToLower(keyword)))
}

// DefaultRules returns the classification chain, evaluated first-match-wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "archive-extensions",
			Matches: extIn(".bak", ".tmp", ".old", ".archive"),
			Decide:  fixed(manifest.DestArchive),
		},
		{
			Name:    "log-content",
			Matches: extIn(".log"),
			Decide: func(ctx context.Context, sample Sampler) (manifest.DestinationKey, error) {
				s, err := sample(ctx)
				if err != nil {
					return "", err
				}
				if containsFold(s.Data, "error") || containsFold(s.Data, "fatal") {
					return manifest.DestDiscard, nil
				}
				return manifest.DestDefault, nil
			},
		},
		{
			Name:    "csv",
			Matches: extIn(".csv"),
			Decide:  fixed(manifest.DestDefault),
		},
		{
			Name:    "documents",
			Matches: extIn(".pdf", ".docx"),
			Decide:  fixed(manifest.DestGet),
		},
		{
			Name:    "python-syntax",
			Matches: extIn(".py"),
			Decide: func(ctx context.Context, sample Sampler) (manifest.DestinationKey, error) {
				s, err := sample(ctx)
				if err != nil {
					return "", err
				}
				if err := CheckPythonSource(s.Data, s.Truncated); err != nil {
					return manifest.DestLabsDump, nil
				}
				return manifest.DestDefault, nil
			},
		},
		{
			Name:    "notebooks",
			Matches: extIn(".ipynb"),
			Decide:  fixed(manifest.DestLabsDump),
		},
		{
			Name:    "catch-all",
			Matches: func(string) bool { return true },
			Decide: func(ctx context.Context, sample Sampler) (manifest.DestinationKey, error) {
				s, err := sample(ctx)
				if err != nil {
					return "", err
				}
				if containsFold(s.Data, "confidential") {
					return manifest.DestDiscard, nil
				}
				return manifest.DestDefault, nil
			},
		},
	}
}

// Decide runs key through the chain and returns the first matching
// rule's outcome.
func Decide(ctx context.Context, rules []Rule, key string, sample Sampler) (manifest.DestinationKey, error) {
	for _, rule := range rules {
		if rule.Matches(key) {
			return rule.Decide(ctx, sample)
		}
	}
	// DefaultRules ends with a catch-all, so this is only reachable with a
	// custom chain that has a hole in it.
	return manifest.DestDefault, nil
}
