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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/relocator/internal/manifest"
)

func staticSampler(data []byte) Sampler {
	return func(context.Context) (Sample, error) {
		return Sample{Data: data}, nil
	}
}

func failingSampler(err error) Sampler {
	return func(context.Context) (Sample, error) {
		return Sample{}, err
	}
}

// panicSampler guards that name-only rules never touch content.
func panicSampler(t *testing.T) Sampler {
	return func(context.Context) (Sample, error) {
		t.Fatal("sampler invoked for a name-only rule")
		return Sample{}, nil
	}
}

func TestArchiveExtensionsIgnoreContent(t *testing.T) {
	rules := DefaultRules()
	for _, key := range []string{"a.bak", "b.tmp", "dir/c.old", "d.archive", "e.BAK"} {
		dest, err := Decide(context.Background(), rules, key, panicSampler(t))
		require.NoError(t, err, key)
		assert.Equal(t, manifest.DestArchive, dest, key)
	}
}

func TestLogClassification(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name    string
		content string
		want    manifest.DestinationKey
	}{
		{"fatal lowercase", "something fatal happened", manifest.DestDiscard},
		{"fatal mixed case", "xx FaTaL xx", manifest.DestDiscard},
		{"error uppercase", "ERROR: disk full", manifest.DestDiscard},
		{"clean log", "all systems nominal", manifest.DestDefault},
		{"empty log", "", manifest.DestDefault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dest, err := Decide(context.Background(), rules, "svc/app.log", staticSampler([]byte(tc.content)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, dest)
		})
	}
}

func TestCsvAndDocumentRules(t *testing.T) {
	rules := DefaultRules()

	dest, err := Decide(context.Background(), rules, "data/rows.csv", panicSampler(t))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestDefault, dest)

	for _, key := range []string{"x.pdf", "y.docx"} {
		dest, err := Decide(context.Background(), rules, key, panicSampler(t))
		require.NoError(t, err)
		assert.Equal(t, manifest.DestGet, dest, key)
	}

	dest, err = Decide(context.Background(), rules, "nb/analysis.ipynb", panicSampler(t))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestLabsDump, dest)
}

func TestPythonClassification(t *testing.T) {
	rules := DefaultRules()

	dest, err := Decide(context.Background(), rules, "scripts/broken.py",
		staticSampler([]byte("def broken(:\n pass")))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestLabsDump, dest)

	dest, err = Decide(context.Background(), rules, "scripts/ok.py",
		staticSampler([]byte("def ok():\n    return 1\n")))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestDefault, dest)
}

func TestCatchAllConfidential(t *testing.T) {
	rules := DefaultRules()

	dest, err := Decide(context.Background(), rules, "notes/misc.txt",
		staticSampler([]byte("this file is CoNfIdEnTiAl, handle with care")))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestDiscard, dest)

	dest, err = Decide(context.Background(), rules, "notes/misc.txt",
		staticSampler([]byte("nothing special here")))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestDefault, dest)
}

func TestSamplerErrorPropagates(t *testing.T) {
	rules := DefaultRules()
	boom := errors.New("connection reset")

	_, err := Decide(context.Background(), rules, "svc/app.log", failingSampler(boom))
	require.ErrorIs(t, err, boom)
}

func TestRulesAreFirstMatchWins(t *testing.T) {
	// A .bak file whose content says confidential is still ARCHIVE: the
	// extension rule outranks the catch-all.
	dest, err := Decide(context.Background(), DefaultRules(), "secrets.bak",
		staticSampler([]byte("confidential")))
	require.NoError(t, err)
	assert.Equal(t, manifest.DestArchive, dest)
}
