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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPythonSourceValid(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"simple def", "def ok():\n    return 1\n"},
		{"class with methods", "class Foo:\n    def bar(self):\n        return [1, 2, 3]\n"},
		{"multiline call", "result = frobnicate(\n    a,\n    b,\n)\n"},
		{"strings with hash", "s = 'not # a comment'\n"},
		{"triple string", "doc = \"\"\"spans\nlines\"\"\"\nprint(doc)\n"},
		{"comment only", "# nothing to see\n"},
		{"dict literal", "d = {'a': 1, 'b': 2}\n"},
		{"if else chain", "if x:\n    pass\nelif y:\n    pass\nelse:\n    pass\n"},
		{"escaped quote", "s = 'it\\'s fine'\n"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, CheckPythonSource([]byte(tc.src), false))
		})
	}
}

func TestCheckPythonSourceBroken(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unclosed paren in def", "def broken(:\n pass"},
		{"mismatched brackets", "x = [1, 2)\n"},
		{"stray closer", "x = 1)\n"},
		{"unterminated string", "s = 'oops\nprint(s)\n"},
		{"def missing colon", "def nope()\n    return 1\n"},
		{"for missing colon", "for x in range(3)\n    pass\n"},
		{"unterminated triple string", "s = \"\"\"never ends\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, CheckPythonSource([]byte(tc.src), false))
		})
	}
}

func TestCheckPythonSourceTruncated(t *testing.T) {
	// A sample that got cut off mid-construct is given the benefit of the
	// doubt for end-of-input conditions.
	assert.NoError(t, CheckPythonSource([]byte("result = frobnicate(\n    a,\n"), true))
	assert.NoError(t, CheckPythonSource([]byte("s = \"\"\"cut off here"), true))

	// Errors that are complete within the window still count.
	assert.Error(t, CheckPythonSource([]byte("x = [1, 2)\n more"), true))
	assert.Error(t, CheckPythonSource([]byte("def nope()\n    return 1\n"), true))
}
