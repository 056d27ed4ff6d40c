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

import "fmt"

// CheckPythonSource is a lexical screen for obviously broken Python: it
// tracks bracket nesting, string termination, and block-header colons.
// It is deliberately permissive — code clearing this screen may still
// fail a real parser, but anything it rejects is genuinely malformed.
// When truncated is set, end-of-input conditions (unclosed brackets,
// unterminated triple strings) are not reported, since the construct may
// close beyond the sampled window.
func CheckPythonSource(src []byte, truncated bool) error {
	var blockKeywords = map[string]bool{
		"def": true, "class": true, "if": true, "elif": true, "else": true,
		"for": true, "while": true, "try": true, "except": true,
		"finally": true, "with": true,
	}

	closerFor := map[byte]byte{')': '(', ']': '[', '}': '{'}

	type openBracket struct {
		ch   byte
		line int
	}
	var stack []openBracket

	line := 1
	var firstWord []byte
	atLineStart := true
	inWord := false
	var lastSig byte

	i := 0
	for i < len(src) {
		ch := src[i]

		switch {
		case ch == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue

		case ch == '\'' || ch == '"':
			quote := ch
			triple := i+2 < len(src) && src[i+1] == quote && src[i+2] == quote
			start := line
			if triple {
				i += 3
			} else {
				i++
			}
			terminated := false
			for i < len(src) {
				c := src[i]
				if c == '\\' {
					i += 2
					continue
				}
				if c == '\n' {
					line++
					if !triple {
						return fmt.Errorf("line %d: unterminated string literal", start)
					}
				}
				if c == quote {
					if !triple {
						i++
						terminated = true
						break
					}
					if i+2 < len(src) && src[i+1] == quote && src[i+2] == quote {
						i += 3
						terminated = true
						break
					}
					if i+2 >= len(src) {
						// quote pair at end of input; fall through to the
						// unterminated check below
						i = len(src)
						break
					}
				}
				i++
			}
			if !terminated && !truncated {
				return fmt.Errorf("line %d: unterminated string literal", start)
			}
			lastSig = quote
			atLineStart = false
			inWord = false
			continue

		case ch == '(' || ch == '[' || ch == '{':
			stack = append(stack, openBracket{ch: ch, line: line})
			lastSig = ch
			atLineStart = false
			inWord = false

		case ch == ')' || ch == ']' || ch == '}':
			if len(stack) == 0 {
				return fmt.Errorf("line %d: unexpected %q", line, ch)
			}
			top := stack[len(stack)-1]
			if top.ch != closerFor[ch] {
				return fmt.Errorf("line %d: mismatched %q closing %q opened on line %d", line, ch, top.ch, top.line)
			}
			stack = stack[:len(stack)-1]
			lastSig = ch
			atLineStart = false
			inWord = false

		case ch == '\n':
			line++
			if len(stack) == 0 {
				// End of a logical line: a block header must end with a colon.
				if blockKeywords[string(firstWord)] && lastSig != ':' {
					return fmt.Errorf("line %d: %q statement missing ':'", line-1, firstWord)
				}
				firstWord = nil
				atLineStart = true
				inWord = false
				lastSig = 0
			}

		case ch == ' ' || ch == '\t' || ch == '\r':
			inWord = false

		default:
			if atLineStart && isWordByte(ch) {
				atLineStart = false
				inWord = true
				firstWord = append(firstWord[:0], ch)
			} else if inWord && isWordByte(ch) {
				firstWord = append(firstWord, ch)
			} else {
				atLineStart = false
				inWord = false
			}
			lastSig = ch
		}
		i++
	}

	if truncated {
		return nil
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Errorf("line %d: unclosed %q", top.line, top.ch)
	}
	if len(stack) == 0 && blockKeywords[string(firstWord)] && lastSig != ':' {
		return fmt.Errorf("line %d: %q statement missing ':'", line, firstWord)
	}
	return nil
}

func isWordByte(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
