// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "strings"

// stripCodeFence removes a surrounding markdown code fence, with or without
// a json language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// repairJSON fixes the formatting mistakes small models make most often:
// object keys missing one or both quotes, and trailing commas before a
// closing bracket. String contents are left untouched.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)
	inString := false
	expectKey := false

	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			expectKey = false
			out = append(out, ch)
		case ch == '{':
			expectKey = true
			out = append(out, ch)
		case ch == ',':
			if next := nextSignificant(in, i+1); next == ']' || next == '}' {
				continue
			}
			expectKey = true
			out = append(out, ch)
		case expectKey && isLetter(ch):
			start := i
			for i < len(in) && (isLetter(in[i]) || in[i] == '_') {
				i++
			}
			key := in[start:i]
			switch {
			case i+1 < len(in) && in[i] == '"' && in[i+1] == ':':
				// Missing opening quote. i stays on the closing quote so the
				// loop steps past it.
				out = append(out, '"')
				out = append(out, key...)
				out = append(out, '"')
			case i < len(in) && in[i] == ':':
				out = append(out, '"')
				out = append(out, key...)
				out = append(out, '"')
				i--
			default:
				out = append(out, key...)
				i--
			}
			expectKey = false
		default:
			if ch != ' ' && ch != '\n' && ch != '\t' && ch != '\r' {
				expectKey = false
			}
			out = append(out, ch)
		}
	}

	return string(out)
}

// nextSignificant returns the first non-whitespace rune at or after i, or 0.
func nextSignificant(in []rune, i int) rune {
	for ; i < len(in); i++ {
		switch in[i] {
		case ' ', '\n', '\t', '\r':
			continue
		default:
			return in[i]
		}
	}
	return 0
}
