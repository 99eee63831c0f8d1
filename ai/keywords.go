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


package ai

import (
	"strings"
	"unicode/utf8"
)

const fallbackKeywordLimit = 5

// FallbackKeywords derives keywords from the query itself when no extractor
// result is available: lowercase whitespace-separated words longer than two
// characters, at most five.
func FallbackKeywords(query string) []string {
	keywords := make([]string, 0, fallbackKeywordLimit)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == fallbackKeywordLimit {
			break
		}
	}
	return keywords
}
