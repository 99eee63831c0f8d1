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


package orchestrator

const (
	hangulFirst = 0xAC00
	hangulLast  = 0xD7A3

	notFoundEnglish = "I couldn't find relevant information to answer your question. " +
		"Try rephrasing your query or asking about a different topic related to AI and machine learning research."

	notFoundKorean = "질문에 대한 관련 정보를 찾을 수 없습니다. " +
		"질문을 다르게 표현하거나 AI 및 머신러닝 연구와 관련된 다른 주제로 질문해 주세요."
)

// notFoundMessage answers in Korean when the query contains a Hangul syllable.
func notFoundMessage(query string) string {
	for _, r := range query {
		if r >= hangulFirst && r <= hangulLast {
			return notFoundKorean
		}
	}
	return notFoundEnglish
}
