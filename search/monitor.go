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


package search

import "github.com/poiesic/gurag/core"

// SearchMonitor observes the stages of a vector search.
// Implementations are called synchronously and must not block.
type SearchMonitor interface {
	Start(keywords []string)
	AfterCandidateFetch(candidates []*core.KnowledgeMatch)
	CandidateScored(match *core.KnowledgeMatch, ageDays int)
	CandidateDropped(match *core.KnowledgeMatch)
	Finish(results []*core.KnowledgeMatch)
}

type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ []string)                                {}
func (n *noopMonitor) AfterCandidateFetch(_ []*core.KnowledgeMatch)    {}
func (n *noopMonitor) CandidateScored(_ *core.KnowledgeMatch, _ int)   {}
func (n *noopMonitor) CandidateDropped(_ *core.KnowledgeMatch)         {}
func (n *noopMonitor) Finish(_ []*core.KnowledgeMatch)                 {}
