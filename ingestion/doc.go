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

// Package ingestion writes passages into the knowledge store.
//
// The Pipeline type handles two paths:
//   - Manual ingestion of a single passage supplied by an operator
//   - Self-learning write-back of external search results
//
// Write-back is fanned out over a worker pool. Each result is embedded and
// appended independently, and failures are reported per result instead of
// failing the batch.
package ingestion
