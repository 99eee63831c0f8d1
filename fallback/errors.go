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


package fallback

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidMaxResults is returned when a per-source result count is not positive.
	ErrInvalidMaxResults = errors.New("max results per source must be greater than 0")

	// ErrInvalidBaseURL is returned when a provider base URL cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid provider base URL")

	// ErrInvalidAttempts is returned when a provider is configured with fewer than one attempt.
	ErrInvalidAttempts = errors.New("provider attempts must be greater than 0")
)

// StatusError reports a non-200 response from a provider.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode) + " from " + e.URL
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return isTemporaryStatus(e.StatusCode)
}

func isTemporaryStatus(code int) bool {
	return code >= 500 || code == 429
}
