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
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/gurag/core"
	"golang.org/x/time/rate"
)

const (
	// ArxivURL is the arXiv export API query endpoint.
	ArxivURL = "https://export.arxiv.org/api/query"

	// arXiv asks clients to make no more than one request every three seconds.
	arxivInterval = 3 * time.Second

	maxListedAuthors = 3
)

type arxivFeed struct {
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	ID      string `xml:"http://www.w3.org/2005/Atom id"`
	Title   string `xml:"http://www.w3.org/2005/Atom title"`
	Summary string `xml:"http://www.w3.org/2005/Atom summary"`
	Authors []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	PrimaryCategories []struct {
		Term string `xml:"term,attr"`
	} `xml:"http://arxiv.org/schemas/atom primary_category"`
}

// ArxivProvider searches arXiv paper abstracts.
type ArxivProvider struct {
	cfg *providerConfig
}

var _ Provider = (*ArxivProvider)(nil)

// NewArxivProvider creates an arXiv provider paced at one request every three seconds.
func NewArxivProvider(opts ...ProviderOption) (*ArxivProvider, error) {
	cfg, err := newProviderConfig(ArxivURL, rate.NewLimiter(rate.Every(arxivInterval), 1), opts)
	if err != nil {
		return nil, err
	}
	return &ArxivProvider{cfg: cfg}, nil
}

// Name implements Provider.
func (p *ArxivProvider) Name() string {
	return "arxiv"
}

// Search implements Provider.
func (p *ArxivProvider) Search(ctx context.Context, keywords []string, maxResults int) ([]*core.ExternalResult, error) {
	if len(keywords) == 0 {
		return []*core.ExternalResult{}, nil
	}
	if maxResults <= 0 {
		return nil, ErrInvalidMaxResults
	}

	body, err := p.cfg.get(ctx, p.queryURL(keywords, maxResults))
	if err != nil {
		return nil, err
	}

	results, err := parseArxivFeed(body)
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (p *ArxivProvider) queryURL(keywords []string, maxResults int) string {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = `all:"` + kw + `"`
	}

	params := url.Values{}
	params.Set("search_query", strings.Join(parts, " OR "))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	return p.cfg.baseURL + "?" + params.Encode()
}

func parseArxivFeed(data []byte) ([]*core.ExternalResult, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing arxiv feed: %w", err)
	}

	results := make([]*core.ExternalResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		title := collapseWhitespace(entry.Title)
		summary := collapseWhitespace(entry.Summary)
		id := strings.TrimSpace(entry.ID)

		authors := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}
		categories := make([]string, 0, len(entry.PrimaryCategories))
		for _, c := range entry.PrimaryCategories {
			if c.Term != "" {
				categories = append(categories, c.Term)
			}
		}

		listed := authors
		if len(listed) > maxListedAuthors {
			listed = listed[:maxListedAuthors]
		}

		results = append(results, &core.ExternalResult{
			Content:      "Title: " + title + "\n\nAbstract: " + summary,
			SourceType:   core.SourceTypeArxivPaper,
			SourceURL:    id,
			SourceTitle:  title,
			SourceAuthor: strings.Join(listed, ", "),
			Metadata: map[string]any{
				"arxiv_id":    arxivID(id),
				"categories":  categories,
				"all_authors": authors,
			},
		})
	}
	return results, nil
}

// arxivID returns the last path segment of an arXiv entry id.
func arxivID(id string) string {
	if id == "" {
		return ""
	}
	return id[strings.LastIndex(id, "/")+1:]
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
