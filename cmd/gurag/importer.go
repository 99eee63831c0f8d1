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


package main

import (
	"bufio"
	"context"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/ingestion"
)

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

type importSummary struct {
	Imported int
	Skipped  int
	Failed   int
}

// importer feeds lines to an ingest function. Lines starting with '{' are
// decoded as ingestion requests; any other non-blank line is a passage.
type importer struct {
	ingest         func(context.Context, *ingestion.Request) (*core.KnowledgeEntry, error)
	sourceType     string
	reportInterval int
	logger         *slog.Logger
}

func (imp *importer) run(ctx context.Context, lines iter.Seq[string]) (*importSummary, error) {
	summary := &importSummary{}
	lineNo := 0

	for line := range lines {
		lineNo++
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		req, err := imp.parse(line)
		if err != nil {
			imp.logger.Warn("skipping malformed line", "line", lineNo, "err", err)
			summary.Skipped++
			continue
		}
		if req == nil {
			continue
		}

		if _, err := imp.ingest(ctx, req); err != nil {
			if core.IsValidation(err) {
				imp.logger.Warn("failed to ingest line", "line", lineNo, "err", err)
				summary.Failed++
				continue
			}
			return summary, err
		}
		summary.Imported++

		if imp.reportInterval > 0 && summary.Imported%imp.reportInterval == 0 {
			imp.logger.Info("import progress", "imported", summary.Imported, "line", lineNo)
		}
	}
	return summary, nil
}

// parse returns nil for blank lines.
func (imp *importer) parse(line string) (*ingestion.Request, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return &ingestion.Request{Content: trimmed, SourceType: imp.sourceType}, nil
	}

	var req ingestion.Request
	if err := sonic.UnmarshalString(trimmed, &req); err != nil {
		return nil, err
	}
	if req.SourceType == "" {
		req.SourceType = imp.sourceType
	}
	return &req, nil
}
