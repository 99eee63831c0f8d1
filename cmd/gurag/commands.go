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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/poiesic/gurag"
	"github.com/poiesic/gurag/ingestion"
	"github.com/urfave/cli/v2"
)

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orch, err := db.NewOrchestrator()
	if err != nil {
		return err
	}

	resp, err := orch.Search(c.Context, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printJSON(resp)
}

func ingestCommand(c *cli.Context) error {
	req := &ingestion.Request{
		Content:    c.String("content"),
		SourceType: c.String("source-type"),
		URL:        c.String("url"),
		Title:      c.String("title"),
		Author:     c.String("author"),
	}
	if raw := c.String("metadata"); raw != "" {
		if err := sonic.UnmarshalString(raw, &req.Metadata); err != nil {
			return fmt.Errorf("invalid metadata: %w", err)
		}
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.Ingest(c.Context, req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Printf("Content ingested successfully (id %d)\n", entry.Id)
	return nil
}

func importCommand(c *cli.Context) error {
	lines, err := linesFromFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	imp := &importer{
		ingest:         db.Ingest,
		sourceType:     c.String("source-type"),
		reportInterval: c.Int("report-interval"),
		logger:         slog.Default(),
	}
	summary, err := imp.run(c.Context, lines)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d passages (%d skipped, %d failed)\n", summary.Imported, summary.Skipped, summary.Failed)
	return nil
}

func statusCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return printJSON(db.Status(c.Context))
}

func clearCacheCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.ClearCache(c.Context)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Printf("Cache cleared: %d entries deleted\n", deleted)
	return nil
}

func serveCommand(c *cli.Context) error {
	reg := newRegistry()
	db, err := openDatabase(c, gurag.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer db.Close()

	orch, err := db.NewOrchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    c.String("addr"),
		Handler: newRouter(&server{db: db, orch: orch, gatherer: reg, logger: slog.Default()}),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
