package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag[T cli.Flag](t *testing.T, flags []cli.Flag, name string) T {
	t.Helper()
	for _, flag := range flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	t.Fatalf("flag %q not found", name)
	var zero T
	return zero
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"search", "ingest", "import", "status", "clear-cache", "serve"} {
		cmd := findCommand(t, app, name)
		assert.NotNil(t, cmd.Action, name)

		// Every command can open a deployment
		db := findFlag[*cli.StringFlag](t, cmd.Flags, "db")
		assert.Equal(t, "./gurag_db", db.Value)
	}
}

func TestDatabaseFlags(t *testing.T) {
	flags := databaseFlags()

	t.Run("db reads GURAG_DB", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](t, flags, "db")
		assert.Equal(t, []string{"GURAG_DB"}, f.EnvVars)
		assert.Equal(t, []string{"d"}, f.Aliases)
	})

	t.Run("hosts default to the hosted API", func(t *testing.T) {
		assert.Equal(t, defaultHost, findFlag[*cli.StringFlag](t, flags, "embedding-host").Value)
		assert.Equal(t, defaultHost, findFlag[*cli.StringFlag](t, flags, "generation-host").Value)
	})

	t.Run("api key has no default", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](t, flags, "api-key")
		assert.Empty(t, f.Value)
		assert.Contains(t, f.EnvVars, "OPENAI_API_KEY")
	})

	t.Run("tier thresholds", func(t *testing.T) {
		assert.Equal(t, 0.95, findFlag[*cli.Float64Flag](t, flags, "cache-threshold").Value)
		assert.Equal(t, 0.5, findFlag[*cli.Float64Flag](t, flags, "min-similarity").Value)
		assert.Equal(t, 3, findFlag[*cli.IntFlag](t, flags, "max-results-per-source").Value)
	})

	t.Run("embedding cache", func(t *testing.T) {
		assert.Equal(t, 1024, findFlag[*cli.IntFlag](t, flags, "embedding-cache-size").Value)
		assert.Equal(t, 10*time.Minute, findFlag[*cli.DurationFlag](t, flags, "embedding-cache-ttl").Value)
	})

	t.Run("flags are not shared between commands", func(t *testing.T) {
		other := databaseFlags()
		assert.NotSame(t, flags[0], other[0])
	})
}

func TestServeCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "serve")

	addr := findFlag[*cli.StringFlag](t, cmd.Flags, "addr")
	assert.Equal(t, ":8000", addr.Value)
	assert.Equal(t, []string{"GURAG_ADDR"}, addr.EnvVars)
}

func TestIngestCommand_ContentRequired(t *testing.T) {
	err := newApp().Run([]string{"gurag", "ingest", "--db", t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content")
}

func TestIngestCommand_InvalidMetadata(t *testing.T) {
	err := newApp().Run([]string{"gurag", "ingest", "--db", t.TempDir(), "--content", "x", "--metadata", "{not json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metadata")
}

func TestSearchCommand_QueryRequired(t *testing.T) {
	err := newApp().Run([]string{"gurag", "search", "--db", t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestImportCommand_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.jsonl")
	err := newApp().Run([]string{"gurag", "import", "--db", t.TempDir(), "--file", missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open import file")
}

func TestStatusAndClearCacheCommands(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, newApp().Run([]string{"gurag", "status", "--db", dir, "--no-fallback"}))
	require.NoError(t, newApp().Run([]string{"gurag", "clear-cache", "--db", dir, "--no-fallback"}))
}

func TestSetupLogger(t *testing.T) {
	run := func(level string) error {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
		return app.Run([]string{"test", "--log-level", level})
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			assert.NoError(t, run(level), level)
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			assert.NoError(t, run(level), level)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		err := run("verbose")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
