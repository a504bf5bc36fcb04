package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/payload"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadMainConfig(writeConfig(t, "{}\n"))
		require.NoError(t, err)
		assert.Equal(t, "./input", cfg.InputDir)
		assert.Equal(t, "./output", cfg.OutputDir)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, payload.DefaultCollectionPlaceholder, cfg.CollectionPlaceholder)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.True(t, cfg.ShouldContinueOnError())
		assert.True(t, cfg.ShouldArchive())
		assert.Equal(t, ":8080", cfg.ListenAddr)

		opts, err := cfg.Parser.Options()
		require.NoError(t, err)
		assert.Equal(t, changesheet.DefaultParseOptions(), opts)
	})
	t.Run("overrides", func(t *testing.T) {
		cfg, err := LoadMainConfig(writeConfig(t, `
input_dir: ./sheets
log_level: debug
max_concurrency: 2
continue_on_error: false
archive_on_success: false
collection_placeholder: biosample_set
listen_addr: localhost:9000
parser:
  header: false
  delimiter: tab
`))
		require.NoError(t, err)
		assert.Equal(t, "./sheets", cfg.InputDir)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 2, cfg.MaxConcurrency)
		assert.False(t, cfg.ShouldContinueOnError())
		assert.False(t, cfg.ShouldArchive())
		assert.Equal(t, "localhost:9000", cfg.ListenAddr)

		opts, err := cfg.Parser.Options()
		require.NoError(t, err)
		assert.Equal(t, changesheet.ParseOptions{Header: false, Delimiter: '\t'}, opts)

		op, err := cfg.Translator().TranslateRow(changesheet.Row{ID: "1", Action: changesheet.ActionSet, Attribute: "a", Value: "b"})
		require.NoError(t, err)
		assert.Equal(t, "biosample_set", op.Update)
	})
	t.Run("invalid values", func(t *testing.T) {
		for name, content := range map[string]string{
			"log level":   "log_level: verbose\n",
			"concurrency": "max_concurrency: 500\n",
			"listen addr": "listen_addr: nowhere\n",
			"delimiter":   "parser:\n  delimiter: space\n",
		} {
			_, err := LoadMainConfig(writeConfig(t, content))
			assert.Error(t, err, name)
		}
	})
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadMainConfig(writeConfig(t, "input_dir: [\n"))
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(writeConfig(t, "log_level: loud\n"))
	assert.Error(t, err)
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]rune{
		"":          0,
		"auto":      0,
		",":         ',',
		"comma":     ',',
		"\t":        '\t',
		`\t`:        '\t',
		"tab":       '\t',
		"|":         '|',
		"pipe":      '|',
		";":         ';',
		"semicolon": ';',
		"COMMA":     ',',
		"Tab":       '\t',
		"SEMICOLON": ';',
		"Pipe":      '|',
		":":         ':',
		"~":         '~',
		" ":         ' ',
		"§":         '§',
	}
	for name, want := range tests {
		got, err := ParseDelimiter(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"space", "::", `"`, "\n", "\r", "\xff"} {
		_, err := ParseDelimiter(name)
		assert.Error(t, err, name)
	}
}
