package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/linkshelf/internal/config"
	"github.com/mesh-intelligence/linkshelf/internal/keylock"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// workspace returns the global flags pointing at fresh config and data dirs.
func workspace(t *testing.T) (configDir string, dirFlags []string) {
	t.Helper()
	base := t.TempDir()
	configDir = filepath.Join(base, "config")
	dataDir := filepath.Join(base, "data")
	return configDir, []string{"--config-dir", configDir, "--data-dir", dataDir}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ce *codeError
	require.True(t, errors.As(err, &ce), "expected codeError, got %v", err)
	return ce.code
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "linkshelf v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	configDir, dirs := workspace(t)

	out, err := run(t, "", append([]string{"init"}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Linkshelf initialized")

	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: sqlite")
	assert.Contains(t, string(data), "retention: 5")

	// A second init keeps the existing config.
	custom := []byte("listen: 127.0.0.1:9999\n")
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), custom, 0o600))
	_, err = run(t, "", append([]string{"init"}, dirs...)...)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}

func TestInvalidConfigIsUserError(t *testing.T) {
	t.Setenv("LINKSHELF_LOG_FORMAT", "xml")
	_, dirs := workspace(t)

	_, err := run(t, "", append([]string{"list", "categories"}, dirs...)...)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
}

func TestListEmpty(t *testing.T) {
	_, dirs := workspace(t)

	out, err := run(t, "", append([]string{"list", "categories"}, dirs...)...)
	require.NoError(t, err)
	assert.Equal(t, "No categories found.\n", out)

	out, err = run(t, "", append([]string{"list", "links", "--json"}, dirs...)...)
	require.NoError(t, err)
	var links []types.Link
	require.NoError(t, json.Unmarshal([]byte(out), &links))
	assert.Empty(t, links)
}

func TestImportListExport(t *testing.T) {
	_, dirs := workspace(t)
	payload := filepath.Join(t.TempDir(), "shelf.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{
		"categories": [{"id": "c1", "name": "Tools", "order": 1}, {"id": "c2", "name": "News", "order": 5}],
		"links": [{"id": "l1", "title": "Go", "url": "https://go.dev", "categoryId": "c1", "order": 0}]
	}`), 0o600))

	out, err := run(t, "", append([]string{"backup", "import", payload}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	out, err = run(t, "", append([]string{"list", "categories"}, dirs...)...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "NAME")
	// Imports are written verbatim, so rows keep the file's order.
	assert.Contains(t, lines[2], "Tools")
	assert.Contains(t, lines[3], "News")
	assert.Equal(t, "Total: 2 categories", lines[4])

	exported := filepath.Join(t.TempDir(), "out.json")
	_, err = run(t, "", append([]string{"backup", "export", "--out", exported}, dirs...)...)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	var rec types.BackupRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Len(t, rec.Categories, 2)
	require.Len(t, rec.Links, 1)
	assert.Equal(t, "https://go.dev", rec.Links[0].URL)
}

func TestBackupCreateListRestore(t *testing.T) {
	_, dirs := workspace(t)
	payload := filepath.Join(t.TempDir(), "shelf.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{"categories":[{"id":"c1","name":"Tools","order":0}],"links":[]}`), 0o600))
	_, err := run(t, "", append([]string{"backup", "import", payload}, dirs...)...)
	require.NoError(t, err)

	out, err := run(t, "", append([]string{"backup", "create"}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+types.BackupKeyPrefix)

	out, err = run(t, "", append([]string{"backup", "list", "--json"}, dirs...)...)
	require.NoError(t, err)
	var keys []types.KeyInfo
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	require.Len(t, keys, 1)

	// Wipe the collections, then restore the backup.
	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"categories":[],"links":[]}`), 0o600))
	_, err = run(t, "", append([]string{"backup", "import", empty}, dirs...)...)
	require.NoError(t, err)

	out, err = run(t, "", append([]string{"backup", "restore", keys[0].Name}, dirs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")

	out, err = run(t, "", append([]string{"list", "categories", "--json"}, dirs...)...)
	require.NoError(t, err)
	var categories []types.Category
	require.NoError(t, json.Unmarshal([]byte(out), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Tools", categories[0].Name)
}

func TestBackupCreateScheduledOutsideWindow(t *testing.T) {
	t.Setenv("LINKSHELF_BACKUP_WINDOW_HOUR", "23")
	t.Setenv("LINKSHELF_BACKUP_WINDOW_DAYS", "31")
	_, dirs := workspace(t)

	out, err := run(t, "", append([]string{"backup", "create", "--scheduled"}, dirs...)...)
	require.NoError(t, err)
	if strings.HasPrefix(out, "Created ") {
		t.Skip("clock is inside the configured window")
	}
	assert.Contains(t, out, "Outside the backup window (days [31] at 23:00")
}

func TestOpenServicesSharesLocker(t *testing.T) {
	tests := []struct {
		name      string
		serialize bool
		want      keylock.Locker
	}{
		{name: "serialized", serialize: true, want: &keylock.Keyed{}},
		{name: "unserialized", serialize: false, want: keylock.Nop{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Driver = types.DriverMemory
			cfg.SerializeWrites = tt.serialize

			svc, err := openServices(context.Background(), &cfg, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { svc.Close() })
			assert.IsType(t, tt.want, svc.repo.Locker())
		})
	}
}

func TestBackupRestoreErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "missing backup", key: "backup_2000/01/01 00:00:00"},
		{name: "not a backup key", key: "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dirs := workspace(t)
			_, err := run(t, "", append([]string{"backup", "restore", tt.key}, dirs...)...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, exitCode(t, err))
		})
	}
}

func TestBackupImportRejectsBadFile(t *testing.T) {
	_, dirs := workspace(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	_, err := run(t, "", append([]string{"backup", "import", bad}, dirs...)...)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "argument", args: []string{"hash-password", "s3cret"}},
		{name: "stdin", stdin: "s3cret\n", args: []string{"hash-password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			hash := strings.TrimSpace(out)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
		})
	}

	_, err := run(t, "", "hash-password", "")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語日本語日...", truncate("日本語日本語日本語日本語", 10))
	assert.Equal(t, "01234567", shortID("0123456789"))
}
