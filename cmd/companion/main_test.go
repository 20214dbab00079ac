package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "companion.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	full := append([]string{"companion", "--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), err
}

const backup = `{
  "version": "1.0",
  "friends": [{"id":"friend_AB12CD","friendCode":"AB12CD","nickname":"Aiko","persona":"calm","group":"default"}],
  "friendCodes": [{"code":"AB12CD","nickname":"Aiko"}],
  "chats": [{"friendId":"friend_AB12CD","messages":[{"type":"user","text":"hi"}]}],
  "memories": [],
  "apiPresets": []
}`

func TestCLI_MigrateImportExport(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)

	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(backup), 0o600))
	_, err = run(t, "import", in)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.json")
	_, err = run(t, "export", "--out", out)
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc domain.ExportDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, domain.ExportVersion, doc.Version)
	require.Len(t, doc.Friends, 1)
	require.Equal(t, "Aiko", doc.Friends[0].Nickname)
	require.Len(t, doc.Chats, 1)

	stdout, err := run(t, "export", "--partial", "persona,chats")
	require.NoError(t, err)
	var part domain.PartialDocument
	require.NoError(t, json.Unmarshal([]byte(stdout), &part))
	require.Equal(t, domain.DocumentTypePartial, part.Type)
	require.Len(t, part.Friends, 1)
	require.NotNil(t, part.Friends[0].Persona)
	require.Nil(t, part.Friends[0].Profile)
}

func TestCLI_Errors(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "import")
	require.ErrorContains(t, err, "FILE argument required")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"friends":[]}`), 0o600))
	_, err = run(t, "import", bad)
	require.Error(t, err)

	_, err = run(t, "export", "--partial", "dreams")
	require.ErrorContains(t, err, "unknown export category")

	_, err = run(t, "reset")
	require.ErrorContains(t, err, "--yes")
}

func TestCLI_Reset(t *testing.T) {
	dir := setupEnv(t)
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(backup), 0o600))
	_, err := run(t, "import", in)
	require.NoError(t, err)

	_, err = run(t, "reset", "--yes")
	require.NoError(t, err)

	stdout, err := run(t, "export")
	require.NoError(t, err)
	require.True(t, strings.Contains(stdout, `"friends": []`), stdout)
}

func TestParseSelectors(t *testing.T) {
	sel, err := parseSelectors(" Friends, memories ,")
	require.NoError(t, err)
	require.Equal(t, domain.ExportSelectors{Friends: true, Memories: true}, sel)

	_, err = parseSelectors(",")
	require.Error(t, err)
}
