package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/tunshare/types"
)

func TestLoadCredentialMissing(t *testing.T) {
	_, err := LoadCredential(filepath.Join(t.TempDir(), "cred.json"))
	assert.ErrorIs(t, err, types.ErrNoCredential)
}

func TestLoadCredentialMalformedOrEmpty(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"garbage.json": "{not json",
		"empty.json":   `{"token": ""}`,
		"other.json":   `{"authtoken": "abc"}`,
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		_, err := LoadCredential(p)
		assert.ErrorIs(t, err, types.ErrNoCredential, name)
	}
}

func TestSaveAndLoadCredential(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tunshare", "cred.json")

	require.NoError(t, SaveCredential(p, &types.Credential{Token: "2abc"}))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"2abc"}`, string(data))

	cred, err := LoadCredential(p)
	require.NoError(t, err)
	assert.Equal(t, "2abc", cred.Token)

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSaveCredentialRejectsEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cred.json")
	assert.ErrorIs(t, SaveCredential(p, &types.Credential{}), types.ErrNoCredential)
	assert.ErrorIs(t, SaveCredential(p, nil), types.ErrNoCredential)
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestCredentialPathFor(t *testing.T) {
	assert.Equal(t, "/tmp/x.json", CredentialPathFor(&types.AppConfig{CredentialPath: "/tmp/x.json"}))
	assert.Equal(t, DefaultCredentialPath(), CredentialPathFor(&types.AppConfig{}))
	assert.Equal(t, DefaultCredentialPath(), CredentialPathFor(nil))
}
