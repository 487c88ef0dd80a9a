package tool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/moyoez/tunshare/types"
)

const credentialFileName = "cred.json"

// DefaultCredentialPath returns <user config dir>/tunshare/cred.json, or ./cred.json when there is no config dir.
func DefaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return credentialFileName
	}
	return filepath.Join(dir, "tunshare", credentialFileName)
}

// CredentialPathFor picks the configured path or the default one.
func CredentialPathFor(cfg *types.AppConfig) string {
	if cfg != nil && cfg.CredentialPath != "" {
		return cfg.CredentialPath
	}
	return DefaultCredentialPath()
}

// LoadCredential reads {"token": "..."}. A missing file or an empty token is types.ErrNoCredential.
func LoadCredential(path string) (*types.Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.ErrNoCredential
		}
		return nil, fmt.Errorf("%w: failed to read credential: %v", types.ErrIO, err)
	}
	var cred types.Credential
	if err := sonic.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: malformed credential file", types.ErrNoCredential)
	}
	if !cred.Valid() {
		return nil, types.ErrNoCredential
	}
	return &cred, nil
}

// SaveCredential writes the credential through a temp file and rename, so a failed write never leaves a torn file.
func SaveCredential(path string, cred *types.Credential) error {
	if !cred.Valid() {
		return types.ErrNoCredential
	}
	payload, err := sonic.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %v", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: failed to create credential dir: %v", types.ErrIO, err)
	}
	tmp, err := os.CreateTemp(dir, ".cred-*.json")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp credential: %v", types.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to write credential: %v", types.ErrIO, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		DefaultLogger.Debugf("Failed to chmod credential file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close credential: %v", types.ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to persist credential: %v", types.ErrIO, err)
	}
	return nil
}
