package fyers

import (
	"fmt"
	"os"
	"strings"
)

// TokenStore persists the access token as a single-line flat file. The token
// is written once per login and read at every process start; deleting the
// file is the only way to force re-authentication.
type TokenStore struct {
	Path string
}

// Save overwrites the stored token.
func (s TokenStore) Save(token string) error {
	if err := os.WriteFile(s.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Load reads the stored token. A missing file is not an error; ok reports
// whether a token was found.
func (s TokenStore) Load() (string, bool) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}
