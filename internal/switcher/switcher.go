// Package switcher projects an account onto the external CLI's canonical
// credential file and imports foreign credential files back into accounts.
package switcher

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
)

const authFileName = "auth.json"

// CodexHome returns CODEX_HOME if set, else <home>/.codex.
func CodexHome() (string, error) {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

func authFilePath() (string, error) {
	home, err := CodexHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, authFileName), nil
}

// Switch projects account into <CODEX_HOME>/auth.json and sets its
// permissions to 0600 on Unix-like systems (a no-op elsewhere).
func Switch(account codexaccount.Account) error {
	home, err := CodexHome()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("creating codex home directory: %w", err)
	}

	file := ToExternalFile(account)
	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing auth.json: %w", err)
	}

	path := filepath.Join(home, authFileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing auth.json: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("setting auth.json permissions: %w", err)
		}
	}
	return nil
}

// ToExternalFile is the pure projection account -> credential file shape.
// Exactly one of OpenAIAPIKey or Tokens is populated. When Tokens is
// populated, LastRefresh is set to now.
func ToExternalFile(account codexaccount.Account) codexaccount.ExternalCredentialFile {
	switch account.Auth.Mode {
	case codexaccount.AuthModeAPIKey:
		return codexaccount.ExternalCredentialFile{OpenAIAPIKey: account.Auth.APIKey}
	case codexaccount.AuthModeChatGPT:
		now := time.Now().UTC()
		return codexaccount.ExternalCredentialFile{
			Tokens: &codexaccount.TokenData{
				IDToken:      account.Auth.ChatGPT.IDToken,
				AccessToken:  account.Auth.ChatGPT.AccessToken,
				RefreshToken: account.Auth.ChatGPT.RefreshToken,
				AccountID:    account.Auth.ChatGPT.AccountID,
			},
			LastRefresh: &now,
		}
	default:
		return codexaccount.ExternalCredentialFile{}
	}
}

// ReadCurrent reads the current <CODEX_HOME>/auth.json, if any.
func ReadCurrent() (*codexaccount.ExternalCredentialFile, error) {
	path, err := authFilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading auth.json: %w", err)
	}
	var file codexaccount.ExternalCredentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing auth.json: %w", err)
	}
	return &file, nil
}

// HasActiveLogin reports whether the current auth.json carries either an
// API key or a token set.
func HasActiveLogin() (bool, error) {
	file, err := ReadCurrent()
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, nil
	}
	return file.OpenAIAPIKey != "" || file.Tokens != nil, nil
}

// Import parses a foreign auth.json at path and returns a fresh Account
// named accountName, suitable for store.Add. Rejects files that carry
// neither OPENAI_API_KEY nor tokens.
func Import(path, accountName string) (codexaccount.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return codexaccount.Account{}, fmt.Errorf("reading auth.json: %w", err)
	}

	var file codexaccount.ExternalCredentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return codexaccount.Account{}, fmt.Errorf("parsing auth.json: %w", err)
	}

	switch {
	case file.OpenAIAPIKey != "":
		return codexaccount.NewAPIKeyAccount(accountName, file.OpenAIAPIKey), nil
	case file.Tokens != nil:
		email, plan := parseIDTokenClaims(file.Tokens.IDToken)
		return codexaccount.NewChatGPTAccount(
			accountName, email, plan,
			file.Tokens.IDToken, file.Tokens.AccessToken, file.Tokens.RefreshToken,
			file.Tokens.AccountID,
		), nil
	default:
		return codexaccount.Account{}, fmt.Errorf("auth.json has neither OPENAI_API_KEY nor tokens")
	}
}

// parseIDTokenClaims extracts email and chatgpt_plan_type from an
// unverified JWT ID token. Malformed input yields two empty strings; it
// never returns an error.
func parseIDTokenClaims(idToken string) (email, planType string) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return "", ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ""
	}
	var claims struct {
		Email string `json:"email"`
		Auth  struct {
			ChatGPTPlanType string `json:"chatgpt_plan_type"`
		} `json:"https://api.openai.com/auth"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", ""
	}
	return claims.Email, claims.Auth.ChatGPTPlanType
}
