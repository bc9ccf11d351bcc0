package switcher

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
)

func fakeIDToken(t *testing.T, email, plan string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload, err := json.Marshal(map[string]any{
		"email": email,
		"https://api.openai.com/auth": map[string]any{
			"chatgpt_plan_type": plan,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestToExternalFileAPIKey(t *testing.T) {
	a := codexaccount.NewAPIKeyAccount("A", "sk-123")
	file := ToExternalFile(a)
	if file.OpenAIAPIKey != "sk-123" || file.Tokens != nil {
		t.Fatalf("unexpected projection: %+v", file)
	}
}

func TestToExternalFileChatGPT(t *testing.T) {
	a := codexaccount.NewChatGPTAccount("A", "alice@x", "plus", "idt", "at", "rt", "cg-1")
	file := ToExternalFile(a)
	if file.OpenAIAPIKey != "" || file.Tokens == nil {
		t.Fatalf("unexpected projection: %+v", file)
	}
	if file.Tokens.AccessToken != "at" || file.LastRefresh == nil {
		t.Fatalf("tokens not projected correctly: %+v", file.Tokens)
	}
}

func TestImportAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	if err := os.WriteFile(path, []byte(`{"OPENAI_API_KEY":"sk-abc"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	account, err := Import(path, "Imported")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if account.Mode != codexaccount.AuthModeAPIKey || account.Auth.APIKey != "sk-abc" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestImportChatGPTDerivesEmailAndPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	idToken := fakeIDToken(t, "alice@example.com", "plus")
	content, _ := json.Marshal(map[string]any{
		"tokens": map[string]any{
			"id_token":      idToken,
			"access_token":  "at",
			"refresh_token": "rt",
		},
	})
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	account, err := Import(path, "Imported")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if account.Email != "alice@example.com" || account.PlanType != "plus" {
		t.Fatalf("unexpected claims: email=%q plan=%q", account.Email, account.PlanType)
	}
}

func TestImportRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Import(path, "Imported"); err == nil {
		t.Fatalf("expected error for file with neither field")
	}
}

func TestParseIDTokenClaimsMalformedNeverFails(t *testing.T) {
	email, plan := parseIDTokenClaims("not-a-jwt")
	if email != "" || plan != "" {
		t.Fatalf("expected empty claims, got email=%q plan=%q", email, plan)
	}
}

func TestImportThenExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.json")
	idToken := fakeIDToken(t, "alice@example.com", "plus")
	original := codexaccount.ExternalCredentialFile{
		Tokens: &codexaccount.TokenData{
			IDToken:      idToken,
			AccessToken:  "at",
			RefreshToken: "rt",
		},
	}
	content, _ := json.Marshal(original)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	account, err := Import(path, "Imported")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	reprojected := ToExternalFile(account)
	if reprojected.Tokens.IDToken != original.Tokens.IDToken ||
		reprojected.Tokens.AccessToken != original.Tokens.AccessToken ||
		reprojected.Tokens.RefreshToken != original.Tokens.RefreshToken {
		t.Fatalf("round trip mismatch: got %+v want %+v", reprojected.Tokens, original.Tokens)
	}
}
