package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/store"
)

func TestGeneratePKCEIsWellFormed(t *testing.T) {
	p, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE: %v", err)
	}
	if len(p.Verifier) == 0 || len(p.Challenge) == 0 {
		t.Fatalf("expected non-empty verifier/challenge, got %+v", p)
	}
	if p.Verifier == p.Challenge {
		t.Fatalf("challenge must be derived from, not equal to, the verifier")
	}
	if _, err := base64.RawURLEncoding.DecodeString(p.Verifier); err != nil {
		t.Fatalf("verifier not base64url-no-pad: %v", err)
	}
	if _, err := base64.RawURLEncoding.DecodeString(p.Challenge); err != nil {
		t.Fatalf("challenge not base64url-no-pad: %v", err)
	}
}

func TestGeneratePKCEIsRandomized(t *testing.T) {
	a, _ := GeneratePKCE()
	b, _ := GeneratePKCE()
	if a.Verifier == b.Verifier {
		t.Fatalf("expected distinct verifiers across calls")
	}
}

func TestBuildAuthorizeURLCarriesRequiredParams(t *testing.T) {
	pkce, _ := GeneratePKCE()
	u := buildAuthorizeURL("http://localhost:1455/auth/callback", pkce, "somestate")
	for _, want := range []string{
		"client_id=app_EMoamEEZ73f0CkXaXp7hrann",
		"code_challenge_method=S256",
		"id_token_add_organizations=true",
		"codex_cli_simplified_flow=true",
		"originator=codex_cli_rs",
		"state=somestate",
	} {
		if !strings.Contains(u, want) {
			t.Fatalf("authorize url missing %q: %s", want, u)
		}
	}
}

func fakeIDToken(t *testing.T, email, plan, accountID string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload, err := json.Marshal(map[string]any{
		"email": email,
		"https://api.openai.com/auth": map[string]any{
			"chatgpt_plan_type":  plan,
			"chatgpt_account_id": accountID,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestParseIDTokenClaims(t *testing.T) {
	tok := fakeIDToken(t, "alice@example.com", "plus", "cg-1")
	email, plan, accountID := parseIDTokenClaims(tok)
	if email != "alice@example.com" || plan != "plus" || accountID != "cg-1" {
		t.Fatalf("got email=%q plan=%q accountID=%q", email, plan, accountID)
	}
}

func TestParseIDTokenClaimsMalformedNeverFails(t *testing.T) {
	for _, bad := range []string{"", "not-a-jwt", "a.b", "a.!!!.c"} {
		email, plan, accountID := parseIDTokenClaims(bad)
		if email != "" || plan != "" || accountID != "" {
			t.Fatalf("expected empty claims for %q, got %q/%q/%q", bad, email, plan, accountID)
		}
	}
}

func TestFlowSlotRejectsConcurrentClaim(t *testing.T) {
	var slot singleFlowSlot
	if !slot.claim(flowState{state: "a"}) {
		t.Fatalf("first claim should succeed")
	}
	if slot.claim(flowState{state: "b"}) {
		t.Fatalf("second concurrent claim should be rejected")
	}
	slot.release()
	if !slot.claim(flowState{state: "c"}) {
		t.Fatalf("claim after release should succeed")
	}
}

func TestStartRejectsSecondFlowUntilFirstResolves(t *testing.T) {
	st := store.NewAt(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := Start(ctx, st, "first")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, _, err := Start(ctx, st, "second"); err == nil {
		t.Fatalf("expected second concurrent Start to be rejected")
	}
	flowSlot.release()
}

func TestHandleCallbackRejectsStateMismatch(t *testing.T) {
	st := store.NewAt(t.TempDir())
	flowSlot.release()
	if !flowSlot.claim(flowState{state: "expected", redirectURI: "http://localhost:1455/auth/callback", accountName: "x"}) {
		t.Fatalf("claim")
	}
	defer flowSlot.release()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=wrong&code=abc", nil)
	if _, err := handleCallback(req, st); err == nil {
		t.Fatalf("expected state mismatch error")
	}
}

func TestHandleCallbackSurfacesOAuthError(t *testing.T) {
	st := store.NewAt(t.TempDir())
	flowSlot.release()
	flowSlot.claim(flowState{state: "expected", accountName: "x"})
	defer flowSlot.release()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied&error_description=nope", nil)
	_, err := handleCallback(req, st)
	if err == nil {
		t.Fatalf("expected oauth error to surface")
	}
}

func TestRefreshRejectsAPIKeyAccounts(t *testing.T) {
	st := store.NewAt(t.TempDir())
	a, err := st.Add(codexaccount.NewAPIKeyAccount("A", "sk-a"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := Refresh(context.Background(), st, a.ID); err == nil {
		t.Fatalf("expected refresh on api-key account to fail")
	}
}
