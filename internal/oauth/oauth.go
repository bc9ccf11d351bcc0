// Package oauth runs the ChatGPT OAuth authorization code flow used to add
// a Codex account backed by a subscription login rather than an API key.
// It also exposes the independent refresh-token exchange used to renew an
// existing ChatGPT-mode account.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/store"
)

const (
	issuer          = "https://auth.openai.com"
	clientID        = "app_EMoamEEZ73f0CkXaXp7hrann"
	preferredPort   = 1455
	authScope       = "openid profile email offline_access"
	callbackPath    = "/auth/callback"
	callbackTimeout = 5 * time.Minute
)

// tokenHTTPClient is a dedicated client for the token endpoint, separate
// from any client used for proxied upstream traffic. It is threaded into
// x/oauth2 calls via the oauth2.HTTPClient context key.
var tokenHTTPClient = &http.Client{Timeout: 30 * time.Second}

func withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, tokenHTTPClient)
}

// endpointConfig returns the oauth2.Config for a given redirect URI. It
// carries no client secret: the upstream client is a public PKCE client.
func endpointConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(authScope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  issuer + "/oauth/authorize",
			TokenURL: issuer + "/oauth/token",
		},
	}
}

// PKCE holds a generated code verifier and its S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a 64-byte random verifier and its SHA-256 challenge,
// both base64url-no-pad encoded per RFC 7636.
func GeneratePKCE() (PKCE, error) {
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, fmt.Errorf("generating pkce verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	digest := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(digest[:])
	return PKCE{Verifier: verifier, Challenge: challenge}, nil
}

// generateState produces a 32-byte random CSRF state token.
func generateState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// buildAuthorizeURL constructs the authorization endpoint URL with the
// exact parameter set the upstream ChatGPT OAuth client requires, on top
// of the S256 challenge x/oauth2 derives from the PKCE verifier.
func buildAuthorizeURL(redirectURI string, pkce PKCE, state string) string {
	cfg := endpointConfig(redirectURI)
	return cfg.AuthCodeURL(state,
		oauth2.S256ChallengeOption(pkce.Verifier),
		oauth2.SetAuthURLParam("id_token_add_organizations", "true"),
		oauth2.SetAuthURLParam("codex_cli_simplified_flow", "true"),
		oauth2.SetAuthURLParam("originator", "codex_cli_rs"),
	)
}

// LoginInfo is returned to the caller once the callback listener is bound,
// so a UI can render the URL and, if needed, the bound port.
type LoginInfo struct {
	AuthURL      string
	CallbackPort int
}

// Start begins a login flow for a new account named accountName: it binds
// the callback listener, returns LoginInfo for the caller to surface (and
// open in a browser), and runs the callback server in the background. The
// returned channel receives exactly one result, once the callback arrives,
// the flow times out, or ctx is canceled.
//
// On success the new account has already been persisted to st; the caller
// does not need to call st.Add again.
func Start(ctx context.Context, st *store.Store, accountName string) (LoginInfo, <-chan Result, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return LoginInfo{}, nil, err
	}
	state, err := generateState()
	if err != nil {
		return LoginInfo{}, nil, err
	}

	listener, err := bindCallbackListener()
	if err != nil {
		return LoginInfo{}, nil, err
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURI := fmt.Sprintf("http://localhost:%d%s", port, callbackPath)
	authURL := buildAuthorizeURL(redirectURI, pkce, state)

	if !flowSlot.claim(flowState{
		pkce: pkce, state: state, redirectURI: redirectURI, accountName: accountName,
	}) {
		listener.Close()
		return LoginInfo{}, nil, fmt.Errorf("a login flow is already in progress")
	}

	resultCh := make(chan Result, 1)
	go runCallbackServer(ctx, listener, st, resultCh)

	return LoginInfo{AuthURL: authURL, CallbackPort: port}, resultCh, nil
}

// Result is what a login flow ultimately resolves to.
type Result struct {
	Account codexaccount.Account
	Err     error
}

// bindCallbackListener binds the preferred port, falling back to an
// ephemeral one if it is already taken.
func bindCallbackListener() (net.Listener, error) {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferredPort))
	if err == nil {
		return l, nil
	}
	l, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting oauth callback listener: %w", err)
	}
	return l, nil
}

func runCallbackServer(ctx context.Context, listener net.Listener, st *store.Store, resultCh chan<- Result) {
	mux := http.NewServeMux()
	done := make(chan Result, 1)

	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		account, err := handleCallback(r, st)
		if err != nil {
			fmt.Fprint(w, errorHTML(err.Error()))
		} else {
			fmt.Fprint(w, successHTML)
		}
		select {
		case done <- Result{Account: account, Err: err}:
		default:
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go server.Serve(listener) //nolint:errcheck

	timeoutCtx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	var result Result
	select {
	case result = <-done:
	case <-timeoutCtx.Done():
		result = Result{Err: fmt.Errorf("login timed out after %s", callbackTimeout)}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx) //nolint:errcheck

	flowSlot.release()
	resultCh <- result
}

func handleCallback(r *http.Request, st *store.Store) (codexaccount.Account, error) {
	flow, ok := flowSlot.snapshot()
	if !ok {
		return codexaccount.Account{}, fmt.Errorf("no login flow in progress")
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = "unknown error"
		}
		return codexaccount.Account{}, fmt.Errorf("oauth error: %s - %s", errCode, desc)
	}
	if q.Get("state") != flow.state {
		return codexaccount.Account{}, fmt.Errorf("state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return codexaccount.Account{}, fmt.Errorf("no authorization code in callback")
	}

	ctx, cancel := context.WithTimeout(withHTTPClient(r.Context()), 30*time.Second)
	defer cancel()
	cfg := endpointConfig(flow.redirectURI)
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(flow.pkce.Verifier))
	if err != nil {
		return codexaccount.Account{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	idToken, _ := token.Extra("id_token").(string)

	email, planType, chatGPTAccountID := parseIDTokenClaims(idToken)
	account := codexaccount.NewChatGPTAccount(
		flow.accountName, email, planType,
		idToken, token.AccessToken, token.RefreshToken, chatGPTAccountID,
	)

	if _, err := st.Add(account); err != nil {
		return codexaccount.Account{}, fmt.Errorf("saving account: %w", err)
	}
	return account, nil
}

// Refresh exchanges an account's refresh token for a new access token and
// persists the result via st. It is independent of the login flow above
// and does not touch flowSlot.
func Refresh(ctx context.Context, st *store.Store, accountID string) (codexaccount.Account, error) {
	account, err := st.Get(accountID)
	if err != nil {
		return codexaccount.Account{}, err
	}
	if account.Mode != codexaccount.AuthModeChatGPT {
		return codexaccount.Account{}, fmt.Errorf("account %s does not support token refresh", accountID)
	}

	cfg := endpointConfig("")
	src := cfg.TokenSource(withHTTPClient(ctx), &oauth2.Token{RefreshToken: account.Auth.ChatGPT.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return codexaccount.Account{}, fmt.Errorf("refreshing access token: %w", err)
	}
	idToken, _ := token.Extra("id_token").(string)

	chatGPT := account.Auth.ChatGPT
	chatGPT.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		chatGPT.RefreshToken = token.RefreshToken
	}
	email, planType := account.Email, account.PlanType
	if idToken != "" {
		chatGPT.IDToken = idToken
		var chatGPTAccountID string
		email, planType, chatGPTAccountID = parseIDTokenClaims(idToken)
		if chatGPTAccountID != "" {
			chatGPT.AccountID = chatGPTAccountID
		}
		if email == "" {
			email = account.Email
		}
		if planType == "" {
			planType = account.PlanType
		}
	}

	auth := codexaccount.AuthPayload{Mode: codexaccount.AuthModeChatGPT, ChatGPT: chatGPT}
	if err := st.ReplaceAuth(accountID, email, planType, auth); err != nil {
		return codexaccount.Account{}, err
	}
	return st.Get(accountID)
}

const successHTML = `<!DOCTYPE html>
<html><head><title>Login successful</title></head>
<body><h1>Login successful</h1><p>You can close this tab and return to the app.</p></body></html>`

func errorHTML(msg string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>Login failed</title></head>
<body><h1>Login failed</h1><p>%s</p></body></html>`, html.EscapeString(msg))
}
