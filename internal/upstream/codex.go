package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/oauth"
	"github.com/majorcontext/codexrelay/internal/store"
)

// ErrNoAccounts is returned when the store has no accounts at all.
var ErrNoAccounts = fmt.Errorf("no codex accounts registered")

// Caller issues chat-completion and usage requests against the active
// Codex account, transparently refreshing an expired ChatGPT token once.
type Caller struct {
	Store      *store.Store
	HTTPClient *http.Client

	// APIBase and UsageBase default to the real OpenAI/ChatGPT endpoints;
	// tests override them to point at an httptest server.
	APIBase   string
	UsageBase string
}

// NewCaller returns a Caller backed by st, using a private http.Client so
// upstream traffic is never routed through another client's transport.
func NewCaller(st *store.Store) *Caller {
	return &Caller{
		Store:      st,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		APIBase:    openAIAPIBase,
		UsageBase:  chatGPTBackendAPI,
	}
}

func (c *Caller) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Caller) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return openAIAPIBase
}

func (c *Caller) usageBase() string {
	if c.UsageBase != "" {
		return c.UsageBase
	}
	return chatGPTBackendAPI
}

// activeAccount resolves the account a request should use: the store's
// active pointer if set, else the first registered account, else
// ErrNoAccounts.
func (c *Caller) activeAccount() (codexaccount.Account, error) {
	if account, ok, err := c.Store.GetActive(); err != nil {
		return codexaccount.Account{}, err
	} else if ok {
		return account, nil
	}

	accounts, err := c.Store.List()
	if err != nil {
		return codexaccount.Account{}, err
	}
	if len(accounts) == 0 {
		return codexaccount.Account{}, ErrNoAccounts
	}
	return accounts[0], nil
}

func credentials(account codexaccount.Account) (token string, chatGPTAccountID string) {
	switch account.Mode {
	case codexaccount.AuthModeChatGPT:
		return account.Auth.ChatGPT.AccessToken, account.Auth.ChatGPT.AccountID
	default:
		return account.Auth.APIKey, ""
	}
}

// ChatResult is a non-streaming chat-completions call outcome.
type ChatResult struct {
	Status    int
	Body      json.RawMessage
	ModelUsed string
	AccountID string
}

// ChatCompletion performs a non-streaming chat-completions call against
// the active account, substituting the resolved Codex model into the
// request body. On a 401/403 from a ChatGPT-mode account it refreshes the
// access token exactly once and retries; any other status (including 402)
// is returned as-is.
func (c *Caller) ChatCompletion(ctx context.Context, body map[string]any) (ChatResult, error) {
	account, err := c.activeAccount()
	if err != nil {
		return ChatResult{}, err
	}

	requestedModel, _ := body["model"].(string)
	modelUsed := ResolveModel(requestedModel)
	body["model"] = modelUsed
	body["stream"] = false

	result, err := c.callChatCompletions(ctx, account, body)
	if err != nil {
		return ChatResult{}, err
	}
	result.ModelUsed = modelUsed
	result.AccountID = account.ID

	if needsRefreshRetry(result.Status, account.Mode) {
		refreshed, refreshErr := oauth.Refresh(ctx, c.Store, account.ID)
		if refreshErr != nil {
			return ChatResult{}, fmt.Errorf("refreshing access token after %d: %w", result.Status, refreshErr)
		}
		retry, err := c.callChatCompletions(ctx, refreshed, body)
		if err != nil {
			return ChatResult{}, err
		}
		retry.ModelUsed = modelUsed
		retry.AccountID = refreshed.ID
		return retry, nil
	}

	return result, nil
}

// ChatCompletionStream performs a streaming chat-completions call and
// returns the raw *http.Response for the caller to pipe through. The
// caller is responsible for closing resp.Body. Like ChatCompletion, a
// 401/403 triggers exactly one refresh-and-retry.
func (c *Caller) ChatCompletionStream(ctx context.Context, body map[string]any) (resp *http.Response, modelUsed, accountID string, err error) {
	account, err := c.activeAccount()
	if err != nil {
		return nil, "", "", err
	}

	requestedModel, _ := body["model"].(string)
	modelUsed = ResolveModel(requestedModel)
	body["model"] = modelUsed
	body["stream"] = true

	resp, err = c.doChatRequest(ctx, account, body)
	if err != nil {
		return nil, "", "", err
	}

	if needsRefreshRetry(resp.StatusCode, account.Mode) {
		status := resp.StatusCode
		resp.Body.Close()
		refreshed, refreshErr := oauth.Refresh(ctx, c.Store, account.ID)
		if refreshErr != nil {
			return nil, "", "", fmt.Errorf("refreshing access token after %d: %w", status, refreshErr)
		}
		resp, err = c.doChatRequest(ctx, refreshed, body)
		return resp, modelUsed, refreshed.ID, err
	}

	return resp, modelUsed, account.ID, nil
}

// needsRefreshRetry reports whether status justifies exactly one
// refresh-and-retry. 402 (payment/quota) is deliberately excluded: it is
// not an authentication failure. API-key accounts have no refresh path.
func needsRefreshRetry(status int, mode codexaccount.AuthMode) bool {
	if mode != codexaccount.AuthModeChatGPT {
		return false
	}
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func (c *Caller) callChatCompletions(ctx context.Context, account codexaccount.Account, body map[string]any) (ChatResult, error) {
	resp, err := c.doChatRequest(ctx, account, body)
	if err != nil {
		return ChatResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, fmt.Errorf("reading chat completions response: %w", err)
	}
	return ChatResult{Status: resp.StatusCode, Body: data}, nil
}

func (c *Caller) doChatRequest(ctx context.Context, account codexaccount.Account, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding chat completions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase()+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building chat completions request: %w", err)
	}

	token, chatGPTAccountID := credentials(account)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", codexUserAgent)
	if chatGPTAccountID != "" {
		req.Header.Set("chatgpt-account-id", chatGPTAccountID)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completions request failed: %w", err)
	}
	return resp, nil
}
