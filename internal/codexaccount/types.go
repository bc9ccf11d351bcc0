// Package codexaccount defines the record shapes shared by the account
// store, the switcher, the OAuth orchestrator, and the upstream caller.
package codexaccount

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuthMode discriminates the two supported authentication payloads.
type AuthMode string

const (
	AuthModeAPIKey  AuthMode = "api_key"
	AuthModeChatGPT AuthMode = "chatgpt"
)

// AuthPayload is a tagged union: exactly one of the two embedded value
// types is meaningful, selected by Mode. Go has no native sum type, so the
// zero value of the unused branch is simply left empty; callers must
// switch on Mode before reading either branch.
type AuthPayload struct {
	Mode AuthMode `json:"-"`

	// APIKey is populated when Mode == AuthModeAPIKey.
	APIKey string `json:"-"`

	// ChatGPT is populated when Mode == AuthModeChatGPT.
	ChatGPT ChatGPTAuth `json:"-"`
}

// ChatGPTAuth is the OAuth bearer set for a ChatGPT-mode account.
type ChatGPTAuth struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	AccountID    string // chatgpt-account-id header value, may be empty
}

// authPayloadJSON mirrors original_source's CodexAuthData, a serde
// internally-tagged enum (`#[serde(tag = "type", rename_all = "snake_case")]`).
type authPayloadJSON struct {
	Type         AuthMode `json:"type"`
	Key          string   `json:"key,omitempty"`
	IDToken      string   `json:"id_token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	AccountID    string   `json:"account_id,omitempty"`
}

// MarshalJSON renders the tagged union in the same shape as
// original_source's CodexAuthData.
func (p AuthPayload) MarshalJSON() ([]byte, error) {
	j := authPayloadJSON{Type: p.Mode}
	switch p.Mode {
	case AuthModeAPIKey:
		j.Key = p.APIKey
	case AuthModeChatGPT:
		j.IDToken = p.ChatGPT.IDToken
		j.AccessToken = p.ChatGPT.AccessToken
		j.RefreshToken = p.ChatGPT.RefreshToken
		j.AccountID = p.ChatGPT.AccountID
	}
	return json.Marshal(j)
}

// UnmarshalJSON parses the tagged union back into AuthPayload.
func (p *AuthPayload) UnmarshalJSON(data []byte) error {
	var j authPayloadJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	p.Mode = j.Type
	switch j.Type {
	case AuthModeAPIKey:
		p.APIKey = j.Key
	case AuthModeChatGPT:
		p.ChatGPT = ChatGPTAuth{
			IDToken:      j.IDToken,
			AccessToken:  j.AccessToken,
			RefreshToken: j.RefreshToken,
			AccountID:    j.AccountID,
		}
	}
	return nil
}

// Account is a persistent identity in the store.
type Account struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	PlanType   string      `json:"plan_type,omitempty"`
	Mode       AuthMode    `json:"auth_mode"`
	Auth       AuthPayload `json:"auth_data"`
	CreatedAt  time.Time   `json:"created_at"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
}

// NewAPIKeyAccount creates an api_key-mode account with a fresh id.
func NewAPIKeyAccount(name, apiKey string) Account {
	return Account{
		ID:        uuid.NewString(),
		Name:      name,
		Mode:      AuthModeAPIKey,
		Auth:      AuthPayload{Mode: AuthModeAPIKey, APIKey: apiKey},
		CreatedAt: time.Now().UTC(),
	}
}

// NewChatGPTAccount creates a chatgpt-mode account with a fresh id.
func NewChatGPTAccount(name, email, planType, idToken, accessToken, refreshToken, accountID string) Account {
	return Account{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		PlanType: planType,
		Mode:     AuthModeChatGPT,
		Auth: AuthPayload{
			Mode: AuthModeChatGPT,
			ChatGPT: ChatGPTAuth{
				IDToken:      idToken,
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				AccountID:    accountID,
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Info is the sensitive-field-free projection of an Account returned across
// the command surface.
type Info struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	PlanType   string     `json:"plan_type,omitempty"`
	Mode       AuthMode   `json:"auth_mode"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// ToInfo projects an Account, marking it active if activeID matches.
func (a Account) ToInfo(activeID string) Info {
	return Info{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		PlanType:   a.PlanType,
		Mode:       a.Mode,
		IsActive:   activeID != "" && activeID == a.ID,
		CreatedAt:  a.CreatedAt,
		LastUsedAt: a.LastUsedAt,
	}
}

// Document is the root document persisted as accounts.json.
type Document struct {
	Version         int       `json:"version"`
	Accounts        []Account `json:"accounts"`
	ActiveAccountID string    `json:"active_account_id,omitempty"`
}

// CurrentVersion is the schema version written by this module.
const CurrentVersion = 1

// NewDocument returns an empty, version-1 document.
func NewDocument() Document {
	return Document{Version: CurrentVersion, Accounts: []Account{}}
}

// ExternalCredentialFile is the shape of <CODEX_HOME>/auth.json, the
// on-disk file read by the external CLI this account store switches for.
type ExternalCredentialFile struct {
	OpenAIAPIKey string     `json:"OPENAI_API_KEY,omitempty"`
	Tokens       *TokenData `json:"tokens,omitempty"`
	LastRefresh  *time.Time `json:"last_refresh,omitempty"`
}

// TokenData is the "tokens" object inside ExternalCredentialFile.
type TokenData struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id,omitempty"`
}

// UsageSnapshot is the transient value returned by the upstream rate-limit
// endpoint for one account.
type UsageSnapshot struct {
	AccountID              string   `json:"account_id"`
	PlanType               string   `json:"plan_type,omitempty"`
	PrimaryUsedPercent     *float64 `json:"primary_used_percent,omitempty"`
	PrimaryWindowMinutes   *int64   `json:"primary_window_minutes,omitempty"`
	PrimaryResetsAt        *int64   `json:"primary_resets_at,omitempty"`
	SecondaryUsedPercent   *float64 `json:"secondary_used_percent,omitempty"`
	SecondaryWindowMinutes *int64   `json:"secondary_window_minutes,omitempty"`
	SecondaryResetsAt      *int64   `json:"secondary_resets_at,omitempty"`
	HasCredits             *bool    `json:"has_credits,omitempty"`
	UnlimitedCredits       *bool    `json:"unlimited_credits,omitempty"`
	CreditsBalance         string   `json:"credits_balance,omitempty"`
	Error                  string   `json:"error,omitempty"`
}

// ErrorUsageSnapshot builds the error-variant snapshot: account id and
// message populated, every numeric field left empty.
func ErrorUsageSnapshot(accountID, errMsg string) UsageSnapshot {
	return UsageSnapshot{AccountID: accountID, Error: errMsg}
}

// RouterDecision names the model PM-Router chose to actually serve a
// request with.
type RouterDecision struct {
	SelectedModel   string
	Reason          string
	TaskType        string
	UsedRouterModel string
	UsedPro         bool
}
