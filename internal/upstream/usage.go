package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
)

type rateLimitWindow struct {
	UsedPercent        float64 `json:"used_percent"`
	LimitWindowSeconds *int64  `json:"limit_window_seconds"`
	ResetAt            *int64  `json:"reset_at"`
}

type rateLimitDetails struct {
	PrimaryWindow   *rateLimitWindow `json:"primary_window"`
	SecondaryWindow *rateLimitWindow `json:"secondary_window"`
}

type creditStatusDetails struct {
	HasCredits bool    `json:"has_credits"`
	Unlimited  bool    `json:"unlimited"`
	Balance    *string `json:"balance"`
}

type rateLimitStatusPayload struct {
	PlanType  string               `json:"plan_type"`
	RateLimit *rateLimitDetails    `json:"rate_limit"`
	Credits   *creditStatusDetails `json:"credits"`
}

// GetUsage fetches a usage snapshot for a single account. API-key
// accounts don't support usage reporting and always get an error
// snapshot; network/parse failures are likewise folded into the
// snapshot's Error field rather than returned, matching the upstream's
// own never-fail usage-query contract.
func (c *Caller) GetUsage(ctx context.Context, account codexaccount.Account) codexaccount.UsageSnapshot {
	if account.Mode != codexaccount.AuthModeChatGPT {
		snap := codexaccount.ErrorUsageSnapshot(account.ID, "API key accounts do not support usage reporting")
		snap.PlanType = "api_key"
		return snap
	}

	payload, err := c.fetchUsagePayload(ctx, account)
	if err != nil {
		return codexaccount.ErrorUsageSnapshot(account.ID, err.Error())
	}
	return convertUsagePayload(account.ID, payload)
}

func (c *Caller) fetchUsagePayload(ctx context.Context, account codexaccount.Account) (rateLimitStatusPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usageBase()+"/wham/usage", nil)
	if err != nil {
		return rateLimitStatusPayload{}, fmt.Errorf("building usage request: %w", err)
	}

	token, chatGPTAccountID := credentials(account)
	req.Header.Set("User-Agent", codexUserAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	if chatGPTAccountID != "" {
		req.Header.Set("chatgpt-account-id", chatGPTAccountID)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return rateLimitStatusPayload{}, fmt.Errorf("usage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return rateLimitStatusPayload{}, fmt.Errorf("reading usage response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return rateLimitStatusPayload{}, fmt.Errorf("usage API returned %d", resp.StatusCode)
	}

	var payload rateLimitStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return rateLimitStatusPayload{}, fmt.Errorf("parsing usage response: %w", err)
	}
	return payload, nil
}

func convertUsagePayload(accountID string, payload rateLimitStatusPayload) codexaccount.UsageSnapshot {
	snap := codexaccount.UsageSnapshot{AccountID: accountID, PlanType: payload.PlanType}

	var primary, secondary *rateLimitWindow
	if payload.RateLimit != nil {
		primary = payload.RateLimit.PrimaryWindow
		secondary = payload.RateLimit.SecondaryWindow
	}
	if primary != nil {
		used := primary.UsedPercent
		snap.PrimaryUsedPercent = &used
		if primary.LimitWindowSeconds != nil {
			snap.PrimaryWindowMinutes = windowMinutes(*primary.LimitWindowSeconds)
		}
		snap.PrimaryResetsAt = primary.ResetAt
	}
	if secondary != nil {
		used := secondary.UsedPercent
		snap.SecondaryUsedPercent = &used
		if secondary.LimitWindowSeconds != nil {
			snap.SecondaryWindowMinutes = windowMinutes(*secondary.LimitWindowSeconds)
		}
		snap.SecondaryResetsAt = secondary.ResetAt
	}
	if payload.Credits != nil {
		hasCredits := payload.Credits.HasCredits
		unlimited := payload.Credits.Unlimited
		snap.HasCredits = &hasCredits
		snap.UnlimitedCredits = &unlimited
		if payload.Credits.Balance != nil {
			snap.CreditsBalance = *payload.Credits.Balance
		}
	}
	return snap
}

// windowMinutes converts a rate-limit window given in seconds to whole
// minutes, rounding up so a partial minute still counts.
func windowMinutes(seconds int64) *int64 {
	minutes := (seconds + 59) / 60
	return &minutes
}

// RefreshAllUsage fetches usage snapshots for every registered account
// concurrently.
func (c *Caller) RefreshAllUsage(ctx context.Context) ([]codexaccount.UsageSnapshot, error) {
	accounts, err := c.Store.List()
	if err != nil {
		return nil, err
	}

	snapshots := make([]codexaccount.UsageSnapshot, len(accounts))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		i, account := i, account
		group.Go(func() error {
			snapshots[i] = c.GetUsage(groupCtx, account)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}
