package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/oauth"
	"github.com/majorcontext/codexrelay/internal/store"
	"github.com/majorcontext/codexrelay/internal/switcher"
	"github.com/majorcontext/codexrelay/internal/upstream"
)

// Service implements the Command Surface over a store, an upstream caller,
// and the oauth package's process-wide login flow.
type Service struct {
	Store  *store.Store
	Caller *upstream.Caller
}

// New builds a Service from its collaborators.
func New(st *store.Store, caller *upstream.Caller) *Service {
	return &Service{Store: st, Caller: caller}
}

// ListAccounts returns every stored account, projected to Info.
func (s *Service) ListAccounts() ([]codexaccount.Info, error) {
	doc, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	infos := make([]codexaccount.Info, 0, len(doc.Accounts))
	for _, a := range doc.Accounts {
		infos = append(infos, a.ToInfo(doc.ActiveAccountID))
	}
	return infos, nil
}

// GetActiveAccount returns the active account, or nil if none is active.
func (s *Service) GetActiveAccount() (*codexaccount.Info, error) {
	doc, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	account, ok, err := s.Store.GetActive()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	info := account.ToInfo(doc.ActiveAccountID)
	return &info, nil
}

// AddAccountFromFile imports a foreign auth.json at path and stores it as
// a new account named name.
func (s *Service) AddAccountFromFile(path, name string) (codexaccount.Info, error) {
	account, err := switcher.Import(path, name)
	if err != nil {
		return codexaccount.Info{}, err
	}
	return s.store(account)
}

// AddAccount stores a new API-key account. When label is empty (or
// whitespace-only), it is defaulted to "Codex-<unix timestamp>".
func (s *Service) AddAccount(label, apiKey string) (codexaccount.Info, error) {
	name := strings.TrimSpace(label)
	if name == "" {
		name = fmt.Sprintf("Codex-%d", time.Now().Unix())
	}
	account := codexaccount.NewAPIKeyAccount(name, apiKey)
	return s.store(account)
}

func (s *Service) store(account codexaccount.Account) (codexaccount.Info, error) {
	stored, err := s.Store.Add(account)
	if err != nil {
		return codexaccount.Info{}, err
	}
	doc, err := s.Store.Load()
	if err != nil {
		return codexaccount.Info{}, err
	}
	return stored.ToInfo(doc.ActiveAccountID), nil
}

// SwitchAccount projects accountID onto the external credential file, marks
// it active, and updates its last-used timestamp.
func (s *Service) SwitchAccount(accountID string) error {
	account, err := s.Store.Get(accountID)
	if err != nil {
		return err
	}
	if err := switcher.Switch(account); err != nil {
		return err
	}
	if err := s.Store.Activate(accountID); err != nil {
		return err
	}
	return s.Store.Touch(accountID)
}

// DeleteAccount removes an account from the store.
func (s *Service) DeleteAccount(accountID string) error {
	return s.Store.Remove(accountID)
}

// RenameAccount changes an account's display name.
func (s *Service) RenameAccount(accountID, newName string) error {
	return s.Store.Rename(accountID, newName)
}

// GetUsage fetches a single account's usage snapshot.
func (s *Service) GetUsage(ctx context.Context, accountID string) (codexaccount.UsageSnapshot, error) {
	account, err := s.Store.Get(accountID)
	if err != nil {
		return codexaccount.UsageSnapshot{}, err
	}
	return s.Caller.GetUsage(ctx, account), nil
}

// RefreshAllUsage fetches usage snapshots for every stored account,
// concurrently.
func (s *Service) RefreshAllUsage(ctx context.Context) ([]codexaccount.UsageSnapshot, error) {
	return s.Caller.RefreshAllUsage(ctx)
}

// StartOAuth begins a login flow and returns immediately once the callback
// listener is bound; the flow itself completes in the background and its
// outcome is only logged, not returned.
func (s *Service) StartOAuth(ctx context.Context, accountName string) (oauth.LoginInfo, error) {
	info, resultCh, err := oauth.Start(ctx, s.Store, accountName)
	if err != nil {
		return oauth.LoginInfo{}, err
	}

	go func() {
		result := <-resultCh
		if result.Err != nil {
			logOAuthFailure(result.Err)
			return
		}
		logOAuthSuccess(result.Account.Name)
	}()

	return info, nil
}

// StartOAuthAndWait begins a login flow and blocks until it resolves.
func (s *Service) StartOAuthAndWait(ctx context.Context, accountName string) (codexaccount.Info, error) {
	_, resultCh, err := oauth.Start(ctx, s.Store, accountName)
	if err != nil {
		return codexaccount.Info{}, err
	}

	result := <-resultCh
	if result.Err != nil {
		return codexaccount.Info{}, result.Err
	}

	doc, err := s.Store.Load()
	if err != nil {
		return codexaccount.Info{}, err
	}
	return result.Account.ToInfo(doc.ActiveAccountID), nil
}
