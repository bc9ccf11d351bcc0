package command

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/majorcontext/codexrelay/internal/store"
	"github.com/majorcontext/codexrelay/internal/upstream"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st := store.NewAt(t.TempDir())
	caller := upstream.NewCaller(st)
	return New(st, caller)
}

func TestAddAccountDefaultsLabelWhenBlank(t *testing.T) {
	svc := newService(t)

	info, err := svc.AddAccount("   ", "sk-test")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if info.Name == "" || info.Name == "   " {
		t.Fatalf("expected a generated name, got %q", info.Name)
	}
	if len(info.Name) < len("Codex-") || info.Name[:6] != "Codex-" {
		t.Fatalf("expected name to start with Codex-, got %q", info.Name)
	}
}

func TestAddAccountKeepsTrimmedLabel(t *testing.T) {
	svc := newService(t)

	info, err := svc.AddAccount("  Work  ", "sk-test")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if info.Name != "Work" {
		t.Fatalf("expected trimmed label Work, got %q", info.Name)
	}
}

func TestListAccountsReflectsActivePointer(t *testing.T) {
	svc := newService(t)

	a, err := svc.AddAccount("A", "sk-a")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := svc.AddAccount("B", "sk-b"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if err := svc.Store.Activate(a.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	infos, err := svc.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	var sawActive bool
	for _, info := range infos {
		if info.ID == a.ID {
			sawActive = info.IsActive
		}
	}
	if !sawActive {
		t.Fatalf("expected account %s to be marked active", a.ID)
	}
}

func TestGetActiveAccountNilWhenUnset(t *testing.T) {
	svc := newService(t)
	if _, err := svc.AddAccount("A", "sk-a"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	info, err := svc.GetActiveAccount()
	if err != nil {
		t.Fatalf("GetActiveAccount: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil active account, got %+v", info)
	}
}

func TestSwitchAccountProjectsActivatesAndTouches(t *testing.T) {
	svc := newService(t)
	t.Setenv("CODEX_HOME", t.TempDir())

	a, err := svc.AddAccount("A", "sk-a")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	if err := svc.SwitchAccount(a.ID); err != nil {
		t.Fatalf("SwitchAccount: %v", err)
	}

	active, err := svc.GetActiveAccount()
	if err != nil {
		t.Fatalf("GetActiveAccount: %v", err)
	}
	if active == nil || active.ID != a.ID {
		t.Fatalf("expected %s active, got %+v", a.ID, active)
	}
	if active.LastUsedAt == nil {
		t.Fatalf("expected last_used_at to be set after switch")
	}
}

func TestSwitchAccountUnknownIDReturnsDisplayableError(t *testing.T) {
	svc := newService(t)
	t.Setenv("CODEX_HOME", t.TempDir())

	err := svc.SwitchAccount("does-not-exist")
	if err == nil {
		t.Fatalf("expected error for unknown account")
	}
	if err.Error() == "" {
		t.Fatalf("expected a non-empty display message")
	}
}

func TestDeleteAndRenameAccount(t *testing.T) {
	svc := newService(t)
	a, err := svc.AddAccount("A", "sk-a")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	if err := svc.RenameAccount(a.ID, "Renamed"); err != nil {
		t.Fatalf("RenameAccount: %v", err)
	}
	infos, err := svc.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if infos[0].Name != "Renamed" {
		t.Fatalf("expected renamed account, got %q", infos[0].Name)
	}

	if err := svc.DeleteAccount(a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	infos, err = svc.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty account list after delete, got %d", len(infos))
	}
}

func TestGetUsageAPIKeyAccountNeverDialsNetwork(t *testing.T) {
	svc := newService(t)
	svc.Caller.UsageBase = "http://127.0.0.1:0"

	a, err := svc.AddAccount("A", "sk-a")
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	snap, err := svc.GetUsage(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if snap.Error == "" {
		t.Fatalf("expected an error snapshot for an api-key account")
	}
}

func TestGetUsageUnknownAccountErrors(t *testing.T) {
	svc := newService(t)
	if _, err := svc.GetUsage(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown account")
	}
}

func TestRefreshAllUsageFansOutAcrossAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plan_type":"plus"}`))
	}))
	defer server.Close()

	svc := newService(t)
	svc.Caller.UsageBase = server.URL

	if _, err := svc.AddAccount("A", "sk-a"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := svc.AddAccount("B", "sk-b"); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	snapshots, err := svc.RefreshAllUsage(context.Background())
	if err != nil {
		t.Fatalf("RefreshAllUsage: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
}
