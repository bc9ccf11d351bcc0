// Package store owns the on-disk account list and enforces its invariants:
// unique emails and an active pointer that never dangles. Account ids are
// generated as UUIDs at creation; Add does not check them for duplicates.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
)

const (
	dataDirName  = ".antigravity_tools"
	codexDirName = "codex"
	accountsFile = "accounts.json"
)

// ErrNotFound is returned by operations that target a missing account id.
type ErrNotFound struct{ ID string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("account not found: %s", e.ID) }

// ErrDuplicateEmail is returned by Add when the email is already registered.
type ErrDuplicateEmail struct{ Email string }

func (e *ErrDuplicateEmail) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrUnsupportedVersion is returned by Load when the on-disk schema version
// is not one this module knows how to read.
type ErrUnsupportedVersion struct{ Version int }

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported accounts.json schema version: %d", e.Version)
}

// Store is the single-writer, whole-file JSON account store.
type Store struct {
	dir string // directory containing accounts.json; overridable for tests
}

// New returns a Store rooted at the default data directory
// (<home>/.antigravity_tools/codex).
func New() (*Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// NewAt returns a Store rooted at an explicit directory, for tests.
func NewAt(dir string) *Store {
	return &Store{dir: dir}
}

// DataDir returns <home>/.antigravity_tools/codex, creating it if absent.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, dataDirName, codexDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating codex data directory: %w", err)
	}
	return dir, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, accountsFile)
}

// Load reads the account document in full. Absence of the file yields an
// empty, version-1 document. A parse error is returned as-is; it never
// silently resets the file.
func (s *Store) Load() (codexaccount.Document, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return codexaccount.NewDocument(), nil
		}
		return codexaccount.Document{}, fmt.Errorf("reading accounts file: %w", err)
	}

	var doc codexaccount.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return codexaccount.Document{}, fmt.Errorf("parsing accounts file: %w", err)
	}
	if doc.Version != codexaccount.CurrentVersion {
		return codexaccount.Document{}, &ErrUnsupportedVersion{Version: doc.Version}
	}
	return doc, nil
}

// save rewrites the account document in full via a temp-file-then-rename
// sequence, so a failed marshal or write never truncates the live file.
func (s *Store) save(doc codexaccount.Document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating codex data directory: %w", err)
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing accounts file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, accountsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary accounts file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing accounts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing accounts file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		return fmt.Errorf("saving accounts file: %w", err)
	}
	return nil
}

// List returns every account, in insertion order.
func (s *Store) List() ([]codexaccount.Account, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

// GetActive returns the active account, or a zero Account and false if the
// active pointer is unset or dangling.
func (s *Store) GetActive() (codexaccount.Account, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return codexaccount.Account{}, false, err
	}
	if doc.ActiveAccountID == "" {
		return codexaccount.Account{}, false, nil
	}
	for _, a := range doc.Accounts {
		if a.ID == doc.ActiveAccountID {
			return a, true, nil
		}
	}
	return codexaccount.Account{}, false, nil
}

// Add inserts a new account. Fails if the account's email is already
// registered to another account.
func (s *Store) Add(account codexaccount.Account) (codexaccount.Account, error) {
	doc, err := s.Load()
	if err != nil {
		return codexaccount.Account{}, err
	}

	if account.Email != "" {
		for _, a := range doc.Accounts {
			if a.Email == account.Email {
				return codexaccount.Account{}, &ErrDuplicateEmail{Email: account.Email}
			}
		}
	}

	doc.Accounts = append(doc.Accounts, account)
	if err := s.save(doc); err != nil {
		return codexaccount.Account{}, err
	}
	return account, nil
}

// Remove deletes an account. If it was the active account, the active
// pointer is cleared in the same write.
func (s *Store) Remove(id string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}

	idx := indexOf(doc.Accounts, id)
	if idx < 0 {
		return &ErrNotFound{ID: id}
	}
	doc.Accounts = append(doc.Accounts[:idx], doc.Accounts[idx+1:]...)
	if doc.ActiveAccountID == id {
		doc.ActiveAccountID = ""
	}
	return s.save(doc)
}

// Activate sets the active account pointer. The caller (switcher) is
// responsible for projecting the account into the external credential
// file; Activate only updates the store's own pointer.
func (s *Store) Activate(id string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if indexOf(doc.Accounts, id) < 0 {
		return &ErrNotFound{ID: id}
	}
	doc.ActiveAccountID = id
	return s.save(doc)
}

// Touch sets last_used_at to now. Silently no-ops if id is absent.
func (s *Store) Touch(id string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	idx := indexOf(doc.Accounts, id)
	if idx < 0 {
		return nil
	}
	now := time.Now().UTC()
	doc.Accounts[idx].LastUsedAt = &now
	return s.save(doc)
}

// Rename changes an account's display name.
func (s *Store) Rename(id, name string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	idx := indexOf(doc.Accounts, id)
	if idx < 0 {
		return &ErrNotFound{ID: id}
	}
	doc.Accounts[idx].Name = name
	return s.save(doc)
}

// ReplaceAuth rewrites an account's authentication payload in place
// (used by oauth.Refresh) and persists the store.
func (s *Store) ReplaceAuth(id string, email, planType string, auth codexaccount.AuthPayload) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	idx := indexOf(doc.Accounts, id)
	if idx < 0 {
		return &ErrNotFound{ID: id}
	}
	if email != "" {
		doc.Accounts[idx].Email = email
	}
	if planType != "" {
		doc.Accounts[idx].PlanType = planType
	}
	doc.Accounts[idx].Auth = auth
	return s.save(doc)
}

// Get returns a single account by id.
func (s *Store) Get(id string) (codexaccount.Account, error) {
	doc, err := s.Load()
	if err != nil {
		return codexaccount.Account{}, err
	}
	idx := indexOf(doc.Accounts, id)
	if idx < 0 {
		return codexaccount.Account{}, &ErrNotFound{ID: id}
	}
	return doc.Accounts[idx], nil
}

func indexOf(accounts []codexaccount.Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
