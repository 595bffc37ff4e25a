package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/tmaxwell-dev/authgate"
)

// PrincipalStore implements authgate.PrincipalDirectory and
// authgate.Bookkeeper over in-memory maps.
type PrincipalStore struct {
	mu       sync.RWMutex
	standard map[string]*authgate.StandardAccount
	elevated map[string]*authgate.ElevatedAccount
}

// NewPrincipalStore returns an empty store.
func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{
		standard: make(map[string]*authgate.StandardAccount),
		elevated: make(map[string]*authgate.ElevatedAccount),
	}
}

// SeedElevated inserts an elevated account directly. Elevated accounts have
// no self-service registration path; tests and dev setups provision them.
func (s *PrincipalStore) SeedElevated(account *authgate.ElevatedAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.elevated[account.ID] = &cp
}

func cloneStandard(a *authgate.StandardAccount) *authgate.StandardAccount {
	cp := *a
	return &cp
}

func cloneElevated(a *authgate.ElevatedAccount) *authgate.ElevatedAccount {
	cp := *a
	cp.Permissions = append([]string(nil), a.Permissions...)
	return &cp
}

// FindStandardByEmail looks up a standard account case-insensitively.
func (s *PrincipalStore) FindStandardByEmail(ctx context.Context, email string) (*authgate.StandardAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.standard {
		if strings.EqualFold(acct.Email, email) {
			return cloneStandard(acct), nil
		}
	}
	return nil, authgate.ErrPrincipalNotFound
}

// FindStandardByID looks up a standard account by id.
func (s *PrincipalStore) FindStandardByID(ctx context.Context, id string) (*authgate.StandardAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.standard[id]; ok {
		return cloneStandard(acct), nil
	}
	return nil, authgate.ErrPrincipalNotFound
}

// FindElevatedByEmail looks up an elevated account case-insensitively.
func (s *PrincipalStore) FindElevatedByEmail(ctx context.Context, email string) (*authgate.ElevatedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.elevated {
		if strings.EqualFold(acct.Email, email) {
			return cloneElevated(acct), nil
		}
	}
	return nil, authgate.ErrPrincipalNotFound
}

// FindElevatedByID looks up an elevated account by id.
func (s *PrincipalStore) FindElevatedByID(ctx context.Context, id string) (*authgate.ElevatedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.elevated[id]; ok {
		return cloneElevated(acct), nil
	}
	return nil, authgate.ErrPrincipalNotFound
}

// CreateStandard inserts a standard account, rejecting duplicate emails
// within the namespace.
func (s *PrincipalStore) CreateStandard(ctx context.Context, account *authgate.StandardAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.standard {
		if strings.EqualFold(existing.Email, account.Email) {
			return authgate.ErrAccountExists
		}
	}
	if _, ok := s.standard[account.ID]; ok {
		return authgate.ErrAccountExists
	}
	s.standard[account.ID] = cloneStandard(account)
	return nil
}

// RecordElevatedSeen updates online/origin bookkeeping, rolling the previous
// origin into LastIP.
func (s *PrincipalStore) RecordElevatedSeen(ctx context.Context, id, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.elevated[id]
	if !ok {
		return authgate.ErrPrincipalNotFound
	}
	acct.Online = true
	acct.LastIP = acct.CurrentIP
	acct.CurrentIP = origin
	return nil
}
