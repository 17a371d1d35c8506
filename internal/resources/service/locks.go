package service

import (
	"sync"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

// LockTable is the in-process edit lock map for one repository, keyed
// by normalized path. Locks never expire on their own: a client that
// stops without releasing leaves the path locked until someone clears
// it explicitly. Acquiring a lock you already hold is a no-op.
type LockTable struct {
	mu      sync.Mutex
	holders map[string]ident.UserID
}

func NewLockTable() *LockTable {
	return &LockTable{holders: make(map[string]ident.UserID)}
}

func (t *LockTable) Holder(path string) (ident.UserID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, ok := t.holders[path]
	return holder, ok
}

func (t *LockTable) Acquire(path string, user ident.UserID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if holder, ok := t.holders[path]; ok && holder != user {
		return domain.ErrPathLocked
	}
	t.holders[path] = user
	return nil
}

// Release clears the lock. Only the holder may release; anyone may
// release an unheld path without error.
func (t *LockTable) Release(path string, user ident.UserID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	holder, ok := t.holders[path]
	if !ok {
		return nil
	}
	if holder != user {
		return domain.ErrPathLocked
	}
	delete(t.holders, path)
	return nil
}
