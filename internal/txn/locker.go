package txn

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Locker acquires a non-blocking lock on a named resource, scoped to the
// connection of the enclosing transaction. Acquire fails fast with
// ErrLockBusy instead of queueing.
type Locker interface {
	Acquire(tx *gorm.DB, key string) error
	Release(tx *gorm.DB, key string) error
}

// PoolKey names the lock guarding one (category, subcategory) stock pool.
func PoolKey(categoryID, subcategoryID uint64) string {
	return fmt.Sprintf("pool:%d:%d", categoryID, subcategoryID)
}

// OrderKey names the lock serializing status transitions of one order.
func OrderKey(orderID uint64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// MySQLLocker uses GET_LOCK/RELEASE_LOCK named locks. A zero timeout makes
// GET_LOCK return immediately when the lock is held by another connection.
type MySQLLocker struct{}

func (MySQLLocker) Acquire(tx *gorm.DB, key string) error {
	var got int
	if err := tx.Raw("SELECT GET_LOCK(?, 0)", key).Scan(&got).Error; err != nil {
		return err
	}
	if got != 1 {
		return ErrLockBusy
	}
	return nil
}

func (MySQLLocker) Release(tx *gorm.DB, key string) error {
	return tx.Exec("SELECT RELEASE_LOCK(?)", key).Error
}

// MemoryLocker serves deployments without named-lock support (sqlite) and
// tests. Process-local only.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(_ *gorm.DB, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return ErrLockBusy
	}
	l.held[key] = true
	return nil
}

func (l *MemoryLocker) Release(_ *gorm.DB, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
