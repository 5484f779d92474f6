package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientLamports = errors.New("insufficient lamports")
	ErrTxFinished           = errors.New("transaction already finished")
)

// Account mirrors the host platform's account model: a lamport balance,
// the program that owns the account, and opaque data bytes.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
		Data:     data,
	}
}

// Store holds committed account state. A Store serializes transactions
// the way the host's account-locking model serializes calls that touch
// the same accounts: Begin blocks until the previous transaction
// commits or rolls back.
type Store struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[solana.PublicKey]*Account),
	}
}

// SetAccount installs committed state directly, bypassing transaction
// semantics. Intended for fixtures and genesis setup.
func (s *Store) SetAccount(key solana.PublicKey, acc *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[key] = acc.Clone()
}

// GetAccount returns a copy of committed state, or nil if absent.
func (s *Store) GetAccount(key solana.PublicKey) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[key].Clone()
}

// Begin opens a transaction. Every mutation stages in the transaction's
// overlay; nothing is visible to other readers until Commit, and a
// Rollback discards everything.
func (s *Store) Begin() *Tx {
	s.mu.Lock()
	return &Tx{
		store:   s,
		overlay: make(map[solana.PublicKey]*Account),
	}
}

// Tx is a read-your-writes overlay over the Store. It is not safe for
// concurrent use; the execution model within one call is sequential.
type Tx struct {
	store    *Store
	overlay  map[solana.PublicKey]*Account
	finished bool
}

// Get returns a mutable staged copy of the account. The first Get pulls
// committed state into the overlay; later Gets observe prior mutations.
func (tx *Tx) Get(key solana.PublicKey) (*Account, error) {
	if tx.finished {
		return nil, ErrTxFinished
	}
	if acc, ok := tx.overlay[key]; ok {
		if acc == nil {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		return acc, nil
	}
	committed, ok := tx.store.accounts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	staged := committed.Clone()
	tx.overlay[key] = staged
	return staged, nil
}

// Exists reports whether the account is visible to this transaction.
func (tx *Tx) Exists(key solana.PublicKey) bool {
	if acc, ok := tx.overlay[key]; ok {
		return acc != nil
	}
	_, ok := tx.store.accounts[key]
	return ok
}

// Put stages an account, creating it if absent.
func (tx *Tx) Put(key solana.PublicKey, acc *Account) error {
	if tx.finished {
		return ErrTxFinished
	}
	tx.overlay[key] = acc
	return nil
}

// Transfer moves lamports between two staged accounts.
func (tx *Tx) Transfer(from, to solana.PublicKey, lamports uint64) error {
	src, err := tx.Get(from)
	if err != nil {
		return err
	}
	dst, err := tx.Get(to)
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientLamports, from, src.Lamports, lamports)
	}
	src.Lamports -= lamports
	dst.Lamports += lamports
	return nil
}

// Commit publishes every staged account at once and releases the store.
func (tx *Tx) Commit() error {
	if tx.finished {
		return ErrTxFinished
	}
	tx.finished = true
	for key, acc := range tx.overlay {
		if acc == nil {
			delete(tx.store.accounts, key)
			continue
		}
		tx.store.accounts[key] = acc
	}
	tx.store.mu.Unlock()
	return nil
}

// Rollback discards every staged mutation and releases the store. Safe
// to call after Commit; it then does nothing, so it can be deferred.
func (tx *Tx) Rollback() {
	if tx.finished {
		return
	}
	tx.finished = true
	tx.store.mu.Unlock()
}
