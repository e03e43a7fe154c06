// Budget ledger with a bounded transaction history.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Entry records one balance mutation. History is observational only and is
// never consulted for correctness.
type Entry struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"ts"`
}

// Ledger tracks the single budget balance. Voluntary debits are atomic
// check-then-apply and never drive the balance negative; forced penalties
// may overdraw. The ledger is not goroutine safe; the engine serializes
// access.
type Ledger struct {
	balance   int64
	entries   []Entry
	retention int
	now       func() time.Time
}

// New returns a ledger with the given starting balance. retention bounds the
// history length; older entries are dropped.
func New(initial int64, retention int) *Ledger {
	if retention <= 0 {
		retention = 100
	}
	return &Ledger{balance: initial, retention: retention, now: time.Now}
}

// SetNow overrides the clock used for entry timestamps.
func (l *Ledger) SetNow(now func() time.Time) {
	l.now = now
}

// Balance returns the current balance.
func (l *Ledger) Balance() int64 {
	return l.balance
}

// CanAfford reports whether a voluntary debit of amount would be accepted.
func (l *Ledger) CanAfford(amount int64) bool {
	return l.balance-amount >= 0
}

// Debit applies a voluntary debit. Returns false and leaves the balance
// untouched if it would go negative.
func (l *Ledger) Debit(amount int64, reason string) bool {
	if !l.CanAfford(amount) {
		return false
	}
	l.apply(-amount, reason)
	return true
}

// Credit applies a credit. Always succeeds.
func (l *Ledger) Credit(amount int64, reason string) {
	l.apply(amount, reason)
}

// Penalize applies a forced debit. Unlike Debit it may overdraw the balance;
// mission penalties are not voluntary purchases.
func (l *Ledger) Penalize(amount int64, reason string) {
	l.apply(-amount, reason)
}

func (l *Ledger) apply(amount int64, reason string) {
	l.balance += amount
	l.entries = append(l.entries, Entry{
		ID:        uuid.New().String(),
		Amount:    amount,
		Balance:   l.balance,
		Reason:    reason,
		Timestamp: l.now().UTC(),
	})
	if n := len(l.entries) - l.retention; n > 0 {
		l.entries = append(l.entries[:0], l.entries[n:]...)
	}
}

// Entries returns a copy of the recorded history, oldest first.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Restore replaces balance and history from a snapshot.
func (l *Ledger) Restore(balance int64, entries []Entry) {
	l.balance = balance
	l.entries = append(l.entries[:0], entries...)
	if n := len(l.entries) - l.retention; n > 0 {
		l.entries = append(l.entries[:0], l.entries[n:]...)
	}
}
