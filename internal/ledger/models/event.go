package models

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	id "tipjar/pkg/domain"
)

// EventKind names a ledger notification.
type EventKind string

const (
	EventNewTip               EventKind = "NewTip"
	EventWithdrawal           EventKind = "Withdrawal"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
)

// signatures are the canonical ABI-style event signatures; their keccak-256
// hash is the event topic.
var signatures = map[EventKind]string{
	EventNewTip:               "NewTip(address,uint256,string)",
	EventWithdrawal:           "Withdrawal(address,uint256)",
	EventOwnershipTransferred: "OwnershipTransferred(address,address)",
}

// Signature returns the canonical signature for the kind.
func (k EventKind) Signature() string {
	return signatures[k]
}

// Topic returns 0x-prefixed keccak-256 of the signature.
func (k EventKind) Topic() string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(k.Signature()))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	_, ok := signatures[k]
	return ok
}

// Event is a committed ledger notification. Seq is assigned by the store in
// commit order and starts at 1.
//
// Account is the donor for NewTip, the owner for Withdrawal and the new
// owner for OwnershipTransferred.
type Event struct {
	ID            uuid.UUID    `json:"id"`
	Seq           uint64       `json:"seq"`
	Kind          EventKind    `json:"kind"`
	Topic         string       `json:"topic"`
	Account       id.Identity  `json:"account"`
	Amount        id.Amount    `json:"amount_wei"`
	Message       string       `json:"message"`
	PreviousOwner *id.Identity `json:"previous_owner,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

func newEvent(kind EventKind, account id.Identity, now time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		Kind:       kind,
		Topic:      kind.Topic(),
		Account:    account,
		OccurredAt: now.UTC(),
	}
}

// NewTipEvent records an accepted donation. The message is kept verbatim.
func NewTipEvent(donor id.Identity, amount id.Amount, message string, now time.Time) *Event {
	e := newEvent(EventNewTip, donor, now)
	e.Amount = amount
	e.Message = message
	return e
}

// NewWithdrawalEvent records funds released to owner. amount may be zero
// for a withdraw-all on an empty balance.
func NewWithdrawalEvent(owner id.Identity, amount id.Amount, now time.Time) *Event {
	e := newEvent(EventWithdrawal, owner, now)
	e.Amount = amount
	return e
}

// NewOwnershipTransferredEvent records an ownership change.
func NewOwnershipTransferredEvent(previous, next id.Identity, now time.Time) *Event {
	e := newEvent(EventOwnershipTransferred, next, now)
	e.PreviousOwner = &previous
	return e
}
