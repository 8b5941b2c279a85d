package models

import (
	"time"

	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
)

// DefaultMinDonation is 0.001 ether.
var DefaultMinDonation = id.NewAmount(1_000_000_000_000_000)

// Custody is the aggregate root of a ledger: the funds it holds and the one
// identity allowed to release them.
//
// Invariants:
//   - Owner is never the zero identity
//   - Balance equals accepted donations minus accepted withdrawals
//   - Balance never goes negative; a withdrawal that would underflow is
//     rejected before any field changes
//
// Each mutation comes as a Can*/Apply* pair so store Execute callbacks can
// validate everything first and mutate only once every check passed.
type Custody struct {
	Owner     id.Identity `json:"owner"`
	Balance   id.Amount   `json:"balance"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewCustody creates an empty ledger owned by owner.
func NewCustody(owner id.Identity, now time.Time) (*Custody, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidOwner, "owner cannot be the zero identity")
	}
	return &Custody{Owner: owner, UpdatedAt: now}, nil
}

// IsOwner reports whether caller may withdraw or transfer ownership.
func (c *Custody) IsOwner(caller id.Identity) bool {
	return !caller.IsNil() && c.Owner == caller
}

// CanDonate checks the donation threshold and that the balance can absorb amount.
func (c *Custody) CanDonate(amount, minimum id.Amount) error {
	if amount.Lt(minimum) {
		return dErrors.New(dErrors.CodeDonationTooSmall, "donation is below the minimum of "+minimum.Ether()+" ether")
	}
	_, err := c.Balance.Add(amount)
	return err
}

// ApplyDonation adds amount to the balance. Call CanDonate first.
func (c *Custody) ApplyDonation(amount id.Amount, now time.Time) error {
	balance, err := c.Balance.Add(amount)
	if err != nil {
		return err
	}
	c.Balance = balance
	c.UpdatedAt = now
	return nil
}

// CanWithdraw runs the withdrawal checks in their contractual order:
// ownership, then non-zero amount, then sufficient balance.
func (c *Custody) CanWithdraw(caller id.Identity, amount id.Amount) error {
	if !c.IsOwner(caller) {
		return errNotOwner(caller)
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeZeroAmount, "withdrawal amount must be greater than zero")
	}
	if amount.Gt(c.Balance) {
		return dErrors.New(dErrors.CodeInsufficientBalance, "withdrawal exceeds custody balance of "+c.Balance.String()+" wei")
	}
	return nil
}

// ApplyWithdrawal subtracts amount. Call CanWithdraw first.
func (c *Custody) ApplyWithdrawal(amount id.Amount, now time.Time) error {
	balance, err := c.Balance.Sub(amount)
	if err != nil {
		return err
	}
	c.Balance = balance
	c.UpdatedAt = now
	return nil
}

// CanWithdrawAll only checks ownership. An empty balance is not an error,
// unlike a zero-amount partial withdrawal.
func (c *Custody) CanWithdrawAll(caller id.Identity) error {
	if !c.IsOwner(caller) {
		return errNotOwner(caller)
	}
	return nil
}

// ApplyWithdrawAll empties the balance and returns what was held.
func (c *Custody) ApplyWithdrawAll(now time.Time) id.Amount {
	released := c.Balance
	c.Balance = id.Amount{}
	c.UpdatedAt = now
	return released
}

// CanTransferOwnership checks the caller is the owner and the successor is a
// real identity. Handing ownership to the current owner is allowed.
func (c *Custody) CanTransferOwnership(caller, newOwner id.Identity) error {
	if !c.IsOwner(caller) {
		return errNotOwner(caller)
	}
	if newOwner.IsNil() {
		return dErrors.New(dErrors.CodeInvalidOwner, "new owner cannot be the zero identity")
	}
	return nil
}

// ApplyOwnershipTransfer installs newOwner and returns the previous owner.
func (c *Custody) ApplyOwnershipTransfer(newOwner id.Identity, now time.Time) id.Identity {
	previous := c.Owner
	c.Owner = newOwner
	c.UpdatedAt = now
	return previous
}

func errNotOwner(caller id.Identity) error {
	return dErrors.New(dErrors.CodeUnauthorizedAccount, "account "+caller.String()+" is not the owner")
}
