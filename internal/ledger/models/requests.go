package models

import (
	"strings"

	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
)

// AmountInput accepts either an ether decimal or a wei integer, never both.
type AmountInput struct {
	Amount    string `json:"amount,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
}

// Parse returns the amount in wei.
func (a AmountInput) Parse() (id.Amount, error) {
	ether := strings.TrimSpace(a.Amount)
	wei := strings.TrimSpace(a.AmountWei)
	switch {
	case ether != "" && wei != "":
		return id.Amount{}, dErrors.New(dErrors.CodeValidation, "provide amount or amount_wei, not both")
	case wei != "":
		return id.ParseAmount(wei)
	case ether != "":
		return id.ParseEther(ether)
	default:
		return id.Amount{}, dErrors.New(dErrors.CodeValidation, "amount or amount_wei is required")
	}
}

// DonateRequest is the body of POST /ledger/donations. Message is kept
// verbatim and may be empty.
type DonateRequest struct {
	AmountInput
	Message string `json:"message"`
}

// WithdrawRequest is the body of POST /ledger/withdrawals.
type WithdrawRequest struct {
	AmountInput
}

// TransferOwnershipRequest is the body of POST /ledger/owner.
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

func (r TransferOwnershipRequest) Parse() (id.Identity, error) {
	owner, err := id.ParseIdentity(r.NewOwner)
	if err != nil {
		return id.Identity{}, dErrors.Wrap(err, dErrors.CodeInvalidOwner, "new_owner must be a non-zero address")
	}
	return owner, nil
}

type BalanceResponse struct {
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"`
}

func NewBalanceResponse(balance id.Amount) BalanceResponse {
	return BalanceResponse{BalanceWei: balance.String(), Balance: balance.Ether()}
}

type DonorTotalResponse struct {
	Donor    string `json:"donor"`
	TotalWei string `json:"total_wei"`
	Total    string `json:"total"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

// EventsResponse pages through the journal. Next is the seq to pass as
// ?after= for the following page.
type EventsResponse struct {
	Events []*Event `json:"events"`
	Next   uint64   `json:"next"`
}
