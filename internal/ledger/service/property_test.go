package service

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"tipjar/internal/ledger/store/memory"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
)

var propertyOwner = id.Identity{0x01}

func newPropertyService(t *rapid.T) *Service {
	svc, err := New(memory.New(), WithMinDonation(id.NewAmount(1000)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Init(context.Background(), propertyOwner); err != nil {
		t.Fatalf("init: %v", err)
	}
	return svc
}

func identityGen() *rapid.Generator[id.Identity] {
	return rapid.Custom(func(t *rapid.T) id.Identity {
		return id.Identity{byte(rapid.IntRange(1, 4).Draw(t, "identity"))}
	})
}

func amountGen(lo, hi uint64) *rapid.Generator[id.Amount] {
	return rapid.Custom(func(t *rapid.T) id.Amount {
		return id.NewAmount(rapid.Uint64Range(lo, hi).Draw(t, "wei"))
	})
}

// ledgerModel tracks what the ledger should hold using plain big integers.
type ledgerModel struct {
	balance uint256.Int
	totals  map[id.Identity]*uint256.Int
}

func (m *ledgerModel) total(donor id.Identity) *uint256.Int {
	if v, ok := m.totals[donor]; ok {
		return v
	}
	return uint256.NewInt(0)
}

func assertMatchesModel(t *rapid.T, svc *Service, model *ledgerModel) {
	ctx := context.Background()
	balance, err := svc.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Big().Cmp(model.balance.ToBig()) != 0 {
		t.Fatalf("balance %s, model %s", balance, model.balance.Dec())
	}
	for b := byte(1); b <= 4; b++ {
		donor := id.Identity{b}
		total, err := svc.TotalDonated(ctx, donor)
		if err != nil {
			t.Fatalf("total: %v", err)
		}
		if total.Big().Cmp(model.total(donor).ToBig()) != 0 {
			t.Fatalf("total for %s is %s, model %s", donor, total, model.total(donor).Dec())
		}
	}
}

// TestLedgerConservation drives random donate/withdraw/withdrawAll sequences
// and checks balance and per-donor totals against a model after each step.
func TestLedgerConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := newPropertyService(t)
		ctx := context.Background()
		model := &ledgerModel{totals: map[id.Identity]*uint256.Int{}}

		t.Repeat(map[string]func(*rapid.T){
			"donate": func(t *rapid.T) {
				donor := identityGen().Draw(t, "donor")
				amount := amountGen(0, 1_000_000).Draw(t, "amount")
				_, err := svc.Donate(ctx, donor, amount, "")
				if amount.Lt(svc.MinDonation()) {
					if !dErrors.HasCode(err, dErrors.CodeDonationTooSmall) {
						t.Fatalf("expected donation_too_small, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("donate: %v", err)
				}
				a := amount.Big()
				add, _ := uint256.FromBig(a)
				model.balance.Add(&model.balance, add)
				model.totals[donor] = new(uint256.Int).Add(model.total(donor), add)
			},
			"withdraw": func(t *rapid.T) {
				caller := rapid.SampledFrom([]id.Identity{propertyOwner, {0x02}}).Draw(t, "caller")
				amount := amountGen(0, 2_000_000).Draw(t, "amount")
				before, _ := svc.Balance(ctx)
				_, err := svc.Withdraw(ctx, caller, amount)
				switch {
				case caller != propertyOwner:
					if !dErrors.HasCode(err, dErrors.CodeUnauthorizedAccount) {
						t.Fatalf("expected unauthorized_account, got %v", err)
					}
				case amount.IsZero():
					if !dErrors.HasCode(err, dErrors.CodeZeroAmount) {
						t.Fatalf("expected zero_amount, got %v", err)
					}
				case amount.Gt(before):
					if !dErrors.HasCode(err, dErrors.CodeInsufficientBalance) {
						t.Fatalf("expected insufficient_balance, got %v", err)
					}
				default:
					if err != nil {
						t.Fatalf("withdraw: %v", err)
					}
					sub, _ := uint256.FromBig(amount.Big())
					model.balance.Sub(&model.balance, sub)
				}
			},
			"withdrawAll": func(t *rapid.T) {
				before, _ := svc.Balance(ctx)
				event, err := svc.WithdrawAll(ctx, propertyOwner)
				if err != nil {
					t.Fatalf("withdraw all: %v", err)
				}
				if !event.Amount.Eq(before) {
					t.Fatalf("released %s, balance was %s", event.Amount, before)
				}
				model.balance.Clear()
			},
			"": func(t *rapid.T) {
				assertMatchesModel(t, svc, model)
			},
		})
	})
}

func TestDonationBelowMinimumNeverChangesState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := newPropertyService(t)
		ctx := context.Background()
		donor := identityGen().Draw(t, "donor")
		amount := amountGen(0, 999).Draw(t, "amount")

		_, err := svc.Donate(ctx, donor, amount, rapid.String().Draw(t, "message"))
		if !dErrors.HasCode(err, dErrors.CodeDonationTooSmall) {
			t.Fatalf("expected donation_too_small, got %v", err)
		}
		balance, _ := svc.Balance(ctx)
		total, _ := svc.TotalDonated(ctx, donor)
		if !balance.IsZero() || !total.IsZero() {
			t.Fatalf("state changed: balance %s total %s", balance, total)
		}
	})
}

func TestNonOwnerWithdrawAlwaysUnauthorized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := newPropertyService(t)
		ctx := context.Background()
		if _, err := svc.Donate(ctx, id.Identity{0x03}, amountGen(1000, 1_000_000).Draw(t, "seed"), ""); err != nil {
			t.Fatalf("donate: %v", err)
		}
		caller := rapid.SampledFrom([]id.Identity{{0x02}, {0x03}, {0x04}}).Draw(t, "caller")
		amount := amountGen(0, 10_000_000).Draw(t, "amount")

		_, err := svc.Withdraw(ctx, caller, amount)
		if !dErrors.HasCode(err, dErrors.CodeUnauthorizedAccount) {
			t.Fatalf("expected unauthorized_account, got %v", err)
		}
		if _, err := svc.WithdrawAll(ctx, caller); !dErrors.HasCode(err, dErrors.CodeUnauthorizedAccount) {
			t.Fatalf("expected unauthorized_account on withdraw all, got %v", err)
		}
	})
}
