package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tipjar/pkg/domain"
)

func TestEventKind_Topic(t *testing.T) {
	// Well-known topics emitted by Ownable and WETH-style contracts.
	assert.Equal(t, "0x8be0079c531659141344cd1fd0a4f28419497f9722a3daafe3b4186f6b6457e0", EventOwnershipTransferred.Topic())
	assert.Equal(t, "0x7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65", EventWithdrawal.Topic())
	assert.Len(t, EventNewTip.Topic(), 66)
	assert.False(t, EventKind("Refund").IsValid())
}

func TestNewTipEvent_KeepsEmptyMessage(t *testing.T) {
	donor, err := id.ParseIdentity("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)

	e := NewTipEvent(donor, id.MustParseEther("0.005"), "", time.Now())
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "NewTip", decoded["kind"])
	assert.Equal(t, "", decoded["message"])
	assert.Equal(t, "5000000000000000", decoded["amount_wei"])
	assert.NotContains(t, decoded, "previous_owner")
}

func TestNewOwnershipTransferredEvent(t *testing.T) {
	prev, err := id.ParseIdentity("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	require.NoError(t, err)
	next, err := id.ParseIdentity("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)

	e := NewOwnershipTransferredEvent(prev, next, time.Now())
	require.NotNil(t, e.PreviousOwner)
	assert.Equal(t, prev, *e.PreviousOwner)
	assert.Equal(t, next, e.Account)
	assert.True(t, e.Amount.IsZero())
}

func TestContribution_Add(t *testing.T) {
	c := NewContribution(id.Identity{1})
	require.NoError(t, c.Add(id.MustParseEther("0.002")))
	require.NoError(t, c.Add(id.MustParseEther("0.004")))
	assert.Equal(t, "0.006", c.Total.Ether())

	c.Total = id.MaxAmount()
	assert.Error(t, c.Add(id.NewAmount(1)))
	assert.True(t, c.Total.Eq(id.MaxAmount()))
}
