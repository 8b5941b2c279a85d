package models

import (
	id "tipjar/pkg/domain"
)

// Contribution is one donor's cumulative donated amount. It only grows:
// withdrawals never touch it.
type Contribution struct {
	Donor id.Identity `json:"donor"`
	Total id.Amount   `json:"total"`
}

// NewContribution returns the zero record used when a donor is unknown.
func NewContribution(donor id.Identity) *Contribution {
	return &Contribution{Donor: donor}
}

// Add accumulates amount, failing with CodeArithmeticOverflow instead of wrapping.
func (c *Contribution) Add(amount id.Amount) error {
	total, err := c.Total.Add(amount)
	if err != nil {
		return err
	}
	c.Total = total
	return nil
}
