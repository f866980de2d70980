package engine

import (
	"github.com/flotillasim/flotilla/internal/cargo"
	"github.com/flotillasim/flotilla/internal/market"
)

// Authority is the market authority: the record of every contract awarded
// over the whole run, per company. It feeds the commit protocol's awarded
// check and marks contracts fulfilled on delivery. Main loop only.
type Authority struct {
	contracts map[string][]*market.Contract
}

// NewAuthority creates an empty authority.
func NewAuthority() *Authority {
	return &Authority{contracts: make(map[string][]*market.Contract)}
}

// AddAllocation folds one auction round's outcome into the record.
func (a *Authority) AddAllocation(res *market.AllocationResult) {
	for _, name := range res.Ledger.Companies() {
		a.contracts[name] = append(a.contracts[name], res.Ledger.Contracts(name)...)
	}
}

// Contracts returns the contracts a company holds so far.
func (a *Authority) Contracts(company string) []*market.Contract {
	return a.contracts[company]
}

// Awarded reports whether the company holds a contract for the trade.
func (a *Authority) Awarded(company string, trade *cargo.Trade) bool {
	key := trade.Key()
	for _, c := range a.contracts[company] {
		if c.Trade.Key() == key {
			return true
		}
	}
	return false
}

// Fulfill marks the company's first unfulfilled contract for the trade as
// fulfilled and returns it. nil when the company holds no such contract.
func (a *Authority) Fulfill(company string, trade *cargo.Trade) *market.Contract {
	key := trade.Key()
	for _, c := range a.contracts[company] {
		if !c.Fulfilled && c.Trade.Key() == key {
			c.Fulfilled = true
			return c
		}
	}
	return nil
}
