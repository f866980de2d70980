// Package market runs the cargo auctions: announcing upcoming trades,
// collecting bids under a deadline, and awarding trades second-price.
package market

import (
	"github.com/google/uuid"

	"github.com/flotillasim/flotilla/internal/cargo"
)

// Contract binds a company to transport a trade for a payment. Fulfilled is
// set by the engine when the cargo is delivered.
type Contract struct {
	ID        uuid.UUID
	Trade     *cargo.Trade
	Payment   float64
	Fulfilled bool
}

// NewContract creates a contract for the trade at the given payment.
func NewContract(trade *cargo.Trade, payment float64) *Contract {
	return &Contract{ID: uuid.New(), Trade: trade, Payment: payment}
}

// Clone deep-copies the contract for handing across the company boundary.
func (c *Contract) Clone() *Contract {
	return &Contract{ID: c.ID, Trade: c.Trade.Clone(), Payment: c.Payment, Fulfilled: c.Fulfilled}
}

// Ledger records the contracts awarded in one auction round, per company.
// Company order is registration order, which also decides bid ties.
type Ledger struct {
	order     []string
	byCompany map[string][]*Contract
}

// NewLedger creates an empty ledger covering the given companies.
func NewLedger(companies []Company) *Ledger {
	l := &Ledger{byCompany: make(map[string][]*Contract, len(companies))}
	for _, c := range companies {
		l.order = append(l.order, c.Name())
		l.byCompany[c.Name()] = nil
	}
	return l
}

// Append awards a contract to a company.
func (l *Ledger) Append(company string, c *Contract) {
	if _, ok := l.byCompany[company]; !ok {
		l.order = append(l.order, company)
	}
	l.byCompany[company] = append(l.byCompany[company], c)
}

// Companies returns the covered company names in registration order.
func (l *Ledger) Companies() []string { return l.order }

// Contracts returns the contracts awarded to one company this round.
func (l *Ledger) Contracts(company string) []*Contract { return l.byCompany[company] }

// Sanitized returns a deep copy of the whole ledger keyed by company name,
// safe to hand to every company as competitive intelligence.
func (l *Ledger) Sanitized() map[string][]*Contract {
	out := make(map[string][]*Contract, len(l.byCompany))
	for name, contracts := range l.byCompany {
		copies := make([]*Contract, len(contracts))
		for i, c := range contracts {
			copies[i] = c.Clone()
		}
		out[name] = copies
	}
	return out
}

// AllocationResult is the outcome of one auction round.
type AllocationResult struct {
	Ledger      *Ledger
	Unallocated []*cargo.Trade
}
