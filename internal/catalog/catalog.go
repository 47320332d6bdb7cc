// Package catalog provides the agent token catalog and governance
// proposals that the ledger prices against. The ledger reads token id,
// symbol, name, avatar and price from here and never writes back.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// Token survival statuses.
const (
	StatusThriving = "thriving"
	StatusStable   = "stable"
	StatusAtRisk   = "at-risk"
	StatusRetired  = "retired"
)

var validStatuses = map[string]bool{
	StatusThriving: true,
	StatusStable:   true,
	StatusAtRisk:   true,
	StatusRetired:  true,
}

// symbolRegex matches tickers such as NOVA, HLX or PRSM.
var symbolRegex = regexp.MustCompile(`^[A-Z]{2,6}$`)

var (
	ErrInvalidSymbol    = errors.New("catalog: invalid token symbol")
	ErrInvalidStatus    = errors.New("catalog: unsupported token status")
	ErrTokenNotFound    = errors.New("catalog: token not found")
	ErrProposalNotFound = errors.New("catalog: proposal not found")
)

// Token is an agent token listed on the marketplace.
type Token struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	AgentName       string          `json:"agent_name"`
	Avatar          string          `json:"avatar"`
	Price           decimal.Decimal `json:"price"`
	Change24h       float64         `json:"change_24h"` // percent
	Supply          int64           `json:"supply"`
	LiquidityDepth  int             `json:"liquidity_depth"` // 0-100
	SurvivalCredits int64           `json:"survival_credits"`
	SurvivalMax     int64           `json:"survival_max"`
	Status          string          `json:"status"`
	Standard        string          `json:"standard"` // ERC-20 or ERC-721
	Volume24h       decimal.Decimal `json:"volume_24h"`
	Holders         int             `json:"holders"`
}

// Proposal is a governance proposal users can endorse.
type Proposal struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Endorsements int    `json:"endorsements"`
	Status       string `json:"status"` // active, passed, rejected
	Tier         string `json:"tier"`
	CreatedAt    string `json:"created_at"`
}

// ValidateSymbol checks a token ticker.
func ValidateSymbol(symbol string) error {
	if !symbolRegex.MatchString(symbol) {
		return fmt.Errorf("%w: %q (expected 2-6 upper-case letters)", ErrInvalidSymbol, symbol)
	}
	return nil
}

// Validate checks the fields the ledger depends on.
func (t Token) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrTokenNotFound)
	}
	if err := ValidateSymbol(t.Symbol); err != nil {
		return err
	}
	if !validStatuses[t.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, t.Status)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("catalog: token %s has non-positive price %s", t.ID, t.Price)
	}
	return nil
}

// Catalog supplies token and proposal records.
type Catalog interface {
	Tokens() []Token
	Token(id string) (Token, error)
	Prices() map[string]decimal.Decimal
	Proposals() []Proposal
	Proposal(id string) (Proposal, error)
}

// Static is an immutable in-memory Catalog.
type Static struct {
	tokens    map[string]Token
	proposals map[string]Proposal
}

// NewStatic validates tokens and builds a catalog from them.
func NewStatic(tokens []Token, proposals []Proposal) (*Static, error) {
	c := &Static{
		tokens:    make(map[string]Token, len(tokens)),
		proposals: make(map[string]Proposal, len(proposals)),
	}
	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.tokens[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate token id %s", t.ID)
		}
		c.tokens[t.ID] = t
	}
	for _, p := range proposals {
		c.proposals[p.ID] = p
	}
	return c, nil
}

// Tokens returns all tokens ordered by id.
func (c *Static) Tokens() []Token {
	out := make([]Token, 0, len(c.tokens))
	for _, t := range c.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Static) Token(id string) (Token, error) {
	t, ok := c.tokens[id]
	if !ok {
		return Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return t, nil
}

// Prices returns token id → current unit price.
func (c *Static) Prices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(c.tokens))
	for id, t := range c.tokens {
		prices[id] = t.Price
	}
	return prices
}

// Proposals returns all proposals, most endorsed first.
func (c *Static) Proposals() []Proposal {
	out := make([]Proposal, 0, len(c.proposals))
	for _, p := range c.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Endorsements != out[j].Endorsements {
			return out[i].Endorsements > out[j].Endorsements
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Static) Proposal(id string) (Proposal, error) {
	p, ok := c.proposals[id]
	if !ok {
		return Proposal{}, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	return p, nil
}
