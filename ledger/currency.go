package ledger

import (
	"errors"
	"math/big"
	"sync"
)

var (
	ErrInsufficientFunds     = errors.New("ledger: insufficient funds")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrInvalidAmount         = errors.New("ledger: invalid amount")
)

// Currency is an in-process fungible ledger. It services a single operator
// account: transfers debiting any other account consume the allowance that
// account granted to the operator.
type Currency struct {
	mu         sync.RWMutex
	operator   [20]byte
	balances   map[[20]byte]*big.Int
	allowances map[[20]byte]*big.Int
}

// NewCurrency creates an empty ledger operated by the given account.
func NewCurrency(operator [20]byte) *Currency {
	return &Currency{
		operator:   operator,
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]*big.Int),
	}
}

// Mint credits freshly issued funds to the account.
func (c *Currency) Mint(account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(account, amount)
	return nil
}

// Approve sets the allowance the account grants to the operator. The value
// replaces any previous allowance.
func (c *Currency) Approve(account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowances[account] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining allowance the account has granted to the
// operator.
func (c *Currency) Allowance(account [20]byte) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if allowance, ok := c.allowances[account]; ok {
		return new(big.Int).Set(allowance)
	}
	return big.NewInt(0)
}

// TransferFrom moves funds between accounts on behalf of the operator.
// Transfers out of the operator account itself bypass the allowance check.
func (c *Currency) TransferFrom(payer, payee [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	balance, ok := c.balances[payer]
	if !ok || balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if payer != c.operator {
		allowance, ok := c.allowances[payer]
		if !ok || allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		allowance.Sub(allowance, amount)
	}
	balance.Sub(balance, amount)
	c.credit(payee, amount)
	return nil
}

// BalanceOf returns the current balance of the account.
func (c *Currency) BalanceOf(account [20]byte) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if balance, ok := c.balances[account]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (c *Currency) credit(account [20]byte, amount *big.Int) {
	if balance, ok := c.balances[account]; ok {
		balance.Add(balance, amount)
		return
	}
	c.balances[account] = new(big.Int).Set(amount)
}
