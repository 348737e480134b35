package wallet

import (
	"time"
)

func NewBalanceCache(ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		ttl: ttl,
	}
}

func (c *BalanceCache) Get() (*Balance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.balance == nil {
		return nil, false
	}

	if time.Since(c.balance.LastUpdated) > c.ttl {
		return nil, false
	}

	copied := *c.balance
	return &copied, true
}

func (c *BalanceCache) Set(balance *Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balance = &Balance{
		Spendable:   balance.Spendable,
		Unconfirmed: balance.Unconfirmed,
		LastUpdated: time.Now(),
	}
}

func (c *BalanceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balance = nil
}

func (c *BalanceCache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.balance == nil {
		return true
	}

	return time.Since(c.balance.LastUpdated) > c.ttl
}
