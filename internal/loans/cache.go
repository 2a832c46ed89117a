// internal/loans/cache.go
package loans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credit-approval/internal/common/logger"
)

const (
	loanViewKeyPrefix     = "loan:view:"
	customerLoansKeyPrefix = "customer:loans:"
)

// ViewCache caches loan-view responses in Redis. Credit scores are never
// cached; only the immutable loan projections served by the view endpoints
// are, and the per-customer listing is dropped whenever a new loan is
// originated for that customer.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewViewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *ViewCache {
	return &ViewCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "view-cache"}),
	}
}

// GetLoanView returns a cached single-loan view, or false on a miss.
func (c *ViewCache) GetLoanView(ctx context.Context, loanID int64) (LoanView, bool) {
	var view LoanView
	val, err := c.client.Get(ctx, loanViewKey(loanID)).Result()
	if err != nil {
		return view, false
	}
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		return LoanView{}, false
	}
	return view, true
}

// SetLoanView stores a single-loan view. Failures are logged and swallowed;
// the cache is best effort.
func (c *ViewCache) SetLoanView(ctx context.Context, view LoanView) {
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, loanViewKey(view.LoanID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", map[string]interface{}{
			"key":   loanViewKey(view.LoanID),
			"error": err.Error(),
		})
	}
}

// GetCustomerLoans returns a cached per-customer listing, or false on a miss.
func (c *ViewCache) GetCustomerLoans(ctx context.Context, customerID int64) ([]LoanListItem, bool) {
	val, err := c.client.Get(ctx, customerLoansKey(customerID)).Result()
	if err != nil {
		return nil, false
	}
	var items []LoanListItem
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		return nil, false
	}
	return items, true
}

// SetCustomerLoans stores a per-customer listing.
func (c *ViewCache) SetCustomerLoans(ctx context.Context, customerID int64, items []LoanListItem) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, customerLoansKey(customerID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", map[string]interface{}{
			"key":   customerLoansKey(customerID),
			"error": err.Error(),
		})
	}
}

// InvalidateCustomerLoans drops the listing for a customer after origination.
func (c *ViewCache) InvalidateCustomerLoans(ctx context.Context, customerID int64) {
	if err := c.client.Del(ctx, customerLoansKey(customerID)).Err(); err != nil {
		c.logger.Debug("cache invalidation failed", map[string]interface{}{
			"key":   customerLoansKey(customerID),
			"error": err.Error(),
		})
	}
}

// Purge drops every cached view. Bulk loads rewrite loans and debt behind the
// service's back, so the loader calls this to keep stale projections from
// being served for a TTL.
func (c *ViewCache) Purge(ctx context.Context) error {
	for _, pattern := range []string{loanViewKeyPrefix + "*", customerLoansKeyPrefix + "*"} {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func loanViewKey(loanID int64) string {
	return fmt.Sprintf("%s%d", loanViewKeyPrefix, loanID)
}

func customerLoansKey(customerID int64) string {
	return fmt.Sprintf("%s%d", customerLoansKeyPrefix, customerID)
}
