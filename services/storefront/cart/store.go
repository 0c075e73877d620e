// Package cart holds the per-user shopping cart: an ordered collection of line
// items keyed by product id, persisted after every mutation.
//
// Guest carts are not supported. A Store without a user silently ignores
// every mutation and never touches persistence. Persistence is best effort:
// failures are logged and the in-memory cart stays authoritative for the
// current request.
package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// Persister stores cart snapshots keyed by user id. Load returns (nil, nil)
// when nothing is stored.
type Persister interface {
	Load(ctx context.Context, userID string) ([]models.LineItem, error)
	Save(ctx context.Context, userID string, items []models.LineItem) error
	Remove(ctx context.Context, userID string) error
}

// Store is one user's cart. It is safe for concurrent use; mutations on the
// same store are applied and persisted one at a time.
type Store struct {
	mu        sync.Mutex
	userID    string
	items     []models.LineItem
	persister Persister
	log       *zap.Logger
	now       func() time.Time
}

func NewStore(persister Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{persister: persister, log: log, now: time.Now}
}

// Initialize binds the store to userID and loads its persisted items. An empty
// userID leaves an empty, non-persistent cart. When loading fails the store
// keeps what it already holds for the same user, and is empty otherwise.
func (s *Store) Initialize(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sameUser := s.userID == userID
	s.userID = userID
	if userID == "" {
		s.items = nil
		return
	}
	if s.persister == nil {
		if !sameUser {
			s.items = nil
		}
		return
	}

	items, err := s.persister.Load(ctx, userID)
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("cart load failed", zap.String("user_id", userID), zap.Error(err))
		if !sameUser {
			s.items = nil
		}
		return
	}

	s.items = make([]models.LineItem, 0, len(items))
	for _, it := range items {
		s.items = append(s.items, normalize(it))
	}
}

// Add merges item into the cart. A line for the same product gains item's
// quantity; otherwise item is appended. Quantity below 1 becomes 1.
func (s *Store) Add(ctx context.Context, item models.LineItem) {
	s.mutate(ctx, "add", func() bool {
		// clamped before merging, so the sum stays far from int overflow
		item = normalize(item)
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now().UTC()
		}
		if i := s.indexOf(item.ProductID); i >= 0 {
			before := s.items[i].Quantity
			s.items[i].Quantity += item.Quantity
			s.items[i] = normalize(s.items[i])
			return s.items[i].Quantity != before
		}
		s.items = append(s.items, item)
		return true
	})
}

// Increment raises the product's quantity by one, up to MaxLineQuantity.
func (s *Store) Increment(ctx context.Context, productID string) {
	s.mutate(ctx, "increment", func() bool {
		i := s.indexOf(productID)
		if i < 0 || s.items[i].Quantity >= models.MaxLineQuantity {
			return false
		}
		s.items[i].Quantity++
		return true
	})
}

// Decrement lowers the product's quantity by one but never below 1. Removing
// a line is Delete's job.
func (s *Store) Decrement(ctx context.Context, productID string) {
	s.mutate(ctx, "decrement", func() bool {
		i := s.indexOf(productID)
		if i < 0 || s.items[i].Quantity <= 1 {
			return false
		}
		s.items[i].Quantity--
		return true
	})
}

// Delete removes the product's line.
func (s *Store) Delete(ctx context.Context, productID string) {
	s.mutate(ctx, "delete", func() bool {
		i := s.indexOf(productID)
		if i < 0 {
			return false
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true
	})
}

// Clear empties the cart and removes the persisted snapshot.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return
	}
	s.items = nil
	if s.persister == nil {
		return
	}
	if err := s.persister.Remove(ctx, s.userID); err != nil {
		logger.FromContext(ctx, s.log).Warn("cart remove failed", zap.String("user_id", s.userID), zap.Error(err))
	}
}

// UserID returns the bound user, "" for a guest.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyItems()
}

// Count is the sum of quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (s *Store) Total() models.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.TotalOf(s.items)
}

// View returns a consistent snapshot of the cart.
func (s *Store) View() models.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.copyItems()
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return models.CartView{
		UserID: s.userID,
		Items:  items,
		Count:  count,
		Total:  models.TotalOf(items),
	}
}

// mutate applies fn under the lock and persists when fn reports a change.
func (s *Store) mutate(ctx context.Context, op string, fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return
	}
	if !fn() {
		return
	}
	s.persist(ctx, op)
}

func (s *Store) persist(ctx context.Context, op string) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, s.userID, s.copyItems()); err != nil {
		logger.FromContext(ctx, s.log).Warn("cart persist failed",
			zap.String("op", op),
			zap.String("user_id", s.userID),
			zap.Error(err),
		)
	}
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) copyItems() []models.LineItem {
	out := make([]models.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// normalize clamps quantity to [1, MaxLineQuantity]. Price is held in cents,
// so it is always exactly two decimal places.
func normalize(item models.LineItem) models.LineItem {
	switch {
	case item.Quantity < 1:
		item.Quantity = 1
	case item.Quantity > models.MaxLineQuantity:
		item.Quantity = models.MaxLineQuantity
	}
	return item
}
