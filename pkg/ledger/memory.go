package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrymomot/billingsync/pkg/billing"
)

// MemoryStore is an in-process ledger. Contents are lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	customers     []billing.CustomerRecord
	subscriptions map[string]billing.SubscriptionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subscriptions: make(map[string]billing.SubscriptionRecord)}
}

func (s *MemoryStore) CustomersByUserID(_ context.Context, userID string) ([]billing.CustomerRecord, error) {
	return s.filterCustomers(func(c billing.CustomerRecord) bool { return c.UserID == userID }), nil
}

func (s *MemoryStore) CustomersByProviderID(_ context.Context, providerCustomerID string) ([]billing.CustomerRecord, error) {
	return s.filterCustomers(func(c billing.CustomerRecord) bool { return c.ProviderCustomerID == providerCustomerID }), nil
}

func (s *MemoryStore) filterCustomers(match func(billing.CustomerRecord) bool) []billing.CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []billing.CustomerRecord
	for _, c := range s.customers {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ProviderCustomerID < out[j].ProviderCustomerID
	})
	return out
}

func (s *MemoryStore) InsertCustomer(_ context.Context, rec billing.CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.ProviderCustomerID == rec.ProviderCustomerID {
			return ErrDuplicate
		}
	}
	rec.CreatedAt = createdAt(rec.CreatedAt)
	s.customers = append(s.customers, rec)
	return nil
}

func (s *MemoryStore) InsertSubscription(_ context.Context, rec billing.SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[rec.ID]; ok {
		return ErrDuplicate
	}
	rec.CreatedAt = createdAt(rec.CreatedAt)
	s.subscriptions[rec.ID] = rec
	return nil
}

func (s *MemoryStore) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.subscriptions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SubscriptionByID(_ context.Context, id string) (*billing.SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Ping(context.Context) error    { return nil }
func (s *MemoryStore) Close() error                  { return nil }
