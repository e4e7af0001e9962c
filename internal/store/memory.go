package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-engine/internal/models"
)

// MemoryStore is an in-memory implementation of DocumentStore, PaymentStore
// and AuditRunStore, used by tests and dry runs. Documents and payments are
// copied on the way in and out so callers cannot mutate the store through
// shared pointers.
type MemoryStore struct {
	mu         sync.RWMutex
	documents  map[string]*models.Document
	payments   map[string]*models.Payment
	auditRuns  []*AuditRun
	updateFail error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*models.Document),
		payments:  make(map[string]*models.Payment),
	}
}

// AddDocument inserts or replaces a document.
func (m *MemoryStore) AddDocument(doc *models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.documents[doc.ID] = &copied
}

// AddPayment inserts or replaces a payment.
func (m *MemoryStore) AddPayment(p *models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *p
	m.payments[p.ID] = &copied
}

func (m *MemoryStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*models.Document
	for _, doc := range m.documents {
		if f.CenterID != "" && doc.CenterID != f.CenterID {
			continue
		}
		if f.Status != "" && doc.Status != f.Status {
			continue
		}
		if f.From != nil && (doc.IssueDate == nil || doc.IssueDate.Before(*f.From)) {
			continue
		}
		if f.To != nil && (doc.IssueDate == nil || doc.IssueDate.After(*f.To)) {
			continue
		}
		copied := *doc
		docs = append(docs, &copied)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// FailNextUpdate makes the next UpdateBalance call return err, then clears
// itself. Tests use this to simulate concurrent writers and store outages.
func (m *MemoryStore) FailNextUpdate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateFail = err
}

func (m *MemoryStore) UpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal, status *models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateFail != nil {
		err := m.updateFail
		m.updateFail = nil
		return err
	}

	doc, ok := m.documents[id]
	if !ok {
		return ErrNotFound
	}

	if !doc.OutstandingBalance.Equal(expected) {
		return ErrBalanceMoved
	}

	doc.OutstandingBalance = balance
	if status != nil {
		doc.Status = *status
	}
	return nil
}

func (m *MemoryStore) ListPayments(ctx context.Context, f PaymentFilter) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var payments []*models.Payment
	for _, p := range m.payments {
		if f.CenterID != "" {
			doc, ok := m.documents[p.DocumentID]
			if !ok || doc.CenterID != f.CenterID {
				continue
			}
		}
		copied := *p
		payments = append(payments, &copied)
	}

	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return payments, nil
}

func (m *MemoryStore) ListPaymentsByDocument(ctx context.Context, documentID string) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var payments []*models.Payment
	for _, p := range m.payments {
		if p.DocumentID != documentID {
			continue
		}
		copied := *p
		payments = append(payments, &copied)
	}

	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
	return payments, nil
}

func (m *MemoryStore) DeletePayments(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := m.payments[id]; ok {
			delete(m.payments, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) SaveAuditRun(ctx context.Context, run *AuditRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *run
	m.auditRuns = append(m.auditRuns, &copied)
	return nil
}

func (m *MemoryStore) ListAuditRuns(ctx context.Context, limit int) ([]*AuditRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.auditRuns) {
		limit = len(m.auditRuns)
	}

	runs := make([]*AuditRun, 0, limit)
	// Newest first.
	for i := len(m.auditRuns) - 1; i >= 0 && len(runs) < limit; i-- {
		copied := *m.auditRuns[i]
		runs = append(runs, &copied)
	}
	return runs, nil
}
