package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// MemoryRepository keeps sessions in process memory behind one mutex.
// Records handed out are copies; mutation happens only through the
// transition methods.
type MemoryRepository struct {
	mu   sync.RWMutex
	recs map[string]*Record
	now  func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recs: make(map[string]*Record), now: time.Now}
}

func (r *MemoryRepository) Create(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.recs[rec.ID]; exists {
		return fmt.Errorf("%w: session %q already exists", contract.ErrValidation, rec.ID)
	}
	c := *rec
	if c.Status == "" {
		c.Status = StatusPending
	}
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt
	r.recs[rec.ID] = &c
	return nil
}

func (r *MemoryRepository) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contract.ErrSessionNotFound, id)
	}
	c := *rec
	return &c, nil
}

func (r *MemoryRepository) MarkProcessing(id string) error {
	return r.transition(id, StatusProcessing, func(rec *Record) error {
		if rec.Status != StatusPending {
			return fmt.Errorf("%w: cannot start processing from %q", contract.ErrValidation, rec.Status)
		}
		return nil
	})
}

func (r *MemoryRepository) Complete(id string, decision *contract.Decision, reportPath string) error {
	return r.transition(id, StatusCompleted, func(rec *Record) error {
		if rec.Status != StatusProcessing {
			return fmt.Errorf("%w: cannot complete from %q", contract.ErrValidation, rec.Status)
		}
		rec.Decision = decision
		rec.ReportPath = reportPath
		return nil
	})
}

func (r *MemoryRepository) Fail(id string, reason string) error {
	return r.transition(id, StatusFailed, func(rec *Record) error {
		if rec.Status.Terminal() {
			return fmt.Errorf("%w: cannot fail from %q", contract.ErrValidation, rec.Status)
		}
		rec.Error = reason
		return nil
	})
}

func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[id]; !ok {
		return fmt.Errorf("%w: %q", contract.ErrSessionNotFound, id)
	}
	delete(r.recs, id)
	return nil
}

func (r *MemoryRepository) transition(id string, to Status, check func(*Record) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return fmt.Errorf("%w: %q", contract.ErrSessionNotFound, id)
	}
	if err := check(rec); err != nil {
		return err
	}
	rec.Status = to
	rec.UpdatedAt = r.now()
	return nil
}
