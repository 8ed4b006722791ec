package manager

import (
	"context"
	"sync"
	"time"

	"github.com/abgdnv/productmanager/internal/catalog"
)

// Kind names the page API call an Operation performs.
type Kind string

const (
	KindLoad   Kind = "load"
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Status is the tri-state outcome of an Operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Operation is one network-bound action. Its page is fixed when it is issued.
type Operation struct {
	ID        uint64
	Kind      Kind
	Page      catalog.Page
	ProductID int64

	mu         sync.Mutex
	status     Status
	err        error
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
}

func newOperation(id uint64, kind Kind, page catalog.Page, productID int64, now time.Time) *Operation {
	return &Operation{
		ID:        id,
		Kind:      kind,
		Page:      page,
		ProductID: productID,
		status:    StatusPending,
		startedAt: now,
		done:      make(chan struct{}),
	}
}

// finish records the outcome. Only the first call has an effect.
func (o *Operation) finish(err error, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusPending {
		return
	}
	o.status = StatusSucceeded
	if err != nil {
		o.status = StatusFailed
		o.err = err
	}
	o.finishedAt = now
	close(o.done)
}

// Status returns the current status.
func (o *Operation) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Err returns the failure cause, nil unless the status is StatusFailed.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed once the operation has finished and its result has been applied.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finishes or ctx is done.
// It returns the operation error or the context error.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OperationView is a point-in-time copy of an Operation.
type OperationView struct {
	ID         uint64       `json:"id"`
	Kind       Kind         `json:"kind"`
	Page       catalog.Page `json:"page"`
	ProductID  int64        `json:"product_id,omitempty"`
	Status     Status       `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

func (o *Operation) view() OperationView {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := OperationView{
		ID:        o.ID,
		Kind:      o.Kind,
		Page:      o.Page,
		ProductID: o.ProductID,
		Status:    o.status,
		StartedAt: o.startedAt,
	}
	if o.err != nil {
		v.Error = o.err.Error()
	}
	if o.status != StatusPending {
		finished := o.finishedAt
		v.FinishedAt = &finished
	}
	return v
}
