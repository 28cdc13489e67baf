// Package queue runs commands against the authority one at a time, in the
// order they were submitted, and keeps the Local Model consistent with the
// Synced Model when one of them is rejected.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/propagate"
	"github.com/tordrt/schemasync/internal/reconcile"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

var (
	// ErrNotInitialized is returned by Enqueue and Submit before Initialize
	ErrNotInitialized = errors.New("queue not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize
	ErrAlreadyInitialized = errors.New("queue already initialized")
	// ErrClosed is returned once Close has been called
	ErrClosed = errors.New("queue closed")
	// ErrDiscarded is wrapped, together with the cause, into the error of every
	// command dropped because an earlier one failed
	ErrDiscarded = errors.New("discarded after earlier failure")
)

// Options configures a Queue. The zero value is usable.
type Options struct {
	Logger     *zap.SugaredLogger
	Registerer prometheus.Registerer
	Clock      clock.Clock
	// IDs is the session mapping table; a new one is created when nil
	IDs *idmap.Table
}

// Queue is the single-flight FIFO between the Local Model and the authority
type Queue struct {
	authority remote.Authority
	local     *schema.Store
	ids       *idmap.Table
	log       *zap.SugaredLogger
	clock     clock.Clock
	metrics   *metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	synced    *schema.Database
	items     []*item
	pending   map[string]int
	running   bool
	closed    bool
	idle      chan struct{}
	listeners map[int]Listener
	nextSub   int
}

type item struct {
	cmd    command.Command
	ticket *Ticket
}

// New creates a queue that sends commands to a and rolls local back on failure
func New(a remote.Authority, local *schema.Store, opts Options) *Queue {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.IDs == nil {
		opts.IDs = idmap.NewTable()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		authority: a,
		local:     local,
		ids:       opts.IDs,
		log:       opts.Logger,
		clock:     opts.Clock,
		metrics:   newMetrics(opts.Registerer),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]int),
		listeners: make(map[int]Listener),
	}
}

// Initialize sets the Synced Model and resets the Local Model to match it.
// It may be called once.
func (q *Queue) Initialize(snapshot *schema.Database) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.synced != nil {
		return ErrAlreadyInitialized
	}
	if snapshot == nil {
		snapshot = &schema.Database{}
	}
	q.synced = snapshot.Clone()
	q.local.Reset(snapshot.Clone())
	q.log.Infow("Queue initialized", "schemas", len(snapshot.Schemas))
	return nil
}

// Enqueue appends cmd, marks its entity pending and starts the worker if it is
// idle. The caller is expected to have applied cmd to the Local Model already.
func (q *Queue) Enqueue(cmd command.Command) (*Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueueLocked(cmd)
}

// Submit applies cmd to the Local Model and enqueues it as one step, so a
// rollback never lands between the two. Identifiers confirmed since cmd was
// built are resolved first.
func (q *Queue) Submit(cmd command.Command) (*Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.usableLocked(); err != nil {
		return nil, err
	}
	cmd = cmd.WithRemappedIDs(q.ids)
	err := q.local.Update(func(db *schema.Database) error {
		scratch := db.Clone()
		if err := cmd.Apply(scratch); err != nil {
			return err
		}
		*db = *scratch
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s locally: %w", cmd.Kind(), err)
	}
	return q.enqueueLocked(cmd)
}

func (q *Queue) usableLocked() error {
	if q.closed {
		return ErrClosed
	}
	if q.synced == nil {
		return ErrNotInitialized
	}
	return nil
}

func (q *Queue) enqueueLocked(cmd command.Command) (*Ticket, error) {
	if err := q.usableLocked(); err != nil {
		return nil, err
	}
	t := newTicket(cmd)
	q.items = append(q.items, &item{cmd: cmd, ticket: t})
	q.pending[cmd.EntityID()]++
	q.metrics.depth.Set(float64(len(q.items)))
	q.log.Debugw("Command enqueued", "command", cmd.ID(), "kind", cmd.Kind(), "entity", cmd.EntityID(), "depth", len(q.items))

	if !q.running {
		q.running = true
		q.idle = make(chan struct{})
		go q.process()
	}
	return t, nil
}

// process is the worker. Only one runs at a time; it exits when the queue is empty.
func (q *Queue) process() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		head := q.items[0]
		synced := q.synced.Clone()
		q.mu.Unlock()

		cmd := head.cmd.WithRemappedIDs(q.ids)
		q.metrics.dispatched.Inc()
		start := q.clock.Now()
		res, err := cmd.Execute(q.ctx, q.authority, synced)
		q.metrics.duration.Observe(q.clock.Now().Sub(start).Seconds())

		if err == nil {
			err = q.confirm(head, cmd, res)
		}
		if err != nil {
			q.rollback(head, err)
		}
	}
}

// confirm folds a successful response into both models
func (q *Queue) confirm(head *item, cmd command.Command, res *remote.Result) error {
	if res == nil {
		res = &remote.Result{}
	}
	q.mu.Lock()

	next := q.synced.Clone()
	if err := cmd.Apply(next); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("failed to apply confirmed %s to synced model: %w", cmd.Kind(), err)
	}

	gen := q.ids.Generation()
	_ = q.local.Update(func(local *schema.Database) error {
		rw := reconcile.NewRewriter(q.ids, q.log, next, local)
		rw.Settle(q.synced)
		reconcile.Reconcile(rw, res, cmd.Scope())
		propagate.Resolve(rw, res.Propagated, q.log)
		return nil
	})
	records := q.ids.Since(gen)
	q.synced = next

	q.items = q.items[1:]
	q.release(head.cmd.EntityID())
	q.metrics.depth.Set(float64(len(q.items)))
	listeners := q.listenersLocked()
	q.mu.Unlock()

	q.metrics.confirmed.Inc()
	q.log.Debugw("Command confirmed", "command", cmd.ID(), "kind", cmd.Kind(), "entity", cmd.EntityID(), "mapped", len(records))
	for _, rec := range records {
		q.metrics.mapped.WithLabelValues(string(rec.Type)).Inc()
		for _, l := range listeners {
			l.IdentifierMapped(rec.Provisional, rec.Real, rec.Type)
		}
	}
	head.ticket.resolve(nil)
	return nil
}

// rollback drops every queued command and resets the Local Model to the Synced Model
func (q *Queue) rollback(head *item, cause error) {
	q.mu.Lock()
	discarded := q.items[1:]
	q.items = nil
	q.pending = make(map[string]int)
	q.local.Reset(q.synced.Clone())
	q.metrics.depth.Set(0)
	listeners := q.listenersLocked()
	q.mu.Unlock()

	q.metrics.rejected.Inc()
	q.metrics.discarded.Add(float64(len(discarded)))
	q.log.Warnw("Command failed, local model rolled back",
		"command", head.cmd.ID(), "kind", head.cmd.Kind(), "entity", head.cmd.EntityID(),
		"discarded", len(discarded), "error", cause)

	for _, l := range listeners {
		l.RolledBack(cause)
	}
	head.ticket.resolve(cause)
	for _, it := range discarded {
		it.ticket.resolve(fmt.Errorf("%w: %w", ErrDiscarded, cause))
	}
}

func (q *Queue) release(entityID string) {
	if q.pending[entityID] <= 1 {
		delete(q.pending, entityID)
		return
	}
	q.pending[entityID]--
}

// IsPending reports whether an unconfirmed command concerns id. A real id is
// pending while a command queued under its provisional id is.
func (q *Queue) IsPending(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending[id] > 0 {
		return true
	}
	for _, prov := range q.ids.Provisionals(id) {
		if q.pending[prov] > 0 {
			return true
		}
	}
	return false
}

// Len returns the number of commands waiting or in flight
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Synced returns a copy of the Synced Model, or nil before Initialize
func (q *Queue) Synced() *schema.Database {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.synced == nil {
		return nil
	}
	return q.synced.Clone()
}

// IDs returns the session mapping table
func (q *Queue) IDs() *idmap.Table {
	return q.ids
}

// Drain blocks until the worker is idle
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands and cancels the call in flight, which then
// fails and rolls back whatever is still queued
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
}
