package queue

import (
	"context"

	"github.com/tordrt/schemasync/internal/command"
)

// Ticket tracks one enqueued command until the authority confirms or the queue discards it
type Ticket struct {
	cmd  command.Command
	done chan struct{}
	err  error
}

func newTicket(cmd command.Command) *Ticket {
	return &Ticket{cmd: cmd, done: make(chan struct{})}
}

func (t *Ticket) resolve(err error) {
	t.err = err
	close(t.done)
}

// Command returns the command as it was enqueued
func (t *Ticket) Command() command.Command { return t.cmd }

// Done is closed once the command has settled
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Err returns the outcome. It is only meaningful after Done is closed.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the command settles or ctx ends
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
