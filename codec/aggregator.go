// File: codec/aggregator.go
// Package codec implements generic stream-message reassembly.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An Aggregator coalesces a start message plus zero or more content
// fragments into one complete message, under a configurable maximum
// aggregate length. The wire format stays with the Classifier; the
// aggregator owns only the Idle/Aggregating state machine, so one
// implementation serves any framed protocol (a RESP bulk aggregator is
// a Classifier away).
//
// Ownership is explicit: the message seeded into the aggregate at start
// time belongs to the aggregate until Finish hands the completed
// message downstream. There is no reference counting to get wrong.

package codec

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
)

// Sequencing errors; each fails the offending message via the exception
// path and leaves the aggregator usable.
var (
	ErrContentWhileIdle      = errors.New("codec: content fragment without a start message")
	ErrStartWhileAggregating = errors.New("codec: start message while aggregation is in progress")
)

// TooLongError reports a start message declaring more content than the
// configured maximum. It fails that message only.
type TooLongError struct {
	Declared int
	Max      int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("codec: declared content length %d exceeds maximum %d", e.Declared, e.Max)
}

// Classifier teaches the aggregator one message family M.
type Classifier[M any] interface {
	// IsStart reports whether msg opens an aggregate.
	IsStart(msg M) bool

	// IsContent reports whether msg is a content fragment.
	IsContent(msg M) bool

	// IsLast reports whether the content fragment closes the aggregate.
	IsLast(msg M) bool

	// IsAggregated reports whether msg is already complete and must
	// pass through untouched.
	IsAggregated(msg M) bool

	// ContentLength returns the content length a start message declares.
	ContentLength(start M) int

	// NewAggregate seeds an aggregate from the start message.
	NewAggregate(start M) (M, error)

	// Append folds one content fragment into the aggregate.
	Append(aggregate, content M) (M, error)

	// Finish turns the aggregate into the completed message.
	Finish(aggregate M) (M, error)
}

// Aggregator is the pipeline handler driving the state machine. One
// instance holds the state of one channel's stream and is therefore not
// shareable.
type Aggregator[M any] struct {
	channel.InboundAdapter

	cls       Classifier[M]
	maxLength int

	aggregating bool
	current     M
}

var _ api.InboundHandler = (*Aggregator[any])(nil)

// NewAggregator creates an aggregator enforcing maxLength on the
// declared content length of start messages.
func NewAggregator[M any](cls Classifier[M], maxLength int) *Aggregator[M] {
	return &Aggregator[M]{cls: cls, maxLength: maxLength}
}

// Shareable marks the aggregator as single-pipeline.
func (*Aggregator[M]) Shareable() bool { return false }

// Aggregating reports whether an aggregate is in progress.
func (a *Aggregator[M]) Aggregating() bool { return a.aggregating }

func (a *Aggregator[M]) ChannelRead(ctx api.HandlerContext, msg any) error {
	m, ok := msg.(M)
	if !ok {
		ctx.FireChannelRead(msg)
		return nil
	}

	// Complete messages pass through untouched.
	if a.cls.IsAggregated(m) {
		ctx.FireChannelRead(msg)
		return nil
	}

	switch {
	case a.cls.IsStart(m):
		if a.aggregating {
			a.reset()
			return ErrStartWhileAggregating
		}
		if length := a.cls.ContentLength(m); length > a.maxLength {
			// The violating message fails; the state stays Idle and the
			// aggregator keeps serving subsequent messages.
			return &TooLongError{Declared: length, Max: a.maxLength}
		}
		agg, err := a.cls.NewAggregate(m)
		if err != nil {
			return err
		}
		a.current = agg
		a.aggregating = true
		return nil

	case a.cls.IsContent(m):
		if !a.aggregating {
			return ErrContentWhileIdle
		}
		agg, err := a.cls.Append(a.current, m)
		if err != nil {
			a.reset()
			return err
		}
		a.current = agg
		if !a.cls.IsLast(m) {
			return nil
		}
		full, err := a.cls.Finish(a.current)
		a.reset()
		if err != nil {
			return err
		}
		ctx.FireChannelRead(full)
		return nil

	default:
		ctx.FireChannelRead(msg)
		return nil
	}
}

// ChannelInactive drops any partial aggregate.
func (a *Aggregator[M]) ChannelInactive(ctx api.HandlerContext) error {
	a.reset()
	ctx.FireChannelInactive()
	return nil
}

func (a *Aggregator[M]) reset() {
	var zero M
	a.current = zero
	a.aggregating = false
}
