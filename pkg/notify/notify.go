// Package notify delivers season change events to interested parties.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mpapenbr/iracelog-league-stats/log"
)

type EventKind string

const (
	SeasonUpdated  EventKind = "season.updated"
	SeasonReverted EventKind = "season.reverted"
	SeasonCreated  EventKind = "season.created"
	SeasonDeleted  EventKind = "season.deleted"
	SeasonRenamed  EventKind = "season.renamed"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Seasons  []string  `json:"seasons"`
	Payload  string    `json:"payload,omitempty"` // stored filename
	Previous string    `json:"previous,omitempty"`
	Time     time.Time `json:"time"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// LogNotifier only logs the events
type LogNotifier struct {
	l *log.Logger
}

func NewLogNotifier(l *log.Logger) *LogNotifier {
	return &LogNotifier{l: l}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.l.Info("season change",
		log.String("kind", string(ev.Kind)),
		log.Strings("seasons", ev.Seasons),
		log.String("payload", ev.Payload))
	return nil
}

// Multi sends events to all notifiers, errors are joined
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, ev Event) error {
		var errs []error
		for _, n := range notifiers {
			if err := n.Notify(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

type (
	Dispatcher struct {
		target    Notifier
		timeout   time.Duration
		l         *log.Logger
		onFailure func(err error)
		wg        sync.WaitGroup
	}
	Option func(*Dispatcher)
)

func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(dp *Dispatcher) {
		dp.l = l
	}
}

// WithFailureHandler is called for every notification that failed
func WithFailureHandler(f func(err error)) Option {
	return func(dp *Dispatcher) {
		dp.onFailure = f
	}
}

func NewDispatcher(target Notifier, opts ...Option) *Dispatcher {
	ret := &Dispatcher{
		target:  target,
		timeout: 5 * time.Second,
		l:       log.Default().Named("notify"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Dispatch delivers ev in the background. The caller never waits for the
// delivery, failures are logged.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil || d.target == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.target.Notify(ctx, ev); err != nil {
			d.l.Warn("could not deliver notification",
				log.String("kind", string(ev.Kind)),
				log.Strings("seasons", ev.Seasons),
				log.ErrorField(err))
			if d.onFailure != nil {
				d.onFailure(err)
			}
		}
	}()
}

// Wait blocks until all pending deliveries are done.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
