package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
)

type (
	Publisher struct {
		conn    *nats.Conn
		subject string
		l       *log.Logger
	}
	Option func(*Publisher)
)

var _ notify.Notifier = (*Publisher)(nil)

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// WithSubject sets the subject prefix. Events are published on
// <subject>.<kind>
func WithSubject(subject string) Option {
	return func(p *Publisher) {
		if subject != "" {
			p.subject = subject
		}
	}
}

func NewPublisher(conn *nats.Conn, opts ...Option) *Publisher {
	ret := &Publisher{
		conn:    conn,
		subject: "ils",
		l:       log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a connection with reconnect handling logged.
func Connect(url string, l *log.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("iracelog-league-stats"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", log.ErrorField(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("nats reconnected", log.String("url", c.ConnectedUrl()))
		}),
	)
}

func (p *Publisher) Subject(kind notify.EventKind) string {
	return fmt.Sprintf("%s.%s", p.subject, kind)
}

func (p *Publisher) Notify(ctx context.Context, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	subj := p.Subject(ev.Kind)
	if err := p.conn.Publish(subj, data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subj, err)
	}
	p.l.Debug("published", log.String("subject", subj))
	return nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}
