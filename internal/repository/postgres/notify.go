package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying realtime topics.
// Payloads are "<origin>|<topic>".
const NotifyChannel = "wecube_changes"

const payloadSeparator = "|"

// Relay publishes realtime topics to every instance sharing the database.
type Relay struct {
	pool   *pgxpool.Pool
	origin string
}

func NewRelay(pool *pgxpool.Pool, origin string) *Relay {
	return &Relay{pool: pool, origin: origin}
}

func (r *Relay) Forward(ctx context.Context, topics ...string) error {
	batch := &pgx.Batch{}
	for _, topic := range topics {
		batch.Queue(`SELECT pg_notify($1, $2)`, NotifyChannel, r.origin+payloadSeparator+topic)
	}
	return wrapErr(r.pool.SendBatch(ctx, batch).Close(), "notify topics")
}

// Deliverer receives topics relayed from other instances.
type Deliverer interface {
	Deliver(topic string)
	DeliverAll()
}

// Listener holds one pooled connection on LISTEN and hands foreign topics to
// a Deliverer. Its own notifications are skipped.
type Listener struct {
	pool    *pgxpool.Pool
	origin  string
	target  Deliverer
	backoff time.Duration
}

func NewListener(pool *pgxpool.Pool, origin string, target Deliverer) *Listener {
	return &Listener{pool: pool, origin: origin, target: target, backoff: 2 * time.Second}
}

// Run listens until ctx is done, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) error {
	connected := false
	for {
		err := l.listen(ctx, connected)
		if ctx.Err() != nil {
			return nil
		}
		connected = true
		jww.WARN.Printf("realtime: listener: %v; reconnecting in %s", err, l.backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context, resync bool) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire listen connection")
	}
	defer func() {
		// A cancelled wait leaves the connection closed; Release discards it.
		cleanup, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.Exec(cleanup, `UNLISTEN *`)
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, `LISTEN `+NotifyChannel); err != nil {
		return errors.Wrap(err, "listen")
	}
	jww.INFO.Printf("realtime: listening on %s", NotifyChannel)

	// Anything relayed while we were disconnected was lost.
	if resync {
		l.target.DeliverAll()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return errors.Wrap(err, "wait for notification")
		}
		origin, topic, ok := strings.Cut(n.Payload, payloadSeparator)
		if !ok || origin == l.origin {
			continue
		}
		jww.DEBUG.Printf("realtime: relayed %s from %s", topic, origin)
		l.target.Deliver(topic)
	}
}
