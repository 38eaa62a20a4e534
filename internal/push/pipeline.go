package push

import (
	"context"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/config"
	"github.com/wecube/server/internal/domain"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

// Handler processes one message notification.
type Handler interface {
	Handle(ctx context.Context, msg *domain.Message) error
}

// Pipeline queues new-message notifications and hands them to a Handler from
// a fixed set of rate-limited workers. Enqueueing never blocks the sender.
type Pipeline struct {
	handler Handler
	queue   chan *domain.Message
	workers int
	timeout time.Duration
	limiter ratelimit.Limiter
}

func NewPipeline(handler Handler, cfg config.PushConfig) *Pipeline {
	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		handler: handler,
		queue:   make(chan *domain.Message, cfg.QueueSize),
		workers: workers,
		timeout: cfg.Timeout,
		limiter: limiter,
	}
}

// NotifyNewMessage enqueues msg, dropping it with a warning when the queue
// is full.
func (p *Pipeline) NotifyNewMessage(msg *domain.Message) {
	select {
	case p.queue <- msg:
	default:
		jww.WARN.Printf("push: queue full, dropping notification for message %s", msg.ID)
	}
}

// Run processes the queue until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	jww.INFO.Printf("push: starting %d workers", p.workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.work(ctx)
			return nil
		})
	}
	err := g.Wait()

	if pending := len(p.queue); pending > 0 {
		jww.WARN.Printf("push: stopped with %d notifications pending", pending)
	}
	return err
}

func (p *Pipeline) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.limiter.Take()
			p.handle(ctx, msg)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, msg *domain.Message) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.handler.Handle(ctx, msg); err != nil {
		jww.ERROR.Printf("push: %v", err)
	}
}
