package email

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull        = errors.New("email queue full")
	ErrDispatcherClosed = errors.New("email dispatcher closed")
)

const deliveryTimeout = 30 * time.Second

// Dispatcher desacopla el envio de correos del request: encola el mensaje y
// un pool fijo de workers lo entrega con el Sender subyacente. Los fallos de
// entrega se registran y se descartan.
type Dispatcher struct {
	logger *zap.Logger
	next   Sender
	queue  chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(logger *zap.Logger, next Sender, queueSize, workers int) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		logger: logger,
		next:   next,
		queue:  make(chan Message, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Send encola msg sin bloquear.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close deja de aceptar mensajes y espera a que la cola se vacie o a que ctx expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := d.next.Send(ctx, msg)
		cancel()
		if err != nil {
			d.logger.Warn("email delivery failed",
				zap.Error(err),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
			)
			continue
		}
		d.logger.Debug("email delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
}
