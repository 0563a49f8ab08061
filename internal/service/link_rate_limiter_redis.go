package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// El PTTL cubre claves que quedaron sin expiracion (p. ej. un PEXPIRE perdido).
const redisLinkBudgetScript = `
local sent = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return sent
`

const redisLinkTimeout = 500 * time.Millisecond

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisLinkRateLimiter comparte los presupuestos entre instancias de la API.
type redisLinkRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisLinkRateLimiter devuelve nil si no hay cliente.
func NewRedisLinkRateLimiter(client *redis.Client, window time.Duration, max int) LinkRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLinkRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "accounts:links:",
	}
}

// Allow deja pasar el envio si Redis falla; el limite es una proteccion
// contra abuso, no una condicion para enviar.
func (l *redisLinkRateLimiter) Allow(ctx context.Context, kind LinkKind, emailAddr string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key := linkBudgetKey(kind, emailAddr)
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, redisLinkTimeout)
	defer cancel()

	sent, err := l.client.Eval(ctx, redisLinkBudgetScript, []string{l.prefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		return true
	}
	return sent <= l.max
}
