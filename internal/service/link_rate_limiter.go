package service

import (
	"context"
	"sync"
	"time"
)

// LinkKind identifica el tipo de link enviado por email. Cada tipo tiene su
// propio presupuesto por direccion.
type LinkKind string

const (
	LinkVerification  LinkKind = "verify"
	LinkPasswordReset LinkKind = "reset"
)

// LinkRateLimiter limita cuantos links de un tipo se envian a una direccion
// dentro de una ventana fija.
type LinkRateLimiter interface {
	Allow(ctx context.Context, kind LinkKind, emailAddr string) bool
}

// linkBudgetKey devuelve "" cuando el email no es utilizable.
func linkBudgetKey(kind LinkKind, emailAddr string) string {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ""
	}
	return string(kind) + ":" + emailAddr
}

type linkBudget struct {
	sent    int
	resetAt time.Time
}

// memoryLinkRateLimiter es el respaldo de un solo proceso cuando no hay Redis.
// Usa la misma ventana fija que el limiter de Redis.
type memoryLinkRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	budgets   map[string]*linkBudget
	nextSweep time.Time
	now       func() time.Time
}

// NewLinkRateLimiter crea un limiter en memoria.
func NewLinkRateLimiter(window time.Duration, max int) LinkRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryLinkRateLimiter{
		window:  window,
		max:     max,
		budgets: make(map[string]*linkBudget),
		now:     time.Now,
	}
}

func (l *memoryLinkRateLimiter) Allow(_ context.Context, kind LinkKind, emailAddr string) bool {
	key := linkBudgetKey(kind, emailAddr)
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}

	budget, ok := l.budgets[key]
	if !ok || !now.Before(budget.resetAt) {
		budget = &linkBudget{resetAt: now.Add(l.window)}
		l.budgets[key] = budget
	}
	if budget.sent >= l.max {
		return false
	}
	budget.sent++
	return true
}

// sweep descarta los presupuestos vencidos; las direcciones las elige el
// cliente, asi que el mapa no puede crecer sin limite.
func (l *memoryLinkRateLimiter) sweep(now time.Time) {
	for key, budget := range l.budgets {
		if !now.Before(budget.resetAt) {
			delete(l.budgets, key)
		}
	}
	l.nextSweep = now.Add(l.window)
}
