package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"accounts-api/internal/domain"
)

// TokenRepository persiste los tokens opacos de autenticacion.
type TokenRepository interface {
	GetByKey(ctx context.Context, key string) (domain.Token, error)
	// GetOrCreate devuelve el token existente del usuario o inserta candidate.
	// El bool indica si candidate fue insertado.
	GetOrCreate(ctx context.Context, candidate domain.Token) (domain.Token, bool, error)
}

type PgTokenRepository struct {
	db DBTX
}

func NewPgTokenRepository(db DBTX) *PgTokenRepository {
	return &PgTokenRepository{db: db}
}

const selectTokenByUser = `
	SELECT key, user_id, created_at
	FROM auth_tokens
	WHERE user_id = $1
`

func (r *PgTokenRepository) GetByKey(ctx context.Context, key string) (domain.Token, error) {
	const query = `
		SELECT key, user_id, created_at
		FROM auth_tokens
		WHERE key = $1
	`
	return scanToken(r.db.QueryRow(ctx, query, key))
}

func (r *PgTokenRepository) GetOrCreate(ctx context.Context, candidate domain.Token) (domain.Token, bool, error) {
	const insert = `
		INSERT INTO auth_tokens (key, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING key, user_id, created_at
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Token{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	token, err := scanToken(tx.QueryRow(ctx, selectTokenByUser, candidate.UserID))
	if err == nil {
		return token, false, tx.Commit(ctx)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Token{}, false, err
	}

	token, err = scanToken(tx.QueryRow(ctx, insert, candidate.Key, candidate.UserID, candidate.CreatedAt))
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return domain.Token{}, false, err
		}
		return token, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Token{}, false, err
	}

	// Otra request inserto entre el SELECT y el INSERT. Cada sentencia toma su
	// propio snapshot en READ COMMITTED, asi que esta lectura ve esa fila.
	token, err = scanToken(tx.QueryRow(ctx, selectTokenByUser, candidate.UserID))
	if err != nil {
		return domain.Token{}, false, err
	}
	return token, false, tx.Commit(ctx)
}

func scanToken(row pgx.Row) (domain.Token, error) {
	var t domain.Token
	if err := row.Scan(&t.Key, &t.UserID, &t.CreatedAt); err != nil {
		return domain.Token{}, err
	}
	return t, nil
}
