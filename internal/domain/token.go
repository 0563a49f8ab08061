package domain

import "time"

// Token es la clave opaca de autenticacion; hay a lo sumo una por usuario.
type Token struct {
	Key       string    `json:"key"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DateParts descompone un timestamp como lo consume el frontend.
type DateParts struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Time  string `json:"time"`
}

func NewDateParts(t time.Time) DateParts {
	t = t.UTC()
	return DateParts{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
		Time:  t.Format("15:04:05"),
	}
}

// TokenPayload es la respuesta de login y de verificacion de token.
type TokenPayload struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateJoined  DateParts `json:"date_joined"`
	DateUpdated DateParts `json:"date_updated"`
}

func NewTokenPayload(token Token, user User) TokenPayload {
	return TokenPayload{
		Token:       token.Key,
		UserID:      user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		DateJoined:  NewDateParts(user.DateJoined),
		DateUpdated: NewDateParts(user.DateUpdated),
	}
}
