package model

import "time"

// User represents an account record as stored in the `users` table. The
// email is the identity used everywhere else in the room.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session models an entry in the `sessions` table. Each login issues a
// signed cookie token carrying a random session id; only the SHA-256 hash
// of that id is stored so a leaked table cannot be replayed.
//
// Fields:
//
//	ID        – primary key identifier.
//	Email     – owner of the session.
//	IDHash    – SHA-256 hex digest of the session id.
//	ExpiresAt – expiration timestamp.
//	RevokedAt – when the session was logged out (nil while active).
//	CreatedAt – timestamp of creation.
type Session struct {
	ID        uint64
	Email     string
	IDHash    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
