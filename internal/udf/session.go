package udf

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"colbridge/internal/domain"
)

// Session is the per-query context the introspection functions read.
type Session struct {
	User          string
	EffectiveUser string
	Database      string
	// Pid is the serving process id, or -1 when it could not be determined.
	Pid           int
	ServerVersion string
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// User returns the connected user, or nil when none was set.
func User(s Session) *string { return nonEmpty(s.User) }

// EffectiveUser returns the delegated user, or nil when none was set.
func EffectiveUser(s Session) *string { return nonEmpty(s.EffectiveUser) }

// CurrentDatabase returns the session database, or nil when none was set.
func CurrentDatabase(s Session) *string { return nonEmpty(s.Database) }

// Version returns the server version string.
func Version(s Session) string { return s.ServerVersion }

// Pid returns the serving process id, or nil when unknown.
func Pid(s Session) *int32 {
	if s.Pid <= 0 {
		return nil
	}
	pid := int32(s.Pid)
	return &pid
}

// Sleep blocks for ms milliseconds and reports true. A nil argument
// returns nil immediately; a cancelled context ends the sleep early.
func Sleep(ctx context.Context, ms *int32) (*bool, error) {
	if ms == nil {
		return nil, nil
	}
	if *ms > 0 {
		timer := time.NewTimer(time.Duration(*ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	ok := true
	return &ok, nil
}

// UUIDGenerator produces random UUIDs from its own entropy source. Each
// caller owns one; it is not safe for concurrent use.
type UUIDGenerator struct {
	rand   io.Reader
	closed bool
}

// NewUUIDGenerator prepares a generator reading from r, or from
// crypto/rand when r is nil.
func NewUUIDGenerator(r io.Reader) *UUIDGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &UUIDGenerator{rand: r}
}

// Next returns a new version 4 UUID in canonical form.
func (g *UUIDGenerator) Next() (string, error) {
	if g.closed {
		return "", domain.ErrValidation("uuid generator is closed")
	}
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}

// Close releases the generator. Next fails afterwards.
func (g *UUIDGenerator) Close() {
	g.closed = true
	g.rand = nil
}
