package session

import (
	"context"
	"net/http"

	"github.com/FabienDubin/storypillow/internal/token"
)

// UserStore is the slice of the user repository the resolver needs: existence
// and the current password-change marker.
type UserStore interface {
	FindByID(ctx context.Context, id string) (UserRecord, bool, error)
}

// UserRecord is what the resolver cross-checks a token against.
type UserRecord struct {
	ID                string
	PasswordChangedAt string
}

// Resolver turns a request into a session payload. Session is decode-only;
// VerifiedSession additionally detects revocation against the live user
// record. Handlers performing privileged or user-scoped actions must use
// VerifiedSession.
type Resolver struct {
	codec *token.Codec
	users UserStore
}

func NewResolver(codec *token.Codec, users UserStore) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// Session reads the cookie and verifies signature and expiry. It does not
// consult the user store, so a token issued before a password change (or for
// a since-deleted user) still decodes here.
func (rv *Resolver) Session(r *http.Request) *token.Payload {
	tokenString := ReadCookie(r)
	if tokenString == "" {
		return nil
	}
	return rv.codec.Verify(tokenString)
}

// VerifiedSession is Session plus a store lookup: nil if the user no longer
// exists, or if the password was changed after the token was issued. An
// actual store failure propagates so callers answer 500, not 401.
func (rv *Resolver) VerifiedSession(ctx context.Context, r *http.Request) (*token.Payload, error) {
	payload := rv.Session(r)
	if payload == nil {
		return nil, nil
	}

	rec, found, err := rv.users.FindByID(ctx, payload.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if rec.PasswordChangedAt != payload.PasswordChangedAt {
		return nil, nil
	}

	return payload, nil
}
