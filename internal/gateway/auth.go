package gateway

import (
	"errors"
	"net/http"
)

// ErrUnauthenticated indicates the request carried no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator yields a stable player identity per request. Real
// credential handling lives in an external service; the gateway only
// needs the identity it resolved.
type Authenticator interface {
	Authenticate(r *http.Request) (playerID string, err error)
}

// HeaderAuth trusts a player identity header set by an upstream
// authentication proxy.
type HeaderAuth struct {
	Header string
}

func (a *HeaderAuth) Authenticate(r *http.Request) (string, error) {
	id := r.Header.Get(a.Header)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
