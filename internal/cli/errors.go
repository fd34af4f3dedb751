package cli

import (
	"errors"
	"fmt"
)

var errNotSignedIn = errors.New("not signed in; run `teamboard login`")

type notFoundError struct {
	kind string
	id   int64
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int64) error {
	return notFoundError{kind: kind, id: id}
}

// loginError carries the handshake's failure description.
type loginError struct{ msg string }

func (e loginError) Error() string { return "login failed: " + e.msg }
