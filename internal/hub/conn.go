package hub

import "github.com/google/uuid"

// Writer is the outbound half of a live client connection. Implementations
// must be safe for concurrent use; pushes happen from other users' handlers.
type Writer interface {
	Write(message []byte) error
	Close() error
}

// Conn is one live transport session. A user with two tabs open holds two
// Conns under the same username.
type Conn struct {
	ID       string
	Username string
	Writer   Writer
}

func NewConn(username string, w Writer) *Conn {
	return &Conn{ID: uuid.NewString(), Username: username, Writer: w}
}
