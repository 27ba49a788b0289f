package storage

import (
	"encoding"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// SessionRecord is the persisted authenticated session: who we are and the
// bearer token the server issued. There is at most one of these; the client
// holds a single identity at a time.
type SessionRecord struct {
	UserID   int64  `msgpack:"userId"`
	Username string `msgpack:"username"`
	Email    string `msgpack:"email"`
	FullName string `msgpack:"fullName"`
	Avatar   string `msgpack:"avatar"`
	Token    string `msgpack:"token"`
	SavedAt  int64  `msgpack:"savedAt"`
}

func (r *SessionRecord) Key() []byte {
	return []byte("current")
}

func (r *SessionRecord) MarshalBinary() (data []byte, err error) {
	type alias SessionRecord
	return msgpack.Marshal((*alias)(r))
}

func (r *SessionRecord) UnmarshalBinary(data []byte) error {
	type alias SessionRecord
	return msgpack.Unmarshal(data, (*alias)(r))
}
