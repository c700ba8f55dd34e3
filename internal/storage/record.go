package storage

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Op names a journaled mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpload Op = "upload"
	OpRename Op = "rename"
	OpDelete Op = "delete"
	OpRekey  Op = "rekey"
)

// Record is one completed mutation. The journal is history only; the store
// directory stays authoritative for what exists.
type Record struct {
	Seq       uint64    `msgpack:"seq"`
	Op        Op        `msgpack:"op"`
	Name      string    `msgpack:"name"`
	NewName   string    `msgpack:"newName,omitempty"`
	Size      int64     `msgpack:"size"` // bytes on disk, header included when encrypted
	Encrypted bool      `msgpack:"encrypted"`
	MimeType  string    `msgpack:"mimeType,omitempty"` // plaintext files only
	At        time.Time `msgpack:"at"`
}

func (r *Record) MarshalBinary() (data []byte, err error) {
	type alias Record
	return msgpack.Marshal((*alias)(r))
}

func (r *Record) UnmarshalBinary(data []byte) error {
	type alias Record
	return msgpack.Unmarshal(data, (*alias)(r))
}

// Touches reports whether the record involves name on either side.
func (r *Record) Touches(name string) bool {
	return r.Name == name || r.NewName == name
}
