// Package snap frames cache snapshots for export/import.
// Envelope: magic(4) | ver(1) | plen(u32 be) | payload(plen), payload is a
// CBOR-encoded entry list. Trailing bytes are rejected.
package snap

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/fxamacker/cbor/v2"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("snap: corrupt snapshot")
	magic4     = [...]byte{'P', 'G', 'S', 'N'}
)

// Entry is one exported page.
type Entry struct {
	Page      string `cbor:"page"`
	Content   string `cbor:"content"`
	WrittenAt int64  `cbor:"written_at"` // epoch millis; 0 => no usable stamp
}

func Encode(entries []Entry) ([]byte, error) {
	payload, err := cbor.Marshal(entries)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 4 + len(payload))
	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

func Decode(b []byte) ([]Entry, error) {
	const hdr = 4 + 1 + 4
	if len(b) < hdr || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return nil, ErrCorrupt
	}
	plen := int(binary.BigEndian.Uint32(b[5:9]))
	if plen < 0 || plen != len(b)-hdr {
		return nil, ErrCorrupt
	}
	var entries []Entry
	if err := cbor.Unmarshal(b[hdr:], &entries); err != nil {
		return nil, ErrCorrupt
	}
	return entries, nil
}
