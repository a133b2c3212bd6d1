// Package peer defines the identity of a remote endpoint as produced by
// the authentication upgrade (core/upgrade) and carried through the rest
// of the pipeline in core/builder.
package peer

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
)

// Size is the fixed length, in bytes, of an ID.
const Size = 32

// ErrEmptyPeerID is returned by Validate for the zero ID.
var ErrEmptyPeerID = errors.New("empty peer ID")

// ID is the 32-byte opaque identity of a remote peer, derived by the
// authentication upgrade (e.g. a hash of its static public key). The
// core never inspects its internal structure; equality, hashing (it's
// a plain comparable array, so it's usable as a map key directly) and
// a stable string form are all it needs to provide.
type ID [Size]byte

// Empty reports whether id is the zero value.
func (id ID) Empty() bool {
	return id == ID{}
}

// String renders the ID as a multihash, base58btc-encoded.
func (id ID) String() string {
	mh, err := multihash.Encode(id[:], multihash.SHA2_256)
	if err != nil {
		// multihash.Encode only fails on unknown codes or bad digest
		// lengths; SHA2_256 always accepts a 32-byte digest.
		panic(err)
	}
	return base58.Encode(mh)
}

// ShortString returns a truncated form suitable for logs, eliding the
// middle of the identifier.
func (id ID) ShortString() string {
	s := id.String()
	if len(s) <= 10 {
		return s
	}
	return s[:2] + "*" + s[len(s)-6:]
}

// Validate returns an error if id is the zero ID. The core never
// validates more than that: it does not know how IDs were derived.
func (id ID) Validate() error {
	if id.Empty() {
		return ErrEmptyPeerID
	}
	return nil
}

// FromBytes interprets b as a raw 32-byte digest. It does not decode a
// multihash; use Decode for that.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("peer: unexpected ID length %d, want %d", len(b), Size)
	}
	copy(id[:], b)
	return id, nil
}

// Decode parses the base58btc multihash form produced by String.
func Decode(s string) (ID, error) {
	var id ID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, err
	}
	dec, err := multihash.Decode(raw)
	if err != nil {
		return id, err
	}
	return FromBytes(dec.Digest)
}

// FromPublicKeyDigest derives an ID from the SHA2-256 digest of a
// static public key, the construction every concrete authentication
// upgrade (core/upgrade's consumed collaborator) is expected to use.
func FromPublicKeyDigest(digest [Size]byte) ID {
	return ID(digest)
}
