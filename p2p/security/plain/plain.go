// Package plain implements a minimal authentication Upgrade: each side
// sends an ed25519 public key plus a signature proving possession of
// the matching private key, and derives the remote's PeerId from it.
// It carries no confidentiality or integrity over the wire afterward;
// a deliberately small staged send/receive-then-verify handshake, with
// io buffering via libp2p/go-buffer-pool, that skips the full Noise/XX
// state machine a production encrypted channel would need.
package plain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	pool "github.com/libp2p/go-buffer-pool"

	"github.com/TheNoobiCat/go-airio/core/builder"
	"github.com/TheNoobiCat/go-airio/core/peer"
	"github.com/TheNoobiCat/go-airio/core/upgrade"
)

// ProtocolID is the multistream token this package negotiates under.
const ProtocolID = "/plain/1.0.0"

const nonceSize = 32

// ErrSignatureMismatch is returned when the remote's signature does
// not verify against the public key it presented.
var ErrSignatureMismatch = fmt.Errorf("plain: signature verification failed")

// Identity is a local ed25519 keypair and its derived PeerId.
type Identity struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	ID   peer.ID
}

// NewIdentity generates a fresh random Identity.
func NewIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return identityFromKey(priv, pub), nil
}

// NewIdentityFromSeed deterministically derives an Identity from a
// 32-byte seed, useful for tests that need stable peer IDs.
func NewIdentityFromSeed(seed []byte) *Identity {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return identityFromKey(priv, pub)
}

func identityFromKey(priv ed25519.PrivateKey, pub ed25519.PublicKey) *Identity {
	digest := sha256.Sum256(pub)
	return &Identity{Priv: priv, Pub: pub, ID: peer.FromPublicKeyDigest(digest)}
}

// Upgrade authenticates a raw io.ReadWriteCloser and produces
// builder.Authenticated[io.ReadWriteCloser].
type Upgrade struct {
	id *Identity
}

// NewUpgrade builds an Upgrade that authenticates as id.
func NewUpgrade(id *Identity) *Upgrade { return &Upgrade{id: id} }

var _ upgrade.Upgrade[io.ReadWriteCloser, builder.Authenticated[io.ReadWriteCloser]] = (*Upgrade)(nil)

func (u *Upgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{ProtocolID} }

func (u *Upgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (builder.Authenticated[io.ReadWriteCloser], error) {
	return u.handshake(ctx, stream)
}

func (u *Upgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (builder.Authenticated[io.ReadWriteCloser], error) {
	return u.handshake(ctx, stream)
}

// handshake is symmetric: both sides send then receive, so it runs the
// same steps regardless of dialer/listener role.
func (u *Upgrade) handshake(ctx context.Context, stream io.ReadWriteCloser) (builder.Authenticated[io.ReadWriteCloser], error) {
	var zero builder.Authenticated[io.ReadWriteCloser]

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return zero, fmt.Errorf("plain: generating nonce: %w", err)
	}

	type sendResult struct{ err error }
	sendCh := make(chan sendResult, 1)
	go func() {
		sendCh <- sendResult{writeFrame(stream, append(append([]byte{}, u.id.Pub...), nonce...))}
	}()

	remoteHello, err := readFrame(stream)
	if err != nil {
		return zero, fmt.Errorf("plain: reading hello: %w", err)
	}
	if len(remoteHello) != ed25519.PublicKeySize+nonceSize {
		return zero, fmt.Errorf("plain: malformed hello (%d bytes)", len(remoteHello))
	}
	remotePub := ed25519.PublicKey(remoteHello[:ed25519.PublicKeySize])
	remoteNonce := remoteHello[ed25519.PublicKeySize:]

	if r := <-sendCh; r.err != nil {
		return zero, fmt.Errorf("plain: sending hello: %w", r.err)
	}

	sig := ed25519.Sign(u.id.Priv, remoteNonce)
	sigSendCh := make(chan sendResult, 1)
	go func() {
		sigSendCh <- sendResult{writeFrame(stream, sig)}
	}()

	remoteSig, err := readFrame(stream)
	if err != nil {
		return zero, fmt.Errorf("plain: reading signature: %w", err)
	}
	if r := <-sigSendCh; r.err != nil {
		return zero, fmt.Errorf("plain: sending signature: %w", r.err)
	}

	if !ed25519.Verify(remotePub, nonce, remoteSig) {
		return zero, ErrSignatureMismatch
	}

	digest := sha256.Sum256(remotePub)
	remoteID := peer.FromPublicKeyDigest(digest)
	return builder.Authenticated[io.ReadWriteCloser]{Peer: remoteID, Conn: stream}, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	hbuf := pool.Get(2)
	defer pool.Put(hbuf)
	binary.BigEndian.PutUint16(hbuf, uint16(len(payload)))
	if _, err := w.Write(hbuf); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	hbuf := pool.Get(2)
	defer pool.Put(hbuf)
	if _, err := io.ReadFull(r, hbuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(hbuf)
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
