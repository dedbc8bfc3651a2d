package p2p

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// frameWire is the on-wire representation of an AuthenticatedMessage:
// JSON for the struct itself (its byte-level signing bytes are already
// canonical; the envelope's own encoding need not be hand-rolled), prefixed
// by a 4-byte big-endian length so the reader knows exactly how much to
// buffer before decoding.
type frameWire struct {
	Kind      MessageKind
	Payload   []byte
	Timestamp int64
	PublicKey []byte
	Signature []byte
}

// writeFrame writes one length-prefixed AuthenticatedMessage to w.
func writeFrame(w io.Writer, msg *AuthenticatedMessage) error {
	data, err := json.Marshal(frameWire{
		Kind:      msg.Kind,
		Payload:   msg.Payload,
		Timestamp: msg.Timestamp,
		PublicKey: msg.PublicKey,
		Signature: msg.Signature,
	})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(data) > MaxMessageSize {
		return ErrFrameTooLarge
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed AuthenticatedMessage from r.
func readFrame(r io.Reader) (*AuthenticatedMessage, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	if size > MaxMessageSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	var w frameWire
	if err := json.Unmarshal(buf, &w); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &AuthenticatedMessage{
		Kind:      w.Kind,
		Payload:   w.Payload,
		Timestamp: w.Timestamp,
		PublicKey: w.PublicKey,
		Signature: w.Signature,
	}, nil
}

// readTimeout bounds how long a single frame read may block, so a slow or
// silent peer cannot pin a goroutine forever.
const readTimeout = 30 * time.Second

// readFrameWithDeadline reads one frame, applying readTimeout to the
// underlying connection.
func readFrameWithDeadline(conn net.Conn) (*AuthenticatedMessage, error) {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, err
	}
	return readFrame(conn)
}

// writeTimeout bounds how long a single frame write may block.
const writeTimeout = 10 * time.Second

func writeFrameWithDeadline(conn net.Conn, msg *AuthenticatedMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return writeFrame(conn, msg)
}
