package p2p

import (
	"fmt"
	"net"
	"time"
)

// handshakeTimeout bounds the entire handshake exchange.
const handshakeTimeout = 10 * time.Second

func (n *Node) buildHandshake() HandshakePayload {
	height := uint64(0)
	if n.cfg.Height != nil {
		height = n.cfg.Height()
	}
	return HandshakePayload{
		ProtocolVersion: ProtocolVersion,
		GenesisHash:     n.cfg.GenesisHash,
		NetworkID:       n.cfg.NetworkID,
		BestHeight:      height,
		ListenPort:      0,
	}
}

func (n *Node) validateHandshake(peerHandshake *HandshakePayload) error {
	if peerHandshake.GenesisHash != n.cfg.GenesisHash {
		return fmt.Errorf("%w: peer=%s local=%s", ErrGenesisMismatch,
			peerHandshake.GenesisHash.String(), n.cfg.GenesisHash.String())
	}
	if peerHandshake.ProtocolVersion < MinProtocolVersion {
		return fmt.Errorf("%w: peer=%d min=%d", ErrProtocolTooOld,
			peerHandshake.ProtocolVersion, MinProtocolVersion)
	}
	return nil
}

func (n *Node) sendHandshake(conn net.Conn) error {
	payload, err := EncodePayload(n.buildHandshake())
	if err != nil {
		return fmt.Errorf("encode handshake: %w", err)
	}
	msg := &AuthenticatedMessage{Kind: KindHandshake, Payload: payload}
	if err := msg.Sign(n.cfg.Identity, time.Now()); err != nil {
		return fmt.Errorf("sign handshake: %w", err)
	}
	return writeFrameWithDeadline(conn, msg)
}

func (n *Node) receiveHandshake(conn net.Conn) (*HandshakePayload, []byte, error) {
	msg, err := readFrameWithDeadline(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("read handshake: %w", err)
	}
	if msg.Kind != KindHandshake {
		return nil, nil, fmt.Errorf("%w: expected handshake, got %s", ErrMalformedMessage, msg.Kind)
	}
	if err := msg.Verify(time.Now()); err != nil {
		return nil, nil, err
	}
	peerHandshake, err := DecodeHandshake(msg.Payload)
	if err != nil {
		return nil, nil, err
	}
	if err := n.validateHandshake(peerHandshake); err != nil {
		return nil, nil, err
	}
	return peerHandshake, msg.PublicKey, nil
}

// outboundHandshake performs the dialer side of the handshake: send first,
// then read the peer's reply.
func (n *Node) outboundHandshake(conn net.Conn, addr string) (*Peer, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	if err := n.sendHandshake(conn); err != nil {
		return nil, err
	}
	peerHandshake, pubKey, err := n.receiveHandshake(conn)
	if err != nil {
		if n.banManager != nil {
			n.banManager.RecordOffense(addr, PenaltyHandshakeFail, err.Error())
		}
		return nil, err
	}

	p := newPeer(addr, conn, pubKey, true)
	p.touch(peerHandshake.BestHeight)
	return p, nil
}

// inboundHandshake performs the listener side of the handshake: read
// first, then reply.
func (n *Node) inboundHandshake(conn net.Conn, addr string) (*Peer, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	peerHandshake, pubKey, err := n.receiveHandshake(conn)
	if err != nil {
		if n.banManager != nil {
			n.banManager.RecordOffense(addr, PenaltyHandshakeFail, err.Error())
		}
		return nil, err
	}
	if err := n.sendHandshake(conn); err != nil {
		return nil, err
	}

	p := newPeer(addr, conn, pubKey, false)
	p.touch(peerHandshake.BestHeight)
	return p, nil
}
