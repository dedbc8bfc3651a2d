package p2p

import (
	"net"
	"sync"
	"time"
)

// Peer is an active authenticated connection to another node.
type Peer struct {
	Addr       string
	PublicKey  []byte
	conn       net.Conn
	writeMu    sync.Mutex
	bestHeight uint64
	lastSeen   time.Time
	outbound   bool
	closeOnce  sync.Once
	done       chan struct{}
}

func newPeer(addr string, conn net.Conn, pubKey []byte, outbound bool) *Peer {
	return &Peer{
		Addr:      addr,
		PublicKey: pubKey,
		conn:      conn,
		outbound:  outbound,
		lastSeen:  time.Now(),
		done:      make(chan struct{}),
	}
}

// Send writes a message to the peer, serializing concurrent writers.
func (p *Peer) Send(msg *AuthenticatedMessage) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return writeFrameWithDeadline(p.conn, msg)
}

// BestHeight returns the last height the peer advertised.
func (p *Peer) BestHeight() uint64 {
	return p.bestHeight
}

func (p *Peer) touch(height uint64) {
	p.bestHeight = height
	p.lastSeen = time.Now()
}

// Close closes the underlying connection. Safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}
