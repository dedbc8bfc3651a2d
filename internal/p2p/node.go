package p2p

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/log"
	"github.com/tristream-labs/tristream-chain/internal/security"
	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// heartbeatInterval is how often a node pings every connected peer with its
// current best height.
const heartbeatInterval = 15 * time.Second

// BlockHandler is invoked for every valid block received from a peer.
type BlockHandler func(from string, b *block.Block)

// TransactionHandler is invoked for every valid transaction received from a peer.
type TransactionHandler func(from string, t *tx.Transaction)

// HeightProvider supplies this node's current best block height, advertised
// in handshakes and heartbeats.
type HeightProvider func() uint64

// Config configures a Node.
type Config struct {
	ListenAddr  string // host:port to listen on
	GenesisHash types.Hash
	NetworkID   string
	Identity    *crypto.PrivateKey
	MaxPeers    int

	OnBlock       BlockHandler
	OnTransaction TransactionHandler
	Height        HeightProvider
}

// Node is a TriStream P2P node: it listens for inbound connections, dials
// configured peers, authenticates every message with Ed25519, and relays
// blocks and transactions to the handlers the caller installed.
type Node struct {
	cfg        Config
	listener   net.Listener
	banManager *BanManager
	peerStore  *PeerStore
	hardening  *security.Hardening

	mu    sync.RWMutex
	peers map[string]*Peer

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Node. Call Listen to start accepting connections. hardening
// may be nil, in which case connection-rate gating is skipped and only
// banManager's offense-score bans apply (spec supplement: DoS hardening).
func New(cfg Config, banManager *BanManager, peerStore *PeerStore, hardening *security.Hardening) *Node {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = 50
	}
	return &Node{
		cfg:        cfg,
		banManager: banManager,
		peerStore:  peerStore,
		hardening:  hardening,
		peers:      make(map[string]*Peer),
		stopCh:     make(chan struct{}),
	}
}

// Listen starts accepting inbound connections on cfg.ListenAddr.
func (n *Node) Listen() error {
	ln, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.cfg.ListenAddr, err)
	}
	n.listener = ln
	n.wg.Add(1)
	go n.acceptLoop()
	n.wg.Add(1)
	go n.heartbeatLoop()
	log.P2P.Info().Str("addr", n.cfg.ListenAddr).Msg("p2p listener started")
	return nil
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.stopCh:
				return
			default:
				log.P2P.Warn().Err(err).Msg("accept failed")
				return
			}
		}
		n.wg.Add(1)
		go n.handleInbound(conn)
	}
}

func (n *Node) handleInbound(conn net.Conn) {
	defer n.wg.Done()
	addr := conn.RemoteAddr().String()

	if n.banManager != nil && n.banManager.IsBanned(addr) {
		conn.Close()
		return
	}
	if n.hardening != nil {
		if err := n.hardening.CheckAddr(addr); err != nil {
			log.P2P.Debug().Err(err).Str("peer", addr).Msg("connection rejected by hardening gate")
			conn.Close()
			return
		}
	}
	if n.PeerCount() >= n.cfg.MaxPeers {
		conn.Close()
		return
	}

	peer, err := n.inboundHandshake(conn, addr)
	if err != nil {
		log.P2P.Debug().Err(err).Str("peer", addr).Msg("inbound handshake failed")
		conn.Close()
		return
	}

	n.registerPeer(peer)
	n.readLoop(peer)
}

// Dial connects to a peer at addr and performs an outbound handshake.
func (n *Node) Dial(addr string) error {
	if n.banManager != nil && n.banManager.IsBanned(addr) {
		return ErrPeerBanned
	}
	if n.PeerCount() >= n.cfg.MaxPeers {
		return ErrTooManyPeers
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	peer, err := n.outboundHandshake(conn, addr)
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake with %s: %w", addr, err)
	}

	n.registerPeer(peer)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.readLoop(peer)
	}()

	if n.peerStore != nil {
		n.peerStore.Save(PeerRecord{Addr: addr, LastSeen: time.Now().Unix(), Source: "seed"})
	}
	return nil
}

func (n *Node) registerPeer(p *Peer) {
	n.mu.Lock()
	n.peers[p.Addr] = p
	n.mu.Unlock()
	log.P2P.Info().Str("peer", p.Addr).Bool("outbound", p.outbound).Msg("peer connected")
}

// DisconnectPeer closes and removes the connection to addr, satisfying
// Disconnector for BanManager.
func (n *Node) DisconnectPeer(addr string) {
	n.mu.Lock()
	p, ok := n.peers[addr]
	delete(n.peers, addr)
	n.mu.Unlock()
	if ok {
		p.Close()
	}
}

// PeerCount returns the number of currently connected peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// Peers returns the addresses of all currently connected peers.
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.peers))
	for addr := range n.peers {
		out = append(out, addr)
	}
	return out
}

func (n *Node) readLoop(p *Peer) {
	defer n.DisconnectPeer(p.Addr)

	for {
		select {
		case <-n.stopCh:
			return
		case <-p.done:
			return
		default:
		}

		msg, err := readFrameWithDeadline(p.conn)
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) && n.banManager != nil {
				n.banManager.RecordOffense(p.Addr, PenaltyInvalidBlock, err.Error())
			}
			if !errors.Is(err, net.ErrClosed) {
				log.P2P.Debug().Err(err).Str("peer", p.Addr).Msg("read failed")
			}
			return
		}

		if err := msg.Verify(time.Now()); err != nil {
			log.P2P.Warn().Err(err).Str("peer", p.Addr).Msg("rejecting malformed message")
			if n.banManager != nil {
				n.banManager.RecordOffense(p.Addr, PenaltyInvalidBlock, err.Error())
			}
			return
		}

		n.dispatch(p, msg)
	}
}

func (n *Node) dispatch(p *Peer, msg *AuthenticatedMessage) {
	switch msg.Kind {
	case KindHeartbeat:
		hb, err := DecodeHeartbeat(msg.Payload)
		if err != nil {
			return
		}
		p.touch(hb.BestHeight)

	case KindBlock:
		bp, err := DecodeBlock(msg.Payload)
		if err != nil || bp.Block == nil {
			if n.banManager != nil {
				n.banManager.RecordOffense(p.Addr, PenaltyInvalidBlock, "malformed block payload")
			}
			return
		}
		if n.cfg.OnBlock != nil {
			n.cfg.OnBlock(p.Addr, bp.Block)
		}

	case KindTransaction:
		tp, err := DecodeTransaction(msg.Payload)
		if err != nil || tp.Tx == nil {
			if n.banManager != nil {
				n.banManager.RecordOffense(p.Addr, PenaltyInvalidTx, "malformed transaction payload")
			}
			return
		}
		if n.cfg.OnTransaction != nil {
			n.cfg.OnTransaction(p.Addr, tp.Tx)
		}

	default:
		// GetBlocks and unrecognized kinds: no-op until sync is wired up.
	}
}

// BroadcastBlock sends a block to every connected peer, skipping (and
// logging, not failing) any peer whose send fails.
func (n *Node) BroadcastBlock(b *block.Block) error {
	payload, err := EncodePayload(BlockPayload{Block: b})
	if err != nil {
		return fmt.Errorf("encode block payload: %w", err)
	}
	return n.broadcast(KindBlock, payload)
}

// BroadcastTransaction sends a transaction to every connected peer.
func (n *Node) BroadcastTransaction(t *tx.Transaction) error {
	payload, err := EncodePayload(TransactionPayload{Tx: t})
	if err != nil {
		return fmt.Errorf("encode transaction payload: %w", err)
	}
	return n.broadcast(KindTransaction, payload)
}

// Broadcast satisfies internal/committer.Broadcaster.
func (n *Node) Broadcast(b *block.Block) error {
	return n.BroadcastBlock(b)
}

func (n *Node) broadcast(kind MessageKind, payload []byte) error {
	msg := &AuthenticatedMessage{Kind: kind, Payload: payload}
	if err := msg.Sign(n.cfg.Identity, time.Now()); err != nil {
		return err
	}

	n.mu.RLock()
	peers := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.mu.RUnlock()

	// One send goroutine per peer, so a slow peer does not delay the others
	// or the caller.
	for _, p := range peers {
		go func(p *Peer) {
			if err := p.Send(msg); err != nil {
				log.P2P.Debug().Err(err).Str("peer", p.Addr).Msg("broadcast send failed")
			}
		}(p)
	}
	return nil
}

func (n *Node) heartbeatLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.sendHeartbeats()
		}
	}
}

func (n *Node) sendHeartbeats() {
	height := uint64(0)
	if n.cfg.Height != nil {
		height = n.cfg.Height()
	}
	payload, err := EncodePayload(HeartbeatPayload{BestHeight: height, Timestamp: time.Now().Unix()})
	if err != nil {
		return
	}
	n.broadcast(KindHeartbeat, payload)
}

// Shutdown stops accepting new connections and closes every peer
// connection. Safe to call more than once.
func (n *Node) Shutdown() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
		if n.listener != nil {
			n.listener.Close()
		}
		n.mu.Lock()
		for addr, p := range n.peers {
			p.Close()
			delete(n.peers, addr)
		}
		n.mu.Unlock()
	})
	n.wg.Wait()
}
