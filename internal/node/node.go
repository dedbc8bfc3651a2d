// Package node wires together every subsystem — state, DAG, pool, mining,
// committer, P2P, and sharding — into a single embeddable blockchain node
// (spec §4, §9).
package node

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/config"
	"github.com/tristream-labs/tristream-chain/internal/committer"
	"github.com/tristream-labs/tristream-chain/internal/dag"
	"github.com/tristream-labs/tristream-chain/internal/fairness"
	klog "github.com/tristream-labs/tristream-chain/internal/log"
	"github.com/tristream-labs/tristream-chain/internal/mining"
	"github.com/tristream-labs/tristream-chain/internal/ordering"
	"github.com/tristream-labs/tristream-chain/internal/p2p"
	"github.com/tristream-labs/tristream-chain/internal/pool"
	"github.com/tristream-labs/tristream-chain/internal/reputation"
	"github.com/tristream-labs/tristream-chain/internal/security"
	"github.com/tristream-labs/tristream-chain/internal/sharding"
	"github.com/tristream-labs/tristream-chain/internal/state"
	"github.com/tristream-labs/tristream-chain/internal/storage"
	"github.com/tristream-labs/tristream-chain/internal/wallet"
	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
	"github.com/rs/zerolog"
)

// DAGWindowSeconds bounds the rolling window Snapshot uses for TPS and
// fork-rate statistics.
const DAGWindowSeconds = 60

// Node is a fully-initialized TriStream node. New performs all setup
// (logger, storage, DAG replay, pool, mining engine, committer, P2P) but
// starts no background goroutines; call Start for that.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	identity *crypto.PrivateKey

	stateDB storage.DB
	backend state.Backend
	dagDB   storage.DB
	dagStore *dag.Store

	pool      *pool.Pool
	wallets   *wallet.Registry
	engine    *mining.Engine
	committer *committer.Committer

	reputation *reputation.Manager
	forensics  *security.ForensicAnalyzer
	hardening  *security.Hardening
	policies   *security.PolicyManager
	batches    *tx.BatchManager

	peerstoreDB storage.DB
	banManager  *p2p.BanManager
	peerStore   *p2p.PeerStore
	p2pNode     *p2p.Node

	coordinator *sharding.Coordinator
	shards      map[int]sharding.ShardParticipant

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Node from cfg: it opens storage, replays any persisted
// blocks into the DAG, and wires the mining engine, committer, P2P node
// and (if enabled) sharding coordinator together. It does not start
// mining or networking; call Start for that.
func New(cfg *config.Config) (*Node, error) {
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("prepare data directories: %w", err)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = cfg.LogsDir() + "/tristream.log"
	}
	if err := klog.Init(cfg.LogLevel, cfg.LogJSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	genesis := config.GenesisFor(cfg.Network)
	genesisHash, err := genesis.Hash()
	if err != nil {
		return nil, fmt.Errorf("compute genesis hash: %w", err)
	}
	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", cfg.Network.String()).
		Msg("starting TriStream node")

	identity, err := loadOrCreateIdentity(cfg.IdentityFile())
	if err != nil {
		return nil, fmt.Errorf("load node identity: %w", err)
	}

	stateDB, err := storage.NewBadger(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open state db at %s: %w", cfg.StateDir(), err)
	}
	backend := state.NewDurable(stateDB)

	dagDB, err := storage.NewBadger(cfg.DAGDir())
	if err != nil {
		stateDB.Close()
		return nil, fmt.Errorf("open dag db at %s: %w", cfg.DAGDir(), err)
	}

	dagStore, fresh, err := replayOrInitDAG(backend, genesis)
	if err != nil {
		stateDB.Close()
		dagDB.Close()
		return nil, fmt.Errorf("initialize dag: %w", err)
	}

	if fresh {
		if err := applyGenesisAllocations(backend, genesis); err != nil {
			stateDB.Close()
			dagDB.Close()
			return nil, fmt.Errorf("apply genesis allocations: %w", err)
		}
		if err := backend.PutBlock(genesis.Block()); err != nil {
			stateDB.Close()
			dagDB.Close()
			return nil, fmt.Errorf("persist genesis block: %w", err)
		}
	}

	txPool := pool.New(pool.MaxSize)
	wallets := wallet.NewRegistry()

	minerAddr := cfg.MinerAddress
	engine := mining.New(txPool, dagStore, 64)

	repMgr := reputation.NewManager()
	forensics := security.NewForensicAnalyzer()
	hardening := security.NewHardening(security.DefaultHardeningConfig())
	policies := security.NewPolicyManager(repMgr, forensics)
	batches := tx.NewBatchManager()

	n := &Node{
		cfg:        cfg,
		genesis:    genesis,
		logger:     logger,
		identity:   identity,
		stateDB:    stateDB,
		backend:    backend,
		dagDB:      dagDB,
		dagStore:   dagStore,
		pool:       txPool,
		wallets:    wallets,
		engine:     engine,
		reputation: repMgr,
		forensics:  forensics,
		hardening:  hardening,
		policies:   policies,
		batches:    batches,
	}

	var opts []committer.Option
	opts = append(opts, committer.WithClock(time.Now))
	opts = append(opts, committer.WithReputationTracker(repMgr))
	opts = append(opts, committer.WithForensicsIndexer(forensics))
	opts = append(opts, committer.WithPolicyEvaluator(policies))

	peerstoreDB, err := storage.NewBadger(cfg.PeerstoreDir())
	if err != nil {
		n.closeStorage()
		return nil, fmt.Errorf("open peerstore db at %s: %w", cfg.PeerstoreDir(), err)
	}
	n.peerstoreDB = peerstoreDB
	n.peerStore = p2p.NewPeerStore(peerstoreDB)
	n.banManager = p2p.NewBanManager(p2p.NewBanStore(peerstoreDB), nil)
	n.banManager.LoadBans()

	n.p2pNode = p2p.New(p2p.Config{
		ListenAddr:    fmt.Sprintf(":%d", cfg.ListenPort),
		GenesisHash:   genesisHash,
		NetworkID:     genesis.ChainID,
		Identity:      identity,
		MaxPeers:      cfg.MaxPeers,
		OnBlock:       n.handleInboundBlock,
		OnTransaction: n.handleInboundTransaction,
		Height:        func() uint64 { return uint64(n.dagStore.Len()) },
	}, n.banManager, n.peerStore, n.hardening)
	n.banManager.SetDisconnector(n.p2pNode)
	opts = append(opts, committer.WithBroadcaster(n.p2pNode))

	n.committer = committer.New(dagStore, backend, wallets, minerAddr, opts...)

	if cfg.EnableSharding {
		if err := n.initSharding(); err != nil {
			n.closeStorage()
			return nil, fmt.Errorf("initialize sharding: %w", err)
		}
	}

	return n, nil
}

// initSharding creates one ShardParticipant per configured shard, all
// backed by this node's own state backend: a real deployment would give
// each shard its own backend/process, but a single-node TriStream instance
// demonstrates the two-phase commit protocol against its own state split
// logically by address routing (spec §9 sharding supplement).
func (n *Node) initSharding() error {
	shards := make(map[int]sharding.ShardParticipant, n.cfg.ShardCount)
	for i := 0; i < n.cfg.ShardCount; i++ {
		shards[i] = sharding.NewStateShard(n.backend)
	}
	n.shards = shards
	n.coordinator = sharding.New(shards, n.cfg.CrossShardAbortTimeout)
	n.logger.Info().Int("shards", n.cfg.ShardCount).Dur("abort_timeout", n.cfg.CrossShardAbortTimeout).
		Msg("cross-shard coordinator ready")
	return nil
}

// replayOrInitDAG rebuilds the in-memory GhostDAG store from persisted
// blocks, or seeds it with the genesis block on a fresh data directory.
// fresh reports whether this is a brand new data directory (no blocks were
// ever persisted), which the caller uses to decide whether to apply genesis
// allocations — they must run exactly once, ever, per data directory.
func replayOrInitDAG(backend state.Backend, genesis *config.Genesis) (store *dag.Store, fresh bool, err error) {
	const ghostdagK = 18

	var stored []*block.Block
	db, ok := backend.(*state.DurableBackend)
	if ok {
		if err := db.ForEachBlock(func(b *block.Block) error {
			stored = append(stored, b)
			return nil
		}); err != nil {
			return nil, false, fmt.Errorf("enumerate stored blocks: %w", err)
		}
	}

	store = dag.New(ghostdagK)

	if len(stored) == 0 {
		if _, err := store.Add(genesis.Block()); err != nil {
			return nil, false, fmt.Errorf("seed genesis block: %w", err)
		}
		return store, true, nil
	}

	sort.Slice(stored, func(i, j int) bool {
		return stored[i].Header.BlockNumber < stored[j].Header.BlockNumber
	})
	for _, b := range stored {
		if _, err := store.Add(b); err != nil {
			return nil, false, fmt.Errorf("replay block %s: %w", b.Hash, err)
		}
	}
	return store, false, nil
}

// applyGenesisAllocations credits every address in the genesis alloc table.
func applyGenesisAllocations(backend state.Backend, genesis *config.Genesis) error {
	balances, err := genesis.AllocBalances()
	if err != nil {
		return err
	}
	for addr, amount := range balances {
		if err := backend.SetBalance(addr, amount); err != nil {
			return fmt.Errorf("credit genesis allocation for %s: %w", addr.String(), err)
		}
	}
	return nil
}

// Start launches the committer, mining engine (if enabled), and P2P node.
func (n *Node) Start() error {
	n.ctx, n.cancel = context.WithCancel(context.Background())

	if err := n.p2pNode.Listen(); err != nil {
		return fmt.Errorf("start p2p listener: %w", err)
	}
	n.dialSeeds()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.committer.Run(n.ctx, n.engine.Submissions())
	}()

	if n.cfg.Mine {
		policy, err := ordering.ParsePolicy(n.cfg.OrderingPolicy)
		if err != nil {
			return fmt.Errorf("resolve ordering policy: %w", err)
		}
		n.engine.Start(policy)
		n.logger.Info().Str("policy", policy.String()).Msg("mining engine started")
	}

	return nil
}

func (n *Node) dialSeeds() {
	for _, addr := range n.cfg.Seeds {
		go func(addr string) {
			if err := n.p2pNode.Dial(addr); err != nil {
				n.logger.Warn().Err(err).Str("seed", addr).Msg("failed to dial seed")
			}
		}(addr)
	}
}

func (n *Node) handleInboundBlock(from string, b *block.Block) {
	reward := mining.RewardForStream(b.Header.StreamType)
	if _, err := n.committer.Commit(b, reward); err != nil {
		n.logger.Debug().Err(err).Str("peer", from).Str("block", b.Hash.String()).Msg("rejected inbound block")
		n.banManager.RecordOffense(from, p2p.PenaltyInvalidBlock, err.Error())
	}
}

func (n *Node) handleInboundTransaction(from string, t *tx.Transaction) {
	vctx := tx.ValidationContext{
		CurrentBlock:     uint64(n.dagStore.Len()),
		CurrentTimestamp: time.Now().Unix(),
		State:            n.backend,
		Wallets:          n.wallets,
	}
	if err := tx.Validate(t, vctx); err != nil {
		n.logger.Debug().Err(err).Str("peer", from).Str("tx", t.Hash.String()).Msg("rejected inbound transaction")
		n.banManager.RecordOffense(from, p2p.PenaltyInvalidTx, err.Error())
		return
	}
	n.pool.Push(t)
}

// SubmitTransaction validates and pools a locally originated transaction,
// then broadcasts it to peers.
func (n *Node) SubmitTransaction(t *tx.Transaction) error {
	vctx := tx.ValidationContext{
		CurrentBlock:     uint64(n.dagStore.Len()),
		CurrentTimestamp: time.Now().Unix(),
		State:            n.backend,
		Wallets:          n.wallets,
	}
	if err := tx.Validate(t, vctx); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	n.pool.Push(t)
	return n.p2pNode.BroadcastTransaction(t)
}

// SubmitCrossShardTransaction routes t through the two-phase commit
// coordinator instead of the mining pool, for transfers between shards.
func (n *Node) SubmitCrossShardTransaction(t *tx.Transaction) (*sharding.CrossShardTx, error) {
	if n.coordinator == nil {
		return nil, fmt.Errorf("sharding is not enabled on this node")
	}
	return n.coordinator.Begin(t, n.cfg.ShardCount)
}

// SubmitBatch creates and atomically commits a batch of account-abstraction
// operations against wallet's nonce (spec supplement: account-abstraction
// batch transactions). It bypasses the mining pool: batches are applied
// directly through the committer's single writer goroutine, the same way a
// mined block's transactions are.
func (n *Node) SubmitBatch(wallet types.Address, ops []tx.BatchOperation, nonce uint64, gasLimit uint64, gasPrice *big.Int) (*tx.BatchTransaction, error) {
	bt, err := n.batches.Create(wallet, ops, nonce, gasLimit, gasPrice, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.committer.CommitBatch(ctx, bt)
}

// Snapshot reports a point-in-time view of chain and pool activity.
type Snapshot struct {
	Height      int
	PoolSize    int
	PeerCount   int
	DAGStats    dag.Snapshot
	Fairness    fairness.Report
}

// Snapshot computes a fresh Snapshot from current in-memory state.
func (n *Node) Snapshot() Snapshot {
	now := time.Now().Unix()
	dagStats := n.dagStore.Stats(now, DAGWindowSeconds)

	entries := n.pool.Peek(256)
	txs := make([]*tx.Transaction, len(entries))
	arrivals := make([]time.Time, len(entries))
	for i, e := range entries {
		txs[i] = e.Tx
		arrivals[i] = e.Arrived
	}
	report := fairness.Analyze(txs, arrivals)

	return Snapshot{
		Height:    n.dagStore.Len(),
		PoolSize:  n.pool.Size(),
		PeerCount: n.p2pNode.PeerCount(),
		DAGStats:  dagStats,
		Fairness:  report,
	}
}

// Identity returns the node's network identity key.
func (n *Node) Identity() *crypto.PrivateKey { return n.identity }

// Backend returns the account-state backend, for RPC use.
func (n *Node) Backend() state.Backend { return n.backend }

// DAGStore returns the DAG store, for RPC use.
func (n *Node) DAGStore() *dag.Store { return n.dagStore }

// Pool returns the transaction pool, for RPC use.
func (n *Node) Pool() *pool.Pool { return n.pool }

// P2P returns the P2P node, for RPC use.
func (n *Node) P2P() *p2p.Node { return n.p2pNode }

// BanManager returns the ban manager, for RPC use.
func (n *Node) BanManager() *p2p.BanManager { return n.banManager }

// Coordinator returns the cross-shard coordinator, or nil if sharding is disabled.
func (n *Node) Coordinator() *sharding.Coordinator { return n.coordinator }

// Reputation returns the address-reputation tracker, for RPC use.
func (n *Node) Reputation() *reputation.Manager { return n.reputation }

// Forensics returns the fund-flow forensics analyzer, for RPC use.
func (n *Node) Forensics() *security.ForensicAnalyzer { return n.forensics }

// Hardening returns the connection-hardening gate, for RPC use.
func (n *Node) Hardening() *security.Hardening { return n.hardening }

// SecurityPolicies returns the risk-based policy manager, for RPC use.
func (n *Node) SecurityPolicies() *security.PolicyManager { return n.policies }

// Batches returns the account-abstraction batch manager, for RPC use.
func (n *Node) Batches() *tx.BatchManager { return n.batches }

// Shutdown stops mining, drains the committer, flushes state, and closes
// every open store. Safe to call once; a second call is a no-op beyond
// closing already-closed resources, which storage.DB implementations
// tolerate.
func (n *Node) Shutdown(ctx context.Context) error {
	n.logger.Info().Msg("shutting down")

	if n.engine != nil {
		n.engine.Stop()
	}
	if n.cancel != nil {
		n.cancel()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		n.logger.Warn().Msg("shutdown timed out waiting for committer to drain")
	}

	if n.p2pNode != nil {
		n.p2pNode.Shutdown()
	}

	return n.closeStorage()
}

func (n *Node) closeStorage() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if n.backend != nil {
		record(n.backend.Flush())
		record(n.backend.Close())
	}
	if n.dagDB != nil {
		record(n.dagDB.Close())
	}
	if n.peerstoreDB != nil {
		record(n.peerstoreDB.Close())
	}
	return firstErr
}

// loadOrCreateIdentity loads the node's persisted Ed25519 identity key, or
// generates and persists a new one if none exists yet (spec §9 supplement:
// node identity persistence).
func loadOrCreateIdentity(path string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return crypto.PrivateKeyFromBytes(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read identity file %s: %w", path, err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}
	if err := os.WriteFile(path, key.Serialize(), 0600); err != nil {
		return nil, fmt.Errorf("persist identity file %s: %w", path, err)
	}
	return key, nil
}
