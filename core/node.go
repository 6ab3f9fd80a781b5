package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"artgrid/core/events"
	"artgrid/core/journal"
	"artgrid/core/state"
	"artgrid/core/types"
	"artgrid/native/gallery"
	"artgrid/observability/metrics"
	"artgrid/storage"
)

const streamBacklogLimit = 2048

// NodeConfig carries the addresses and optional capabilities the node is
// started with.
type NodeConfig struct {
	Admin       [20]byte
	Marketplace [20]byte
	Payee       [20]byte
	// Payout overrides the default accrual sink that records outbound value
	// in storage. Hosts with a real settlement rail plug theirs in here.
	Payout gallery.PayoutSink
	Hooks  gallery.HookRegistry
	Logger *slog.Logger
}

// Node owns the storage handle, the state adapter, the gallery engine, the
// event journal and the pause registry, and serialises every ledger call
// behind a single mutex. All mutating entry points emit events that are
// journaled before being fanned out to live subscribers.
type Node struct {
	mu sync.Mutex

	db      storage.Database
	state   *state.GalleryState
	pauses  *state.Pauses
	engine  *gallery.Engine
	journal *journal.Journal
	logger  *slog.Logger
	metrics *metrics.GalleryMetrics

	streamMu     sync.Mutex
	streamSubs   map[uint64]chan journal.Record
	streamNextID uint64
}

// NewNode wires the ledger components over the supplied database and seeds
// the admin when the store is fresh.
func NewNode(db storage.Database, cfg NodeConfig) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	var zeroAddr [20]byte
	if cfg.Admin == zeroAddr {
		return nil, fmt.Errorf("node: admin address required")
	}
	if cfg.Marketplace == zeroAddr {
		return nil, fmt.Errorf("node: marketplace address required")
	}
	if cfg.Payee == zeroAddr {
		return nil, fmt.Errorf("node: payee address required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := &Node{
		db:      db,
		state:   state.NewGalleryState(db),
		pauses:  state.NewPauses(db),
		journal: journal.New(db),
		logger:  logger.With("component", "node"),
		metrics: metrics.Gallery(),
	}

	engine := gallery.NewEngine()
	engine.SetState(n.state)
	engine.SetPauses(n.pauses)
	engine.SetEmitter(n)
	engine.SetMarketplaceAddress(cfg.Marketplace)
	engine.SetPayee(cfg.Payee)
	if cfg.Payout != nil {
		engine.SetPayout(cfg.Payout)
	} else {
		engine.SetPayout(&accrualSink{db: db})
	}
	if cfg.Hooks != nil {
		engine.SetHooks(cfg.Hooks)
	}
	if err := engine.InitAdmin(cfg.Admin); err != nil {
		return nil, fmt.Errorf("node: seed admin: %w", err)
	}
	n.engine = engine
	return n, nil
}

// Close releases the underlying database handle.
func (n *Node) Close() {
	if n == nil || n.db == nil {
		return
	}
	n.db.Close()
}

// Engine exposes the underlying gallery engine for test harnesses.
func (n *Node) Engine() *gallery.Engine { return n.engine }

// Emit implements events.Emitter. Events are appended to the durable journal
// first and only then pushed to live stream subscribers, so a subscriber that
// replays the journal from its cursor never misses an update.
func (n *Node) Emit(evt events.Event) {
	if n == nil || evt == nil {
		return
	}
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	seq, err := n.journal.Append(payload)
	if err != nil {
		n.logger.Error("journal append failed", "type", payload.Type, "error", err)
		return
	}
	n.metrics.RecordEvent(payload.Type)
	n.publish(journal.Record{Sequence: seq, Type: payload.Type, Attributes: cloneAttributes(payload.Attributes)})
}

func cloneAttributes(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	cloned := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cloned[k] = v
	}
	return cloned
}

func cloneRecord(rec journal.Record) journal.Record {
	rec.Attributes = cloneAttributes(rec.Attributes)
	return rec
}

func (n *Node) publish(rec journal.Record) {
	n.streamMu.Lock()
	subscribers := make([]chan journal.Record, 0, len(n.streamSubs))
	for _, ch := range n.streamSubs {
		subscribers = append(subscribers, ch)
	}
	n.streamMu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- cloneRecord(rec):
		default:
		}
	}
}

// Subscribe registers a live event subscriber starting after the supplied
// cursor, a decimal journal sequence; an empty cursor replays from the
// beginning. The backlog of journal records past the cursor is returned
// alongside the channel; slow consumers drop live records rather than block
// the ledger.
func (n *Node) Subscribe(ctx context.Context, cursor string) (<-chan journal.Record, func(), []journal.Record, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	updates := make(chan journal.Record, 32)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("node: invalid cursor %q", cursor)
		}
		since = parsed
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]chan journal.Record)
	}
	id := n.streamNextID
	n.streamNextID++
	n.streamSubs[id] = updates
	n.streamMu.Unlock()

	backlog, err := n.journal.Range(since, streamBacklogLimit)
	if err != nil {
		n.streamMu.Lock()
		delete(n.streamSubs, id)
		n.streamMu.Unlock()
		close(updates)
		return nil, nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.streamMu.Lock()
			sub, ok := n.streamSubs[id]
			if ok {
				delete(n.streamSubs, id)
				close(sub)
			}
			n.streamMu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}

// Events returns up to limit journal records with sequence greater than
// after. A limit of zero means no cap.
func (n *Node) Events(after uint64, limit int) ([]journal.Record, error) {
	if n == nil {
		return nil, fmt.Errorf("node not initialised")
	}
	return n.journal.Range(after, limit)
}

func (n *Node) observe(op string, err error) {
	if err == nil {
		return
	}
	n.metrics.RecordFailure(op)
	n.logger.Debug("ledger call rejected", "op", op, "error", err)
}

// Mint creates a new NFT record on behalf of the admin caller.
func (n *Node) Mint(caller [20]byte, likes []uint64, comments []uint64, stakes []*big.Int, metadataRefs []string, price *big.Int, receiver [20]byte) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.Mint(caller, likes, comments, stakes, metadataRefs, price, receiver)
	n.observe("mint", err)
	return nft, err
}

// Buy purchases a token. A zero token selects marketplace inventory.
func (n *Node) Buy(buyer [20]byte, tokenID [32]byte, value *big.Int) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.Buy(buyer, tokenID, value)
	n.observe("buy", err)
	return nft, err
}

// AddEngagement records likes and an optional comment against a token.
func (n *Node) AddEngagement(caller [20]byte, tokenID [32]byte, likesDelta uint64, commentText string) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.AddEngagement(caller, tokenID, likesDelta, commentText)
	n.observe("engage", err)
	return nft, err
}

// Stake records staked value behind a token and forwards it to the payee.
func (n *Node) Stake(staker [20]byte, tokenID [32]byte, value *big.Int) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.Stake(staker, tokenID, value)
	n.observe("stake", err)
	return nft, err
}

// ListForSale marks a token purchasable at the given price.
func (n *Node) ListForSale(caller [20]byte, tokenID [32]byte, price *big.Int) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.ListForSale(caller, tokenID, price)
	n.observe("list", err)
	return nft, err
}

// CancelListing withdraws a token from sale.
func (n *Node) CancelListing(caller [20]byte, tokenID [32]byte) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.CancelListing(caller, tokenID)
	n.observe("cancel_listing", err)
	return nft, err
}

// Transfer moves a token between owners, optionally notifying the receiver.
func (n *Node) Transfer(caller [20]byte, from [20]byte, to [20]byte, tokenID [32]byte, notify bool, data []byte) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nft, err := n.engine.Transfer(caller, from, to, tokenID, notify, data)
	n.observe("transfer", err)
	return nft, err
}

// AuthorizeOperator grants transfer rights over a token.
func (n *Node) AuthorizeOperator(caller [20]byte, operator [20]byte, tokenID [32]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.AuthorizeOperator(caller, operator, tokenID)
	n.observe("authorize_operator", err)
	return err
}

// RevokeOperator withdraws transfer rights over a token.
func (n *Node) RevokeOperator(caller [20]byte, operator [20]byte, tokenID [32]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.RevokeOperator(caller, operator, tokenID)
	n.observe("revoke_operator", err)
	return err
}

// Pause halts mutating entry points.
func (n *Node) Pause(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.Pause(caller)
	n.observe("pause", err)
	return err
}

// Unpause lifts the pause flag.
func (n *Node) Unpause(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.Unpause(caller)
	n.observe("unpause", err)
	return err
}

// TransferOwnership hands the admin role to another address.
func (n *Node) TransferOwnership(caller [20]byte, next [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.TransferOwnership(caller, next)
	n.observe("transfer_ownership", err)
	return err
}

// RenounceOwnership clears the admin role permanently.
func (n *Node) RenounceOwnership(caller [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.engine.RenounceOwnership(caller)
	n.observe("renounce_ownership", err)
	return err
}

// NFTData returns a deep copy of the record for the supplied token.
func (n *Node) NFTData(tokenID [32]byte) (*gallery.NFT, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.NFTData(tokenID)
}

// OwnedTokens lists the token identifiers held by an address.
func (n *Node) OwnedTokens(owner [20]byte) ([][32]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.OwnedTokens(owner)
}

// HasLiked reports whether the principal already liked the token.
func (n *Node) HasLiked(tokenID [32]byte, principal [20]byte) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.HasLiked(tokenID, principal)
}

// Admin returns the current administrative owner.
func (n *Node) Admin() ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Admin()
}

// Paused reports whether the gallery module is currently paused.
func (n *Node) Paused() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pauses.IsPaused(gallery.ModuleName)
}

// PayoutTotal returns the cumulative outbound value recorded against an
// address by the default accrual sink.
func (n *Node) PayoutTotal(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return readAccrued(n.db, addr)
}
