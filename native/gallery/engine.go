package gallery

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"artgrid/core/events"
	"artgrid/core/types"
	nativecommon "artgrid/native/common"
)

// engineState is the persistence surface the engine requires. The node wires
// a KV-backed implementation; tests substitute an in-memory mock.
type engineState interface {
	GalleryNFTGet(tokenID [32]byte) (*NFT, bool, error)
	GalleryNFTPut(nft *NFT) error
	GalleryOwnedList(owner [20]byte) ([][32]byte, error)
	GalleryOwnedAdd(owner [20]byte, tokenID [32]byte) error
	GalleryOwnedRemove(owner [20]byte, tokenID [32]byte) error
	GalleryOwnedFirst(owner [20]byte) ([32]byte, bool, error)
	GalleryHasLiked(tokenID [32]byte, principal [20]byte) (bool, error)
	GalleryMarkLiked(tokenID [32]byte, principal [20]byte) error
	GalleryOperatorPut(tokenID [32]byte, operator [20]byte, authorized bool) error
	GalleryOperatorIs(tokenID [32]byte, operator [20]byte) (bool, error)
	GalleryAdminGet() ([20]byte, bool, error)
	GalleryAdminPut(admin [20]byte) error
	GalleryMintSeq() (uint64, error)
	GalleryMintSeqPut(seq uint64) error
}

// PayoutSink delivers outbound value transfers (sale proceeds, stake
// forwarding, overpayment refunds). Implementations may call back into the
// engine; such nested calls are rejected with ErrReentrancy while a transfer
// is in flight.
type PayoutSink interface {
	Pay(to [20]byte, amount *big.Int) error
}

// ReceiverHook is the capability a destination address may expose to be
// notified of incoming token transfers. A hook error aborts the transfer.
type ReceiverHook interface {
	OnTokenReceived(from [20]byte, to [20]byte, tokenID [32]byte, data []byte) error
}

// HookRegistry resolves receiver hooks for destination addresses.
type HookRegistry interface {
	ReceiverHook(addr [20]byte) (ReceiverHook, bool)
}

// Engine owns every NFT record, the ownership index, marketplace listing
// state and tier progression, and enforces all transitions. It is logically
// single threaded: the host serialises calls (the node holds a global lock
// for the duration of each entry point).
type Engine struct {
	state       engineState
	emitter     events.Emitter
	nowFn       func() int64
	pauses      nativecommon.PauseController
	payout      PayoutSink
	hooks       HookRegistry
	marketplace [20]byte
	payee       [20]byte
	locked      bool
}

// NewEngine constructs a gallery engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the pause registry consulted by mutating entry points.
func (e *Engine) SetPauses(p nativecommon.PauseController) { e.pauses = p }

// SetPayout configures the sink for outbound value transfers.
func (e *Engine) SetPayout(sink PayoutSink) { e.payout = sink }

// SetHooks configures the receiver hook registry used by Transfer.
func (e *Engine) SetHooks(hooks HookRegistry) { e.hooks = hooks }

// SetMarketplaceAddress configures the pseudo-owner that holds unsold
// inventory awaiting Buy.
func (e *Engine) SetMarketplaceAddress(addr [20]byte) { e.marketplace = addr }

// SetPayee configures the destination for sale proceeds and staked value.
func (e *Engine) SetPayee(addr [20]byte) { e.payee = addr }

// MarketplaceAddress returns the configured inventory pseudo-owner.
func (e *Engine) MarketplaceAddress() [20]byte { return e.marketplace }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// enter arms the reentrancy latch guarding entry points that perform an
// outbound interaction. Exactly one such call may be in flight.
func (e *Engine) enter() error {
	if e.locked {
		return ErrReentrancy
	}
	e.locked = true
	return nil
}

func (e *Engine) exit() { e.locked = false }

func (e *Engine) guardPause() error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return ErrPaused
	}
	return nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	admin, ok, err := e.state.GalleryAdminGet()
	if err != nil {
		return err
	}
	if !ok || isZeroAddress(admin) || caller != admin {
		return ErrUnauthorized
	}
	return nil
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func isZeroToken(id [32]byte) bool {
	var zero [32]byte
	return id == zero
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func hexToken(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// InitAdmin seeds the administrative owner if none is recorded yet. It is a
// no-op when an admin already exists, so restarting the node never rewrites
// a transferred ownership.
func (e *Engine) InitAdmin(admin [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if isZeroAddress(admin) {
		return ErrInvalidReceiver
	}
	_, ok, err := e.state.GalleryAdminGet()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return e.state.GalleryAdminPut(admin)
}

// Admin returns the current administrative owner. The zero address means
// ownership has been renounced.
func (e *Engine) Admin() ([20]byte, error) {
	var zero [20]byte
	if e == nil || e.state == nil {
		return zero, errNilState
	}
	admin, ok, err := e.state.GalleryAdminGet()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, nil
	}
	return admin, nil
}

// Mint creates a new NFT whose tiers are zipped positionally from the
// threshold arrays. Mismatched array lengths are rejected rather than zipped
// to the shortest. Tier 0 starts unlocked; the record is assigned to the
// receiver, which may be the marketplace pseudo-owner for unsold inventory.
func (e *Engine) Mint(caller [20]byte, likes []uint64, comments []uint64, stakes []*big.Int, metadataRefs []string, price *big.Int, receiver [20]byte) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if isZeroAddress(receiver) {
		return nil, ErrInvalidReceiver
	}
	if len(comments) != len(likes) || len(stakes) != len(likes) || len(metadataRefs) != len(likes) {
		return nil, ErrTierMismatch
	}
	salePrice := bigOrZero(price)
	if salePrice.Sign() < 0 {
		return nil, ErrInvalidPrice
	}

	seq, err := e.state.GalleryMintSeq()
	if err != nil {
		return nil, err
	}
	tokenID := newTokenID(seq, receiver)
	if existing, ok, err := e.state.GalleryNFTGet(tokenID); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, fmt.Errorf("gallery engine: token id collision for sequence %d", seq)
	}

	tiers := make([]Tier, len(likes))
	for i := range likes {
		tiers[i] = Tier{
			LikesRequired:    likes[i],
			CommentsRequired: comments[i],
			StakeRequired:    bigOrZero(stakes[i]),
			MetadataRef:      strings.TrimSpace(metadataRefs[i]),
			Unlocked:         i == 0,
		}
	}
	nft := &NFT{
		TokenID:     tokenID,
		TotalStaked: big.NewInt(0),
		Tiers:       tiers,
		Owner:       receiver,
		Price:       salePrice,
		MintedAt:    e.now(),
	}
	if err := e.state.GalleryMintSeqPut(seq + 1); err != nil {
		return nil, err
	}
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}
	if err := e.state.GalleryOwnedAdd(receiver, tokenID); err != nil {
		return nil, err
	}
	e.emit(MintedEvent(hexToken(tokenID), hexAddr(receiver), salePrice.String(), nft.Tiers))
	return nft.Clone(), nil
}

// newTokenID derives a unique token identifier from the persistent mint
// sequence. The sequence never repeats, so identifiers never collide.
func newTokenID(seq uint64, receiver [20]byte) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return ethcrypto.Keccak256Hash([]byte("artgrid/token"), buf[:], receiver[:])
}

// Buy purchases an NFT. A zero tokenID selects one item of marketplace
// inventory deterministically; an explicit tokenID buys that token, either
// from marketplace inventory or from an owner that has listed it. Internal
// state is mutated strictly before any outbound value transfer, and the
// whole routine runs under the reentrancy latch.
func (e *Engine) Buy(buyer [20]byte, tokenID [32]byte, value *big.Int) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	if isZeroAddress(buyer) {
		return nil, ErrInvalidReceiver
	}
	if e.payout == nil || isZeroAddress(e.payee) {
		return nil, errPayeeNotSet
	}

	if isZeroToken(tokenID) {
		first, ok, err := e.state.GalleryOwnedFirst(e.marketplace)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoInventory
		}
		tokenID = first
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}

	seller := nft.Owner
	payTo := e.payee
	if seller != e.marketplace {
		if !nft.Listed {
			return nil, ErrNotListed
		}
		payTo = seller
	}
	price := bigOrZero(nft.Price)
	paid := bigOrZero(value)
	if paid.Cmp(price) < 0 {
		return nil, ErrInsufficientPayment
	}

	// Effects: move ownership and clear the listing before any currency
	// leaves the ledger.
	prev := nft.Clone()
	if err := e.state.GalleryOwnedRemove(seller, tokenID); err != nil {
		return nil, err
	}
	if err := e.state.GalleryOwnedAdd(buyer, tokenID); err != nil {
		return nil, err
	}
	nft.Owner = buyer
	nft.Listed = false
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}

	// Interactions: forward the price, refund any excess. A failed transfer
	// aborts the purchase and restores the pre-call state.
	if err := e.paySettlement(payTo, price, buyer, new(big.Int).Sub(paid, price)); err != nil {
		if undoErr := e.undoOwnership(prev, seller, buyer, tokenID); undoErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %v)", err, undoErr)
		}
		return nil, err
	}
	e.emit(PurchasedEvent(hexAddr(buyer), hexToken(tokenID), price.String(), hexAddr(seller)))
	return nft.Clone(), nil
}

func (e *Engine) paySettlement(payTo [20]byte, price *big.Int, buyer [20]byte, excess *big.Int) error {
	if price.Sign() > 0 {
		if err := e.payout.Pay(payTo, price); err != nil {
			return fmt.Errorf("%w: %v", errPayoutFailed, err)
		}
	}
	if excess.Sign() > 0 {
		if err := e.payout.Pay(buyer, excess); err != nil {
			return fmt.Errorf("%w: %v", errPayoutFailed, err)
		}
	}
	return nil
}

func (e *Engine) undoOwnership(prev *NFT, seller [20]byte, buyer [20]byte, tokenID [32]byte) error {
	if err := e.state.GalleryOwnedRemove(buyer, tokenID); err != nil {
		return err
	}
	if err := e.state.GalleryOwnedAdd(seller, tokenID); err != nil {
		return err
	}
	return e.state.GalleryNFTPut(prev)
}

// AddEngagement increments the like counter and appends an optional comment.
// The whole call is rejected when the token already sits on its last tier,
// so counters never move on a rejected call. A principal may contribute at
// most one successful like increment per token.
func (e *Engine) AddEngagement(caller [20]byte, tokenID [32]byte, likesDelta uint64, commentText string) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	if len(nft.Tiers) == 0 || nft.CurrentTier >= uint64(len(nft.Tiers))-1 {
		return nil, ErrNoMoreTiers
	}
	commentText = strings.TrimSpace(commentText)
	if likesDelta > 0 {
		liked, err := e.state.GalleryHasLiked(tokenID, caller)
		if err != nil {
			return nil, err
		}
		if liked {
			return nil, ErrAlreadyLiked
		}
	}

	now := e.now()
	if likesDelta > 0 {
		nft.TotalLikes += likesDelta
		if err := e.state.GalleryMarkLiked(tokenID, caller); err != nil {
			return nil, err
		}
	}
	if commentText != "" {
		nft.Comments = append(nft.Comments, Comment{Author: caller, Text: commentText, Timestamp: now})
		nft.TotalComments++
	}
	unlocked := e.maybeAdvanceTier(nft)
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}

	if likesDelta > 0 {
		e.emit(LikeAddedEvent(hexToken(tokenID), hexAddr(caller), strconv.FormatUint(likesDelta, 10)))
	}
	if commentText != "" {
		e.emit(CommentAddedEvent(hexToken(tokenID), hexAddr(caller), commentText, strconv.FormatInt(now, 10)))
	}
	e.emitEngagement(nft)
	if unlocked {
		e.emit(TierUnlockedEvent(hexToken(tokenID), strconv.FormatUint(nft.CurrentTier, 10), nft.ActiveMetadataRef()))
	}
	return nft.Clone(), nil
}

// Stake records staked currency behind an NFT and forwards the value to the
// payee immediately; nothing is held by the ledger. Staking remains possible
// once the last tier is reached, the totals simply keep accumulating.
func (e *Engine) Stake(staker [20]byte, tokenID [32]byte, value *big.Int) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	if e.payout == nil || isZeroAddress(e.payee) {
		return nil, errPayeeNotSet
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrNoValueSent
	}

	prev := nft.Clone()
	amount := new(big.Int).Set(value)
	nft.TotalStaked = new(big.Int).Add(bigOrZero(nft.TotalStaked), amount)
	unlocked := e.maybeAdvanceTier(nft)
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}

	if err := e.payout.Pay(e.payee, amount); err != nil {
		if undoErr := e.state.GalleryNFTPut(prev); undoErr != nil {
			return nil, fmt.Errorf("%w: %v (rollback failed: %v)", errPayoutFailed, err, undoErr)
		}
		return nil, fmt.Errorf("%w: %v", errPayoutFailed, err)
	}

	e.emit(StakedEvent(hexAddr(staker), hexToken(tokenID), amount.String()))
	e.emitEngagement(nft)
	if unlocked {
		e.emit(TierUnlockedEvent(hexToken(tokenID), strconv.FormatUint(nft.CurrentTier, 10), nft.ActiveMetadataRef()))
	}
	return nft.Clone(), nil
}

func (e *Engine) emitEngagement(nft *NFT) {
	e.emit(EngagementUpdatedEvent(
		hexToken(nft.TokenID),
		strconv.FormatUint(nft.TotalLikes, 10),
		strconv.FormatUint(nft.TotalComments, 10),
		bigOrZero(nft.TotalStaked).String(),
		strconv.FormatUint(nft.CurrentTier, 10),
	))
}

// maybeAdvanceTier unlocks the immediate next tier when cumulative
// engagement meets all three thresholds. Progression is single-step per call
// and never cascades through multiple tiers.
func (e *Engine) maybeAdvanceTier(nft *NFT) bool {
	next := nft.CurrentTier + 1
	if next >= uint64(len(nft.Tiers)) {
		return false
	}
	tier := nft.Tiers[next]
	if nft.TotalLikes < tier.LikesRequired {
		return false
	}
	if nft.TotalComments < tier.CommentsRequired {
		return false
	}
	if bigOrZero(nft.TotalStaked).Cmp(bigOrZero(tier.StakeRequired)) < 0 {
		return false
	}
	nft.Tiers[next].Unlocked = true
	nft.CurrentTier = next
	return true
}

// ListForSale marks a token as purchasable at the given price.
func (e *Engine) ListForSale(caller [20]byte, tokenID [32]byte, price *big.Int) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	if nft.Owner != caller {
		return nil, ErrNotOwner
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	nft.Listed = true
	nft.Price = new(big.Int).Set(price)
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}
	e.emit(ListedEvent(hexToken(tokenID), hexAddr(caller), price.String()))
	return nft.Clone(), nil
}

// CancelListing withdraws a token from sale.
func (e *Engine) CancelListing(caller [20]byte, tokenID [32]byte) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	if nft.Owner != caller {
		return nil, ErrNotOwner
	}
	if !nft.Listed {
		return nil, ErrNotListed
	}
	nft.Listed = false
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}
	e.emit(UnlistedEvent(hexToken(tokenID), hexAddr(caller)))
	return nft.Clone(), nil
}

// Transfer moves a token between owners. The caller must be the current
// owner or an authorized operator for the token. When notify is set and the
// destination exposes a receiver hook, the hook runs after the ownership
// move; a hook error aborts the transfer and restores the previous owner.
func (e *Engine) Transfer(caller [20]byte, from [20]byte, to [20]byte, tokenID [32]byte, notify bool, data []byte) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()
	if err := e.guardPause(); err != nil {
		return nil, err
	}
	if isZeroAddress(to) {
		return nil, ErrInvalidReceiver
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	if nft.Owner != from {
		return nil, ErrNotOwner
	}
	if caller != from {
		operator, err := e.state.GalleryOperatorIs(tokenID, caller)
		if err != nil {
			return nil, err
		}
		if !operator {
			return nil, ErrNotAuthorized
		}
	}

	prev := nft.Clone()
	if err := e.state.GalleryOwnedRemove(from, tokenID); err != nil {
		return nil, err
	}
	if err := e.state.GalleryOwnedAdd(to, tokenID); err != nil {
		return nil, err
	}
	nft.Owner = to
	nft.Listed = false
	if err := e.state.GalleryNFTPut(nft); err != nil {
		return nil, err
	}

	if notify && e.hooks != nil {
		if hook, found := e.hooks.ReceiverHook(to); found {
			if hookErr := hook.OnTokenReceived(from, to, tokenID, data); hookErr != nil {
				if undoErr := e.undoOwnership(prev, from, to, tokenID); undoErr != nil {
					return nil, fmt.Errorf("%w: %v (rollback failed: %v)", ErrTransferRejected, hookErr, undoErr)
				}
				return nil, fmt.Errorf("%w: %v", ErrTransferRejected, hookErr)
			}
		}
	}
	e.emit(TransferredEvent(hexToken(tokenID), hexAddr(from), hexAddr(to)))
	return nft.Clone(), nil
}

// AuthorizeOperator grants transfer rights over a token to an operator.
func (e *Engine) AuthorizeOperator(caller [20]byte, operator [20]byte, tokenID [32]byte) error {
	return e.setOperator(caller, operator, tokenID, true)
}

// RevokeOperator withdraws previously granted transfer rights.
func (e *Engine) RevokeOperator(caller [20]byte, operator [20]byte, tokenID [32]byte) error {
	return e.setOperator(caller, operator, tokenID, false)
}

func (e *Engine) setOperator(caller [20]byte, operator [20]byte, tokenID [32]byte, authorized bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.guardPause(); err != nil {
		return err
	}
	if isZeroAddress(operator) {
		return ErrInvalidReceiver
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return err
	}
	if !ok || nft == nil {
		return ErrNotFound
	}
	if nft.Owner != caller {
		return ErrNotOwner
	}
	if err := e.state.GalleryOperatorPut(tokenID, operator, authorized); err != nil {
		return err
	}
	eventType := EventTypeOperatorAuthorized
	if !authorized {
		eventType = EventTypeOperatorRevoked
	}
	e.emit(OperatorEvent(eventType, hexToken(tokenID), hexAddr(caller), hexAddr(operator)))
	return nil
}

// Pause halts every value- and state-mutating entry point except Unpause and
// ownership transfer.
func (e *Engine) Pause(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if e.pauses == nil {
		return fmt.Errorf("gallery engine: pause registry not configured")
	}
	if err := e.pauses.SetPaused(ModuleName, true); err != nil {
		return err
	}
	e.emit(PauseEvent(EventTypePaused, hexAddr(caller)))
	return nil
}

// Unpause lifts the pause flag.
func (e *Engine) Unpause(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if e.pauses == nil {
		return fmt.Errorf("gallery engine: pause registry not configured")
	}
	if err := e.pauses.SetPaused(ModuleName, false); err != nil {
		return err
	}
	e.emit(PauseEvent(EventTypeUnpaused, hexAddr(caller)))
	return nil
}

// TransferOwnership hands the administrative role to another address. It
// remains available while the ledger is paused.
func (e *Engine) TransferOwnership(caller [20]byte, next [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if isZeroAddress(next) {
		return ErrInvalidReceiver
	}
	if err := e.state.GalleryAdminPut(next); err != nil {
		return err
	}
	e.emit(AdminTransferredEvent(hexAddr(caller), hexAddr(next)))
	return nil
}

// RenounceOwnership clears the administrative role permanently. Admin-gated
// entry points reject every caller afterwards.
func (e *Engine) RenounceOwnership(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	var zero [20]byte
	if err := e.state.GalleryAdminPut(zero); err != nil {
		return err
	}
	e.emit(AdminTransferredEvent(hexAddr(caller), hexAddr(zero)))
	return nil
}

// NFTData returns a deep copy of the record for the supplied token.
func (e *Engine) NFTData(tokenID [32]byte) (*NFT, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	nft, ok, err := e.state.GalleryNFTGet(tokenID)
	if err != nil {
		return nil, err
	}
	if !ok || nft == nil {
		return nil, ErrNotFound
	}
	return nft.Clone(), nil
}

// OwnedTokens returns the token identifiers currently held by the address.
func (e *Engine) OwnedTokens(owner [20]byte) ([][32]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GalleryOwnedList(owner)
}

// HasLiked reports whether the principal already contributed a like for the
// token.
func (e *Engine) HasLiked(tokenID [32]byte, principal [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.GalleryHasLiked(tokenID, principal)
}
