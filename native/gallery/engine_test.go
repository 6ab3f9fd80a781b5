package gallery

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"artgrid/core/events"
	"artgrid/core/types"
)

type mockState struct {
	nfts      map[[32]byte]*NFT
	owned     map[[20]byte][][32]byte
	liked     map[string]bool
	operators map[string]bool
	admin     [20]byte
	adminSet  bool
	seq       uint64
}

func newMockState() *mockState {
	return &mockState{
		nfts:      make(map[[32]byte]*NFT),
		owned:     make(map[[20]byte][][32]byte),
		liked:     make(map[string]bool),
		operators: make(map[string]bool),
	}
}

func (m *mockState) GalleryNFTGet(tokenID [32]byte) (*NFT, bool, error) {
	nft, ok := m.nfts[tokenID]
	if !ok {
		return nil, false, nil
	}
	return nft.Clone(), true, nil
}

func (m *mockState) GalleryNFTPut(nft *NFT) error {
	if nft == nil {
		return nil
	}
	m.nfts[nft.TokenID] = nft.Clone()
	return nil
}

func (m *mockState) GalleryOwnedList(owner [20]byte) ([][32]byte, error) {
	return append([][32]byte(nil), m.owned[owner]...), nil
}

func (m *mockState) GalleryOwnedAdd(owner [20]byte, tokenID [32]byte) error {
	m.owned[owner] = append(m.owned[owner], tokenID)
	return nil
}

func (m *mockState) GalleryOwnedRemove(owner [20]byte, tokenID [32]byte) error {
	list := m.owned[owner]
	for i, id := range list {
		if id == tokenID {
			list[i] = list[len(list)-1]
			m.owned[owner] = list[:len(list)-1]
			return nil
		}
	}
	return fmt.Errorf("token not held by owner")
}

func (m *mockState) GalleryOwnedFirst(owner [20]byte) ([32]byte, bool, error) {
	var zero [32]byte
	list := m.owned[owner]
	if len(list) == 0 {
		return zero, false, nil
	}
	return list[0], true, nil
}

func likedKey(tokenID [32]byte, principal [20]byte) string {
	return string(tokenID[:]) + string(principal[:])
}

func (m *mockState) GalleryHasLiked(tokenID [32]byte, principal [20]byte) (bool, error) {
	return m.liked[likedKey(tokenID, principal)], nil
}

func (m *mockState) GalleryMarkLiked(tokenID [32]byte, principal [20]byte) error {
	m.liked[likedKey(tokenID, principal)] = true
	return nil
}

func (m *mockState) GalleryOperatorPut(tokenID [32]byte, operator [20]byte, authorized bool) error {
	key := string(tokenID[:]) + string(operator[:])
	if authorized {
		m.operators[key] = true
	} else {
		delete(m.operators, key)
	}
	return nil
}

func (m *mockState) GalleryOperatorIs(tokenID [32]byte, operator [20]byte) (bool, error) {
	return m.operators[string(tokenID[:])+string(operator[:])], nil
}

func (m *mockState) GalleryAdminGet() ([20]byte, bool, error) {
	return m.admin, m.adminSet, nil
}

func (m *mockState) GalleryAdminPut(admin [20]byte) error {
	m.admin = admin
	m.adminSet = true
	return nil
}

func (m *mockState) GalleryMintSeq() (uint64, error) { return m.seq, nil }

func (m *mockState) GalleryMintSeqPut(seq uint64) error {
	m.seq = seq
	return nil
}

// holders returns every address whose owned set contains the token.
func (m *mockState) holders(tokenID [32]byte) [][20]byte {
	var out [][20]byte
	for owner, list := range m.owned {
		for _, id := range list {
			if id == tokenID {
				out = append(out, owner)
			}
		}
	}
	return out
}

type captureEmitter struct {
	events []*types.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	if env, ok := evt.(interface{ Event() *types.Event }); ok {
		c.events = append(c.events, env.Event())
	}
}

func (c *captureEmitter) byType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range c.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type payment struct {
	to     [20]byte
	amount *big.Int
}

type recordingSink struct {
	payments []payment
	failWith error
}

func (r *recordingSink) Pay(to [20]byte, amount *big.Int) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.payments = append(r.payments, payment{to: to, amount: new(big.Int).Set(amount)})
	return nil
}

type mockPauses struct {
	paused map[string]bool
}

func newMockPauses() *mockPauses { return &mockPauses{paused: make(map[string]bool)} }

func (p *mockPauses) IsPaused(module string) bool { return p.paused[module] }

func (p *mockPauses) SetPaused(module string, paused bool) error {
	p.paused[module] = paused
	return nil
}

var (
	adminAddr       = [20]byte{0x01}
	marketplaceAddr = [20]byte{0xAA}
	payeeAddr       = [20]byte{0x02}
	buyerAddr       = [20]byte{0x03}
	fanAddr         = [20]byte{0x04}
	otherAddr       = [20]byte{0x05}
)

func lyx(milli int64) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	return new(big.Int).Mul(big.NewInt(milli), unit)
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter, *recordingSink, *mockPauses) {
	t.Helper()
	state := newMockState()
	emitter := &captureEmitter{}
	sink := &recordingSink{}
	pauses := newMockPauses()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetPayout(sink)
	engine.SetPauses(pauses)
	engine.SetMarketplaceAddress(marketplaceAddr)
	engine.SetPayee(payeeAddr)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	if err := engine.InitAdmin(adminAddr); err != nil {
		t.Fatalf("init admin: %v", err)
	}
	return engine, state, emitter, sink, pauses
}

func mintDefault(t *testing.T, engine *Engine, receiver [20]byte) *NFT {
	t.Helper()
	nft, err := engine.Mint(
		adminAddr,
		[]uint64{10, 20},
		[]uint64{0, 1},
		[]*big.Int{lyx(100), lyx(500)},
		[]string{"cid-tier-0", "cid-tier-1"},
		lyx(10),
		receiver,
	)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return nft
}

func TestMintCreatesRecord(t *testing.T) {
	engine, state, emitter, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, marketplaceAddr)

	if nft.CurrentTier != 0 {
		t.Fatalf("expected tier 0, got %d", nft.CurrentTier)
	}
	if len(nft.Tiers) != 2 || !nft.Tiers[0].Unlocked || nft.Tiers[1].Unlocked {
		t.Fatalf("unexpected tier state: %+v", nft.Tiers)
	}
	if nft.Owner != marketplaceAddr {
		t.Fatalf("expected marketplace owner, got %x", nft.Owner)
	}
	if len(state.owned[marketplaceAddr]) != 1 {
		t.Fatalf("expected one inventory item, got %d", len(state.owned[marketplaceAddr]))
	}
	minted := emitter.byType(EventTypeMinted)
	if len(minted) != 1 {
		t.Fatalf("expected one minted event, got %d", len(minted))
	}
	if minted[0].Attributes["tiers"] == "" {
		t.Fatalf("minted event should carry the tier specification")
	}
}

func TestMintUniqueTokenIDs(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	first := mintDefault(t, engine, marketplaceAddr)
	second := mintDefault(t, engine, marketplaceAddr)
	if first.TokenID == second.TokenID {
		t.Fatalf("token ids must never collide")
	}
}

func TestMintRejectsNonAdmin(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	_, err := engine.Mint(buyerAddr, []uint64{1}, []uint64{1}, []*big.Int{lyx(1)}, []string{"cid"}, lyx(1), marketplaceAddr)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMintRejectsZeroReceiver(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	var zero [20]byte
	_, err := engine.Mint(adminAddr, []uint64{1}, []uint64{1}, []*big.Int{lyx(1)}, []string{"cid"}, lyx(1), zero)
	if !errors.Is(err, ErrInvalidReceiver) {
		t.Fatalf("expected ErrInvalidReceiver, got %v", err)
	}
}

func TestMintRejectsMismatchedTierArrays(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	_, err := engine.Mint(adminAddr, []uint64{10}, []uint64{5, 10, 15}, []*big.Int{lyx(1)}, []string{"a", "b"}, lyx(1), marketplaceAddr)
	if !errors.Is(err, ErrTierMismatch) {
		t.Fatalf("expected ErrTierMismatch, got %v", err)
	}
	if len(state.nfts) != 0 {
		t.Fatalf("rejected mint must not create a record")
	}
}

func TestMintAllowsEmptyTiers(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft, err := engine.Mint(adminAddr, nil, nil, nil, nil, lyx(1), marketplaceAddr)
	if err != nil {
		t.Fatalf("mint without tiers: %v", err)
	}
	if len(nft.Tiers) != 0 || nft.CurrentTier != 0 {
		t.Fatalf("unexpected tierless record: %+v", nft)
	}
}

func TestBuyExactPayment(t *testing.T) {
	engine, state, emitter, sink, _ := newTestEngine(t)
	minted := mintDefault(t, engine, marketplaceAddr)

	var anyToken [32]byte
	bought, err := engine.Buy(buyerAddr, anyToken, lyx(10))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if bought.TokenID != minted.TokenID || bought.Owner != buyerAddr {
		t.Fatalf("unexpected purchase result: %+v", bought)
	}
	if len(state.owned[marketplaceAddr]) != 0 {
		t.Fatalf("inventory should be empty")
	}
	if len(state.owned[buyerAddr]) != 1 {
		t.Fatalf("buyer should hold the token")
	}
	if len(sink.payments) != 1 || sink.payments[0].to != payeeAddr || sink.payments[0].amount.Cmp(lyx(10)) != 0 {
		t.Fatalf("unexpected settlement: %+v", sink.payments)
	}
	if len(emitter.byType(EventTypePurchased)) != 1 {
		t.Fatalf("expected a purchased event")
	}
}

func TestBuyRefundsExcessExactly(t *testing.T) {
	engine, _, _, sink, _ := newTestEngine(t)
	mintDefault(t, engine, marketplaceAddr)

	var anyToken [32]byte
	if _, err := engine.Buy(buyerAddr, anyToken, lyx(75)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if len(sink.payments) != 2 {
		t.Fatalf("expected price forward plus refund, got %+v", sink.payments)
	}
	if sink.payments[1].to != buyerAddr || sink.payments[1].amount.Cmp(lyx(65)) != 0 {
		t.Fatalf("refund must equal the overpayment exactly: %+v", sink.payments[1])
	}
}

func TestBuyNoInventory(t *testing.T) {
	engine, _, _, sink, _ := newTestEngine(t)
	var anyToken [32]byte
	_, err := engine.Buy(buyerAddr, anyToken, lyx(10))
	if !errors.Is(err, ErrNoInventory) {
		t.Fatalf("expected ErrNoInventory, got %v", err)
	}
	if len(sink.payments) != 0 {
		t.Fatalf("no value may move on a failed buy")
	}
}

func TestBuyInsufficientPayment(t *testing.T) {
	engine, state, _, sink, _ := newTestEngine(t)
	mintDefault(t, engine, marketplaceAddr)

	var anyToken [32]byte
	_, err := engine.Buy(buyerAddr, anyToken, lyx(2))
	if !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
	if len(state.owned[marketplaceAddr]) != 1 || len(sink.payments) != 0 {
		t.Fatalf("failed buy must leave state untouched")
	}
}

// reentrantSink calls back into Buy during the outbound transfer, modelling
// a hostile receiver.
type reentrantSink struct {
	engine   *Engine
	attacker [20]byte
	value    *big.Int
	innerErr error
	fired    bool
	payments []payment
}

func (r *reentrantSink) Pay(to [20]byte, amount *big.Int) error {
	r.payments = append(r.payments, payment{to: to, amount: new(big.Int).Set(amount)})
	if !r.fired {
		r.fired = true
		var anyToken [32]byte
		_, r.innerErr = r.engine.Buy(r.attacker, anyToken, r.value)
	}
	return nil
}

func TestBuyReentrancyBlocked(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	mintDefault(t, engine, marketplaceAddr)
	mintDefault(t, engine, marketplaceAddr)

	hostile := &reentrantSink{engine: engine, attacker: buyerAddr, value: lyx(75)}
	engine.SetPayout(hostile)

	var anyToken [32]byte
	if _, err := engine.Buy(buyerAddr, anyToken, lyx(75)); err != nil {
		t.Fatalf("outer buy should succeed: %v", err)
	}
	if !errors.Is(hostile.innerErr, ErrReentrancy) {
		t.Fatalf("nested buy must be rejected, got %v", hostile.innerErr)
	}
	if len(state.owned[buyerAddr]) != 1 {
		t.Fatalf("attacker must obtain exactly one token, got %d", len(state.owned[buyerAddr]))
	}
	if len(state.owned[marketplaceAddr]) != 1 {
		t.Fatalf("exactly one inventory item may be removed, got %d left", len(state.owned[marketplaceAddr]))
	}
}

func TestEngagementUnlocksNextTier(t *testing.T) {
	engine, _, emitter, _, _ := newTestEngine(t)
	nft, err := engine.Mint(
		adminAddr,
		[]uint64{10, 20},
		[]uint64{0, 1},
		[]*big.Int{lyx(100), lyx(500)},
		[]string{"cid-tier-0", "cid-tier-1"},
		lyx(10),
		buyerAddr,
	)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	updated, err := engine.AddEngagement(fanAddr, nft.TokenID, 20, "love the grid")
	if err != nil {
		t.Fatalf("add engagement: %v", err)
	}
	if updated.TotalLikes != 20 || updated.TotalComments != 1 {
		t.Fatalf("unexpected counters: likes=%d comments=%d", updated.TotalLikes, updated.TotalComments)
	}
	if updated.CurrentTier != 0 {
		t.Fatalf("stake threshold unmet, tier must stay 0")
	}

	staked, err := engine.Stake(fanAddr, nft.TokenID, lyx(500))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if staked.CurrentTier != 1 || !staked.Tiers[1].Unlocked {
		t.Fatalf("tier 1 should unlock: %+v", staked)
	}
	if staked.TotalStaked.Cmp(lyx(500)) != 0 {
		t.Fatalf("unexpected stake total: %s", staked.TotalStaked)
	}
	if staked.ActiveMetadataRef() != "cid-tier-1" {
		t.Fatalf("active metadata should follow the unlocked tier, got %q", staked.ActiveMetadataRef())
	}
	unlocks := emitter.byType(EventTypeTierUnlocked)
	if len(unlocks) != 1 || unlocks[0].Attributes["metadataRef"] != "cid-tier-1" {
		t.Fatalf("expected one tier unlock event, got %+v", unlocks)
	}
}

func TestEngagementDoesNotUnlockBelowThresholds(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	updated, err := engine.AddEngagement(fanAddr, nft.TokenID, 5, "")
	if err != nil {
		t.Fatalf("add engagement: %v", err)
	}
	if updated.CurrentTier != 0 || updated.Tiers[1].Unlocked {
		t.Fatalf("tier must not unlock below thresholds")
	}
}

func TestEngagementSingleStepProgression(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft, err := engine.Mint(
		adminAddr,
		[]uint64{0, 5, 10},
		[]uint64{0, 0, 0},
		[]*big.Int{lyx(0), lyx(0), lyx(0)},
		[]string{"t0", "t1", "t2"},
		lyx(10),
		buyerAddr,
	)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Thresholds of tiers 1 and 2 are both met in one call; only the
	// immediate next tier may unlock.
	updated, err := engine.AddEngagement(fanAddr, nft.TokenID, 50, "")
	if err != nil {
		t.Fatalf("add engagement: %v", err)
	}
	if updated.CurrentTier != 1 {
		t.Fatalf("progression must be single-step, got tier %d", updated.CurrentTier)
	}
	if updated.Tiers[2].Unlocked {
		t.Fatalf("tier 2 must stay locked until the next call")
	}
}

func TestEngagementRejectedAtLastTier(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	nft, err := engine.Mint(
		adminAddr,
		[]uint64{0, 5},
		[]uint64{0, 0},
		[]*big.Int{lyx(0), lyx(0)},
		[]string{"t0", "t1"},
		lyx(10),
		buyerAddr,
	)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.AddEngagement(fanAddr, nft.TokenID, 5, ""); err != nil {
		t.Fatalf("unlock tier 1: %v", err)
	}

	before := state.nfts[nft.TokenID].Clone()
	_, err = engine.AddEngagement(otherAddr, nft.TokenID, 3, "too late")
	if !errors.Is(err, ErrNoMoreTiers) {
		t.Fatalf("expected ErrNoMoreTiers, got %v", err)
	}
	after := state.nfts[nft.TokenID]
	if after.TotalLikes != before.TotalLikes || after.TotalComments != before.TotalComments {
		t.Fatalf("rejected call must not move counters")
	}
}

func TestEngagementUnknownToken(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	var unknown [32]byte
	unknown[0] = 0xFF
	_, err := engine.AddEngagement(fanAddr, unknown, 1, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDoubleLikeRejected(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if _, err := engine.AddEngagement(fanAddr, nft.TokenID, 1, ""); err != nil {
		t.Fatalf("first like: %v", err)
	}
	before := state.nfts[nft.TokenID].TotalLikes
	_, err := engine.AddEngagement(fanAddr, nft.TokenID, 1, "")
	if !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("expected ErrAlreadyLiked, got %v", err)
	}
	if state.nfts[nft.TokenID].TotalLikes != before {
		t.Fatalf("rejected like must not increment the counter")
	}
	// A comment without a like increment is still accepted.
	if _, err := engine.AddEngagement(fanAddr, nft.TokenID, 0, "still a fan"); err != nil {
		t.Fatalf("comment after like: %v", err)
	}
}

func TestStakeForwardsValueImmediately(t *testing.T) {
	engine, _, _, sink, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if _, err := engine.Stake(fanAddr, nft.TokenID, lyx(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if len(sink.payments) != 1 || sink.payments[0].to != payeeAddr || sink.payments[0].amount.Cmp(lyx(100)) != 0 {
		t.Fatalf("stake value must be forwarded to the payee: %+v", sink.payments)
	}
}

func TestStakeRejectsZeroValue(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)
	_, err := engine.Stake(fanAddr, nft.TokenID, big.NewInt(0))
	if !errors.Is(err, ErrNoValueSent) {
		t.Fatalf("expected ErrNoValueSent, got %v", err)
	}
}

func TestStakeAccumulatesPastLastTier(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft, err := engine.Mint(adminAddr, []uint64{0}, []uint64{0}, []*big.Int{lyx(0)}, []string{"only"}, lyx(1), buyerAddr)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	first, err := engine.Stake(fanAddr, nft.TokenID, lyx(5))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	second, err := engine.Stake(fanAddr, nft.TokenID, lyx(7))
	if err != nil {
		t.Fatalf("stake past last tier: %v", err)
	}
	if second.TotalStaked.Cmp(new(big.Int).Add(first.TotalStaked, lyx(7))) != 0 {
		t.Fatalf("stake totals must keep accumulating")
	}
}

func TestStakePayoutFailureRollsBack(t *testing.T) {
	engine, state, _, sink, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)
	sink.failWith = fmt.Errorf("transfer to creator failed")

	_, err := engine.Stake(fanAddr, nft.TokenID, lyx(100))
	if err == nil {
		t.Fatalf("expected stake to fail")
	}
	if state.nfts[nft.TokenID].TotalStaked.Sign() != 0 {
		t.Fatalf("failed stake must not change the total")
	}
	if state.nfts[nft.TokenID].CurrentTier != 0 {
		t.Fatalf("failed stake must not advance tiers")
	}
}

func TestTierMonotonicity(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	last := uint64(0)
	principals := [][20]byte{fanAddr, otherAddr, {0x10}, {0x11}, {0x12}}
	for i, p := range principals {
		updated, err := engine.AddEngagement(p, nft.TokenID, 5, fmt.Sprintf("comment %d", i))
		if err != nil {
			t.Fatalf("engagement %d: %v", i, err)
		}
		if updated.CurrentTier < last {
			t.Fatalf("currentTier regressed from %d to %d", last, updated.CurrentTier)
		}
		for tier := uint64(0); tier <= last; tier++ {
			if tier < uint64(len(updated.Tiers)) && tier <= updated.CurrentTier && !updated.Tiers[tier].Unlocked {
				t.Fatalf("unlocked tier %d flipped back to locked", tier)
			}
		}
		last = updated.CurrentTier
	}
}

func TestListForSaleAndBuyFromOwner(t *testing.T) {
	engine, _, _, sink, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if _, err := engine.ListForSale(fanAddr, nft.TokenID, lyx(50)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := engine.ListForSale(buyerAddr, nft.TokenID, big.NewInt(0)); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	listed, err := engine.ListForSale(buyerAddr, nft.TokenID, lyx(50))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !listed.Listed || listed.Price.Cmp(lyx(50)) != 0 {
		t.Fatalf("unexpected listing state: %+v", listed)
	}

	bought, err := engine.Buy(otherAddr, nft.TokenID, lyx(50))
	if err != nil {
		t.Fatalf("buy listed token: %v", err)
	}
	if bought.Owner != otherAddr || bought.Listed {
		t.Fatalf("listing must clear on purchase: %+v", bought)
	}
	if len(sink.payments) != 1 || sink.payments[0].to != buyerAddr {
		t.Fatalf("listed-sale proceeds must go to the seller: %+v", sink.payments)
	}
}

func TestBuyUnlistedTokenRejected(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)
	_, err := engine.Buy(otherAddr, nft.TokenID, lyx(50))
	if !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
}

func TestCancelListing(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if _, err := engine.CancelListing(buyerAddr, nft.TokenID); !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
	if _, err := engine.ListForSale(buyerAddr, nft.TokenID, lyx(50)); err != nil {
		t.Fatalf("list: %v", err)
	}
	cancelled, err := engine.CancelListing(buyerAddr, nft.TokenID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Listed {
		t.Fatalf("listing flag must clear")
	}
}

type recordingHook struct {
	from    [20]byte
	to      [20]byte
	tokenID [32]byte
	data    []byte
	called  bool
	fail    error
}

func (h *recordingHook) OnTokenReceived(from [20]byte, to [20]byte, tokenID [32]byte, data []byte) error {
	h.called = true
	h.from, h.to, h.tokenID = from, to, tokenID
	h.data = append([]byte(nil), data...)
	return h.fail
}

type hookRegistry struct {
	hooks map[[20]byte]ReceiverHook
}

func (r *hookRegistry) ReceiverHook(addr [20]byte) (ReceiverHook, bool) {
	hook, ok := r.hooks[addr]
	return hook, ok
}

func TestTransferNotifiesReceiverHook(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	hook := &recordingHook{}
	engine.SetHooks(&hookRegistry{hooks: map[[20]byte]ReceiverHook{otherAddr: hook}})

	moved, err := engine.Transfer(buyerAddr, buyerAddr, otherAddr, nft.TokenID, true, []byte{0x01})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if moved.Owner != otherAddr {
		t.Fatalf("ownership must move")
	}
	if !hook.called || hook.from != buyerAddr || hook.to != otherAddr || hook.tokenID != nft.TokenID {
		t.Fatalf("hook must receive the transfer context: %+v", hook)
	}
	holders := state.holders(nft.TokenID)
	if len(holders) != 1 || holders[0] != otherAddr {
		t.Fatalf("token must appear in exactly one owned set, got %v", holders)
	}
}

func TestTransferHookFailureAborts(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	hook := &recordingHook{fail: fmt.Errorf("receiver refused")}
	engine.SetHooks(&hookRegistry{hooks: map[[20]byte]ReceiverHook{otherAddr: hook}})

	_, err := engine.Transfer(buyerAddr, buyerAddr, otherAddr, nft.TokenID, true, nil)
	if !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("expected ErrTransferRejected, got %v", err)
	}
	holders := state.holders(nft.TokenID)
	if len(holders) != 1 || holders[0] != buyerAddr {
		t.Fatalf("failed transfer must restore the previous owner, got %v", holders)
	}
}

func TestTransferByOperator(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if _, err := engine.Transfer(fanAddr, buyerAddr, otherAddr, nft.TokenID, false, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := engine.AuthorizeOperator(buyerAddr, fanAddr, nft.TokenID); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, err := engine.Transfer(fanAddr, buyerAddr, otherAddr, nft.TokenID, false, nil); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
}

func TestRevokedOperatorCannotTransfer(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, buyerAddr)

	if err := engine.AuthorizeOperator(buyerAddr, fanAddr, nft.TokenID); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := engine.RevokeOperator(buyerAddr, fanAddr, nft.TokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := engine.Transfer(fanAddr, buyerAddr, otherAddr, nft.TokenID, false, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestPauseBlocksMutatingEntryPoints(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	nft := mintDefault(t, engine, marketplaceAddr)

	if err := engine.Pause(buyerAddr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pause must be admin-only, got %v", err)
	}
	if err := engine.Pause(adminAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}

	var anyToken [32]byte
	if _, err := engine.Buy(buyerAddr, anyToken, lyx(10)); !errors.Is(err, ErrPaused) {
		t.Fatalf("buy while paused: %v", err)
	}
	if _, err := engine.AddEngagement(fanAddr, nft.TokenID, 1, "x"); !errors.Is(err, ErrPaused) {
		t.Fatalf("engagement while paused: %v", err)
	}
	if _, err := engine.Stake(fanAddr, nft.TokenID, lyx(1)); !errors.Is(err, ErrPaused) {
		t.Fatalf("stake while paused: %v", err)
	}
	if _, err := engine.Mint(adminAddr, nil, nil, nil, nil, lyx(1), marketplaceAddr); !errors.Is(err, ErrPaused) {
		t.Fatalf("mint while paused: %v", err)
	}
	// Ownership transfer stays available while paused.
	if err := engine.TransferOwnership(adminAddr, otherAddr); err != nil {
		t.Fatalf("ownership transfer while paused: %v", err)
	}
	if err := engine.Unpause(otherAddr); err != nil {
		t.Fatalf("unpause by new admin: %v", err)
	}
	if _, err := engine.Buy(buyerAddr, anyToken, lyx(10)); err != nil {
		t.Fatalf("buy after unpause: %v", err)
	}
}

func TestRenounceOwnership(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	if err := engine.RenounceOwnership(adminAddr); err != nil {
		t.Fatalf("renounce: %v", err)
	}
	admin, err := engine.Admin()
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if !isZeroAddress(admin) {
		t.Fatalf("admin must clear")
	}
	if _, err := engine.Mint(adminAddr, nil, nil, nil, nil, lyx(1), marketplaceAddr); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("mint after renounce: %v", err)
	}
}

func TestOwnershipExclusivity(t *testing.T) {
	engine, state, _, _, _ := newTestEngine(t)
	first := mintDefault(t, engine, marketplaceAddr)
	second := mintDefault(t, engine, buyerAddr)

	var anyToken [32]byte
	if _, err := engine.Buy(fanAddr, anyToken, lyx(10)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := engine.Transfer(buyerAddr, buyerAddr, otherAddr, second.TokenID, false, nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	for _, tokenID := range [][32]byte{first.TokenID, second.TokenID} {
		holders := state.holders(tokenID)
		if len(holders) != 1 {
			t.Fatalf("token %x held by %d owners", tokenID, len(holders))
		}
	}
}

func TestGetOwnedNFTsEmptyForStranger(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	mintDefault(t, engine, buyerAddr)
	owned, err := engine.OwnedTokens(otherAddr)
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if len(owned) != 0 {
		t.Fatalf("stranger must own nothing, got %d", len(owned))
	}
}

func TestNFTDataUnknownToken(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)
	var unknown [32]byte
	unknown[5] = 0x42
	_, err := engine.NFTData(unknown)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
