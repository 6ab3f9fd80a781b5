package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"artgrid/core"
	"artgrid/native/gallery"
	"artgrid/storage"
)

const testToken = "secret-token"

var (
	rpcAdmin       = [20]byte{0x01}
	rpcMarketplace = [20]byte{0xAA}
	rpcPayee       = [20]byte{0x02}
	rpcBuyer       = [20]byte{0x03}
	rpcFan         = [20]byte{0x04}
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.NodeConfig{
		Admin:       rpcAdmin,
		Marketplace: rpcMarketplace,
		Payee:       rpcPayee,
	})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return NewServer(node, testToken, nil)
}

func call(t *testing.T, s *Server, method string, params interface{}, token string) RPCResponse {
	t.Helper()
	reqBody := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		reqBody["params"] = []interface{}{params}
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(encoded))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handle(rr, req)
	var resp RPCResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return resp
}

func mintViaRPC(t *testing.T, s *Server) galleryNFTResult {
	t.Helper()
	resp := call(t, s, "gallery_mint", galleryMintParams{
		Caller:        formatAddress(rpcAdmin),
		LikesRequired: []uint64{0, 1},
		CommentsReq:   []uint64{0, 1},
		StakesReq:     []string{"0", "5"},
		MetadataRefs:  []string{"cid-tier-0", "cid-tier-1"},
		Price:         "10",
		Receiver:      formatAddress(rpcMarketplace),
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("mint failed: %+v", resp.Error)
	}
	return decodeNFTResult(t, resp)
}

func decodeNFTResult(t *testing.T, resp RPCResponse) galleryNFTResult {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	var nft galleryNFTResult
	if err := json.Unmarshal(raw, &nft); err != nil {
		t.Fatalf("decode nft result: %v", err)
	}
	return nft
}

func TestHandleRejectsEmptyBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	s.handle(rr, req)
	var resp RPCResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request error, got %+v", resp.Error)
	}
}

func TestHandleRejectsUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, "gallery_unknown", nil, "")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestMintRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, "gallery_mint", galleryMintParams{}, "")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	resp = call(t, s, "gallery_mint", galleryMintParams{}, "wrong-token")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %+v", resp.Error)
	}
}

func TestMintAndGetRoundTrip(t *testing.T) {
	s := newTestServer(t)
	minted := mintViaRPC(t, s)
	if minted.Owner != formatAddress(rpcMarketplace) {
		t.Fatalf("expected marketplace owner, got %s", minted.Owner)
	}
	if len(minted.Tiers) != 2 || !minted.Tiers[0].Unlocked || minted.Tiers[1].Unlocked {
		t.Fatalf("unexpected tier state: %+v", minted.Tiers)
	}
	if minted.ActiveRef != "cid-tier-0" {
		t.Fatalf("expected tier 0 metadata active, got %q", minted.ActiveRef)
	}

	resp := call(t, s, "gallery_getNFT", galleryTokenParams{TokenID: minted.TokenID}, "")
	if resp.Error != nil {
		t.Fatalf("get failed: %+v", resp.Error)
	}
	fetched := decodeNFTResult(t, resp)
	if fetched.TokenID != minted.TokenID {
		t.Fatalf("token id mismatch: %s vs %s", fetched.TokenID, minted.TokenID)
	}
}

func TestBuyThroughRPC(t *testing.T) {
	s := newTestServer(t)
	mintViaRPC(t, s)

	resp := call(t, s, "gallery_buy", galleryBuyParams{
		Buyer: formatAddress(rpcBuyer),
		Value: "10",
	}, "")
	if resp.Error != nil {
		t.Fatalf("buy failed: %+v", resp.Error)
	}
	bought := decodeNFTResult(t, resp)
	if bought.Owner != formatAddress(rpcBuyer) {
		t.Fatalf("expected buyer owner, got %s", bought.Owner)
	}

	resp = call(t, s, "gallery_getOwned", galleryOwnedParams{Owner: formatAddress(rpcBuyer)}, "")
	if resp.Error != nil {
		t.Fatalf("owned failed: %+v", resp.Error)
	}
	var owned struct {
		Tokens []string `json:"tokens"`
	}
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &owned); err != nil {
		t.Fatalf("decode owned: %v", err)
	}
	if len(owned.Tokens) != 1 || owned.Tokens[0] != bought.TokenID {
		t.Fatalf("unexpected owned tokens: %+v", owned.Tokens)
	}
}

func TestBuyInsufficientPaymentSurfacesServerError(t *testing.T) {
	s := newTestServer(t)
	mintViaRPC(t, s)
	resp := call(t, s, "gallery_buy", galleryBuyParams{
		Buyer: formatAddress(rpcBuyer),
		Value: "3",
	}, "")
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected server error, got %+v", resp.Error)
	}
}

func TestEngagementRejectsMalformedAddress(t *testing.T) {
	s := newTestServer(t)
	minted := mintViaRPC(t, s)
	resp := call(t, s, "gallery_addEngagement", galleryEngagementParams{
		Caller:  "not-an-address",
		TokenID: minted.TokenID,
		Likes:   1,
	}, "")
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestEngagementAndHasLiked(t *testing.T) {
	s := newTestServer(t)
	minted := mintViaRPC(t, s)

	resp := call(t, s, "gallery_addEngagement", galleryEngagementParams{
		Caller:  formatAddress(rpcFan),
		TokenID: minted.TokenID,
		Likes:   1,
		Comment: "gorgeous grid",
	}, "")
	if resp.Error != nil {
		t.Fatalf("engagement failed: %+v", resp.Error)
	}
	updated := decodeNFTResult(t, resp)
	if updated.TotalLikes != 1 || updated.TotalComments != 1 {
		t.Fatalf("unexpected counters: %+v", updated)
	}

	resp = call(t, s, "gallery_hasLiked", galleryHasLikedParams{
		TokenID:   minted.TokenID,
		Principal: formatAddress(rpcFan),
	}, "")
	if resp.Error != nil {
		t.Fatalf("hasLiked failed: %+v", resp.Error)
	}
	var liked struct {
		Liked bool `json:"liked"`
	}
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &liked); err != nil {
		t.Fatalf("decode hasLiked: %v", err)
	}
	if !liked.Liked {
		t.Fatal("expected liked=true")
	}
}

func TestEventsReturnsJournal(t *testing.T) {
	s := newTestServer(t)
	mintViaRPC(t, s)

	resp := call(t, s, "gallery_events", galleryEventsParams{}, "")
	if resp.Error != nil {
		t.Fatalf("events failed: %+v", resp.Error)
	}
	var records []galleryEventResult
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(records) != 1 || records[0].Type != gallery.EventTypeMinted {
		t.Fatalf("unexpected journal records: %+v", records)
	}
}

func TestPauseGatesMutationsOverRPC(t *testing.T) {
	s := newTestServer(t)
	minted := mintViaRPC(t, s)

	resp := call(t, s, "gallery_pause", galleryOwnershipParams{Caller: formatAddress(rpcAdmin)}, testToken)
	if resp.Error != nil {
		t.Fatalf("pause failed: %+v", resp.Error)
	}
	resp = call(t, s, "gallery_addEngagement", galleryEngagementParams{
		Caller:  formatAddress(rpcFan),
		TokenID: minted.TokenID,
		Likes:   1,
	}, "")
	if resp.Error == nil || resp.Error.Code != codeServerError {
		t.Fatalf("expected paused rejection, got %+v", resp.Error)
	}
	resp = call(t, s, "gallery_unpause", galleryOwnershipParams{Caller: formatAddress(rpcAdmin)}, testToken)
	if resp.Error != nil {
		t.Fatalf("unpause failed: %+v", resp.Error)
	}
}

func TestEventsWSStreamsBacklog(t *testing.T) {
	s := newTestServer(t)
	minted := mintViaRPC(t, s)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var rec galleryEventResult
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode stream record: %v", err)
	}
	if rec.Type != gallery.EventTypeMinted || rec.Attributes["tokenId"] != minted.TokenID {
		t.Fatalf("unexpected stream record: %+v", rec)
	}
}
