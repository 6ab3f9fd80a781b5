package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"artgrid/native/gallery"
)

type galleryMintParams struct {
	Caller        string   `json:"caller"`
	LikesRequired []uint64 `json:"likesRequired"`
	CommentsReq   []uint64 `json:"commentsRequired"`
	StakesReq     []string `json:"stakesRequired"`
	MetadataRefs  []string `json:"metadataRefs"`
	Price         string   `json:"price"`
	Receiver      string   `json:"receiver"`
}

type galleryBuyParams struct {
	Buyer   string `json:"buyer"`
	TokenID string `json:"tokenId,omitempty"`
	Value   string `json:"value"`
}

type galleryEngagementParams struct {
	Caller  string `json:"caller"`
	TokenID string `json:"tokenId"`
	Likes   uint64 `json:"likes,omitempty"`
	Comment string `json:"comment,omitempty"`
}

type galleryStakeParams struct {
	Staker  string `json:"staker"`
	TokenID string `json:"tokenId"`
	Value   string `json:"value"`
}

type galleryListParams struct {
	Caller  string `json:"caller"`
	TokenID string `json:"tokenId"`
	Price   string `json:"price"`
}

type galleryTokenParams struct {
	Caller  string `json:"caller,omitempty"`
	TokenID string `json:"tokenId"`
}

type galleryTransferParams struct {
	Caller  string `json:"caller"`
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID string `json:"tokenId"`
	Notify  bool   `json:"notify,omitempty"`
	Data    string `json:"data,omitempty"`
}

type galleryOperatorParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	TokenID  string `json:"tokenId"`
}

type galleryOwnedParams struct {
	Owner string `json:"owner"`
}

type galleryHasLikedParams struct {
	TokenID   string `json:"tokenId"`
	Principal string `json:"principal"`
}

type galleryEventsParams struct {
	After uint64 `json:"after,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type galleryOwnershipParams struct {
	Caller string `json:"caller"`
	Next   string `json:"next,omitempty"`
}

type galleryTierResult struct {
	LikesRequired    uint64 `json:"likesRequired"`
	CommentsRequired uint64 `json:"commentsRequired"`
	StakeRequired    string `json:"stakeRequired"`
	MetadataRef      string `json:"metadataRef"`
	Unlocked         bool   `json:"unlocked"`
}

type galleryCommentResult struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type galleryNFTResult struct {
	TokenID       string                 `json:"tokenId"`
	Owner         string                 `json:"owner"`
	Price         string                 `json:"price"`
	Listed        bool                   `json:"listed"`
	CurrentTier   uint64                 `json:"currentTier"`
	ActiveRef     string                 `json:"activeMetadataRef"`
	TotalLikes    uint64                 `json:"totalLikes"`
	TotalComments uint64                 `json:"totalComments"`
	TotalStaked   string                 `json:"totalStaked"`
	Tiers         []galleryTierResult    `json:"tiers"`
	Comments      []galleryCommentResult `json:"comments,omitempty"`
	MintedAt      int64                  `json:"mintedAt"`
}

type galleryEventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatToken(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func decodeAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", raw)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes", len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

func decodeToken(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return id, nil
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
	if err != nil {
		return id, fmt.Errorf("invalid token id %q", raw)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("token id must be %d bytes", len(id))
	}
	copy(id[:], decoded)
	return id, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatNFT(nft *gallery.NFT) galleryNFTResult {
	tiers := make([]galleryTierResult, len(nft.Tiers))
	for i, tier := range nft.Tiers {
		tiers[i] = galleryTierResult{
			LikesRequired:    tier.LikesRequired,
			CommentsRequired: tier.CommentsRequired,
			StakeRequired:    bigString(tier.StakeRequired),
			MetadataRef:      tier.MetadataRef,
			Unlocked:         tier.Unlocked,
		}
	}
	var comments []galleryCommentResult
	for _, comment := range nft.Comments {
		comments = append(comments, galleryCommentResult{
			Author:    formatAddress(comment.Author),
			Text:      comment.Text,
			Timestamp: comment.Timestamp,
		})
	}
	return galleryNFTResult{
		TokenID:       formatToken(nft.TokenID),
		Owner:         formatAddress(nft.Owner),
		Price:         bigString(nft.Price),
		Listed:        nft.Listed,
		CurrentTier:   nft.CurrentTier,
		ActiveRef:     nft.ActiveMetadataRef(),
		TotalLikes:    nft.TotalLikes,
		TotalComments: nft.TotalComments,
		TotalStaked:   bigString(nft.TotalStaked),
		Tiers:         tiers,
		Comments:      comments,
		MintedAt:      nft.MintedAt,
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func (s *Server) handleGalleryMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	receiver, err := decodeAddress(params.Receiver)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid receiver address", err.Error())
		return
	}
	stakes := make([]*big.Int, len(params.StakesReq))
	for i, raw := range params.StakesReq {
		stake, err := parseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		stakes[i] = stake
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.Mint(caller, params.LikesRequired, params.CommentsReq, stakes, params.MetadataRefs, price, receiver)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to mint", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryBuy(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryBuyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	buyer, err := decodeAddress(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.Buy(buyer, tokenID, value)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to buy", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryAddEngagement(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryEngagementParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.AddEngagement(caller, tokenID, params.Likes, params.Comment)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to record engagement", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryStakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	staker, err := decodeAddress(params.Staker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid staker address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.Stake(staker, tokenID, value)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to stake", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryListParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.ListForSale(caller, tokenID, price)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to list for sale", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryCancelListing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.CancelListing(caller, tokenID)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to cancel listing", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	from, err := decodeAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid from address", err.Error())
		return
	}
	to, err := decodeAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid to address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var data []byte
	if trimmed := strings.TrimSpace(params.Data); trimmed != "" {
		data, err = hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid data payload", err.Error())
			return
		}
	}
	nft, err := s.node.Transfer(caller, from, to, tokenID, params.Notify, data)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to transfer", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryAuthorizeOperator(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleOperatorChange(w, req, true)
}

func (s *Server) handleGalleryRevokeOperator(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleOperatorChange(w, req, false)
}

func (s *Server) handleOperatorChange(w http.ResponseWriter, req *RPCRequest, authorize bool) {
	var params galleryOperatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	operator, err := decodeAddress(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if authorize {
		err = s.node.AuthorizeOperator(caller, operator, tokenID)
	} else {
		err = s.node.RevokeOperator(caller, operator, tokenID)
	}
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to update operator", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"authorized": authorize})
}

func (s *Server) handleGalleryGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nft, err := s.node.NFTData(tokenID)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to load token", err.Error())
		return
	}
	writeResult(w, req.ID, formatNFT(nft))
}

func (s *Server) handleGalleryOwned(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryOwnedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	owner, err := decodeAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	tokens, err := s.node.OwnedTokens(owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to list tokens", err.Error())
		return
	}
	ids := make([]string, len(tokens))
	for i, id := range tokens {
		ids[i] = formatToken(id)
	}
	writeResult(w, req.ID, map[string]interface{}{"owner": params.Owner, "tokens": ids})
}

func (s *Server) handleGalleryHasLiked(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryHasLikedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	tokenID, err := decodeToken(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	principal, err := decodeAddress(params.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid principal address", err.Error())
		return
	}
	liked, err := s.node.HasLiked(tokenID, principal)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to query likes", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"liked": liked})
}

func (s *Server) handleGalleryEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := galleryEventsParams{}
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
			return
		}
	}
	records, err := s.node.Events(params.After, params.Limit)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to read journal", err.Error())
		return
	}
	results := make([]galleryEventResult, len(records))
	for i, rec := range records {
		results[i] = galleryEventResult{Sequence: rec.Sequence, Type: rec.Type, Attributes: rec.Attributes}
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleGalleryAdmin(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	admin, err := s.node.Admin()
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to load admin", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"admin":  formatAddress(admin),
		"paused": s.node.Paused(),
	})
}

func (s *Server) handleGalleryPause(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handlePauseChange(w, req, true)
}

func (s *Server) handleGalleryUnpause(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handlePauseChange(w, req, false)
}

func (s *Server) handlePauseChange(w http.ResponseWriter, req *RPCRequest, pause bool) {
	var params galleryOwnershipParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if pause {
		err = s.node.Pause(caller)
	} else {
		err = s.node.Unpause(caller)
	}
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to update pause flag", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": pause})
}

func (s *Server) handleGalleryTransferOwnership(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryOwnershipParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	next, err := decodeAddress(params.Next)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid next owner address", err.Error())
		return
	}
	if err := s.node.TransferOwnership(caller, next); err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to transfer ownership", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]string{"admin": params.Next})
}

func (s *Server) handleGalleryRenounceOwnership(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params galleryOwnershipParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.RenounceOwnership(caller); err != nil {
		writeError(w, http.StatusOK, req.ID, codeServerError, "failed to renounce ownership", err.Error())
		return
	}
	var zero [20]byte
	writeResult(w, req.ID, map[string]string{"admin": formatAddress(zero)})
}
