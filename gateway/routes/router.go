package routes

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"artgrid/core"
	"artgrid/gateway/middleware"
	"artgrid/native/gallery"
)

// ScopeAdmin is the JWT scope required for the gateway's admin endpoints.
const ScopeAdmin = "gallery.admin"

// Config wires the REST surface over the node.
type Config struct {
	Node          *core.Node
	Authenticator *middleware.Authenticator
}

// New builds the gateway router: public reads under /v1, Prometheus metrics,
// and an authenticated admin mirror for the pause switch.
func New(cfg Config) (http.Handler, error) {
	if cfg.Node == nil {
		return nil, fmt.Errorf("routes: node required")
	}
	h := &handlers{node: cfg.Node}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/nfts/{tokenID}", h.getNFT)
		v1.Get("/owners/{address}/nfts", h.getOwned)
		v1.Get("/events", h.getEvents)
		v1.Get("/status", h.getStatus)

		v1.Route("/admin", func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware(ScopeAdmin))
			}
			admin.Post("/pause", h.postPause)
			admin.Post("/unpause", h.postUnpause)
		})
	})
	return r, nil
}

type handlers struct {
	node *core.Node
}

type tierPayload struct {
	LikesRequired    uint64 `json:"likesRequired"`
	CommentsRequired uint64 `json:"commentsRequired"`
	StakeRequired    string `json:"stakeRequired"`
	MetadataRef      string `json:"metadataRef"`
	Unlocked         bool   `json:"unlocked"`
}

type commentPayload struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type nftPayload struct {
	TokenID       string           `json:"tokenId"`
	Owner         string           `json:"owner"`
	Price         string           `json:"price"`
	Listed        bool             `json:"listed"`
	CurrentTier   uint64           `json:"currentTier"`
	ActiveRef     string           `json:"activeMetadataRef"`
	TotalLikes    uint64           `json:"totalLikes"`
	TotalComments uint64           `json:"totalComments"`
	TotalStaked   string           `json:"totalStaked"`
	Tiers         []tierPayload    `json:"tiers"`
	Comments      []commentPayload `json:"comments,omitempty"`
	MintedAt      int64            `json:"mintedAt"`
}

type eventPayload struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

func hexAddress(addr [20]byte) string { return "0x" + hex.EncodeToString(addr[:]) }

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(decoded) != len(addr) {
		return addr, fmt.Errorf("invalid address %q", raw)
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseTokenID(raw string) ([32]byte, error) {
	var id [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil || len(decoded) != len(id) {
		return id, fmt.Errorf("invalid token id %q", raw)
	}
	copy(id[:], decoded)
	return id, nil
}

func formatNFT(nft *gallery.NFT) nftPayload {
	tiers := make([]tierPayload, len(nft.Tiers))
	for i, tier := range nft.Tiers {
		stake := "0"
		if tier.StakeRequired != nil {
			stake = tier.StakeRequired.String()
		}
		tiers[i] = tierPayload{
			LikesRequired:    tier.LikesRequired,
			CommentsRequired: tier.CommentsRequired,
			StakeRequired:    stake,
			MetadataRef:      tier.MetadataRef,
			Unlocked:         tier.Unlocked,
		}
	}
	var comments []commentPayload
	for _, comment := range nft.Comments {
		comments = append(comments, commentPayload{
			Author:    hexAddress(comment.Author),
			Text:      comment.Text,
			Timestamp: comment.Timestamp,
		})
	}
	staked := "0"
	if nft.TotalStaked != nil {
		staked = nft.TotalStaked.String()
	}
	price := "0"
	if nft.Price != nil {
		price = nft.Price.String()
	}
	return nftPayload{
		TokenID:       "0x" + hex.EncodeToString(nft.TokenID[:]),
		Owner:         hexAddress(nft.Owner),
		Price:         price,
		Listed:        nft.Listed,
		CurrentTier:   nft.CurrentTier,
		ActiveRef:     nft.ActiveMetadataRef(),
		TotalLikes:    nft.TotalLikes,
		TotalComments: nft.TotalComments,
		TotalStaked:   staked,
		Tiers:         tiers,
		Comments:      comments,
		MintedAt:      nft.MintedAt,
	}
}

func (h *handlers) getNFT(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	nft, err := h.node.NFTData(tokenID)
	if errors.Is(err, gallery.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, formatNFT(nft))
}

func (h *handlers) getOwned(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	tokens, err := h.node.OwnedTokens(owner)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]string, len(tokens))
	for i, id := range tokens {
		ids[i] = "0x" + hex.EncodeToString(id[:])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":  hexAddress(owner),
		"tokens": ids,
	})
}

func (h *handlers) getEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		after = parsed
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	records, err := h.node.Events(after, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]eventPayload, len(records))
	for i, rec := range records {
		payload[i] = eventPayload{Sequence: rec.Sequence, Type: rec.Type, Attributes: rec.Attributes}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handlers) getStatus(w http.ResponseWriter, _ *http.Request) {
	admin, err := h.node.Admin()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"admin":  hexAddress(admin),
		"paused": h.node.Paused(),
	})
}

type pauseRequest struct {
	Caller string `json:"caller"`
}

func (h *handlers) postPause(w http.ResponseWriter, r *http.Request) {
	h.setPause(w, r, true)
}

func (h *handlers) postUnpause(w http.ResponseWriter, r *http.Request) {
	h.setPause(w, r, false)
}

func (h *handlers) setPause(w http.ResponseWriter, r *http.Request, pause bool) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if pause {
		err = h.node.Pause(caller)
	} else {
		err = h.node.Unpause(caller)
	}
	if errors.Is(err, gallery.ErrUnauthorized) {
		writeErr(w, http.StatusForbidden, "caller is not the admin")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": pause})
}
