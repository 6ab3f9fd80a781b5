package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"artgrid/core/journal"
	"artgrid/native/gallery"
)

// View is an NFT projection folded from the event journal. It mirrors the
// stored record closely enough to audit the live state against the log.
type View struct {
	TokenID       [32]byte
	Owner         [20]byte
	Price         *big.Int
	Listed        bool
	CurrentTier   uint64
	TotalLikes    uint64
	TotalComments uint64
	TotalStaked   *big.Int
	Tiers         []gallery.Tier
	Comments      []gallery.Comment
}

// Views is the full set of projections plus the global flags the journal
// tracks.
type Views struct {
	Tokens map[[32]byte]*View
	Paused bool
	Admin  [20]byte
}

func parseHexToken(raw string) ([32]byte, error) {
	var id [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil || len(decoded) != len(id) {
		return id, fmt.Errorf("replay: malformed token id %q", raw)
	}
	copy(id[:], decoded)
	return id, nil
}

func parseHexAddr(raw string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil || len(decoded) != len(addr) {
		return addr, fmt.Errorf("replay: malformed address %q", raw)
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseBig(raw string) *big.Int {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// RebuildViews folds the journal into per-token projections. Minted events
// carry the full tier specification, so the fold needs nothing beyond the log
// itself.
func RebuildViews(j *journal.Journal) (*Views, error) {
	views := &Views{Tokens: make(map[[32]byte]*View)}
	err := j.Replay(func(rec journal.Record) error {
		switch rec.Type {
		case gallery.EventTypeMinted:
			tokenID, err := parseHexToken(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			owner, err := parseHexAddr(rec.Attributes["receiver"])
			if err != nil {
				return err
			}
			var tiers []gallery.Tier
			if err := json.Unmarshal([]byte(rec.Attributes["tiers"]), &tiers); err != nil {
				return fmt.Errorf("replay: tiers for %s: %w", rec.Attributes["tokenId"], err)
			}
			views.Tokens[tokenID] = &View{
				TokenID:     tokenID,
				Owner:       owner,
				Price:       parseBig(rec.Attributes["price"]),
				TotalStaked: big.NewInt(0),
				Tiers:       tiers,
			}
		case gallery.EventTypePurchased:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			buyer, err := parseHexAddr(rec.Attributes["buyer"])
			if err != nil {
				return err
			}
			view.Owner = buyer
			view.Listed = false
		case gallery.EventTypeLikeAdded:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			delta, err := strconv.ParseUint(rec.Attributes["delta"], 10, 64)
			if err != nil {
				return fmt.Errorf("replay: like delta: %w", err)
			}
			view.TotalLikes += delta
		case gallery.EventTypeCommentAdded:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			author, err := parseHexAddr(rec.Attributes["author"])
			if err != nil {
				return err
			}
			ts, _ := strconv.ParseInt(rec.Attributes["timestamp"], 10, 64)
			view.Comments = append(view.Comments, gallery.Comment{
				Author:    author,
				Text:      rec.Attributes["text"],
				Timestamp: ts,
			})
			view.TotalComments++
		case gallery.EventTypeStaked:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			view.TotalStaked = new(big.Int).Add(view.TotalStaked, parseBig(rec.Attributes["amount"]))
		case gallery.EventTypeTierUnlocked:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			tier, err := strconv.ParseUint(rec.Attributes["tier"], 10, 64)
			if err != nil {
				return fmt.Errorf("replay: tier index: %w", err)
			}
			view.CurrentTier = tier
			if tier < uint64(len(view.Tiers)) {
				view.Tiers[tier].Unlocked = true
			}
		case gallery.EventTypeListed:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			view.Listed = true
			view.Price = parseBig(rec.Attributes["price"])
		case gallery.EventTypeUnlisted:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			view.Listed = false
		case gallery.EventTypeTransferred:
			view, err := views.lookup(rec.Attributes["tokenId"])
			if err != nil {
				return err
			}
			to, err := parseHexAddr(rec.Attributes["to"])
			if err != nil {
				return err
			}
			view.Owner = to
			view.Listed = false
		case gallery.EventTypePaused:
			views.Paused = true
		case gallery.EventTypeUnpaused:
			views.Paused = false
		case gallery.EventTypeAdminTransferred:
			next, err := parseHexAddr(rec.Attributes["next"])
			if err != nil {
				return err
			}
			views.Admin = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (v *Views) lookup(rawToken string) (*View, error) {
	tokenID, err := parseHexToken(rawToken)
	if err != nil {
		return nil, err
	}
	view, ok := v.Tokens[tokenID]
	if !ok {
		return nil, fmt.Errorf("replay: event for unknown token %s", rawToken)
	}
	return view, nil
}

// OwnedByView lists token identifiers held by an address in the projection.
func (v *Views) OwnedByView(owner [20]byte) [][32]byte {
	var tokens [][32]byte
	for id, view := range v.Tokens {
		if view.Owner == owner {
			tokens = append(tokens, id)
		}
	}
	return tokens
}
