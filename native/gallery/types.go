package gallery

import (
	"fmt"
	"math/big"
)

// ModuleName identifies the gallery ledger in pause registries and metrics.
const ModuleName = "gallery"

// Tier is one unlockable stage of an NFT's metadata. Thresholds are fixed at
// mint time; only the Unlocked flag changes afterwards, and only from false
// to true.
type Tier struct {
	LikesRequired    uint64   `json:"likesRequired"`
	CommentsRequired uint64   `json:"commentsRequired"`
	StakeRequired    *big.Int `json:"stakeRequired"`
	MetadataRef      string   `json:"metadataRef"`
	Unlocked         bool     `json:"unlocked"`
}

// Clone returns a deep copy of the tier.
func (t Tier) Clone() Tier {
	clone := t
	if t.StakeRequired != nil {
		clone.StakeRequired = new(big.Int).Set(t.StakeRequired)
	} else {
		clone.StakeRequired = big.NewInt(0)
	}
	return clone
}

// Comment is an authored, timestamped engagement record. The comment list on
// an NFT is append-only.
type Comment struct {
	Author    [20]byte `json:"author"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

// NFT captures the full ledger record for a minted token. Records are never
// deleted; ownership and sale state mutate while the engagement counters grow
// monotonically over the token's lifetime.
type NFT struct {
	TokenID       [32]byte  `json:"tokenId"`
	CurrentTier   uint64    `json:"currentTier"`
	TotalLikes    uint64    `json:"totalLikes"`
	TotalComments uint64    `json:"totalComments"`
	TotalStaked   *big.Int  `json:"totalStaked"`
	Tiers         []Tier    `json:"tiers"`
	Comments      []Comment `json:"comments"`
	Owner         [20]byte  `json:"owner"`
	Price         *big.Int  `json:"price"`
	Listed        bool      `json:"listed"`
	MintedAt      int64     `json:"mintedAt"`
}

// Clone returns a deep copy of the record so callers can safely mutate the
// copy without affecting the stored instance.
func (n *NFT) Clone() *NFT {
	if n == nil {
		return nil
	}
	clone := *n
	if n.TotalStaked != nil {
		clone.TotalStaked = new(big.Int).Set(n.TotalStaked)
	} else {
		clone.TotalStaked = big.NewInt(0)
	}
	if n.Price != nil {
		clone.Price = new(big.Int).Set(n.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	clone.Tiers = make([]Tier, len(n.Tiers))
	for i := range n.Tiers {
		clone.Tiers[i] = n.Tiers[i].Clone()
	}
	clone.Comments = append([]Comment(nil), n.Comments...)
	return &clone
}

// ActiveMetadataRef returns the metadata pointer of the highest unlocked tier,
// or the empty string for a token minted without tiers.
func (n *NFT) ActiveMetadataRef() string {
	if n == nil || len(n.Tiers) == 0 {
		return ""
	}
	idx := n.CurrentTier
	if idx >= uint64(len(n.Tiers)) {
		idx = uint64(len(n.Tiers)) - 1
	}
	return n.Tiers[idx].MetadataRef
}

// SanitizeNFT validates and normalises a stored record, returning a cloned
// instance with non-nil amount fields. The function does not mutate the
// original value.
func SanitizeNFT(n *NFT) (*NFT, error) {
	if n == nil {
		return nil, fmt.Errorf("nil nft record")
	}
	clone := n.Clone()
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("nft price must be non-negative")
	}
	if clone.TotalStaked.Sign() < 0 {
		return nil, fmt.Errorf("nft stake total must be non-negative")
	}
	if len(clone.Tiers) > 0 {
		if clone.CurrentTier >= uint64(len(clone.Tiers)) {
			return nil, fmt.Errorf("current tier %d out of range", clone.CurrentTier)
		}
		if !clone.Tiers[0].Unlocked {
			return nil, fmt.Errorf("tier 0 must be unlocked")
		}
	} else if clone.CurrentTier != 0 {
		return nil, fmt.Errorf("current tier %d out of range", clone.CurrentTier)
	}
	for i := range clone.Tiers {
		if clone.Tiers[i].StakeRequired.Sign() < 0 {
			return nil, fmt.Errorf("tier %d stake threshold must be non-negative", i)
		}
	}
	return clone, nil
}
