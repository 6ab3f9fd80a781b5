package gallery

import (
	"encoding/json"

	"artgrid/core/events"
	"artgrid/core/types"
)

const (
	// EventTypeMinted is emitted when the admin mints a new NFT.
	EventTypeMinted = "gallery.nft.minted"
	// EventTypePurchased is emitted when a buyer purchases an NFT.
	EventTypePurchased = "gallery.nft.purchased"
	// EventTypeLikeAdded is emitted when a principal likes an NFT.
	EventTypeLikeAdded = "gallery.like.added"
	// EventTypeCommentAdded is emitted when a comment is appended.
	EventTypeCommentAdded = "gallery.comment.added"
	// EventTypeEngagementUpdated summarises the counters after any
	// engagement mutation.
	EventTypeEngagementUpdated = "gallery.engagement.updated"
	// EventTypeStaked is emitted when currency is staked behind an NFT.
	EventTypeStaked = "gallery.stake.recorded"
	// EventTypeTierUnlocked is emitted when cumulative engagement unlocks
	// the next tier and its metadata pointer becomes active.
	EventTypeTierUnlocked = "gallery.tier.unlocked"
	// EventTypeListed is emitted when an owner lists a token for sale.
	EventTypeListed = "gallery.listing.created"
	// EventTypeUnlisted is emitted when a listing is cancelled.
	EventTypeUnlisted = "gallery.listing.cancelled"
	// EventTypeTransferred is emitted when token ownership moves.
	EventTypeTransferred = "gallery.nft.transferred"
	// EventTypeOperatorAuthorized is emitted when an owner grants transfer
	// rights for a token.
	EventTypeOperatorAuthorized = "gallery.operator.authorized"
	// EventTypeOperatorRevoked is emitted when transfer rights are revoked.
	EventTypeOperatorRevoked = "gallery.operator.revoked"
	// EventTypePaused and EventTypeUnpaused track the ledger pause flag.
	EventTypePaused   = "gallery.ledger.paused"
	EventTypeUnpaused = "gallery.ledger.unpaused"
	// EventTypeAdminTransferred is emitted when the administrative owner
	// changes, including renouncement to the zero address.
	EventTypeAdminTransferred = "gallery.admin.transferred"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// MintedEvent carries everything needed to rebuild the record from the event
// log alone, including the full tier specification.
func MintedEvent(tokenID string, receiver string, price string, tiers []Tier) *types.Event {
	encoded, err := json.Marshal(tiers)
	if err != nil {
		encoded = []byte("[]")
	}
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"tokenId":  tokenID,
			"receiver": receiver,
			"price":    price,
			"tiers":    string(encoded),
		},
	}
}

// PurchasedEvent records a completed sale.
func PurchasedEvent(buyer string, tokenID string, price string, seller string) *types.Event {
	return &types.Event{
		Type: EventTypePurchased,
		Attributes: map[string]string{
			"buyer":   buyer,
			"tokenId": tokenID,
			"price":   price,
			"seller":  seller,
		},
	}
}

// LikeAddedEvent records a like increment by a principal.
func LikeAddedEvent(tokenID string, fan string, delta string) *types.Event {
	return &types.Event{
		Type: EventTypeLikeAdded,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"fan":     fan,
			"delta":   delta,
		},
	}
}

// CommentAddedEvent records an appended comment.
func CommentAddedEvent(tokenID string, author string, text string, timestamp string) *types.Event {
	return &types.Event{
		Type: EventTypeCommentAdded,
		Attributes: map[string]string{
			"tokenId":   tokenID,
			"author":    author,
			"text":      text,
			"timestamp": timestamp,
		},
	}
}

// EngagementUpdatedEvent summarises counters after an engagement mutation.
func EngagementUpdatedEvent(tokenID string, totalLikes, totalComments, totalStaked, currentTier string) *types.Event {
	return &types.Event{
		Type: EventTypeEngagementUpdated,
		Attributes: map[string]string{
			"tokenId":       tokenID,
			"totalLikes":    totalLikes,
			"totalComments": totalComments,
			"totalStaked":   totalStaked,
			"currentTier":   currentTier,
		},
	}
}

// StakedEvent records staked currency forwarded to the payee.
func StakedEvent(staker string, tokenID string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeStaked,
		Attributes: map[string]string{
			"staker":  staker,
			"tokenId": tokenID,
			"amount":  amount,
		},
	}
}

// TierUnlockedEvent records a tier progression and the newly active metadata
// pointer.
func TierUnlockedEvent(tokenID string, tier string, metadataRef string) *types.Event {
	return &types.Event{
		Type: EventTypeTierUnlocked,
		Attributes: map[string]string{
			"tokenId":     tokenID,
			"tier":        tier,
			"metadataRef": metadataRef,
		},
	}
}

// ListedEvent records a new sale listing.
func ListedEvent(tokenID string, owner string, price string) *types.Event {
	return &types.Event{
		Type: EventTypeListed,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"owner":   owner,
			"price":   price,
		},
	}
}

// UnlistedEvent records a cancelled listing.
func UnlistedEvent(tokenID string, owner string) *types.Event {
	return &types.Event{
		Type: EventTypeUnlisted,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"owner":   owner,
		},
	}
}

// TransferredEvent records an ownership move.
func TransferredEvent(tokenID string, from string, to string) *types.Event {
	return &types.Event{
		Type: EventTypeTransferred,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"from":    from,
			"to":      to,
		},
	}
}

// OperatorEvent records an operator grant or revocation.
func OperatorEvent(eventType string, tokenID string, owner string, operator string) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"tokenId":  tokenID,
			"owner":    owner,
			"operator": operator,
		},
	}
}

// PauseEvent records a pause flag flip by the admin.
func PauseEvent(eventType string, admin string) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"admin": admin,
		},
	}
}

// AdminTransferredEvent records an administrative ownership change.
func AdminTransferredEvent(previous string, next string) *types.Event {
	return &types.Event{
		Type: EventTypeAdminTransferred,
		Attributes: map[string]string{
			"previous": previous,
			"next":     next,
		},
	}
}
