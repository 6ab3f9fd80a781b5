package gallery

import "errors"

// Ledger failure taxonomy. Every entry point aborts with exactly one of
// these so callers can render a precise message; none of them leaves a
// partial state change behind.
var (
	ErrUnauthorized        = errors.New("gallery: caller is not the ledger admin")
	ErrInvalidReceiver     = errors.New("gallery: invalid receiver address")
	ErrTierMismatch        = errors.New("gallery: tier arrays must share one length")
	ErrNotFound            = errors.New("gallery: nft does not exist")
	ErrPaused              = errors.New("gallery: ledger is paused")
	ErrInsufficientPayment = errors.New("gallery: insufficient payment")
	ErrNoInventory         = errors.New("gallery: no nfts available")
	ErrNoValueSent         = errors.New("gallery: no value sent")
	ErrNoMoreTiers         = errors.New("gallery: no more tiers to unlock")
	ErrNotOwner            = errors.New("gallery: caller is not the token owner")
	ErrInvalidPrice        = errors.New("gallery: price must be positive")
	ErrNotListed           = errors.New("gallery: token is not listed for sale")
	ErrNotAuthorized       = errors.New("gallery: caller may not transfer this token")
	ErrTransferRejected    = errors.New("gallery: receiver hook rejected the transfer")
	ErrReentrancy          = errors.New("gallery: reentrant call rejected")
	ErrAlreadyLiked        = errors.New("gallery: principal already liked this token")
)

var (
	errNilState     = errors.New("gallery engine: state not configured")
	errPayeeNotSet  = errors.New("gallery engine: payee not configured")
	errPayoutFailed = errors.New("gallery engine: outbound transfer failed")
)
