package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"artgrid/native/gallery"
	"artgrid/storage"
)

// Key layout for the gallery ledger. Owner membership uses a dense
// index-slot scheme (slot keys plus a reverse position entry) so add and
// remove are O(1) swap operations rather than linear scans.
const (
	prefixNFT        = "gallery/nft/"
	prefixOwnedSlot  = "gallery/owned/"
	prefixOwnedPos   = "gallery/ownedpos/"
	prefixOwnedCount = "gallery/ownedcount/"
	prefixLiked      = "gallery/liked/"
	prefixOperator   = "gallery/operator/"
	keyAdmin         = "gallery/admin"
	keyMintSeq       = "gallery/mintseq"
)

// GalleryState adapts a key-value database to the persistence surface the
// gallery engine requires.
type GalleryState struct {
	db storage.Database
}

// NewGalleryState wraps the supplied database.
func NewGalleryState(db storage.Database) *GalleryState {
	return &GalleryState{db: db}
}

func nftKey(tokenID [32]byte) []byte {
	return append([]byte(prefixNFT), tokenID[:]...)
}

func ownedSlotKey(owner [20]byte, index uint64) []byte {
	key := append([]byte(prefixOwnedSlot), owner[:]...)
	key = append(key, '/')
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return append(key, idx[:]...)
}

func ownedSlotPrefix(owner [20]byte) []byte {
	key := append([]byte(prefixOwnedSlot), owner[:]...)
	return append(key, '/')
}

func ownedPosKey(tokenID [32]byte) []byte {
	return append([]byte(prefixOwnedPos), tokenID[:]...)
}

func ownedCountKey(owner [20]byte) []byte {
	return append([]byte(prefixOwnedCount), owner[:]...)
}

func likedKey(tokenID [32]byte, principal [20]byte) []byte {
	key := append([]byte(prefixLiked), tokenID[:]...)
	return append(key, principal[:]...)
}

func operatorKey(tokenID [32]byte, operator [20]byte) []byte {
	key := append([]byte(prefixOperator), tokenID[:]...)
	return append(key, operator[:]...)
}

func (s *GalleryState) getUint64(key []byte) (uint64, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed counter at %q", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *GalleryState) putUint64(key []byte, value uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return s.db.Put(key, buf[:])
}

// GalleryNFTGet loads a record by token identifier.
func (s *GalleryState) GalleryNFTGet(tokenID [32]byte) (*gallery.NFT, bool, error) {
	raw, err := s.db.Get(nftKey(tokenID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var nft gallery.NFT
	if err := json.Unmarshal(raw, &nft); err != nil {
		return nil, false, fmt.Errorf("state: decode nft record: %w", err)
	}
	sanitized, err := gallery.SanitizeNFT(&nft)
	if err != nil {
		return nil, false, fmt.Errorf("state: corrupt nft record: %w", err)
	}
	return sanitized, true, nil
}

// GalleryNFTPut stores a record keyed by its token identifier.
func (s *GalleryState) GalleryNFTPut(nft *gallery.NFT) error {
	sanitized, err := gallery.SanitizeNFT(nft)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("state: encode nft record: %w", err)
	}
	return s.db.Put(nftKey(sanitized.TokenID), raw)
}

// GalleryOwnedList returns the owner's tokens in slot order.
func (s *GalleryState) GalleryOwnedList(owner [20]byte) ([][32]byte, error) {
	var out [][32]byte
	var iterErr error
	err := s.db.IteratePrefix(ownedSlotPrefix(owner), func(key, value []byte) bool {
		if len(value) != 32 {
			iterErr = fmt.Errorf("state: malformed owned slot at %q", key)
			return false
		}
		var id [32]byte
		copy(id[:], value)
		out = append(out, id)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

// GalleryOwnedFirst returns the token in the owner's lowest slot, if any.
func (s *GalleryState) GalleryOwnedFirst(owner [20]byte) ([32]byte, bool, error) {
	var zero [32]byte
	count, err := s.getUint64(ownedCountKey(owner))
	if err != nil {
		return zero, false, err
	}
	if count == 0 {
		return zero, false, nil
	}
	raw, err := s.db.Get(ownedSlotKey(owner, 0))
	if err != nil {
		return zero, false, err
	}
	var id [32]byte
	copy(id[:], raw)
	return id, true, nil
}

// GalleryOwnedAdd appends the token to the owner's slot list.
func (s *GalleryState) GalleryOwnedAdd(owner [20]byte, tokenID [32]byte) error {
	count, err := s.getUint64(ownedCountKey(owner))
	if err != nil {
		return err
	}
	if err := s.db.Put(ownedSlotKey(owner, count), tokenID[:]); err != nil {
		return err
	}
	if err := s.putUint64(ownedPosKey(tokenID), count); err != nil {
		return err
	}
	return s.putUint64(ownedCountKey(owner), count+1)
}

// GalleryOwnedRemove deletes the token from the owner's slot list by moving
// the last slot into the vacated position.
func (s *GalleryState) GalleryOwnedRemove(owner [20]byte, tokenID [32]byte) error {
	count, err := s.getUint64(ownedCountKey(owner))
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("state: token %x not held by %x", tokenID, owner)
	}
	pos, err := s.getUint64(ownedPosKey(tokenID))
	if err != nil {
		return err
	}
	if pos >= count {
		return fmt.Errorf("state: owned index out of range for token %x", tokenID)
	}
	current, err := s.db.Get(ownedSlotKey(owner, pos))
	if err != nil {
		return err
	}
	if len(current) != 32 || [32]byte(current) != tokenID {
		return fmt.Errorf("state: token %x not held by %x", tokenID, owner)
	}
	last := count - 1
	if pos != last {
		moved, err := s.db.Get(ownedSlotKey(owner, last))
		if err != nil {
			return err
		}
		if err := s.db.Put(ownedSlotKey(owner, pos), moved); err != nil {
			return err
		}
		var movedID [32]byte
		copy(movedID[:], moved)
		if err := s.putUint64(ownedPosKey(movedID), pos); err != nil {
			return err
		}
	}
	if err := s.db.Delete(ownedSlotKey(owner, last)); err != nil {
		return err
	}
	if err := s.db.Delete(ownedPosKey(tokenID)); err != nil {
		return err
	}
	return s.putUint64(ownedCountKey(owner), last)
}

// GalleryHasLiked reports whether the principal has liked the token.
func (s *GalleryState) GalleryHasLiked(tokenID [32]byte, principal [20]byte) (bool, error) {
	return s.db.Has(likedKey(tokenID, principal))
}

// GalleryMarkLiked makes the principal's like for the token permanent.
func (s *GalleryState) GalleryMarkLiked(tokenID [32]byte, principal [20]byte) error {
	return s.db.Put(likedKey(tokenID, principal), []byte{0x01})
}

// GalleryOperatorPut grants or revokes transfer rights for the operator.
func (s *GalleryState) GalleryOperatorPut(tokenID [32]byte, operator [20]byte, authorized bool) error {
	if authorized {
		return s.db.Put(operatorKey(tokenID, operator), []byte{0x01})
	}
	return s.db.Delete(operatorKey(tokenID, operator))
}

// GalleryOperatorIs reports whether the operator may transfer the token.
func (s *GalleryState) GalleryOperatorIs(tokenID [32]byte, operator [20]byte) (bool, error) {
	return s.db.Has(operatorKey(tokenID, operator))
}

// GalleryAdminGet returns the recorded administrative owner.
func (s *GalleryState) GalleryAdminGet() ([20]byte, bool, error) {
	var admin [20]byte
	raw, err := s.db.Get([]byte(keyAdmin))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return admin, false, nil
	}
	if err != nil {
		return admin, false, err
	}
	if len(raw) != 20 {
		return admin, false, fmt.Errorf("state: malformed admin record")
	}
	copy(admin[:], raw)
	return admin, true, nil
}

// GalleryAdminPut records the administrative owner.
func (s *GalleryState) GalleryAdminPut(admin [20]byte) error {
	return s.db.Put([]byte(keyAdmin), admin[:])
}

// GalleryMintSeq returns the persistent mint sequence counter.
func (s *GalleryState) GalleryMintSeq() (uint64, error) {
	return s.getUint64([]byte(keyMintSeq))
}

// GalleryMintSeqPut advances the persistent mint sequence counter.
func (s *GalleryState) GalleryMintSeqPut(seq uint64) error {
	return s.putUint64([]byte(keyMintSeq), seq)
}
