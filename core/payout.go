package core

import (
	"encoding/hex"
	"errors"
	"math/big"

	"artgrid/storage"
)

// accrualSink is the default payout rail: instead of moving real currency it
// accrues every outbound transfer against the recipient in storage, so hosts
// without a settlement integration still keep an auditable balance sheet.
type accrualSink struct {
	db storage.Database
}

func accruedKey(addr [20]byte) []byte {
	return []byte("payouts/" + hex.EncodeToString(addr[:]))
}

func readAccrued(db storage.Database, addr [20]byte) (*big.Int, error) {
	raw, err := db.Get(accruedKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (s *accrualSink) Pay(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	total, err := readAccrued(s.db, to)
	if err != nil {
		return err
	}
	total.Add(total, amount)
	return s.db.Put(accruedKey(to), total.Bytes())
}
