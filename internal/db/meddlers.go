package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Default = meddler.SQLite

	meddler.Register("address", hexMeddler[common.Address]{parse: common.HexToAddress})
	meddler.Register("hash", hexMeddler[common.Hash]{parse: common.HexToHash})
}

// hexMeddler stores fixed size byte values as 0x-prefixed hex strings. NULL reads as the zero value.
type hexMeddler[T interface{ Hex() string }] struct {
	parse func(string) T
}

func (m hexMeddler[T]) PreRead(fieldAddr any) (scanTarget any, err error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*T)
	if !ok {
		var zero T
		return fmt.Errorf("expected *%T, got %T", zero, fieldAddr)
	}

	if !ns.Valid {
		var zero T
		*ptr = zero
		return nil
	}

	*ptr = m.parse(ns.String)
	return nil
}

func (m hexMeddler[T]) PreWrite(field any) (saveValue any, err error) {
	v, ok := field.(T)
	if !ok {
		var zero T
		return nil, fmt.Errorf("expected %T, got %T", zero, field)
	}

	return v.Hex(), nil
}
