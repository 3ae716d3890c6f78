// Package memory implements the repositories on top of an in-process go-memdb
// database. Use it with db.LocalTransactor; the db.DB handles passed to WithDB
// are ignored.
package memory

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
)

const (
	productTable   = "product"
	outboxMsgTable = "outbox_msg"

	indexID = "id"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			productTable: {
				Name: productTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			outboxMsgTable: {
				Name: outboxMsgTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.UUIDFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}

// Store owns the in-memory database shared by the memory repositories.
type Store struct {
	db *memdb.MemDB
}

func NewStore() (*Store, error) {
	mdb, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Store{db: mdb}, nil
}
