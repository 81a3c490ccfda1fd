package dummydb

import (
	"sync"

	"github.com/trezcool/tributes/core/session"
	"github.com/trezcool/tributes/core/tribute"
)

type (
	// DB is an in-memory stand-in for the database, used by tests and `SESSIONSTORE=memory`.
	DB struct {
		tribute *tributeTable
		session *sessionTable
	}

	tributeTable struct {
		sync.RWMutex
		pkCount int64
		table   map[int64]*tribute.Tribute
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]session.Session
	}
)

func Open() (*DB, error) {
	db := &DB{
		tribute: &tributeTable{table: make(map[int64]*tribute.Tribute)},
		session: &sessionTable{table: make(map[string]session.Session)},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.tribute.Lock()
	db.tribute.table = make(map[int64]*tribute.Tribute)
	db.tribute.pkCount = 0
	db.tribute.Unlock()

	db.session.Lock()
	db.session.table = make(map[string]session.Session)
	db.session.Unlock()
}
