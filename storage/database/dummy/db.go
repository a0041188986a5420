package dummydb

import (
	"sync"

	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/task"
	"github.com/trezcool/academia/core/user"
)

type (
	// DB is an in-memory store. One lock guards every table so that multi-table writes are atomic.
	DB struct {
		sync.RWMutex
		users         map[string]*userRecord
		tasks         map[string]*task.Task
		notifications []*notification.Notification
	}

	userRecord struct {
		user.User
		coordinator coordinator.Assignment
	}
)

func Open() (*DB, error) {
	db := &DB{
		users: make(map[string]*userRecord),
		tasks: make(map[string]*task.Task),
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.users = make(map[string]*userRecord)
	db.tasks = make(map[string]*task.Task)
	db.notifications = nil
}

func (db *DB) Close() error { return nil }
