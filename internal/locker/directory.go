package locker

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/edera-run/workflowd/internal/xerrors"
)

// Directory is an inter-process locker, grounded on
// edera/lockers/directory.py: it creates one lock file per key under
// Path and holds an exclusive lock on it for the lifetime of the Lock.
// The original uses a temporary SQLite database and "BEGIN EXCLUSIVE";
// bbolt.Open already takes an flock on the database file it opens, so a
// per-key bbolt file serves the identical purpose without adding a
// second embedded-database dependency. Once the owning process dies,
// the OS releases the flock and the lock is freed automatically.
type Directory struct {
	Path string
}

func NewDirectory(path string) (*Directory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Directory{Path: abs}, nil
}

func (d *Directory) Lock(key string, callback func()) (Lock, error) {
	sum := sha1.Sum([]byte(key))
	lockFile := filepath.Join(d.Path, hex.EncodeToString(sum[:]))
	db, err := bbolt.Open(lockFile, 0o600, &bbolt.Options{Timeout: 200 * time.Millisecond})
	if err != nil {
		return nil, &xerrors.LockAcquisitionError{Key: key}
	}
	return &directoryLock{db: db, path: lockFile}, nil
}

type directoryLock struct {
	db       *bbolt.DB
	path     string
	released bool
}

func (l *directoryLock) Unlock() {
	if l.released {
		return
	}
	l.released = true
	l.db.Close()
	os.Remove(l.path)
}
