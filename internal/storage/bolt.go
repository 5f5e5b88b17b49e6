package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/edera-run/workflowd/internal/corelib/resilience"
)

var bucketRecords = []byte("storage_records")

// errCircuitOpen is returned (wrapped in a StorageOperationError) when
// the bbolt circuit breaker is tripped and a transaction is refused
// without being attempted.
var errCircuitOpen = errors.New("storage: circuit breaker open")

// Bolt is a durable Storage backed by go.etcd.io/bbolt, adapted from the
// teacher's WorkflowStore in cmd/workflowd/persistence.go: same
// bbolt.Options (short open timeout, fsync on), same read/write latency
// histograms, generalized from workflow-specific buckets to the generic
// key/version/value contract original_source/edera/storage.py describes.
//
// Get and Put run behind the same retry+circuit-breaker pairing
// the teacher wires around its own external calls
// (libs/go/core/resilience): a handful of bbolt errors are transient
// (lock contention, a slow fsync) and worth a couple of quick retries,
// but a disk that keeps failing should trip the breaker instead of
// piling up retries forever. Clear, Delete and Gather are not guarded.
type Bolt struct {
	db *bbolt.DB

	readLatency  metric.Float64Histogram
	writeLatency metric.Float64Histogram

	breaker       *resilience.CircuitBreaker
	retryAttempts int
	retryDelay    time.Duration
}

// OpenBolt opens (creating if absent) a bbolt-backed Storage at path.
func OpenBolt(path string, meter metric.Meter) (*Bolt, error) {
	opts := &bbolt.Options{
		Timeout:      1 * time.Second,
		NoSync:       false,
		FreelistType: bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		return nil, opErr("open", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, opErr("init", err)
	}
	var readLatency, writeLatency metric.Float64Histogram
	if meter != nil {
		readLatency, _ = meter.Float64Histogram("workflowd_storage_read_ms")
		writeLatency, _ = meter.Float64Histogram("workflowd_storage_write_ms")
	}
	breaker := resilience.NewCircuitBreakerAdaptive(30*time.Second, 10, 5, 0.5, 5*time.Second, 3)
	return &Bolt{
		db:            db,
		readLatency:   readLatency,
		writeLatency:  writeLatency,
		breaker:       breaker,
		retryAttempts: 3,
		retryDelay:    10 * time.Millisecond,
	}, nil
}

// guarded gates fn behind the circuit breaker and retries it with
// backoff on failure, recording each attempt's outcome against the
// breaker's sliding window.
func (b *Bolt) guarded(ctx context.Context, fn func() error) error {
	_, err := resilience.Retry(ctx, b.retryAttempts, b.retryDelay, func() (struct{}, error) {
		if !b.breaker.Allow() {
			return struct{}{}, errCircuitOpen
		}
		err := fn()
		b.breaker.RecordResult(err == nil)
		return struct{}{}, err
	})
	return err
}

func (b *Bolt) Close() error { return b.db.Close() }

// recordKey orders records for a given key by version, ascending, using
// a fixed-width big-endian suffix so bbolt's lexical cursor ordering
// doubles as version ordering.
func recordKey(key string, version int) []byte {
	out := make([]byte, 0, len(key)+1+8)
	out = append(out, []byte(key)...)
	out = append(out, 0)
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(version))
	return append(out, v[:]...)
}

func splitRecordKey(k []byte) (key string, version int, ok bool) {
	if len(k) < 9 || k[len(k)-9] != 0 {
		return "", 0, false
	}
	sep := len(k) - 9
	return string(k[:sep]), int(binary.BigEndian.Uint64(k[sep+1:])), true
}

func (b *Bolt) observe(h metric.Float64Histogram, op string, start time.Time) {
	if h == nil {
		return
	}
	h.Record(context.Background(), float64(time.Since(start).Milliseconds()), metric.WithAttributes(attribute.String("op", op)))
}

func (b *Bolt) Clear() error {
	start := time.Now()
	defer b.observe(b.writeLatency, "clear", start)
	return opErr("clear", b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketRecords)
		return err
	}))
}

func (b *Bolt) Delete(key string, till *int) error {
	start := time.Now()
	defer b.observe(b.writeLatency, "delete", start)
	return opErr("delete", b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		c := bucket.Cursor()
		prefix := append([]byte(key), 0)
		var victims [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			_, version, ok := splitRecordKey(k)
			if !ok {
				continue
			}
			if till == nil || version < *till {
				victims = append(victims, append([]byte(nil), k...))
			}
		}
		for _, k := range victims {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (b *Bolt) Gather() ([]Entry, error) {
	start := time.Now()
	defer b.observe(b.readLatency, "gather", start)
	var out []Entry
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			key, version, ok := splitRecordKey(k)
			if !ok {
				return nil
			}
			out = append(out, Entry{Key: key, Version: version, Value: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, opErr("gather", err)
	}
	return out, nil
}

func (b *Bolt) Get(key string, since, limit *int) ([]Record, error) {
	start := time.Now()
	defer b.observe(b.readLatency, "get", start)
	var all []Record
	err := b.guarded(context.Background(), func() error {
		all = nil
		return b.db.View(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(bucketRecords)
			c := bucket.Cursor()
			prefix := append([]byte(key), 0)
			for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
				_, version, ok := splitRecordKey(k)
				if !ok {
					continue
				}
				if since != nil && version < *since {
					continue
				}
				all = append(all, Record{Version: version, Value: string(v)})
			}
			return nil
		})
	})
	if err != nil {
		return nil, opErr("get", err)
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit != nil && *limit >= 0 && *limit < len(all) {
		all = all[:*limit]
	}
	return all, nil
}

func (b *Bolt) Put(key, value string) (int, error) {
	start := time.Now()
	defer b.observe(b.writeLatency, "put", start)
	var version int
	err := b.guarded(context.Background(), func() error {
		return b.db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(bucketRecords)
			c := bucket.Cursor()
			prefix := append([]byte(key), 0)
			next := 0
			for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
				_, v, ok := splitRecordKey(k)
				if ok && v+1 > next {
					next = v + 1
				}
			}
			version = next
			return bucket.Put(recordKey(key, version), []byte(value))
		})
	})
	if err != nil {
		return 0, opErr("put", fmt.Errorf("%s: %w", key, err))
	}
	return version, nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if k[i] != b {
			return false
		}
	}
	return true
}
