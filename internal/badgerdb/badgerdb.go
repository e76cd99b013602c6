// Package badgerdb opens the embedded document store used when STORE_DRIVER=badger.
package badgerdb

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM; data is lost on Close.
	InMemory bool

	SyncWrites bool

	// Verbose routes badger's own warnings and errors to the standard logger.
	Verbose bool

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig is used by tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// stdLogger adapts the standard logger to badger.Logger. Info and debug output is dropped.
type stdLogger struct{}

func (stdLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[Badger] ERROR "+format, args...)
}

func (stdLogger) Warningf(format string, args ...interface{}) {
	log.Printf("[Badger] WARN "+format, args...)
}

func (stdLogger) Infof(string, ...interface{})  {}
func (stdLogger) Debugf(string, ...interface{}) {}

// DB wraps a BadgerDB instance with its GC goroutine.
type DB struct {
	*badger.DB
	stopGC chan struct{}
	gcDone chan struct{}
}

// Open opens the database and starts value log GC when configured.
func Open(cfg Config) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Verbose {
		opts = opts.WithLogger(stdLogger{})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{DB: bdb}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		db.stopGC = make(chan struct{})
		db.gcDone = make(chan struct{})
		go db.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	log.Printf("[Badger] Open OK: path=%q in_memory=%t", cfg.Path, cfg.InMemory)
	return db, nil
}

func (d *DB) runGC(interval time.Duration, ratio float64) {
	defer close(d.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting
			if err := d.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Printf("[Badger] value log GC error: %v", err)
			}
		}
	}
}

// Close stops GC and closes the database.
func (d *DB) Close() error {
	if d.stopGC != nil {
		close(d.stopGC)
		<-d.gcDone
		d.stopGC = nil
	}
	return d.DB.Close()
}
