// Package app assembles stores, collaborators and services from configuration. The HTTP
// server and the graphctl command share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"photogram/internal/badgerdb"
	"photogram/internal/config"
	"photogram/internal/database"
	"photogram/internal/mediauri"
	"photogram/internal/queue"
	"photogram/internal/redis"
	"photogram/internal/repository"
	"photogram/internal/repository/badgerrepo"
	"photogram/internal/service"
	"photogram/internal/storage"
)

// streamMaxLen caps the graph stream; older entries are trimmed approximately.
const streamMaxLen = 100000

type App struct {
	Config *config.Config

	Accounts repository.AccountRepository
	Graph    repository.GraphRepository
	Photos   repository.PhotoRepository

	Files     storage.FileStorage
	DiskDir   string // set when Files is disk backed
	Canon     *mediauri.Canonicalizer
	Redis     *redis.Client // nil when REDIS_URL is unset
	Publisher queue.Publisher

	Identity   *service.IdentityService
	Auth       *service.AuthService
	Reconciler *service.Reconciler
	Blobs      *service.BlobReferences
	GraphSvc   *service.GraphService
	Content    *service.ContentService
	Engagement *service.EngagementService
	Feed       *service.FeedService
	Media      *service.MediaService

	sqlDB   *sqlx.DB
	closers []func() error
}

// New opens every backing store named by cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStore(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openFiles(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openQueue(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	canon, err := mediauri.New(cfg.PublicBaseURLs)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("public base urls: %w", err)
	}
	a.Canon = canon

	a.Identity = service.NewIdentityService(a.Accounts)
	a.Auth = service.NewAuthService(a.Accounts, cfg)
	a.Reconciler = service.NewReconciler(a.Accounts, a.Graph)
	a.GraphSvc = service.NewGraphService(a.Accounts, a.Graph, a.Reconciler, a.Publisher, cfg.RepairTimeout)
	a.Content = service.NewContentService(a.Accounts, a.Photos, a.Files, a.Canon, a.Publisher)
	a.Engagement = service.NewEngagementService(a.Accounts, a.Photos, a.Canon)
	a.Feed = service.NewFeedService(a.Accounts, a.Graph, a.Photos, cfg.FeedFanout)
	a.Media = service.NewMediaService(a.Accounts, a.Photos, a.Files, a.Publisher)
	a.Blobs = service.NewBlobReferences(a.Accounts, a.Photos)

	return a, nil
}

func (a *App) openStore(cfg *config.Config) error {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.sqlDB = db
		a.closers = append(a.closers, db.Close)

		a.Accounts = repository.NewAccountRepository(db)
		a.Graph = repository.NewGraphRepository(db)
		a.Photos = repository.NewPhotoRepository(db)
		log.Printf("[App] Store: postgres host=%s db=%s", cfg.DBHost, cfg.DBName)

	case config.StoreDriverBadger:
		db, err := badgerdb.Open(badgerdb.DefaultConfig(cfg.BadgerDir))
		if err != nil {
			return fmt.Errorf("failed to open badger: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		store, err := badgerrepo.NewStore(db.DB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)

		a.Accounts = store.Accounts()
		a.Graph = store.Graph()
		a.Photos = store.Photos()
		log.Printf("[App] Store: badger dir=%s", cfg.BadgerDir)

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return nil
}

func (a *App) openFiles(ctx context.Context, cfg *config.Config) error {
	switch cfg.StorageDriver {
	case config.StorageDriverR2:
		r2, err := storage.NewR2Storage(ctx, cfg)
		if err != nil {
			return err
		}
		a.Files = r2
	case config.StorageDriverDisk:
		disk, err := storage.NewDiskStorage(cfg.UploadDir)
		if err != nil {
			return err
		}
		a.Files = disk
		a.DiskDir = disk.Dir()
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return nil
}

// openQueue connects Redis when configured. Without it, relationship repairs that fail
// inline are left to the periodic sweep.
func (a *App) openQueue(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		log.Printf("[App] REDIS_URL not set, event stream disabled")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := redis.Connect(pingCtx, cfg.RedisURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)

	a.Redis = client
	a.Publisher = queue.NewPublisher(client.Client, streamMaxLen)
	return nil
}

// Migrate applies the relational schema. Badger needs none.
func (a *App) Migrate(ctx context.Context) error {
	if a.sqlDB == nil {
		log.Printf("[App] Migrate: store %q has no schema", a.Config.StoreDriver)
		return nil
	}
	return database.Migrate(ctx, a.sqlDB)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
