package storage

import (
	"context"
	"fmt"

	slotsrepository "slotswap/internal/slots/repository"
	swapsrepository "slotswap/internal/swaps/repository"
	usersrepository "slotswap/internal/users/repository"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	"slotswap/pkg/db/memory"
	mongotx "slotswap/pkg/db/mongo"
	pgtx "slotswap/pkg/db/postgres"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Storage bundles every repository of one backend together with the
// transaction manager that spans them.
type Storage struct {
	Backend   string
	Slots     slotsrepository.SlotRepository
	Requests  swapsrepository.SwapRequestRepository
	Locks     swapsrepository.SwapLockRepository
	Users     usersrepository.UserRepository
	TxManager db.TransactionManager
	Pinger    Pinger
}

// New builds the repositories of cfg.StorageBackend. Connections must
// already be open (see config.SetStorage).
func New(cfg *config.Config) (*Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return NewMemory(memory.NewStore(cfg.TxLockWait)), nil

	case config.StorageMongo:
		if cfg.Client == nil || cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo backend selected but no mongo client is connected")
		}
		mongoClient := cfg.Client.Mongo
		return &Storage{
			Backend:   config.StorageMongo,
			Slots:     slotsrepository.NewMongoSlotRepository(cfg),
			Requests:  swapsrepository.NewMongoSwapRequestRepository(cfg),
			Locks:     swapsrepository.NewMongoSwapLockRepository(cfg),
			Users:     usersrepository.NewMongoUserRepository(cfg),
			TxManager: db.NewTransactionManager(mongotx.NewUnitOfWork(mongoClient)),
			Pinger: PingFunc(func(ctx context.Context) error {
				return mongoClient.Ping(ctx, nil)
			}),
		}, nil

	case config.StoragePostgres:
		if cfg.Client == nil || cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected but no postgres pool is connected")
		}
		pool := cfg.Client.Postgres
		return &Storage{
			Backend:   config.StoragePostgres,
			Slots:     slotsrepository.NewPostgresSlotRepository(cfg),
			Requests:  swapsrepository.NewPostgresSwapRequestRepository(cfg),
			Locks:     swapsrepository.NewPostgresSwapLockRepository(cfg),
			Users:     usersrepository.NewPostgresUserRepository(cfg),
			TxManager: db.NewTransactionManager(pgtx.NewUnitOfWork(pool)),
			Pinger:    PingFunc(pool.Ping),
		}, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// NewMemory wires every repository to a single in-process store.
func NewMemory(store *memory.Store) *Storage {
	return &Storage{
		Backend:   config.StorageMemory,
		Slots:     slotsrepository.NewMemorySlotRepository(store),
		Requests:  swapsrepository.NewMemorySwapRequestRepository(store),
		Locks:     swapsrepository.NewMemorySwapLockRepository(),
		Users:     usersrepository.NewMemoryUserRepository(store),
		TxManager: db.NewTransactionManager(store),
		Pinger:    PingFunc(func(context.Context) error { return nil }),
	}
}
