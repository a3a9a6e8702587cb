package api

import (
	queryhandler "slotswap/internal/queries/handler"
	queryservice "slotswap/internal/queries/service"
	slothandler "slotswap/internal/slots/handler"
	slotservice "slotswap/internal/slots/service"
	slotvalidator "slotswap/internal/slots/validator"
	"slotswap/internal/storage"
	"slotswap/internal/swaps/events"
	swaphandler "slotswap/internal/swaps/handler"
	swapservice "slotswap/internal/swaps/service"
	swapvalidator "slotswap/internal/swaps/validator"
	"slotswap/internal/users/resolver"
	"slotswap/pkg/config"
	"slotswap/pkg/contracts"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Slots   slotservice.SlotService
	Swaps   swapservice.SwapService
	Queries queryservice.QueryService
}

// NewServices wires the use cases on top of one storage backend.
func NewServices(cfg *config.Config, store *storage.Storage, publisher events.Publisher) *Services {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}

	slots := slotservice.NewSlotService(
		store.Slots,
		store.TxManager,
		slotvalidator.NewSlotValidator(cfg.Log),
		cfg,
	)
	swaps := swapservice.NewSwapService(
		store.Requests,
		store.Locks,
		slotservice.NewProtocolSlots(store.Slots),
		store.TxManager,
		swapvalidator.NewSwapValidator(cfg.Log),
		publisher,
		cfg,
	)
	queries := queryservice.NewQueryService(
		store.Slots,
		store.Requests,
		NewResolver(cfg, store),
		cfg,
	)

	cfg.Log.Info("Services initialized", "backend", store.Backend)
	return &Services{Slots: slots, Swaps: swaps, Queries: queries}
}

// NewResolver reads display names from the user directory, behind the redis
// cache when one is connected.
func NewResolver(cfg *config.Config, store *storage.Storage) resolver.DisplayNameResolver {
	names := resolver.NewDirectoryResolver(store.Users, cfg.Log)
	if cfg.Client != nil && cfg.Client.Redis != nil {
		cfg.Log.Info("Display name cache enabled", "ttl", cfg.DisplayNameCacheTTL)
		return resolver.NewCachedResolver(names, cfg.Client.Redis, cfg.DisplayNameCacheTTL, cfg.Log)
	}
	return names
}

// Handlers returns the application routes, health excluded.
func (s *Services) Handlers(cfg *config.Config) []contracts.Handler {
	return []contracts.Handler{
		slothandler.NewSlotHandler(s.Slots, cfg.Log),
		swaphandler.NewSwapHandler(s.Swaps, cfg.Log),
		queryhandler.NewQueryHandler(s.Queries, cfg.Log),
	}
}
