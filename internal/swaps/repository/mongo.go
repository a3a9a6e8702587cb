package repository

import (
	"context"
	"errors"
	"fmt"
	swapserrors "slotswap/internal/swaps/errors"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	mongotx "slotswap/pkg/db/mongo"
	"slotswap/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSwapRequestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSwapRequestRepository(cfg *config.Config) SwapRequestRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSwapRequestRepository{
		cfg:        cfg,
		collection: database.Collection(RequestCollectionName),
	}
}

// Create relies on the unique partial index over pending (offered, target)
// pairs created by the migrations.
func (r *mongoSwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return swapserrors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create swap request: %w", mongotx.TranslateError(err))
	}
	return nil
}

func (r *mongoSwapRequestRepository) FindByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoSwapRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *mongoSwapRequestRepository) FindPendingByPair(ctx context.Context, offeredSlotID, targetSlotID string) (*model.SwapRequest, error) {
	return r.findOne(ctx, bson.M{
		"offered_slot_id": offeredSlotID,
		"target_slot_id":  targetSlotID,
		"status":          model.SwapPending,
	})
}

func (r *mongoSwapRequestRepository) findOne(ctx context.Context, filter bson.M) (*model.SwapRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var req model.SwapRequest
	if err := r.collection.FindOne(ctx, filter).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, swapserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find swap request: %w", mongotx.TranslateError(err))
	}
	return &req, nil
}

func (r *mongoSwapRequestRepository) FindByTargetOwner(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.find(ctx, bson.M{"target_owner_id": userID})
}

func (r *mongoSwapRequestRepository) FindByRequester(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	return r.find(ctx, bson.M{"requester_id": userID})
}

func (r *mongoSwapRequestRepository) find(ctx context.Context, filter bson.M) ([]*model.SwapRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find swap requests: %w", mongotx.TranslateError(err))
	}
	defer cursor.Close(ctx)

	var reqs []*model.SwapRequest
	if err = cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode swap requests: %w", err)
	}
	return reqs, nil
}

func (r *mongoSwapRequestRepository) Update(ctx context.Context, req *model.SwapRequest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": req.ID, "version": req.Version}
	update := bson.M{
		"$set": bson.M{
			"status":       req.Status,
			"responded_at": req.RespondedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update swap request: %w", mongotx.TranslateError(err))
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": req.ID})
		if err != nil {
			return fmt.Errorf("failed to check swap request: %w", mongotx.TranslateError(err))
		}
		if count == 0 {
			return swapserrors.ErrNotFound
		}
		return fmt.Errorf("%w: swap request %s changed since version %d", db.ErrConflict, req.ID, req.Version)
	}

	req.Version++
	return nil
}

type mongoSwapLockRepository struct {
	collection *mongo.Collection
}

func NewMongoSwapLockRepository(cfg *config.Config) SwapLockRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSwapLockRepository{
		collection: database.Collection(LockCollectionName),
	}
}

// Create inserts the lock document; the unique _id makes a held lock a
// duplicate key error. The TTL monitor only sweeps periodically, so an
// expired lock is removed here before inserting.
func (r *mongoSwapLockRepository) Create(ctx context.Context, lock *model.SwapLock) error {
	now := lockStamp()
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "expires_at": bson.M{"$lte": now}}); err != nil {
		return fmt.Errorf("failed to clear expired swap lock: %w", err)
	}

	lock.CreatedAt = now
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return swapserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to create swap lock: %w", err)
	}
	return nil
}

func (r *mongoSwapLockRepository) Delete(ctx context.Context, lock *model.SwapLock) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "created_at": lock.CreatedAt})
	return err
}
