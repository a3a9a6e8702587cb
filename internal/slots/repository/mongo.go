package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "slotswap/internal/slots/errors"
	"slotswap/pkg/config"
	"slotswap/pkg/db"
	mongotx "slotswap/pkg/db/mongo"
	"slotswap/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: database.Collection(CollectionName),
	}
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, slot); err != nil {
		return fmt.Errorf("failed to create slot: %w", mongotx.TranslateError(err))
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", mongotx.TranslateError(err))
	}
	return &slot, nil
}

// FindByIDForUpdate is a plain snapshot read. Competing writers are caught
// by the write-conflict check when either transaction updates the document.
func (r *mongoSlotRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return r.FindByID(ctx, id)
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error) {
	found := make(map[string]*model.Slot, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	slots, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		found[slot.ID] = slot
	}
	return found, nil
}

func (r *mongoSlotRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *mongoSlotRepository) FindSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error) {
	return r.find(ctx, bson.M{
		"status":   model.SlotSwappable,
		"owner_id": bson.M{"$ne": excludeOwnerID},
	})
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M) ([]*model.Slot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "start_time", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", mongotx.TranslateError(err))
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": slot.ID, "version": slot.Version}
	update := bson.M{
		"$set": bson.M{
			"title":       slot.Title,
			"start_time":  slot.StartTime,
			"end_time":    slot.EndTime,
			"description": slot.Description,
			"owner_id":    slot.OwnerID,
			"status":      slot.Status,
			"updated_at":  now,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", mongotx.TranslateError(err))
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, slot.ID, slot.Version)
	}

	slot.Version++
	slot.UpdatedAt = now
	return nil
}

func (r *mongoSlotRepository) Delete(ctx context.Context, id string, version int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "version": version})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", mongotx.TranslateError(err))
	}
	if result.DeletedCount == 0 {
		return r.missOrConflict(ctx, id, version)
	}
	return nil
}

// missOrConflict explains a CAS write that matched nothing.
func (r *mongoSlotRepository) missOrConflict(ctx context.Context, id string, version int64) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", mongotx.TranslateError(err))
	}
	if count == 0 {
		return slotserrors.ErrNotFound
	}
	return fmt.Errorf("%w: slot %s changed since version %d", db.ErrConflict, id, version)
}
