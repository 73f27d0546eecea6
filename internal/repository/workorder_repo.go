package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"garageops/internal/model"
)

// WorkOrderRepo is the boundary to the work-order records owned by the rest
// of the workshop system. This service only reads status and performs the
// idempotent pending -> in_progress transition on first start.
type WorkOrderRepo interface {
	Create(ctx context.Context, order *model.WorkOrder) error
	GetByID(ctx context.Context, orgID, id string) (*model.WorkOrder, error)
	MarkInProgress(ctx context.Context, orgID, id string) error
}

type workOrderRepo struct {
	collection *mongo.Collection
}

func NewWorkOrderRepo(db *mongo.Database) WorkOrderRepo {
	return &workOrderRepo{
		collection: db.Collection("work_orders"),
	}
}

func (r *workOrderRepo) Create(ctx context.Context, order *model.WorkOrder) error {
	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to create work order: %w", err)
	}
	return nil
}

func (r *workOrderRepo) GetByID(ctx context.Context, orgID, id string) (*model.WorkOrder, error) {
	var order model.WorkOrder
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "orgId": orgID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query work order: %w", err)
	}
	return &order, nil
}

// MarkInProgress transitions a pending order to in_progress. The update is
// conditioned on the current status, so repeating it (or racing another
// first start) is harmless.
func (r *workOrderRepo) MarkInProgress(ctx context.Context, orgID, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "orgId": orgID, "status": model.WorkOrderPending},
		bson.M{"$set": bson.M{"status": model.WorkOrderInProgress}},
	)
	if err != nil {
		return fmt.Errorf("failed to update work order status: %w", err)
	}
	return nil
}
