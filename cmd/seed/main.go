package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"garageops/internal/model"
	"garageops/internal/repository"
)

// Seeds a handful of work orders so the service can be exercised locally.
func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "garageops"
	}
	orgID := os.Getenv("ORG_ID")
	if orgID == "" {
		orgID = "org_default"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)

	if err := repository.EnsureSessionIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	workOrders := repository.NewWorkOrderRepo(db)

	orders := []*model.WorkOrder{
		{
			OrgID:       orgID,
			Number:      "WO-1001",
			Status:      model.WorkOrderPending,
			Description: "Front brake pads and discs, 2019 Golf",
			CreatedAt:   time.Now(),
		},
		{
			OrgID:       orgID,
			Number:      "WO-1002",
			Status:      model.WorkOrderInProgress,
			Description: "Intermittent misfire diagnosis, cylinder 3",
			CreatedAt:   time.Now(),
		},
		{
			OrgID:       orgID,
			Number:      "WO-1003",
			Status:      model.WorkOrderPending,
			Description: "60k km scheduled maintenance",
			CreatedAt:   time.Now(),
		},
	}

	for _, order := range orders {
		if err := workOrders.Create(ctx, order); err != nil {
			log.Fatalf("Failed to seed work order %s: %v", order.Number, err)
		}
		log.Printf("Seeded work order %s (%s)", order.Number, order.ID)
	}

	log.Println("Done")
}
