package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"garageops/internal/model"
)

var (
	// ErrDuplicateOpenSession is returned by Create when another open
	// session already holds the (technician, work order) slot.
	ErrDuplicateOpenSession = errors.New("open session already exists for technician and work order")

	// ErrStaleState is returned by a conditional update when the session no
	// longer satisfies the expected state at write time.
	ErrStaleState = errors.New("session state changed concurrently")
)

// HistoryFilter narrows completed-session queries.
type HistoryFilter struct {
	TechnicianID string
	From         *time.Time
	To           *time.Time
	Limit        int64
}

// SessionRepo is the store contract for time tracking sessions. All reads
// and writes are org-scoped; mutators are conditioned on the session's
// current state so losing concurrent writers observe ErrStaleState rather
// than overwriting each other.
type SessionRepo interface {
	Create(ctx context.Context, session *model.TimeTrackingSession) error
	GetByID(ctx context.Context, orgID, id string) (*model.TimeTrackingSession, error)
	FindOpen(ctx context.Context, technicianID, workOrderID string) (*model.TimeTrackingSession, error)
	FindOtherOpen(ctx context.Context, technicianID, excludeWorkOrderID string) (*model.TimeTrackingSession, error)
	ListOpenByTechnician(ctx context.Context, orgID, technicianID string) ([]*model.TimeTrackingSession, error)
	ListCompleted(ctx context.Context, orgID string, filter HistoryFilter) ([]*model.TimeTrackingSession, error)

	Pause(ctx context.Context, orgID, technicianID, id string, pausedAt time.Time, entry model.PauseEntry, totalMinutes int) (*model.TimeTrackingSession, error)
	Resume(ctx context.Context, orgID, technicianID, id string, resumedAt time.Time, totalMinutes int) (*model.TimeTrackingSession, error)
	Complete(ctx context.Context, orgID, technicianID, id string, completedAt time.Time, totalMinutes, billableMinutes int, notes string) (*model.TimeTrackingSession, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("time_tracking_sessions"),
	}
}

// EnsureSessionIndexes creates the partial unique index that enforces "at
// most one open session per technician and work order" inside the store.
// Two concurrent creates race on the index, not on application code.
// Partial indexes cannot filter on field absence, hence the open marker.
func EnsureSessionIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("time_tracking_sessions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "technicianId", Value: 1}, {Key: "workOrderId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			Keys: bson.D{{Key: "orgId", Value: 1}, {Key: "completedAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (r *sessionRepo) Create(ctx context.Context, session *model.TimeTrackingSession) error {
	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	if session.Pauses == nil {
		session.Pauses = []model.PauseEntry{}
	}
	session.Open = true

	_, err := r.collection.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateOpenSession
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, orgID, id string) (*model.TimeTrackingSession, error) {
	return r.findOne(ctx, bson.M{"_id": id, "orgId": orgID})
}

func (r *sessionRepo) FindOpen(ctx context.Context, technicianID, workOrderID string) (*model.TimeTrackingSession, error) {
	return r.findOne(ctx, bson.M{
		"technicianId": technicianID,
		"workOrderId":  workOrderID,
		"open":         true,
	})
}

func (r *sessionRepo) FindOtherOpen(ctx context.Context, technicianID, excludeWorkOrderID string) (*model.TimeTrackingSession, error) {
	return r.findOne(ctx, bson.M{
		"technicianId": technicianID,
		"workOrderId":  bson.M{"$ne": excludeWorkOrderID},
		"open":         true,
	})
}

func (r *sessionRepo) findOne(ctx context.Context, filter bson.M) (*model.TimeTrackingSession, error) {
	var session model.TimeTrackingSession
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepo) ListOpenByTechnician(ctx context.Context, orgID, technicianID string) ([]*model.TimeTrackingSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"orgId":        orgID,
		"technicianId": technicianID,
		"open":         true,
	}, options.Find().SetSort(bson.D{{Key: "startedAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.TimeTrackingSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode open sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepo) ListCompleted(ctx context.Context, orgID string, filter HistoryFilter) ([]*model.TimeTrackingSession, error) {
	query := bson.M{
		"orgId":       orgID,
		"completedAt": bson.M{"$exists": true},
	}
	if filter.TechnicianID != "" {
		query["technicianId"] = filter.TechnicianID
	}
	completedRange := bson.M{"$exists": true}
	if filter.From != nil {
		completedRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		completedRange["$lte"] = *filter.To
	}
	query["completedAt"] = completedRange

	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.TimeTrackingSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode completed sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepo) Pause(ctx context.Context, orgID, technicianID, id string, pausedAt time.Time, entry model.PauseEntry, totalMinutes int) (*model.TimeTrackingSession, error) {
	filter := bson.M{
		"_id":          id,
		"orgId":        orgID,
		"technicianId": technicianID,
		"completedAt":  bson.M{"$exists": false},
		"pausedAt":     bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"pausedAt":     pausedAt,
			"totalMinutes": totalMinutes,
		},
		"$push": bson.M{"pauses": entry},
	}
	return r.findOneAndUpdate(ctx, filter, update, nil)
}

func (r *sessionRepo) Resume(ctx context.Context, orgID, technicianID, id string, resumedAt time.Time, totalMinutes int) (*model.TimeTrackingSession, error) {
	filter := bson.M{
		"_id":          id,
		"orgId":        orgID,
		"technicianId": technicianID,
		"completedAt":  bson.M{"$exists": false},
		"pausedAt":     bson.M{"$exists": true},
	}
	update := bson.M{
		"$set": bson.M{
			"resumedAt":              resumedAt,
			"totalMinutes":           totalMinutes,
			"pauses.$[open].endedAt": resumedAt,
		},
		"$unset": bson.M{"pausedAt": ""},
	}
	arrayFilters := []interface{}{bson.M{"open.endedAt": bson.M{"$exists": false}}}
	return r.findOneAndUpdate(ctx, filter, update, arrayFilters)
}

func (r *sessionRepo) Complete(ctx context.Context, orgID, technicianID, id string, completedAt time.Time, totalMinutes, billableMinutes int, notes string) (*model.TimeTrackingSession, error) {
	filter := bson.M{
		"_id":          id,
		"orgId":        orgID,
		"technicianId": technicianID,
		"completedAt":  bson.M{"$exists": false},
	}
	set := bson.M{
		"completedAt":     completedAt,
		"totalMinutes":    totalMinutes,
		"billableMinutes": billableMinutes,
		// Completing a paused session closes the pause in the same write,
		// so no partially-updated document is ever visible.
		"pauses.$[open].endedAt": completedAt,
	}
	if notes != "" {
		set["notes"] = notes
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"pausedAt": "", "open": ""},
	}
	arrayFilters := []interface{}{bson.M{"open.endedAt": bson.M{"$exists": false}}}
	return r.findOneAndUpdate(ctx, filter, update, arrayFilters)
}

func (r *sessionRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M, arrayFilters []interface{}) (*model.TimeTrackingSession, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if arrayFilters != nil {
		opts.SetArrayFilters(options.ArrayFilters{Filters: arrayFilters})
	}

	var session model.TimeTrackingSession
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return &session, nil
}
