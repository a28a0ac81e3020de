package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wayfarer/models"
)

const (
	PlacesCollection     = "places"
	ActivitiesCollection = "activities"
	DaysCollection       = "days"
	PlansCollection      = "plans"
	CountersCollection   = "counters"

	planSequence = "planId"
)

// Connect opens the process-wide client and verifies the server answers.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Store keeps places, activities, days and plans in four collections,
// cross-referenced by ObjectID, plus a counters collection for planId.
type Store struct {
	client       *mongo.Client
	places       *mongo.Collection
	activities   *mongo.Collection
	days         *mongo.Collection
	plans        *mongo.Collection
	counters     *mongo.Collection
	transactions bool
}

// New binds a store to database. Multi-document transactions are used only
// when transactions is set, since they need a replica set.
func New(client *mongo.Client, database string, transactions bool) *Store {
	d := client.Database(database)
	return &Store{
		client:       client,
		places:       d.Collection(PlacesCollection),
		activities:   d.Collection(ActivitiesCollection),
		days:         d.Collection(DaysCollection),
		plans:        d.Collection(PlansCollection),
		counters:     d.Collection(CountersCollection),
		transactions: transactions,
	}
}

// EnsureIndexes creates the unique planId index and the reference lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.plans.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "planId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "dayList", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("plans indexes: %w", err)
	}
	if _, err := s.activities.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "place", Value: 1}}},
		{Keys: bson.D{{Key: "subActivities", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("activities indexes: %w", err)
	}
	if _, err := s.days.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "activities", Value: 1}},
	}); err != nil {
		return fmt.Errorf("days indexes: %w", err)
	}
	return nil
}

// SeedPlanSequence raises the planId counter to at least the largest stored
// planId, so plans created before the counter existed are never reissued.
func (s *Store) SeedPlanSequence(ctx context.Context) error {
	max, err := s.MaxPlanID(ctx)
	if err != nil {
		return err
	}
	_, err = s.counters.UpdateOne(ctx,
		bson.M{"_id": planSequence},
		bson.M{"$max": bson.M{"seq": max}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed plan sequence: %w", err)
	}
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) NextPlanID(ctx context.Context) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	next := func() error {
		return s.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": planSequence},
			bson.M{"$inc": bson.M{"seq": 1}},
			opts,
		).Decode(&counter)
	}
	err := next()
	// Two first-ever upserts can race on the counter's _id; the loser retries
	// against the document the winner created.
	if mongo.IsDuplicateKeyError(err) {
		err = next()
	}
	if err != nil {
		return 0, fmt.Errorf("next plan id: %w", err)
	}
	return counter.Seq, nil
}

func (s *Store) MaxPlanID(ctx context.Context) (int, error) {
	var p models.Plan
	err := s.plans.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "planId", Value: -1}}).SetProjection(bson.M{"planId": 1}),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max plan id: %w", err)
	}
	return p.PlanID, nil
}

func (s *Store) InsertPlace(ctx context.Context, p *models.Place) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.places.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert place: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlace(ctx context.Context, p *models.Place) error {
	res, err := s.places.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("update place: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("place %s: %w", p.ID.Hex(), models.ErrNotFound)
	}
	return nil
}

func (s *Store) GetPlaces(ctx context.Context, ids []primitive.ObjectID) ([]models.Place, error) {
	out := []models.Place{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, s.places, bson.M{"_id": bson.M{"$in": ids}}, &out); err != nil {
		return nil, fmt.Errorf("get places: %w", err)
	}
	return out, nil
}

func (s *Store) DeletePlaces(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	return deleteByIDs(ctx, s.places, ids)
}

func (s *Store) InsertActivity(ctx context.Context, a *models.Activity) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.SubActivities == nil {
		a.SubActivities = []primitive.ObjectID{}
	}
	if _, err := s.activities.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Store) GetActivity(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	var a models.Activity
	err := s.activities.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("activity %s: %w", id.Hex(), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

func (s *Store) GetActivities(ctx context.Context, ids []primitive.ObjectID) ([]models.Activity, error) {
	out := []models.Activity{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, s.activities, bson.M{"_id": bson.M{"$in": ids}}, &out); err != nil {
		return nil, fmt.Errorf("get activities: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateActivity(ctx context.Context, a *models.Activity) error {
	if a.SubActivities == nil {
		a.SubActivities = []primitive.ObjectID{}
	}
	res, err := s.activities.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("activity %s: %w", a.ID.Hex(), models.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteActivities(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	return deleteByIDs(ctx, s.activities, ids)
}

func (s *Store) CountPlaceReferences(ctx context.Context, placeID primitive.ObjectID, exclude []primitive.ObjectID) (int, error) {
	if exclude == nil {
		exclude = []primitive.ObjectID{}
	}
	n, err := s.activities.CountDocuments(ctx, bson.M{
		"place": placeID,
		"_id":   bson.M{"$nin": exclude},
	})
	if err != nil {
		return 0, fmt.Errorf("count place references: %w", err)
	}
	return int(n), nil
}

func (s *Store) ParentActivities(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var parents []models.Activity
	err := findAll(ctx, s.activities, bson.M{"subActivities": id}, &parents,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("parent activities: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *Store) PullSubActivity(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.activities.UpdateMany(ctx,
		bson.M{"subActivities": id},
		bson.M{"$pull": bson.M{"subActivities": id}},
	)
	if err != nil {
		return fmt.Errorf("pull sub-activity: %w", err)
	}
	return nil
}

func (s *Store) InsertDay(ctx context.Context, d *models.Day) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.Activities == nil {
		d.Activities = []primitive.ObjectID{}
	}
	if _, err := s.days.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("insert day: %w", err)
	}
	return nil
}

func (s *Store) GetDays(ctx context.Context, ids []primitive.ObjectID) ([]models.Day, error) {
	out := []models.Day{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, s.days, bson.M{"_id": bson.M{"$in": ids}}, &out); err != nil {
		return nil, fmt.Errorf("get days: %w", err)
	}
	return out, nil
}

func (s *Store) InsertDayActivity(ctx context.Context, dayID, activityID primitive.ObjectID, position int) error {
	each := bson.M{"$each": []primitive.ObjectID{activityID}}
	if position >= 0 {
		each["$position"] = position
	}
	res, err := s.days.UpdateOne(ctx,
		bson.M{"_id": dayID},
		bson.M{"$push": bson.M{"activities": each}},
	)
	if err != nil {
		return fmt.Errorf("insert day activity: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("day %s: %w", dayID.Hex(), models.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateDayWeather(ctx context.Context, dayID primitive.ObjectID, weather string, temperature float64) error {
	res, err := s.days.UpdateOne(ctx,
		bson.M{"_id": dayID},
		bson.M{"$set": bson.M{"weather": weather, "temperature": temperature}},
	)
	if err != nil {
		return fmt.Errorf("update day weather: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("day %s: %w", dayID.Hex(), models.ErrNotFound)
	}
	return nil
}

func (s *Store) DaysContainingActivity(ctx context.Context, activityID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var days []models.Day
	err := findAll(ctx, s.days, bson.M{"activities": activityID}, &days,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("days containing activity: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(days))
	for _, d := range days {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *Store) PullDayActivity(ctx context.Context, activityID primitive.ObjectID) error {
	_, err := s.days.UpdateMany(ctx,
		bson.M{"activities": activityID},
		bson.M{"$pull": bson.M{"activities": activityID}},
	)
	if err != nil {
		return fmt.Errorf("pull day activity: %w", err)
	}
	return nil
}

func (s *Store) DeleteDays(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	return deleteByIDs(ctx, s.days, ids)
}

func (s *Store) InsertPlan(ctx context.Context, p *models.Plan) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.DayList == nil {
		p.DayList = []primitive.ObjectID{}
	}
	_, err := s.plans.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("plan %d: %w", p.PlanID, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID int) (*models.Plan, error) {
	var p models.Plan
	err := s.plans.FindOne(ctx, bson.M{"planId": planID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

func (s *Store) PlanIDsForDays(ctx context.Context, dayIDs []primitive.ObjectID) ([]int, error) {
	if len(dayIDs) == 0 {
		return nil, nil
	}
	var plans []models.Plan
	err := findAll(ctx, s.plans, bson.M{"dayList": bson.M{"$in": dayIDs}}, &plans,
		options.Find().SetProjection(bson.M{"planId": 1}))
	if err != nil {
		return nil, fmt.Errorf("plans for days: %w", err)
	}
	ids := make([]int, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.PlanID)
	}
	return ids, nil
}

func (s *Store) ListPlans(ctx context.Context, skip, limit int) ([]models.PlanSummary, error) {
	out := []models.PlanSummary{}
	opts := options.Find().
		SetSort(bson.D{{Key: "planId", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"dayList": 0})
	if err := findAll(ctx, s.plans, bson.M{}, &out, opts); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

func (s *Store) UpdatePlan(ctx context.Context, planID int, patch models.PlanPatch) (*models.Plan, error) {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.StartingDate != nil {
		set["startingDate"] = patch.StartingDate.Time
	}
	if patch.EndingDate != nil {
		set["endingDate"] = patch.EndingDate.Time
	}
	if patch.DayCount != nil {
		set["dayCount"] = *patch.DayCount
	}
	if patch.Cost != nil {
		set["cost"] = *patch.Cost
	}
	if len(set) == 0 {
		return s.GetPlan(ctx, planID)
	}

	var p models.Plan
	err := s.plans.FindOneAndUpdate(ctx,
		bson.M{"planId": planID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return &p, nil
}

func (s *Store) DeletePlan(ctx context.Context, planID int) error {
	res, err := s.plans.DeleteOne(ctx, bson.M{"planId": planID})
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, out *[]T, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func deleteByIDs(ctx context.Context, coll *mongo.Collection, ids []primitive.ObjectID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", coll.Name(), err)
	}
	return int(res.DeletedCount), nil
}
