// Package mongo stores goal records in MongoDB, one collection per record kind.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
	"github.com/spigell/goal-tracker/internal/logger"
)

// ErrNoReplicaSet is returned by WithinTx on standalone deployments.
var ErrNoReplicaSet = errors.New("transactions require a replica set deployment")

type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	logger     *zap.Logger
	replicaSet bool
	now        func() time.Time
}

var (
	_ goals.Store      = (*Store)(nil)
	_ goals.Transactor = (*Store)(nil)
)

// Open connects to uri, pings the primary and probes whether the deployment
// is a replica set.
func Open(ctx context.Context, uri, database string, log *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		logger: logger.OrNop(log),
		now:    time.Now,
	}
	s.replicaSet = s.probeReplicaSet(pingCtx)

	return s, nil
}

func (s *Store) probeReplicaSet(ctx context.Context) bool {
	var result bson.M
	if err := s.client.Database("admin").RunCommand(ctx, bson.M{"hello": 1}).Decode(&result); err != nil {
		s.logger.Warn("failed to check replica set status", zap.Error(err))
		return false
	}

	setName, ok := result["setName"]
	if !ok {
		s.logger.Info("mongodb is not part of a replica set, transactions disabled")
		return false
	}

	s.logger.Info("mongodb replica set detected", zap.Any("set_name", setName))
	return true
}

// SupportsTransactions reports whether WithinTx can be used.
func (s *Store) SupportsTransactions() bool { return s.replicaSet }

// EnsureIndexes creates the lookup indexes used by the list queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collGoals: {
			{Keys: bson.D{{Key: "sector", Value: 1}}, Options: options.Index().SetName("idx_sector")},
		},
		collAssignedGoals: {
			{Keys: bson.D{{Key: "goal_id", Value: 1}}, Options: options.Index().SetName("idx_goal_id")},
			{Keys: bson.D{{Key: "employee_id", Value: 1}}, Options: options.Index().SetName("idx_employee_id")},
		},
		collInstances: {
			{
				Keys:    bson.D{{Key: "assigned_goal_id", Value: 1}, {Key: "period_end", Value: -1}},
				Options: options.Index().SetName("idx_assigned_goal_id_period_end"),
			},
		},
		collTrackingRecords: {
			{Keys: bson.D{{Key: "assigned_goal_id", Value: 1}}, Options: options.Index().SetName("idx_assigned_goal_id")},
		},
	}

	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithinTx runs fn in a multi-document transaction. The session travels in
// the context handed to fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx goals.Store) error) error {
	if !s.replicaSet {
		return ErrNoReplicaSet
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) CreateEmployee(ctx context.Context, e *goals.Employee) error {
	_, err := s.db.Collection(collEmployees).InsertOne(ctx, employeeDoc(*e))
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*goals.Employee, error) {
	var doc employeeDoc
	if err := s.findOne(ctx, collEmployees, "employee", id, &doc); err != nil {
		return nil, err
	}
	e, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *goals.Goal) error {
	_, err := s.db.Collection(collGoals).InsertOne(ctx, goalToDoc(g))
	return err
}

func (s *Store) GetGoal(ctx context.Context, id string) (*goals.Goal, error) {
	var doc goalDoc
	if err := s.findOne(ctx, collGoals, "goal", id, &doc); err != nil {
		return nil, err
	}
	g, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGoals(ctx context.Context, filter goals.GoalFilter) ([]goals.Goal, error) {
	query := bson.M{}
	if filter.Sector != "" {
		query["sector"] = string(filter.Sector)
	}

	var docs []goalDoc
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if err := s.findAll(ctx, collGoals, query, opts, &docs); err != nil {
		return nil, err
	}
	return mapDocs(docs, goalDoc.toDomain)
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.deleteOne(ctx, collGoals, "goal", id)
}

func (s *Store) CreateAssignedGoal(ctx context.Context, a *goals.AssignedGoal) error {
	_, err := s.db.Collection(collAssignedGoals).InsertOne(ctx, assignedGoalToDoc(a))
	return err
}

func (s *Store) GetAssignedGoal(ctx context.Context, id string) (*goals.AssignedGoal, error) {
	var doc assignedGoalDoc
	if err := s.findOne(ctx, collAssignedGoals, "assigned goal", id, &doc); err != nil {
		return nil, err
	}

	list, err := s.withEmployees(ctx, []assignedGoalDoc{doc})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListAssignedGoals(ctx context.Context, filter goals.AssignmentFilter) ([]goals.AssignedGoal, error) {
	query := bson.M{}
	if filter.GoalID != "" {
		query["goal_id"] = filter.GoalID
	}
	if filter.EmployeeID != "" {
		query["employee_id"] = filter.EmployeeID
	}

	var docs []assignedGoalDoc
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.findAll(ctx, collAssignedGoals, query, opts, &docs); err != nil {
		return nil, err
	}
	return s.withEmployees(ctx, docs)
}

func (s *Store) UpdateAssignedGoal(ctx context.Context, id string, patch goals.AssignedGoalPatch) (*goals.AssignedGoal, error) {
	if err := s.updateOne(ctx, collAssignedGoals, "assigned goal", id, assignedGoalSet(patch, s.now())); err != nil {
		return nil, err
	}
	return s.GetAssignedGoal(ctx, id)
}

func (s *Store) DeleteAssignedGoal(ctx context.Context, id string) error {
	if _, err := s.db.Collection(collTrackingRecords).DeleteMany(ctx, bson.M{"assigned_goal_id": id}); err != nil {
		return err
	}
	return s.deleteOne(ctx, collAssignedGoals, "assigned goal", id)
}

func (s *Store) CreateInstance(ctx context.Context, inst *goals.GoalInstance) error {
	_, err := s.db.Collection(collInstances).InsertOne(ctx, instanceToDoc(inst))
	return err
}

func (s *Store) GetInstance(ctx context.Context, id string) (*goals.GoalInstance, error) {
	var doc instanceDoc
	if err := s.findOne(ctx, collInstances, "goal instance", id, &doc); err != nil {
		return nil, err
	}
	inst, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *Store) ListInstances(ctx context.Context, filter goals.InstanceFilter) ([]goals.GoalInstance, error) {
	query := bson.M{}
	if filter.AssignedGoalID != "" {
		query["assigned_goal_id"] = filter.AssignedGoalID
	}

	var docs []instanceDoc
	opts := options.Find().SetSort(bson.D{{Key: "period_end", Value: -1}, {Key: "_id", Value: 1}})
	if err := s.findAll(ctx, collInstances, query, opts, &docs); err != nil {
		return nil, err
	}
	return mapDocs(docs, instanceDoc.toDomain)
}

func (s *Store) UpdateInstance(ctx context.Context, id string, patch goals.InstancePatch) (*goals.GoalInstance, error) {
	if err := s.updateOne(ctx, collInstances, "goal instance", id, instanceSet(patch, s.now())); err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, id)
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	return s.deleteOne(ctx, collInstances, "goal instance", id)
}

func (s *Store) DeleteInstances(ctx context.Context, filter goals.InstanceFilter) (int, error) {
	query := bson.M{}
	if filter.AssignedGoalID != "" {
		query["assigned_goal_id"] = filter.AssignedGoalID
	}

	result, err := s.db.Collection(collInstances).DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(result.DeletedCount), nil
}

func (s *Store) CreateTrackingRecord(ctx context.Context, r *goals.TrackingRecord) error {
	_, err := s.db.Collection(collTrackingRecords).InsertOne(ctx, trackingRecordDoc(*r))
	return err
}

func (s *Store) ListTrackingRecords(ctx context.Context, assignedGoalID string) ([]goals.TrackingRecord, error) {
	var docs []trackingRecordDoc
	opts := options.Find().SetSort(bson.D{{Key: "record_date", Value: -1}, {Key: "_id", Value: 1}})
	if err := s.findAll(ctx, collTrackingRecords, bson.M{"assigned_goal_id": assignedGoalID}, opts, &docs); err != nil {
		return nil, err
	}
	return mapDocs(docs, trackingRecordDoc.toDomain)
}

// withEmployees maps assignment documents and attaches their employees with
// a single lookup.
func (s *Store) withEmployees(ctx context.Context, docs []assignedGoalDoc) ([]goals.AssignedGoal, error) {
	out, err := mapDocs(docs, assignedGoalDoc.toDomain)
	if err != nil || len(out) == 0 {
		return out, err
	}

	ids := make([]string, 0, len(out))
	for _, a := range out {
		ids = append(ids, a.EmployeeID)
	}

	var employees []employeeDoc
	if err := s.findAll(ctx, collEmployees, bson.M{"_id": bson.M{"$in": ids}}, nil, &employees); err != nil {
		return nil, err
	}

	byID := make(map[string]goals.Employee, len(employees))
	for _, doc := range employees {
		e, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		byID[e.ID] = e
	}

	for i := range out {
		if e, ok := byID[out[i].EmployeeID]; ok {
			out[i].Employee = &e
		}
	}
	return out, nil
}

func (s *Store) findOne(ctx context.Context, coll, kind, id string, dest any) error {
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &goals.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

func (s *Store) findAll(ctx context.Context, coll string, query bson.M, opts *options.FindOptions, dest any) error {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}

	cursor, err := s.db.Collection(coll).Find(ctx, query, findOpts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, dest)
}

func (s *Store) updateOne(ctx context.Context, coll, kind, id string, update bson.M) error {
	result, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &goals.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func (s *Store) deleteOne(ctx context.Context, coll, kind, id string) error {
	result, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return &goals.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func mapDocs[D any, R any](docs []D, convert func(D) (R, error)) ([]R, error) {
	out := make([]R, 0, len(docs))
	for _, doc := range docs {
		r, err := convert(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
