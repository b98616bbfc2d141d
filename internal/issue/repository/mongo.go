package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const issueSequence = "issues"

// MongoRepo implements the issue store on a MongoDB collection. Integer ids
// come from a counters collection incremented atomically per insert, so ids
// are never reused even after deletes.
type MongoRepo struct {
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// NewMongoRepo wires the repository to the given database. Call EnsureIndexes
// once at startup.
func NewMongoRepo(db *mongo.Database, funcs ...OptionFunc) *MongoRepo {
	opts := NewOptions(funcs...)
	return &MongoRepo{
		col:      db.Collection("issues"),
		counters: db.Collection("counters"),
		// BSON datetimes carry millisecond precision.
		now: clock(opts, time.Millisecond),
	}
}

func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return errors.Wrap(err, "create issue indexes")
}

func (m *MongoRepo) nextID(ctx context.Context) (int64, error) {
	var seq struct {
		Value int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": issueSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, errors.Wrap(err, "allocate issue id")
	}
	return seq.Value, nil
}

func (m *MongoRepo) List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error) {
	filter := bson.D{}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(f.Status)})
	}
	if f.Search != "" {
		pattern := primitiveRegex(f.Search)
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer cur.Close(ctx)
	out := []*issue.Issue{}
	for cur.Next(ctx) {
		var i issue.Issue
		if err := cur.Decode(&i); err != nil {
			return nil, errors.WithStack(err)
		}
		normalize(&i)
		out = append(out, &i)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

func primitiveRegex(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}

func (m *MongoRepo) Get(ctx context.Context, id int64) (*issue.Issue, error) {
	var i issue.Issue
	if err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&i); err != nil {
		return nil, notFound(err)
	}
	normalize(&i)
	return &i, nil
}

func (m *MongoRepo) Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error) {
	id, err := m.nextID(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	i := &issue.Issue{
		ID:          id,
		Title:       n.Title,
		Description: copyString(n.Description),
		Status:      n.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := m.col.InsertOne(ctx, i); err != nil {
		return nil, errors.WithStack(err)
	}
	return i, nil
}

func (m *MongoRepo) Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error) {
	set := bson.D{}
	for _, f := range p.Fields() {
		set = append(set, bson.E{Key: f.Column, Value: f.Value})
	}
	set = append(set, bson.E{Key: "updated_at", Value: m.now()})

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var i issue.Issue
	if err := m.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&i); err != nil {
		return nil, notFound(err)
	}
	normalize(&i)
	return &i, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id int64) (*issue.Issue, error) {
	var i issue.Issue
	if err := m.col.FindOneAndDelete(ctx, bson.M{"id": id}).Decode(&i); err != nil {
		return nil, notFound(err)
	}
	normalize(&i)
	return &i, nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return errors.WithStack(m.col.Database().Client().Ping(ctx, nil))
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return errors.WithStack(err)
}

// normalize converts decoded datetimes (local time zone) back to UTC.
func normalize(i *issue.Issue) {
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
}
