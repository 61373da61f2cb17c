package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/social/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations.
// Counter methods return ErrNotFound when the post no longer exists.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByProfileID(ctx context.Context, profileID string, skip, limit int64) ([]models.Post, error)
	ListPostIDs(ctx context.Context, afterID string, limit int64) ([]string, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
	IncrementCommentsCount(ctx context.Context, postID string, n int) error
	DecrementCommentsCount(ctx context.Context, postID string, n int) error
	IncrementReactionsCount(ctx context.Context, postID string) error
	DecrementReactionsCount(ctx context.Context, postID string) error
	SetCounts(ctx context.Context, postID string, comments, reactions int) error
}

const (
	fieldCommentCount  = "comment_count"
	fieldReactionCount = "reaction_count"
)

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the author listing index
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "profile_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.LastUpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByProfileID retrieves posts by a specific author, newest first
func (r *MongoPostRepository) GetPostsByProfileID(ctx context.Context, profileID string, skip, limit int64) ([]models.Post, error) {
	posts := make([]models.Post, 0)
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).SetSkip(skip)
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"profile_id": profileID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostIDs pages through every post id in ascending order, starting after afterID
func (r *MongoPostRepository) ListPostIDs(ctx context.Context, afterID string, limit int64) ([]string, error) {
	filter := bson.M{}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit).
		SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// UpdatePost writes the author-editable fields of a post. Counters are never touched here.
func (r *MongoPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	post.LastUpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"content":         post.Content,
			"visibility":      post.Visibility,
			"tags":            post.Tags,
			"is_edited":       post.IsEdited,
			"last_updated_at": post.LastUpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": post.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCommentsCount adds n to the comment count of a post
func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, postID string, n int) error {
	return r.inc(ctx, postID, fieldCommentCount, n)
}

// DecrementCommentsCount subtracts n from the comment count of a post, flooring at zero
func (r *MongoPostRepository) DecrementCommentsCount(ctx context.Context, postID string, n int) error {
	return r.decFloored(ctx, postID, fieldCommentCount, n)
}

// IncrementReactionsCount increments the reaction count of a post
func (r *MongoPostRepository) IncrementReactionsCount(ctx context.Context, postID string) error {
	return r.inc(ctx, postID, fieldReactionCount, 1)
}

// DecrementReactionsCount decrements the reaction count of a post, flooring at zero
func (r *MongoPostRepository) DecrementReactionsCount(ctx context.Context, postID string) error {
	return r.decFloored(ctx, postID, fieldReactionCount, 1)
}

// SetCounts overwrites both counters; used by the repair path only
func (r *MongoPostRepository) SetCounts(ctx context.Context, postID string, comments, reactions int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{
		"$set": bson.M{fieldCommentCount: comments, fieldReactionCount: reactions},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoPostRepository) inc(ctx context.Context, postID, field string, n int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{field: n}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// decFloored runs a single pipeline update so the floor is applied server side
func (r *MongoPostRepository) decFloored(ctx context.Context, postID, field string, n int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$subtract", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}}, n}}},
		}}}}}}},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": postID}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
