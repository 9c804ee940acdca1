package mongo

import (
	"alcyxob/file-storage/internal/domain"
	"alcyxob/file-storage/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UploadCollectionName = "uploads"

var ErrInvalidUpload = errors.New("upload requires objectKey, bucket and fileName")

// mongoUploadRepository implements repository.UploadRepository
type mongoUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadRepository creates a new Upload repository backed by MongoDB.
func NewMongoUploadRepository(db *mongo.Database) repository.UploadRepository {
	return &mongoUploadRepository{
		collection: db.Collection(UploadCollectionName),
	}
}

// Create inserts new upload metadata into the database.
// UploadedAt is kept when already set so it matches the timestamp in the key.
func (r *mongoUploadRepository) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	if upload.ObjectKey == "" || upload.Bucket == "" || upload.FileName == "" {
		return primitive.NilObjectID, ErrInvalidUpload
	}

	upload.ID = primitive.NewObjectID()
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, upload)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByObjectKey retrieves upload metadata by the object key it was stored under.
func (r *mongoUploadRepository) GetByObjectKey(ctx context.Context, objectKey string) (*domain.Upload, error) {
	var upload domain.Upload
	filter := bson.M{"objectKey": objectKey}

	err := r.collection.FindOne(ctx, filter).Decode(&upload)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// DeleteByObjectKey removes the metadata of a deleted object.
func (r *mongoUploadRepository) DeleteByObjectKey(ctx context.Context, objectKey string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"objectKey": objectKey})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUploadIndexes creates necessary indexes for the uploads collection.
func EnsureUploadIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Object keys are unique within a bucket
			Keys:    bson.D{{Key: "bucket", Value: 1}, {Key: "objectKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "objectKey", Value: 1}},
			Options: options.Index(),
		},
		{
			// Listing a folder newest first
			Keys:    bson.D{{Key: "folder", Value: 1}, {Key: "uploadedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Err(err).Str("collection", collection.Name()).Msg("failed to create indexes")
	}
}
