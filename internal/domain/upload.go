package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about a file accepted by the upload endpoint.
// The actual file resides in the object store under ObjectKey.
type Upload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ObjectKey   string             `bson:"objectKey" json:"key"` // Full key inside the bucket, folder prefix included
	Bucket      string             `bson:"bucket" json:"bucket"`
	Folder      string             `bson:"folder,omitempty" json:"folder,omitempty"`
	FileName    string             `bson:"fileName" json:"fileName"`       // Original filename provided by client
	ContentType string             `bson:"contentType" json:"contentType"` // MIME type (e.g., "video/mp4")
	Size        int64              `bson:"size" json:"size"`               // File size in bytes
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
