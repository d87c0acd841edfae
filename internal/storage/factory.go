package storage

import (
	"context"
	"fmt"
	"os"
)

// NewBackendFromEnv selects a backend from STORAGE_TYPE. Defaults to
// local storage under ./uploads so the service runs without AWS
// credentials.
func NewBackendFromEnv(ctx context.Context) (Backend, error) {
	switch os.Getenv("STORAGE_TYPE") {
	case "", "local":
		basePath := os.Getenv("STORAGE_LOCAL_PATH")
		if basePath == "" {
			basePath = "./uploads"
		}
		return NewLocalBackend(basePath)

	case "s3":
		bucket := os.Getenv("STORAGE_S3_BUCKET")
		region := os.Getenv("STORAGE_S3_REGION")
		if bucket == "" || region == "" {
			return nil, fmt.Errorf("s3 storage requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Backend(ctx, S3Config{Bucket: bucket, Region: region})

	default:
		return nil, fmt.Errorf("unknown storage type %q", os.Getenv("STORAGE_TYPE"))
	}
}
