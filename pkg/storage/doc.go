// Package storage provides blob storage for uploaded files and promoted images.
//
// Clients upload files to a staging name (recorded as an upload row). When an
// upload is attached to an entity the blob is copied to its permanent name
// with SaveUpload and the returned URL is stored on an image row.
//
// Two backends implement BlobStore:
//
//   - FileSystemStore: local directory, for development and tests
//   - S3Store: any S3 compatible service (AWS, MinIO) through aws-sdk-go-v2
//
// Use New to build the backend selected by Config.Type and WithMetrics to
// count operations in Prometheus.
package storage
