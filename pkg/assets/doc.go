// Package assets owns images, pending uploads and addresses.
//
// Clients upload a file to blob storage and receive an upload id. When the
// upload is attached to an entity (a school logo, a consent signature) it is
// promoted: the blob is copied to its permanent name, then the upload row is
// replaced by an image row inside the caller's transaction. A failed
// transaction discards the copied blob.
package assets
