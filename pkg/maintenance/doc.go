// Package maintenance runs scheduled housekeeping jobs.
//
// The upload janitor removes uploads that were never attached to an entity.
// Clients upload before they submit the mutation that uses the upload, so
// abandoned forms leave upload rows and staging blobs behind. The janitor
// deletes the row first and the blob second: a promotion racing the janitor
// then fails on its own DeleteUpload and discards its copy.
package maintenance
