package assets

import "time"

// Image is a stored, publicly served picture
type Image struct {
	ID        string    `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Upload is a blob waiting to be attached to an entity
type Upload struct {
	ID          string    `db:"id"`
	UserID      *string   `db:"user_id"`
	BlobName    string    `db:"blob_name"`
	ContentType string    `db:"content_type"`
	CreatedAt   time.Time `db:"created_at"`
}

// Address is a postal address
type Address struct {
	ID     string `db:"id" json:"id"`
	Street string `db:"street" json:"street"`
	City   string `db:"city" json:"city"`
	State  string `db:"state" json:"state"`
	Zip    string `db:"zip" json:"zip"`
}
