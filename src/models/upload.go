package models

import "time"

// Upload is one persisted CSV file.
type Upload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	Source    string    `json:"source"`
	RowCount  int       `json:"row_count"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadWithData is an upload together with its sales rows, ordered by date.
type UploadWithData struct {
	Upload
	SalesData []SalesRecord `json:"sales_data"`
}
