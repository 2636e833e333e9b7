package userdata

// UserRecord is one row of the user_data table.
type UserRecord struct {
	UserID string // UserID is a uuid assigned at seed time
	Name   string
	Email  string // Email is unique across the table
	Age    int    // Age is the stored numeric age truncated to an integer
}

// Batch is a group of records returned by a single fetch.
type Batch []UserRecord

// Page is the window of records found at Offset.
type Page struct {
	Offset  int
	Records []UserRecord
}

// SeedRow is a validated CSV row ready for insertion.
type SeedRow struct {
	Name  string  `validate:"required,max=255"`
	Email string  `validate:"required,email,max=255"`
	Age   float64 `validate:"gte=0,lte=999.99"`
}
