package domain

import "time"

type Listing struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competition_id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	PuzzleType    string    `json:"puzzle_type"`
	Price         float64   `json:"price"`
	Usage         string    `json:"usage"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	// Joined fields
	Seller *Profile `json:"seller,omitempty"`
}

type Report struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	ReportedBy string    `json:"reported_by"`
	Reason     string    `json:"reason"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

const ReportTypeListing = "listing"
