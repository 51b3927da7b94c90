package database

import (
	"time"
)

// Record is a persisted LMIA decision row.
type Record struct {
	ID           int64
	Employer     string
	Province     string
	Stream       string
	City         string
	PostalCode   string
	NocCode      string
	NocTitle     string
	Positions    int
	Status       string
	DecisionDate time.Time
	SourceFile   string
	WebsiteURL   string
	CreatedAt    time.Time
}

// SearchQuery holds the optional filters and pagination for record search.
type SearchQuery struct {
	Employer string
	NocCode  string
	Province string
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// NocCodeInfo pairs a distinct NOC code with one of its titles.
type NocCodeInfo struct {
	Code  string
	Title string
}
