package dataset

import (
	"time"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Record is one normalized LMIA decision extracted from a source file.
type Record struct {
	Employer     string
	Province     string
	Stream       string
	City         string
	PostalCode   string
	NocCode      string
	NocTitle     string
	Positions    int
	Status       Status
	DecisionDate time.Time
	SourceFile   string
	WebsiteURL   string
}

// FileStructure is the heuristically detected layout of one raw file.
type FileStructure struct {
	HeaderRowIndex int
	Columns        []string
	Province       string
}

// State carries the extraction context across a sequential scan of a file:
// the active column list and the ambient province. Both can change mid-file
// when a repeated header or a standalone province line is encountered.
type State struct {
	Columns  []string
	Province string
}
