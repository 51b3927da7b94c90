package database

import (
	"time"

	"github.com/openlmia/lmiahub/app/dataset"
)

type RecordRepository interface {
	// ExistsByIdentity reports whether a record with the same identity
	// tuple (employer case-insensitive, NOC code exact, decision date,
	// source file) is already persisted.
	ExistsByIdentity(employer, nocCode string, decisionDate time.Time, sourceFile string) (bool, error)

	// SaveBatch persists records inside a single transaction; a failure
	// leaves nothing committed.
	SaveBatch(records []dataset.Record) error

	Count() (int, error)
	Search(q SearchQuery) ([]Record, int, error)
	UpdateWebsiteURL(id int64, url string) error

	DistinctProvinces() ([]string, error)
	DistinctNocCodes() ([]NocCodeInfo, error)
	ProvinceCounts() (map[string]int, error)
}
