package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/openlmia/lmiahub/app/dataset"
)

func setupTestRepo(t *testing.T) *SQLRecordRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewRecordRepository(db)
}

func testRecord(employer, nocCode string, date time.Time) dataset.Record {
	return dataset.Record{
		Employer:     employer,
		Province:     "Ontario",
		Stream:       "High-wage",
		City:         "Toronto",
		PostalCode:   "M5V2T6",
		NocCode:      nocCode,
		NocTitle:     "Engineering managers",
		Positions:    2,
		Status:       dataset.StatusApproved,
		DecisionDate: date,
		SourceFile:   "tfwp_2021q2_positive_en.csv",
		WebsiteURL:   "https://www.google.com/search?q=test",
	}
}

func TestSaveBatchAndCount(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	records := []dataset.Record{
		testRecord("Acme Corp", "0211", date),
		testRecord("Beta Inc", "21231", date),
	}

	if err := repo.SaveBatch(records); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 records, got %d", count)
	}
}

func TestSaveBatch_Empty(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.SaveBatch(nil); err != nil {
		t.Errorf("Expected nil error for empty batch, got %v", err)
	}
}

func TestExistsByIdentity(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{testRecord("Acme Corp", "0211", date)}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	exists, err := repo.ExistsByIdentity("Acme Corp", "0211", date, "tfwp_2021q2_positive_en.csv")
	if err != nil {
		t.Fatalf("ExistsByIdentity failed: %v", err)
	}
	if !exists {
		t.Error("Expected record to exist")
	}

	// Employer comparison is case-insensitive
	exists, err = repo.ExistsByIdentity("ACME CORP", "0211", date, "tfwp_2021q2_positive_en.csv")
	if err != nil {
		t.Fatalf("ExistsByIdentity failed: %v", err)
	}
	if !exists {
		t.Error("Expected case-insensitive employer match")
	}

	// NOC code comparison is exact
	exists, err = repo.ExistsByIdentity("Acme Corp", "02110", date, "tfwp_2021q2_positive_en.csv")
	if err != nil {
		t.Fatalf("ExistsByIdentity failed: %v", err)
	}
	if exists {
		t.Error("Expected no match for a different NOC code")
	}

	// A different source file is a different identity
	exists, err = repo.ExistsByIdentity("Acme Corp", "0211", date, "tfwp_2021q3_positive_en.csv")
	if err != nil {
		t.Fatalf("ExistsByIdentity failed: %v", err)
	}
	if exists {
		t.Error("Expected no match for a different source file")
	}

	// A different decision date is a different identity
	exists, err = repo.ExistsByIdentity("Acme Corp", "0211", date.AddDate(0, 3, 0), "tfwp_2021q2_positive_en.csv")
	if err != nil {
		t.Fatalf("ExistsByIdentity failed: %v", err)
	}
	if exists {
		t.Error("Expected no match for a different decision date")
	}
}

func TestSearch_NoFilters(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Acme Corp", "0211", date),
		testRecord("Beta Inc", "21231", date),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	records, total, err := repo.Search(SearchQuery{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected total 2, got %d", total)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}

	record := records[0]
	if record.ID == 0 {
		t.Error("Expected ID to be populated")
	}
	if !record.DecisionDate.Equal(date) {
		t.Errorf("Expected decision date %s, got %s", date, record.DecisionDate)
	}
	if record.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}
}

func TestSearch_EmployerSubstring(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Acme Corporation", "0211", date),
		testRecord("Beta Inc", "0211", date),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	records, total, err := repo.Search(SearchQuery{Employer: "acme"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("Expected 1 match, got total=%d len=%d", total, len(records))
	}
	if records[0].Employer != "Acme Corporation" {
		t.Errorf("Unexpected employer: %s", records[0].Employer)
	}
}

func TestSearch_NocFamilyWidening(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Four Digit Co", "2123", date),
		testRecord("Five Digit Co", "21231", date),
		testRecord("Other Co", "0211", date),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	// Searching the 4-digit code finds its 5-digit children via the prefix pattern
	_, total, err := repo.Search(SearchQuery{NocCode: "2123"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 matches for 4-digit search, got %d", total)
	}

	// Searching the 5-digit code finds its 4-digit parent via the exact family entry
	_, total, err = repo.Search(SearchQuery{NocCode: "21231"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 matches for 5-digit search, got %d", total)
	}

	// An unrelated code only matches itself
	_, total, err = repo.Search(SearchQuery{NocCode: "0211"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected 1 match for unrelated code, got %d", total)
	}
}

func TestSearch_DateRange(t *testing.T) {
	repo := setupTestRepo(t)

	q1 := time.Date(2021, time.February, 15, 0, 0, 0, 0, time.UTC)
	q2 := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)
	q3 := time.Date(2021, time.August, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Q1 Co", "0211", q1),
		testRecord("Q2 Co", "0211", q2),
		testRecord("Q3 Co", "0211", q3),
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	from := time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, time.June, 30, 0, 0, 0, 0, time.UTC)

	records, total, err := repo.Search(SearchQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("Expected 1 match in range, got total=%d len=%d", total, len(records))
	}
	if records[0].Employer != "Q2 Co" {
		t.Errorf("Unexpected employer: %s", records[0].Employer)
	}
}

func TestSearch_Pagination(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	var records []dataset.Record
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		records = append(records, testRecord(name, "0211", date))
	}
	if err := repo.SaveBatch(records); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	page1, total, err := repo.Search(SearchQuery{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("Expected 2 records on page 1, got %d", len(page1))
	}
	if page1[0].Employer != "Alpha" || page1[1].Employer != "Bravo" {
		t.Errorf("Unexpected page 1 order: %s, %s", page1[0].Employer, page1[1].Employer)
	}

	page3, _, err := repo.Search(SearchQuery{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page3) != 1 || page3[0].Employer != "Echo" {
		t.Errorf("Unexpected page 3 content: %+v", page3)
	}
}

func TestSearch_StatusAndProvince(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	denied := testRecord("Denied Co", "0211", date)
	denied.Status = dataset.StatusDenied
	denied.Province = "Alberta"

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Approved Co", "0211", date),
		denied,
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	records, total, err := repo.Search(SearchQuery{Status: "denied"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || records[0].Employer != "Denied Co" {
		t.Errorf("Unexpected status filter result: total=%d %+v", total, records)
	}

	records, total, err = repo.Search(SearchQuery{Province: "Alberta"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 1 || records[0].Employer != "Denied Co" {
		t.Errorf("Unexpected province filter result: total=%d %+v", total, records)
	}
}

func TestUpdateWebsiteURL(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveBatch([]dataset.Record{testRecord("Acme Corp", "0211", date)}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	records, _, err := repo.Search(SearchQuery{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if err := repo.UpdateWebsiteURL(records[0].ID, "https://acme.example.com"); err != nil {
		t.Fatalf("UpdateWebsiteURL failed: %v", err)
	}

	records, _, err = repo.Search(SearchQuery{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if records[0].WebsiteURL != "https://acme.example.com" {
		t.Errorf("Expected updated website URL, got %s", records[0].WebsiteURL)
	}
}

func TestDistinctProvincesAndNocCodes(t *testing.T) {
	repo := setupTestRepo(t)
	date := time.Date(2021, time.May, 15, 0, 0, 0, 0, time.UTC)

	alberta := testRecord("West Co", "21231", date)
	alberta.Province = "Alberta"

	if err := repo.SaveBatch([]dataset.Record{
		testRecord("Acme Corp", "0211", date),
		testRecord("Beta Inc", "0211", date),
		alberta,
	}); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	provinces, err := repo.DistinctProvinces()
	if err != nil {
		t.Fatalf("DistinctProvinces failed: %v", err)
	}
	if len(provinces) != 2 || provinces[0] != "Alberta" || provinces[1] != "Ontario" {
		t.Errorf("Unexpected provinces: %v", provinces)
	}

	codes, err := repo.DistinctNocCodes()
	if err != nil {
		t.Fatalf("DistinctNocCodes failed: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("Expected 2 NOC codes, got %d", len(codes))
	}
	if codes[0].Code != "0211" || codes[0].Title == "" {
		t.Errorf("Unexpected NOC code entry: %+v", codes[0])
	}

	counts, err := repo.ProvinceCounts()
	if err != nil {
		t.Fatalf("ProvinceCounts failed: %v", err)
	}
	if counts["Ontario"] != 2 || counts["Alberta"] != 1 {
		t.Errorf("Unexpected province counts: %v", counts)
	}
}
