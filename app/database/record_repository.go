package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/openlmia/lmiahub/app/dataset"
)

const dateLayout = "2006-01-02"

var _ RecordRepository = (*SQLRecordRepository)(nil)

// SQLRecordRepository implements RecordRepository on SQLite.
type SQLRecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *SQLRecordRepository {
	return &SQLRecordRepository{db: db}
}

func (r *SQLRecordRepository) ExistsByIdentity(employer, nocCode string, decisionDate time.Time, sourceFile string) (bool, error) {
	var id int64
	err := r.db.QueryRow(`
		SELECT id FROM lmia_records
		WHERE LOWER(employer) = LOWER(?)
		  AND noc_code = ?
		  AND decision_date = ?
		  AND source_file = ?
		LIMIT 1
	`, employer, nocCode, decisionDate.Format(dateLayout), sourceFile).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record identity: %w", err)
	}
	return true, nil
}

func (r *SQLRecordRepository) SaveBatch(records []dataset.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO lmia_records (
			employer, province, stream, city, postal_code,
			noc_code, noc_title, positions_approved, status,
			decision_date, source_file, website_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.Exec(
			record.Employer, record.Province, record.Stream, record.City, record.PostalCode,
			record.NocCode, record.NocTitle, record.Positions, string(record.Status),
			record.DecisionDate.Format(dateLayout), record.SourceFile, record.WebsiteURL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record for %q: %w", record.Employer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (r *SQLRecordRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM lmia_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Search applies the optional filters with pagination. A NOC code filter is
// widened to its cross-version family: exact codes match with equality,
// prefix patterns with LIKE.
func (r *SQLRecordRepository) Search(q SearchQuery) ([]Record, int, error) {
	var conditions []string
	var args []interface{}

	if q.Employer != "" {
		conditions = append(conditions, "LOWER(employer) LIKE LOWER(?)")
		args = append(args, "%"+q.Employer+"%")
	}
	if q.NocCode != "" {
		var nocConds []string
		for _, code := range dataset.NocFamily(q.NocCode) {
			if strings.HasSuffix(code, "%") {
				nocConds = append(nocConds, "noc_code LIKE ?")
			} else {
				nocConds = append(nocConds, "noc_code = ?")
			}
			args = append(args, code)
		}
		conditions = append(conditions, "("+strings.Join(nocConds, " OR ")+")")
	}
	if q.Province != "" {
		conditions = append(conditions, "province = ?")
		args = append(args, q.Province)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.From != nil {
		conditions = append(conditions, "decision_date >= ?")
		args = append(args, q.From.Format(dateLayout))
	}
	if q.To != nil {
		conditions = append(conditions, "decision_date <= ?")
		args = append(args, q.To.Format(dateLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := r.db.QueryRow("SELECT COUNT(*) FROM lmia_records"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	query := `
		SELECT id, employer, province, stream, COALESCE(city, ''), COALESCE(postal_code, ''),
		       noc_code, COALESCE(noc_title, ''), positions_approved, status,
		       decision_date, source_file, COALESCE(website_url, ''), created_at
		FROM lmia_records` + where + `
		ORDER BY decision_date DESC, employer ASC
		LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, total, nil
}

func (r *SQLRecordRepository) UpdateWebsiteURL(id int64, url string) error {
	_, err := r.db.Exec("UPDATE lmia_records SET website_url = ? WHERE id = ?", url, id)
	if err != nil {
		return fmt.Errorf("failed to update website URL: %w", err)
	}
	return nil
}

func (r *SQLRecordRepository) DistinctProvinces() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT province FROM lmia_records ORDER BY province")
	if err != nil {
		return nil, fmt.Errorf("failed to get provinces: %w", err)
	}
	defer rows.Close()

	var provinces []string
	for rows.Next() {
		var province string
		if err := rows.Scan(&province); err != nil {
			return nil, fmt.Errorf("failed to scan province: %w", err)
		}
		provinces = append(provinces, province)
	}
	return provinces, rows.Err()
}

func (r *SQLRecordRepository) DistinctNocCodes() ([]NocCodeInfo, error) {
	rows, err := r.db.Query(`
		SELECT noc_code, COALESCE(MAX(noc_title), '')
		FROM lmia_records
		GROUP BY noc_code
		ORDER BY noc_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get NOC codes: %w", err)
	}
	defer rows.Close()

	var codes []NocCodeInfo
	for rows.Next() {
		var info NocCodeInfo
		if err := rows.Scan(&info.Code, &info.Title); err != nil {
			return nil, fmt.Errorf("failed to scan NOC code: %w", err)
		}
		codes = append(codes, info)
	}
	return codes, rows.Err()
}

func (r *SQLRecordRepository) ProvinceCounts() (map[string]int, error) {
	rows, err := r.db.Query("SELECT province, COUNT(*) FROM lmia_records GROUP BY province")
	if err != nil {
		return nil, fmt.Errorf("failed to get province counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var province string
		var count int
		if err := rows.Scan(&province, &count); err != nil {
			return nil, fmt.Errorf("failed to scan province count: %w", err)
		}
		counts[province] = count
	}
	return counts, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var record Record
	var decisionDate, createdAt string
	err := rows.Scan(
		&record.ID, &record.Employer, &record.Province, &record.Stream,
		&record.City, &record.PostalCode, &record.NocCode, &record.NocTitle,
		&record.Positions, &record.Status, &decisionDate, &record.SourceFile,
		&record.WebsiteURL, &createdAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to scan record row: %w", err)
	}

	record.DecisionDate, err = time.Parse(dateLayout, decisionDate)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse decision date %q: %w", decisionDate, err)
	}
	record.CreatedAt = parseTimestamp(createdAt)
	return record, nil
}

// parseTimestamp handles the formats SQLite emits for CURRENT_TIMESTAMP.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
