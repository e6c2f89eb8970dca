package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	"github.com/jimezsa/admitscrape/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/mysql.sql
var mysqlSchema string

const columns = `source_url, institution, program, degree_type, decision_status, decision_date, date_added,
	term, gpa, gre_quant, gre_verbal, gre_aw, nationality, comment`

// SQLStore keeps records in an admissions table with a unique source_url.
type SQLStore struct {
	db     *sql.DB
	insert string
}

// OpenSQLite opens (and creates) an embedded database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite target needs a path", ErrUnsupportedTarget)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps :memory: databases alive across calls.
	db.SetMaxOpenConns(1)
	return NewSQLStore(ctx, db, sqliteSchema, "INSERT OR IGNORE INTO")
}

// OpenMySQL connects with a go-sql-driver DSN such as user:pass@tcp(host:3306)/admissions.
func OpenMySQL(ctx context.Context, dsn string) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = false

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect mysql %s: %w", cfg.Addr, err)
	}
	return NewSQLStore(ctx, db, mysqlSchema, "INSERT IGNORE INTO")
}

// NewSQLStore applies schema to db. insert is the dialect's duplicate-ignoring
// insert prefix.
func NewSQLStore(ctx context.Context, db *sql.DB, schema, insert string) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLStore{db: db, insert: insert}, nil
}

func (s *SQLStore) Append(ctx context.Context, rec models.AdmissionRecord) (bool, error) {
	rec, _, err := withKey(rec)
	if err != nil {
		return false, err
	}

	query := s.insert + ` admissions (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		rec.SourceURL,
		rec.Institution,
		rec.Program,
		string(rec.DegreeType),
		string(rec.DecisionStatus),
		nullDate(rec.DecisionDate),
		nullDate(rec.DateAdded),
		rec.Term,
		nullValue(rec.GPA),
		nullValue(rec.GREQuant),
		nullValue(rec.GREVerbal),
		nullValue(rec.GREAW),
		string(rec.Nationality),
		rec.Comment,
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", rec.SourceURL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Records(ctx context.Context) ([]models.AdmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM admissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.AdmissionRecord{}
	for rows.Next() {
		var (
			rec                     models.AdmissionRecord
			degree, status, nat     string
			decisionDate, dateAdded sql.NullString
			term, comment           sql.NullString
			gpa, aw                 sql.NullFloat64
			quant, verbal           sql.NullInt64
		)
		if err := rows.Scan(&rec.SourceURL, &rec.Institution, &rec.Program, &degree, &status,
			&decisionDate, &dateAdded, &term, &gpa, &quant, &verbal, &aw, &nat, &comment); err != nil {
			return nil, err
		}
		rec.DegreeType = models.DegreeType(degree)
		rec.DecisionStatus = models.DecisionStatus(status)
		rec.Nationality = models.Nationality(nat)
		rec.Term = term.String
		rec.Comment = comment.String
		if rec.DecisionDate, err = scanDate(decisionDate); err != nil {
			return nil, err
		}
		if rec.DateAdded, err = scanDate(dateAdded); err != nil {
			return nil, err
		}
		if gpa.Valid {
			rec.GPA = &gpa.Float64
		}
		if aw.Valid {
			rec.GREAW = &aw.Float64
		}
		if quant.Valid {
			v := int(quant.Int64)
			rec.GREQuant = &v
		}
		if verbal.Valid {
			v := int(verbal.Int64)
			rec.GREVerbal = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullDate(d *models.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func nullValue[T int | float64](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanDate(value sql.NullString) (*models.Date, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	raw := value.String
	if len(raw) > len(models.DateLayout) {
		raw = raw[:len(models.DateLayout)]
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("scan date %q: %w", value.String, err)
	}
	return &date, nil
}
