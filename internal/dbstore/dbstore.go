// Package dbstore implements the engine's persistence collaborator over the
// operations database reached through database/sql.
package dbstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // default local driver

	"fulfil/internal/record"
)

// ErrRecordMissing is returned by WriteField when the ticket row is gone.
var ErrRecordMissing = errors.New("record not found")

// Field names exposed to the grid.
const (
	FieldTicket   = "Ticket"
	FieldSubject  = "Subject"
	FieldStatus   = "Status"
	FieldAssignee = "Assignee"
	FieldDue      = "Due"
	FieldUrgent   = "Urgent"
	FieldOrder    = "Order"
)

// fieldColumns maps editable grid fields to their ticket columns. Fields not
// listed here are never written.
var fieldColumns = map[string]string{
	FieldSubject:  "subject",
	FieldStatus:   "status",
	FieldAssignee: "assignee_id",
	FieldDue:      "due_date",
	FieldUrgent:   "urgent",
}

// StatusValues is the fixed value set of the Status field.
var StatusValues = []string{"Open", "Waiting", "Completed", "Closed"}

// TicketSchema describes the ticket grid's columns.
func TicketSchema() record.Schema {
	return record.NewSchema(
		record.FieldSpec{Name: FieldTicket, Type: record.FieldText},
		record.FieldSpec{Name: FieldSubject, Type: record.FieldText, Editable: true},
		record.FieldSpec{Name: FieldStatus, Type: record.FieldEnum, Editable: true, Options: StatusValues},
		record.FieldSpec{Name: FieldAssignee, Type: record.FieldRef, Editable: true},
		record.FieldSpec{Name: FieldDue, Type: record.FieldDate, Editable: true},
		record.FieldSpec{Name: FieldUrgent, Type: record.FieldBool, Editable: true},
		record.FieldSpec{Name: FieldOrder, Type: record.FieldText},
	)
}

// Store reads and writes ticket records. Writes pair the ticket update with
// an audit row inside one transaction, so a constraint failure on either
// leaves the store untouched.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects with the given driver and DSN. The mysql driver reaches the
// database through the SSH tunnel's registered dialer; the sqlite driver backs
// the default local database and the in-memory test stores.
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing connection.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bootstrap creates the tables this tool needs when they do not exist yet.
// Intended for the sqlite test/demo database; the production schema is
// managed by the backend team.
func (s *Store) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tickets (
			ticket_no   TEXT PRIMARY KEY,
			subject     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'Open',
			assignee_id TEXT NOT NULL DEFAULT '',
			due_date    TEXT NOT NULL DEFAULT '',
			urgent      INTEGER NOT NULL DEFAULT 0,
			order_no    TEXT NOT NULL DEFAULT '',
			updated_at  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ticket_audit (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_no  TEXT NOT NULL,
			field      TEXT NOT NULL,
			new_value  TEXT NOT NULL,
			changed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assignees (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// ReadAllRecords returns every ticket in stable order. Used by the poll step.
func (s *Store) ReadAllRecords(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticket_no, subject, status, assignee_id, due_date, urgent, order_no
		FROM tickets
		ORDER BY ticket_no`)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var ticketNo, subject, status, assignee, due, orderNo string
		var urgent int
		if err := rows.Scan(&ticketNo, &subject, &status, &assignee, &due, &urgent, &orderNo); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, record.Record{
			ID: ticketNo,
			Values: map[string]string{
				FieldTicket:   ticketNo,
				FieldSubject:  subject,
				FieldStatus:   status,
				FieldAssignee: assignee,
				FieldDue:      due,
				FieldUrgent:   boolFromDB(urgent),
				FieldOrder:    orderNo,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return out, nil
}

// WriteField persists one cell edit. The ticket update and the audit row
// commit together or not at all.
func (s *Store) WriteField(ctx context.Context, recordID, field, value string) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not writable", field)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dbValue := any(value)
	if field == FieldUrgent {
		dbValue = boolToDB(value)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx,
		// #nosec G201 -- column comes from the fixed fieldColumns map
		fmt.Sprintf(`UPDATE tickets SET %s = ?, updated_at = ? WHERE ticket_no = ?`, column),
		dbValue, now, recordID)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", recordID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", recordID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update ticket %s: %w", recordID, ErrRecordMissing)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_audit (ticket_no, field, new_value, changed_at) VALUES (?, ?, ?, ?)`,
		recordID, field, value, now); err != nil {
		return fmt.Errorf("audit ticket %s: %w", recordID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket %s: %w", recordID, err)
	}
	s.logger.Debug("field written",
		zap.String("ticket", recordID),
		zap.String("field", field))
	return nil
}

// LoadAssigneeLabels reads the assignee lookup table for the label resolver.
func (s *Store) LoadAssigneeLabels(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM assignees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		labels[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignees: %w", err)
	}
	return map[string]map[string]string{FieldAssignee: labels}, nil
}

func boolToDB(value string) int {
	if value == "true" {
		return 1
	}
	return 0
}

func boolFromDB(value int) string {
	if value != 0 {
		return "true"
	}
	return "false"
}
