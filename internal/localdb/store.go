package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// timestamps are stored as fixed-width UTC text so they sort lexicographically
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

const dayLayout = "2006-01-02"

// Store serves the local commands against one SQLite database.
type Store struct {
	db      *sql.DB
	docsDir string
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

func NewStore(db *sql.DB, docsDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:      db,
		docsDir: docsDir,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(tsLayout)
}

// Register binds every local command to b.
func (s *Store) Register(b *bridge.Bridge) {
	cmds := map[string]bridge.Handler{
		// admin
		"get_current_user":    s.getCurrentUser,
		"get_branches":        s.getBranches,
		"get_profiles":        s.getProfiles,
		"update_profile_role": s.updateProfileRole,

		// inventory
		"get_suppliers":             s.getSuppliers,
		"get_inventory_items":       s.getInventoryItems,
		"get_inventory_item":        s.getInventoryItem,
		"create_inventory_item":     s.createInventoryItem,
		"update_inventory_item":     s.updateInventoryItem,
		"set_inventory_item_active": s.setInventoryItemActive,
		"count_inventory_movements": s.countInventoryMovements,
		"create_inventory_movement": s.createInventoryMovement,
		"get_inventory_movements":   s.getInventoryMovements,
		"import_inventory_items":    s.importInventoryItems,

		// consultation and surgery
		"get_encounters":        s.getEncounters,
		"get_encounter":         s.getEncounter,
		"create_encounter":      s.createEncounter,
		"update_encounter":      s.updateEncounter,
		"get_exam_eyes":         s.getExamEyes,
		"upsert_exam_eye":       s.upsertExamEye,
		"get_surgeries":         s.getSurgeries,
		"get_surgery":           s.getSurgery,
		"create_surgery":        s.createSurgery,
		"update_surgery_status": s.updateSurgeryStatus,

		// caja
		"create_invoice":      s.createInvoice,
		"get_invoice":         s.getInvoice,
		"get_invoices":        s.getInvoices,
		"create_payment":      s.createPayment,
		"get_payments":        s.getPayments,
		"create_cash_closure": s.createCashClosure,
		"get_cash_closures":   s.getCashClosures,

		// crm
		"get_pipeline_stages": s.getPipelineStages,
		"get_leads":           s.getLeads,
		"create_lead":         s.createLead,
		"move_lead":           s.moveLead,

		"get_dashboard_summary": s.getDashboardSummary,
		"get_document_path":     s.getDocumentPath,
	}
	for name, h := range cmds {
		b.Register(name, h)
	}
}

// SetSession records userID as the signed-in desktop user.
func (s *Store) SetSession(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, started_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, started_at = excluded.started_at`,
		userID, s.timestamp())
	return classifySQL("set session", err)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type idArgs struct {
	ID string `json:"id"`
}

func decodeID(raw json.RawMessage) (string, error) {
	a, err := bridge.Decode[idArgs](raw)
	if err != nil {
		return "", apperr.Validation("%v", err)
	}
	if a.ID == "" {
		return "", apperr.Validation("id is required")
	}
	return a.ID, nil
}

// classifySQL maps SQLite constraint failures onto the error taxonomy.
func classifySQL(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "record not found", Err: err}
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &apperr.Error{Kind: apperr.KindBusinessRule, Op: op, Message: "a record with the same key already exists", Err: err}
		case sqlite3.ErrConstraintForeignKey:
			return &apperr.Error{Kind: apperr.KindBusinessRule, Op: op, Message: "referenced record does not exist", Err: err}
		case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
			return &apperr.Error{Kind: apperr.KindValidation, Op: op, Message: se.Error(), Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func dayRange(from, to string) (string, string, error) {
	f, err := dayStart("from", from)
	if err != nil {
		return "", "", err
	}
	t, err := dayStart("to", to)
	if err != nil {
		return "", "", err
	}
	return f, nextDayStart(t), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern that declares
// ESCAPE '\'.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// dayStart normalises a YYYY-MM-DD bound.
func dayStart(name, day string) (string, error) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return "", apperr.Validation("invalid %s date %q", name, day)
	}
	return t.Format(dayLayout), nil
}

func nextDayStart(day string) string {
	t, _ := time.Parse(dayLayout, day)
	return t.AddDate(0, 0, 1).Format(dayLayout)
}
