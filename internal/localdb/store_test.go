package localdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func newTestBridge(t *testing.T) (*bridge.Bridge, *Store) {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))

	s := NewStore(db, t.TempDir(), nil)
	s.now = func() time.Time { return testNow }
	require.NoError(t, s.Seed(context.Background(), &SeedData{
		Branches: []branchRow{{ID: "b1", Code: "CV1", Name: "Centro", Active: true}},
		Profiles: []profileRow{
			{UserID: "u-admin", Email: "admin@clinic.mx", FullName: "Admin", Role: "admin", BranchID: "b1"},
			{UserID: "u-caja", Email: "caja@clinic.mx", FullName: "Caja", Role: "cashier", BranchID: "b1"},
		},
		Suppliers: []supplierRow{
			{ID: "s1", Name: "Zeiss", Active: true},
			{ID: "s2", Name: "Alcon", Active: false},
		},
		Stages: []stageRow{
			{ID: "st1", Pipeline: "cirugia", Name: "Nuevo", Position: 1},
			{ID: "st2", Pipeline: "cirugia", Name: "Agendado", Position: 2},
			{ID: "st9", Pipeline: "lentes", Name: "Nuevo", Position: 1},
		},
	}))

	b := bridge.New(true, nil)
	s.Register(b)
	return b, s
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, Migrate(context.Background(), db))
}

func TestRegisterCoversCommandSet(t *testing.T) {
	b, _ := newTestBridge(t)
	cmds := b.Commands()
	for _, name := range []string{
		"get_current_user", "get_suppliers", "create_inventory_movement", "import_inventory_items",
		"get_encounter", "upsert_exam_eye", "update_surgery_status", "create_payment",
		"create_cash_closure", "move_lead", "get_dashboard_summary", "get_document_path",
	} {
		assert.Contains(t, cmds, name)
	}
}

func TestGetSuppliers_ReturnsInactiveToo(t *testing.T) {
	b, _ := newTestBridge(t)
	var rows []supplierRow
	require.NoError(t, b.Invoke(context.Background(), "get_suppliers", nil, &rows))
	require.Len(t, rows, 2)
	byID := map[string]bool{}
	for _, r := range rows {
		byID[r.ID] = r.Active
	}
	assert.True(t, byID["s1"])
	assert.False(t, byID["s2"])
}

func TestInventoryItemLifecycle(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	var item itemRow
	require.NoError(t, b.Invoke(ctx, "create_inventory_item", itemWrite{
		BranchID: "b1", Code: "LEN-001", Name: "Lente monofocal", Category: "lentes",
		SupplierID: "s1", UnitPrice: 950, CurrentStock: 10, MinStock: 2,
	}, &item))
	assert.Equal(t, "Zeiss", item.SupplierName)
	assert.Equal(t, 10.0, item.CurrentStock)
	assert.True(t, item.Active)
	assert.Equal(t, "2025-03-10T15:04:05.000Z", item.CreatedAt)

	// duplicate code in the same branch
	err := b.Invoke(ctx, "create_inventory_item", itemWrite{BranchID: "b1", Code: "LEN-001", Name: "x", Category: "lentes"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	var mv movementRow
	require.NoError(t, b.Invoke(ctx, "create_inventory_movement", movementRow{
		ItemID: item.ID, MovementType: "salida", Quantity: 4, Reason: "venta",
	}, &mv))
	assert.NotEmpty(t, mv.ID)

	err = b.Invoke(ctx, "create_inventory_movement", movementRow{ItemID: item.ID, MovementType: "salida", Quantity: 7}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	var got itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_item", map[string]string{"id": item.ID}, &got))
	assert.Equal(t, 6.0, got.CurrentStock)

	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, b.Invoke(ctx, "count_inventory_movements", map[string]string{"item_id": item.ID}, &count))
	assert.Equal(t, 1, count.Count)

	var updated itemRow
	require.NoError(t, b.Invoke(ctx, "update_inventory_item", map[string]any{
		"id": item.ID, "patch": map[string]any{"unit_price": 990.5, "supplier_id": ""},
	}, &updated))
	assert.Equal(t, 990.5, updated.UnitPrice)
	assert.Equal(t, "", updated.SupplierName)

	err = b.Invoke(ctx, "update_inventory_item", map[string]any{"id": item.ID, "patch": map[string]any{"current_stock": 100}}, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, b.Invoke(ctx, "set_inventory_item_active", activeArgs{ID: item.ID, Active: false}, nil))
	var active []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1"}, &active))
	assert.Empty(t, active)
	var all []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1", IncludeInactive: true}, &all))
	assert.Len(t, all, 1)
}

func TestGetInventoryItems_CaseInsensitiveOrderAndLiteralSearch(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	for _, w := range []itemWrite{
		{BranchID: "b1", Code: "C-1", Name: "colirio", Category: "medicamentos"},
		{BranchID: "b1", Code: "A-1", Name: "Armazon 50% desc", Category: "armazones"},
		{BranchID: "b1", Code: "B_1", Name: "Bisel", Category: "accesorios"},
		{BranchID: "b1", Code: "B21", Name: "bolsa 500", Category: "accesorios"},
	} {
		require.NoError(t, b.Invoke(ctx, "create_inventory_item", w, nil))
	}

	var all []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1"}, &all))
	names := make([]string, 0, len(all))
	for _, it := range all {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Armazon 50% desc", "Bisel", "bolsa 500", "colirio"}, names)

	var pct []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1", Search: "50%"}, &pct))
	require.Len(t, pct, 1)
	assert.Equal(t, "A-1", pct[0].Code)

	var under []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1", Search: "B_1"}, &under))
	require.Len(t, under, 1)
	assert.Equal(t, "B_1", under[0].Code)

	var folded []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{BranchID: "b1", Search: "COLIRIO"}, &folded))
	assert.Len(t, folded, 1)
}

func TestImportInventoryItems_AllOrNothing(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	err := b.Invoke(ctx, "import_inventory_items", map[string]any{"items": []itemWrite{
		{BranchID: "b1", Code: "A", Name: "Gotas A", Category: "gotas"},
		{BranchID: "b1", Code: "A", Name: "Gotas A bis", Category: "gotas"},
	}}, nil)
	require.Error(t, err)

	var rows []itemRow
	require.NoError(t, b.Invoke(ctx, "get_inventory_items", itemsArgs{IncludeInactive: true}, &rows))
	assert.Empty(t, rows)

	var res struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, b.Invoke(ctx, "import_inventory_items", map[string]any{"items": []itemWrite{
		{BranchID: "b1", Code: "A", Name: "Gotas A", Category: "gotas"},
		{BranchID: "b1", Code: "B", Name: "Armazón B", Category: "armazones"},
	}}, &res))
	assert.Equal(t, 2, res.Imported)
}

func TestEncounterWithExams(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	var enc encounterRow
	require.NoError(t, b.Invoke(ctx, "create_encounter", encounterRow{
		PatientID: "p1", DoctorID: "d1", BranchID: "b1", EncounterType: "primera_vez",
	}, &enc))
	assert.Equal(t, "open", enc.Status)

	axis := 90
	var exam examRow
	require.NoError(t, b.Invoke(ctx, "upsert_exam_eye", examRow{EncounterID: enc.ID, Side: "OD", VA: "20/40", Axis: &axis}, &exam))
	firstID := exam.ID
	require.NoError(t, b.Invoke(ctx, "upsert_exam_eye", examRow{EncounterID: enc.ID, Side: "OD", VA: "20/20"}, &exam))
	assert.Equal(t, firstID, exam.ID)

	var full struct {
		Encounter encounterRow `json:"encounter"`
		Exams     []examRow    `json:"exams"`
	}
	require.NoError(t, b.Invoke(ctx, "get_encounter", map[string]string{"id": enc.ID}, &full))
	require.Len(t, full.Exams, 1)
	assert.Equal(t, "20/20", full.Exams[0].VA)
	assert.Nil(t, full.Exams[0].Axis)

	var updated encounterRow
	require.NoError(t, b.Invoke(ctx, "update_encounter", map[string]any{
		"id": enc.ID, "patch": map[string]string{"diagnosis": "Catarata"},
	}, &updated))
	assert.Equal(t, "Catarata", updated.Diagnosis)

	err := b.Invoke(ctx, "get_encounter", map[string]string{"id": "missing"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSurgeryStatusIsConditional(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	var sg surgeryRow
	require.NoError(t, b.Invoke(ctx, "create_surgery", surgeryRow{
		PatientID: "p1", DoctorID: "d1", BranchID: "b1", ProcedureName: "Facoemulsificación",
		Eye: "OD", ScheduledAt: "2025-03-12T09:00:00.000Z",
	}, &sg))
	assert.Equal(t, "scheduled", sg.Status)

	args := map[string]string{"id": sg.ID, "from_status": "scheduled", "status": "completed"}
	require.NoError(t, b.Invoke(ctx, "update_surgery_status", args, &sg))
	assert.Equal(t, "completed", sg.Status)

	err := b.Invoke(ctx, "update_surgery_status", args, nil)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	var list []surgeryRow
	require.NoError(t, b.Invoke(ctx, "get_surgeries", map[string]string{"branch_id": "b1", "from": "2025-03-12", "to": "2025-03-12"}, &list))
	assert.Len(t, list, 1)
}

func TestGetSurgeries_LoneBounds(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	for _, at := range []string{"2020-01-01T09:00:00.000Z", "2026-02-01T09:00:00.000Z"} {
		require.NoError(t, b.Invoke(ctx, "create_surgery", surgeryRow{
			PatientID: "p1", DoctorID: "d1", BranchID: "b1", ProcedureName: "LASIK",
			Eye: "OI", ScheduledAt: at,
		}, nil))
	}

	var list []surgeryRow
	require.NoError(t, b.Invoke(ctx, "get_surgeries", map[string]string{"branch_id": "b1", "from": "2026-01-01"}, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2026-02-01T09:00:00.000Z", list[0].ScheduledAt)

	list = nil
	require.NoError(t, b.Invoke(ctx, "get_surgeries", map[string]string{"branch_id": "b1", "to": "2020-01-01"}, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2020-01-01T09:00:00.000Z", list[0].ScheduledAt)

	list = nil
	require.NoError(t, b.Invoke(ctx, "get_surgeries", map[string]string{"branch_id": "b1"}, &list))
	assert.Len(t, list, 2)

	err := b.Invoke(ctx, "get_surgeries", map[string]string{"branch_id": "b1", "from": "01/01/2026"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestInvoicePaymentsAndClosure(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	var inv invoiceRow
	require.NoError(t, b.Invoke(ctx, "create_invoice", invoiceRow{
		BranchID: "b1", PatientID: "p1", Status: "pending",
		Subtotal: 1000, Total: 1000, BalanceDue: 1000,
		Items: []invoiceItemRow{{ItemType: "consulta", Description: "Consulta", Quantity: 1, UnitPrice: 1000, LineTotal: 1000}},
	}, &inv))
	assert.Equal(t, "CV1-2025-00001", inv.InvoiceNumber)

	var p paymentRow
	require.NoError(t, b.Invoke(ctx, "create_payment", paymentRow{InvoiceID: inv.ID, Amount: 400, PaymentMethod: "efectivo"}, &p))
	assert.Equal(t, "b1", p.BranchID)

	err := b.Invoke(ctx, "create_payment", paymentRow{InvoiceID: inv.ID, Amount: 700, PaymentMethod: "tarjeta"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	require.NoError(t, b.Invoke(ctx, "create_payment", paymentRow{InvoiceID: inv.ID, Amount: 600, PaymentMethod: "tarjeta"}, nil))

	var got invoiceRow
	require.NoError(t, b.Invoke(ctx, "get_invoice", map[string]string{"id": inv.ID}, &got))
	assert.Equal(t, "paid", got.Status)
	assert.Equal(t, 0.0, got.BalanceDue)
	assert.Len(t, got.Items, 1)

	var payments []paymentRow
	require.NoError(t, b.Invoke(ctx, "get_payments", map[string]string{"branch_id": "b1", "date": "2025-03-10"}, &payments))
	assert.Len(t, payments, 2)

	closure := closureRow{BranchID: "b1", ClosureDate: "2025-03-10", TotalCash: 400, TotalCard: 600, Total: 1000, PaymentCount: 2, ClosedBy: "u-caja"}
	require.NoError(t, b.Invoke(ctx, "create_cash_closure", closure, nil))
	err = b.Invoke(ctx, "create_cash_closure", closure, nil)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	var summary dashboardRow
	require.NoError(t, b.Invoke(ctx, "get_dashboard_summary", map[string]string{"branch_id": "b1", "from": "2025-03-01", "to": "2025-03-31"}, &summary))
	assert.Equal(t, 1000.0, summary.RevenueTotal)
	assert.Equal(t, 400.0, summary.Payments["efectivo"])
	assert.Equal(t, 0.0, summary.Outstanding)
}

func TestLeadsMoveWithinPipeline(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	var lead leadRow
	require.NoError(t, b.Invoke(ctx, "create_lead", leadRow{Pipeline: "cirugia", StageID: "st1", FullName: "Ana López"}, &lead))
	assert.Equal(t, "Nuevo", lead.StageName)

	require.NoError(t, b.Invoke(ctx, "move_lead", map[string]string{"id": lead.ID, "stage_id": "st2"}, &lead))
	assert.Equal(t, "Agendado", lead.StageName)

	err := b.Invoke(ctx, "move_lead", map[string]string{"id": lead.ID, "stage_id": "st9"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var stages []stageRow
	require.NoError(t, b.Invoke(ctx, "get_pipeline_stages", pipelineArgs{Pipeline: "cirugia"}, &stages))
	require.Len(t, stages, 2)
	assert.Equal(t, "st1", stages[0].ID)
}

func TestCurrentUserRequiresSession(t *testing.T) {
	b, s := newTestBridge(t)
	ctx := context.Background()

	err := b.Invoke(ctx, "get_current_user", nil, nil)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	require.NoError(t, s.SetSession(ctx, "u-caja"))
	var p profileRow
	require.NoError(t, b.Invoke(ctx, "get_current_user", nil, &p))
	assert.Equal(t, "cashier", p.Role)

	require.NoError(t, b.Invoke(ctx, "update_profile_role", map[string]string{"user_id": "u-caja", "role": "reception"}, &p))
	assert.Equal(t, "reception", p.Role)
}

func TestDocumentPath(t *testing.T) {
	b, s := newTestBridge(t)
	ctx := context.Background()

	target := filepath.Join(s.docsDir, "documents", "patients", "p1", "receta.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("%PDF"), 0o644))

	var doc documentPathRow
	require.NoError(t, b.Invoke(ctx, "get_document_path", map[string]string{"bucket": "documents", "path": "/patients/p1/receta.pdf"}, &doc))
	assert.True(t, doc.Exists)
	assert.Equal(t, target, doc.Path)

	err := b.Invoke(ctx, "get_document_path", map[string]string{"bucket": "documents", "path": "../../etc/passwd"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, s.RegisterDocument(ctx, "documents", "scan.png", "/mnt/scans/scan.png"))
	require.NoError(t, b.Invoke(ctx, "get_document_path", map[string]string{"bucket": "documents", "path": "scan.png"}, &doc))
	assert.Equal(t, "/mnt/scans/scan.png", doc.Path)
	assert.False(t, doc.Exists)
}

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStore(db, "", nil)
	s.now = func() time.Time { return testNow }
	return s, mock
}

func TestGetSuppliers_Mock(t *testing.T) {
	s, mock := setupMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "name", "contact_name", "phone", "email", "active"}).
		AddRow("1", "Acme", "", "", "", true).
		AddRow("2", "Old Co", "", "", "", false)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, contact_name, phone, email, active FROM suppliers`)).
		WillReturnRows(rows)

	res, err := s.getSuppliers(context.Background(), nil)
	require.NoError(t, err)
	out := res.([]supplierRow)
	require.Len(t, out, 2)
	assert.Equal(t, "Acme", out[0].Name)
	assert.False(t, out[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetInventoryItemActive_NotFound(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory_items SET active = ?, updated_at = ? WHERE id = ?`)).
		WithArgs(false, "2025-03-10T15:04:05.000Z", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.setInventoryItemActive(context.Background(), json.RawMessage(`{"id":"missing","active":false}`))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInventoryMovement_RollsBackOnInsufficientStock(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current_stock, active FROM inventory_items WHERE id = ?`)).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_stock", "active"}).AddRow(2.0, true))
	mock.ExpectRollback()

	_, err := s.createInventoryMovement(context.Background(),
		json.RawMessage(`{"item_id":"item-1","movement_type":"salida","quantity":5}`))
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))
	assert.NoError(t, mock.ExpectationsWereMet())
}
