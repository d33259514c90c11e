package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
)

// SeedData is reference data copied into a fresh desktop database: branches,
// users, suppliers and CRM stages. Rows are upserted by id.
type SeedData struct {
	Branches  []branchRow   `json:"branches"`
	Profiles  []profileRow  `json:"profiles"`
	Suppliers []supplierRow `json:"suppliers"`
	Stages    []stageRow    `json:"stages"`
}

// LoadSeedFile reads a SeedData JSON document.
func LoadSeedFile(path string) (*SeedData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var d SeedData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &d, nil
}

// Seed upserts d in one transaction.
func (s *Store) Seed(ctx context.Context, d *SeedData) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, b := range d.Branches {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO branches (id, code, name, address, active) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET code = excluded.code, name = excluded.name,
				   address = excluded.address, active = excluded.active`,
				b.ID, b.Code, b.Name, b.Address, b.Active); err != nil {
				return classifySQL("seed branches", err)
			}
		}
		for _, p := range d.Profiles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO profiles (user_id, email, full_name, role, branch_id) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(user_id) DO UPDATE SET email = excluded.email, full_name = excluded.full_name,
				   role = excluded.role, branch_id = excluded.branch_id`,
				p.UserID, p.Email, p.FullName, p.Role, nullString(p.BranchID)); err != nil {
				return classifySQL("seed profiles", err)
			}
		}
		for _, sp := range d.Suppliers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO suppliers (id, name, contact_name, phone, email, active) VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET name = excluded.name, contact_name = excluded.contact_name,
				   phone = excluded.phone, email = excluded.email, active = excluded.active`,
				sp.ID, sp.Name, sp.ContactName, sp.Phone, sp.Email, sp.Active); err != nil {
				return classifySQL("seed suppliers", err)
			}
		}
		for _, st := range d.Stages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO crm_pipeline_stages (id, pipeline, name, position, color) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET pipeline = excluded.pipeline, name = excluded.name,
				   position = excluded.position, color = excluded.color`,
				st.ID, st.Pipeline, st.Name, st.Position, st.Color); err != nil {
				return classifySQL("seed stages", err)
			}
		}
		return nil
	})
}
