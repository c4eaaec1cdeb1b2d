package export

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/shopspring/decimal"
)

// table is one rendered sheet: a header and string cells.
type table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (s Snapshot) tables() []table {
	return []table{
		organizationTable(s),
		entityTable(s),
		dynamicTable(s),
		relationshipTable(s),
		transactionTable(s),
		lineTable(s),
	}
}

func organizationTable(s Snapshot) table {
	org := s.Organization
	return table{
		Name:   guardrail.TableOrganizations,
		Header: []string{"id", "organization_name", "organization_code", "organization_type", "status", "metadata", "created_at", "updated_at"},
		Rows: [][]string{{
			org.ID.String(), org.Name, org.Code, org.Type, org.Status,
			jsonCell(org.Metadata), timeCell(org.CreatedAt), timeCell(org.UpdatedAt),
		}},
	}
}

func entityTable(s Snapshot) table {
	t := table{
		Name:   guardrail.TableEntities,
		Header: []string{"id", "organization_id", "entity_type", "entity_name", "entity_code", "smart_code", "status", "metadata", "created_at", "updated_at"},
	}
	for _, e := range s.Entities {
		t.Rows = append(t.Rows, []string{
			e.ID.String(), e.OrgID.String(), e.EntityType, e.EntityName, e.EntityCode, e.SmartCode, e.Status,
			jsonCell(e.Metadata), timeCell(e.CreatedAt), timeCell(e.UpdatedAt),
		})
	}
	return t
}

func dynamicTable(s Snapshot) table {
	t := table{
		Name:   guardrail.TableDynamicData,
		Header: []string{"id", "organization_id", "entity_id", "field_name", "field_type", "field_value", "smart_code", "created_at", "updated_at"},
	}
	for _, f := range s.DynamicData {
		t.Rows = append(t.Rows, []string{
			f.ID.String(), f.OrgID.String(), f.EntityID.String(), f.FieldName, f.FieldType,
			valueCell(f.Value()), f.SmartCode, timeCell(f.CreatedAt), timeCell(f.UpdatedAt),
		})
	}
	return t
}

func relationshipTable(s Snapshot) table {
	t := table{
		Name:   guardrail.TableRelationships,
		Header: []string{"id", "organization_id", "from_entity_id", "to_entity_id", "relationship_type", "relationship_direction", "relationship_strength", "is_active", "smart_code", "created_at"},
	}
	for _, r := range s.Relationships {
		strength := ""
		if r.Strength.Valid {
			strength = r.Strength.Decimal.String()
		}
		t.Rows = append(t.Rows, []string{
			r.ID.String(), r.OrgID.String(), r.FromEntityID.String(), r.ToEntityID.String(), r.Type, r.Direction,
			strength, strconv.FormatBool(r.IsActive), r.SmartCode, timeCell(r.CreatedAt),
		})
	}
	return t
}

func transactionTable(s Snapshot) table {
	t := table{
		Name:   guardrail.TableTransactions,
		Header: []string{"id", "organization_id", "transaction_type", "transaction_code", "transaction_date", "total_amount", "transaction_status", "smart_code", "source_entity_id", "target_entity_id"},
	}
	for _, txn := range s.Transactions {
		t.Rows = append(t.Rows, []string{
			txn.ID.String(), txn.OrgID.String(), txn.TransactionType, txn.TransactionCode, timeCell(txn.TransactionDate),
			txn.TotalAmount.String(), txn.TransactionStatus, txn.SmartCode, idCell(txn.SourceEntityID), idCell(txn.TargetEntityID),
		})
	}
	return t
}

func lineTable(s Snapshot) table {
	t := table{
		Name:   guardrail.TableTransactionLines,
		Header: []string{"id", "organization_id", "transaction_id", "line_number", "line_type", "entity_id", "quantity", "unit_amount", "line_amount", "smart_code"},
	}
	for _, l := range s.Lines {
		t.Rows = append(t.Rows, []string{
			l.ID.String(), l.OrgID.String(), l.TransactionID.String(), strconv.Itoa(l.LineNumber), l.LineType, idCell(l.EntityID),
			l.Quantity.String(), l.UnitAmount.String(), l.LineAmount.String(), l.SmartCode,
		})
	}
	return t
}

func timeCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func idCell(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func jsonCell(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" || string(raw) == "{}" {
		return ""
	}
	return string(raw)
}

func valueCell(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case decimal.Decimal:
		return typed.String()
	case time.Time:
		return timeCell(typed)
	}
	return jsonCell(v)
}
