// Package guardrail checks payloads against the universal six-table convention
// before they are written. Findings are returned as data; callers decide whether
// to proceed, abort, or apply the suggested auto-fix.
package guardrail

import "sort"

// Canonical tables of the six-table convention.
const (
	TableOrganizations    = "core_organizations"
	TableEntities         = "core_entities"
	TableDynamicData      = "core_dynamic_data"
	TableRelationships    = "core_relationships"
	TableTransactions     = "universal_transactions"
	TableTransactionLines = "universal_transaction_lines"
)

// Operations understood by the validator.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationQuery  = "query"
	OperationDelete = "delete"
)

// Field names shared across tables.
const (
	FieldOrganizationID = "organization_id"
	FieldID             = "id"
	FieldSmartCode      = "smart_code"
)

var canonicalTables = map[string]struct{}{
	TableOrganizations:    {},
	TableEntities:         {},
	TableDynamicData:      {},
	TableRelationships:    {},
	TableTransactions:     {},
	TableTransactionLines: {},
}

var operations = map[string]struct{}{
	OperationCreate: {},
	OperationUpdate: {},
	OperationQuery:  {},
	OperationDelete: {},
}

// requiredFields maps table -> operation -> fields that must carry a value.
var requiredFields = map[string]map[string][]string{
	TableOrganizations: {
		OperationCreate: {"organization_name"},
		OperationUpdate: {FieldID},
		OperationDelete: {FieldID},
	},
	TableEntities: {
		OperationCreate: {FieldOrganizationID, "entity_type", "entity_name", FieldSmartCode},
		OperationUpdate: {FieldOrganizationID, FieldID},
		OperationQuery:  {FieldOrganizationID},
		OperationDelete: {FieldOrganizationID, FieldID},
	},
	TableDynamicData: {
		OperationCreate: {FieldOrganizationID, "entity_id", "field_name", FieldSmartCode},
		OperationUpdate: {FieldOrganizationID, "entity_id", "field_name"},
		OperationQuery:  {FieldOrganizationID},
		OperationDelete: {FieldOrganizationID, "entity_id", "field_name"},
	},
	TableRelationships: {
		OperationCreate: {FieldOrganizationID, "from_entity_id", "to_entity_id"},
		OperationUpdate: {FieldOrganizationID, FieldID},
		OperationQuery:  {FieldOrganizationID},
		OperationDelete: {FieldOrganizationID, FieldID},
	},
	TableTransactions: {
		OperationCreate: {FieldOrganizationID, "transaction_type", FieldSmartCode},
		OperationUpdate: {FieldOrganizationID, FieldID},
		OperationQuery:  {FieldOrganizationID},
		OperationDelete: {FieldOrganizationID, FieldID},
	},
	TableTransactionLines: {
		OperationCreate: {FieldOrganizationID, "transaction_id", "line_number", FieldSmartCode},
		OperationUpdate: {FieldOrganizationID, FieldID},
		OperationQuery:  {FieldOrganizationID},
		OperationDelete: {FieldOrganizationID, FieldID},
	},
}

// deprecatedColumns maps table -> legacy column -> canonical column.
var deprecatedColumns = map[string]map[string]string{
	TableRelationships: {
		"source_entity_id": "from_entity_id",
		"target_entity_id": "to_entity_id",
		"parent_entity_id": "from_entity_id",
		"child_entity_id":  "to_entity_id",
	},
}

type tableMigration struct {
	target string
	field  string
	value  string
}

// legacyTables are historical per-concept tables folded into the generic ones.
var legacyTables = map[string]tableMigration{
	"core_clients":     {target: TableEntities, field: "entity_type", value: "client"},
	"core_memberships": {target: TableRelationships, field: "relationship_type", value: "membership"},
}

// CanonicalTables returns the six canonical table names in sorted order.
func CanonicalTables() []string {
	out := make([]string, 0, len(canonicalTables))
	for name := range canonicalTables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsCanonicalTable reports whether name is one of the six canonical tables.
func IsCanonicalTable(name string) bool {
	_, ok := canonicalTables[name]
	return ok
}

// RequiredFields returns a copy of the required fields for table and operation.
func RequiredFields(table, operation string) []string {
	fields := requiredFields[table][operation]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

func aliasesFor(table, canonical string) []string {
	var out []string
	for alias, target := range deprecatedColumns[table] {
		if target == canonical {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}
