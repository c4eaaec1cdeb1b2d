package guardrail

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateTable accepts only the six canonical table names. Known legacy tables
// carry an auto-fix pointing at their generic replacement.
func ValidateTable(table string) Result {
	res := newResult()
	name := strings.TrimSpace(table)
	if IsCanonicalTable(name) {
		return res
	}

	res.addError(CodeUnknownTable, "table", fmt.Sprintf(
		"table %q is not part of the six-table convention; use one of %s",
		name, strings.Join(CanonicalTables(), ", "),
	))

	if migration, ok := legacyTables[name]; ok {
		res.AutoFix = &AutoFix{
			Table:   migration.target,
			Payload: Payload{migration.field: migration.value},
			Covers:  []string{CodeUnknownTable},
			Description: fmt.Sprintf("store %s rows in %s with %s=%q",
				name, migration.target, migration.field, migration.value),
		}
	}
	return res
}

// ValidateOperation checks required fields for the table/operation pair and flags
// deprecated column names, proposing a rename.
func ValidateOperation(table, operation string, payload Payload) Result {
	return checkOperation(strings.TrimSpace(table), NormalizeOperation(operation), payload, nil)
}

// ValidateMultiTenancy fails when organization_id is absent on any table other
// than core_organizations.
func ValidateMultiTenancy(table, operation string, payload Payload) Result {
	res := newResult()
	name := strings.TrimSpace(table)
	if name == TableOrganizations {
		return res
	}
	if !hasValue(payload, FieldOrganizationID) {
		res.MissingFields = []string{FieldOrganizationID}
		res.addError(CodeMissingOrganizationID, FieldOrganizationID, fmt.Sprintf(
			"organization_id is required for %s on %s: every record must be scoped to a tenant",
			NormalizeOperation(operation), name,
		))
	}
	return res
}

// Validate composes the table, operation and multi-tenancy checks.
func Validate(req Request) Result {
	table := strings.TrimSpace(req.Table)
	operation := NormalizeOperation(req.Operation)

	tableRes := ValidateTable(table)
	if !tableRes.Valid {
		res := tableRes
		if res.AutoFix != nil {
			merged := req.Payload.Clone()
			for k, v := range res.AutoFix.Payload {
				if !hasValue(merged, k) {
					merged[k] = v
				}
			}
			res.AutoFix.Payload = merged
		}
		tenancy := ValidateMultiTenancy(table, operation, req.Payload)
		res.Errors = append(res.Errors, tenancy.Errors...)
		res.MissingFields = append(res.MissingFields, tenancy.MissingFields...)
		appendSmartCodeWarning(&res, req.Payload)
		return res
	}

	tenancy := ValidateMultiTenancy(table, operation, req.Payload)
	var skip map[string]bool
	if !tenancy.Valid {
		skip = map[string]bool{FieldOrganizationID: true}
	}

	res := checkOperation(table, operation, req.Payload, skip)
	res.Errors = append(res.Errors, tenancy.Errors...)
	if !tenancy.Valid && !containsString(res.MissingFields, FieldOrganizationID) {
		res.MissingFields = append(res.MissingFields, FieldOrganizationID)
	}
	sort.Strings(res.MissingFields)
	res.Valid = len(res.Errors) == 0
	return res
}

// checkOperation reports missing fields as one issue; fields in skip stay in
// MissingFields but are left out of the issue because another check reports them.
func checkOperation(table, operation string, payload Payload, skip map[string]bool) Result {
	res := newResult()

	if !IsCanonicalTable(table) {
		res.addError(CodeUnknownTable, "table", fmt.Sprintf("no convention rules for table %q", table))
		return res
	}
	if _, ok := operations[operation]; !ok {
		res.addError(CodeUnsupportedOperation, "operation", fmt.Sprintf(
			"operation %q is not supported; use create, update, query or delete", operation,
		))
		return res
	}

	renames := deprecatedIn(table, payload)
	if len(renames) > 0 {
		aliases := make([]string, 0, len(renames))
		targets := make([]string, 0, len(renames))
		for _, alias := range sortedMapKeys(renames) {
			aliases = append(aliases, alias)
			targets = append(targets, renames[alias])
		}
		res.addError(CodeDeprecatedField, strings.Join(aliases, ","), fmt.Sprintf(
			"deprecated column names %s on %s; use %s",
			strings.Join(aliases, ", "), table, strings.Join(targets, ", "),
		))
		res.AutoFix = &AutoFix{
			Table:       table,
			Payload:     renamePayload(payload, renames),
			Renames:     renames,
			Covers:      []string{CodeDeprecatedField},
			Description: "rename deprecated columns to their canonical names",
		}
	}

	var reported []string
	for _, field := range requiredFields[table][operation] {
		if hasValue(payload, field) || aliasPresent(table, field, payload) {
			continue
		}
		res.MissingFields = append(res.MissingFields, field)
		if !skip[field] {
			reported = append(reported, field)
		}
	}
	if len(reported) > 0 {
		res.addError(CodeMissingRequiredField, strings.Join(reported, ","), fmt.Sprintf(
			"missing required fields for %s on %s: %s",
			operation, table, strings.Join(reported, ", "),
		))
	}

	appendSmartCodeWarning(&res, payload)
	return res
}

func appendSmartCodeWarning(res *Result, payload Payload) {
	raw, ok := payload[FieldSmartCode]
	if !ok || raw == nil {
		return
	}
	code, isString := raw.(string)
	if !isString {
		res.addWarning(CodeInvalidSmartCode, FieldSmartCode, fmt.Sprintf(
			"smart_code must be a string, got %T", raw,
		))
		return
	}
	if strings.TrimSpace(code) == "" {
		return
	}
	if !IsValidSmartCode(code) {
		res.addWarning(CodeInvalidSmartCode, FieldSmartCode, fmt.Sprintf(
			"smart_code %q does not match the pattern SEGMENT.SEGMENT.SEGMENT.SEGMENT.SEGMENT.vN", code,
		))
	}
}

func deprecatedIn(table string, payload Payload) map[string]string {
	aliases := deprecatedColumns[table]
	if len(aliases) == 0 {
		return nil
	}
	found := map[string]string{}
	for _, key := range payload.sortedKeys() {
		if target, ok := aliases[key]; ok {
			found[key] = target
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

func renamePayload(payload Payload, renames map[string]string) Payload {
	out := payload.Clone()
	for _, alias := range sortedMapKeys(renames) {
		target := renames[alias]
		value := out[alias]
		delete(out, alias)
		if !hasValue(out, target) {
			out[target] = value
		}
	}
	return out
}

func aliasPresent(table, field string, payload Payload) bool {
	for _, alias := range aliasesFor(table, field) {
		if hasValue(payload, alias) {
			return true
		}
	}
	return false
}

func hasValue(payload Payload, field string) bool {
	if payload == nil {
		return false
	}
	value, ok := payload[field]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// NormalizeOperation lower-cases operation and maps read/list/insert aliases
// onto the four canonical operations.
func NormalizeOperation(operation string) string {
	op := strings.ToLower(strings.TrimSpace(operation))
	switch op {
	case "read", "select", "list", "get":
		return OperationQuery
	case "insert":
		return OperationCreate
	}
	return op
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
