package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntityPayload() Payload {
	return Payload{
		"organization_id": "org1",
		"entity_type":     "customer",
		"entity_name":     "Acme",
		"smart_code":      "HERA.CRM.CUST.ENT.PROFILE.v1",
	}
}

func TestValidateTableRejectsNonCanonicalNames(t *testing.T) {
	for _, table := range []string{"core_clients", "customers", "core_entity", "CORE_ENTITIES", ""} {
		t.Run(table, func(t *testing.T) {
			res := ValidateTable(table)
			require.False(t, res.Valid)
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, CodeUnknownTable, res.Errors[0].Code)
			assert.Contains(t, res.Errors[0].Message, table)
		})
	}
}

func TestValidateTableAcceptsCanonicalNames(t *testing.T) {
	for _, table := range CanonicalTables() {
		res := ValidateTable(table)
		assert.True(t, res.Valid, table)
		assert.Empty(t, res.Errors, table)
	}
	assert.Len(t, CanonicalTables(), 6)
}

func TestValidateTableSuggestsLegacyMigration(t *testing.T) {
	res := ValidateTable("core_clients")
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0].Message, "core_clients")
	require.NotNil(t, res.AutoFix)
	assert.Equal(t, TableEntities, res.AutoFix.Table)
	assert.Equal(t, "client", res.AutoFix.Payload["entity_type"])

	res = ValidateTable("core_memberships")
	require.NotNil(t, res.AutoFix)
	assert.Equal(t, TableRelationships, res.AutoFix.Table)
	assert.Equal(t, "membership", res.AutoFix.Payload["relationship_type"])

	res = ValidateTable("core_widgets")
	assert.Nil(t, res.AutoFix)
}

func TestValidateOperationListsExactlyMissingEntityFields(t *testing.T) {
	required := []string{"organization_id", "entity_type", "entity_name", "smart_code"}
	// every non-empty subset of the required fields removed
	for mask := 1; mask < 1<<len(required); mask++ {
		payload := validEntityPayload()
		var missing []string
		for i, field := range required {
			if mask&(1<<i) != 0 {
				delete(payload, field)
				missing = append(missing, field)
			}
		}

		res := ValidateOperation(TableEntities, OperationCreate, payload)
		require.False(t, res.Valid, "mask %d", mask)
		assert.Equal(t, missing, res.MissingFields, "mask %d", mask)
		assert.True(t, res.HasErrorCode(CodeMissingRequiredField))
	}
}

func TestValidateOperationTreatsBlankStringsAsMissing(t *testing.T) {
	payload := validEntityPayload()
	payload["entity_name"] = "   "

	res := ValidateOperation(TableEntities, OperationCreate, payload)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"entity_name"}, res.MissingFields)
}

func TestValidateOperationRejectsUnknownOperation(t *testing.T) {
	res := ValidateOperation(TableEntities, "upsert", validEntityPayload())
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrorCode(CodeUnsupportedOperation))
}

func TestValidateOperationFlagsDeprecatedRelationshipColumns(t *testing.T) {
	payload := Payload{
		"organization_id":  "org1",
		"source_entity_id": "x",
		"target_entity_id": "y",
	}

	res := ValidateOperation(TableRelationships, OperationCreate, payload)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeDeprecatedField, res.Errors[0].Code)
	assert.Contains(t, res.Errors[0].Message, "source_entity_id")
	assert.Contains(t, res.Errors[0].Message, "target_entity_id")
	assert.Empty(t, res.MissingFields)

	require.NotNil(t, res.AutoFix)
	assert.Equal(t, map[string]string{
		"source_entity_id": "from_entity_id",
		"target_entity_id": "to_entity_id",
	}, res.AutoFix.Renames)
	assert.Equal(t, Payload{
		"organization_id": "org1",
		"from_entity_id":  "x",
		"to_entity_id":    "y",
	}, res.AutoFix.Payload)
	// input untouched
	assert.Contains(t, payload, "source_entity_id")
}

func TestValidateMultiTenancy(t *testing.T) {
	for _, table := range CanonicalTables() {
		for _, op := range []string{OperationCreate, OperationUpdate, OperationQuery, OperationDelete} {
			res := ValidateMultiTenancy(table, op, Payload{"entity_name": "x"})
			if table == TableOrganizations {
				assert.True(t, res.Valid, "%s %s", table, op)
				continue
			}
			require.False(t, res.Valid, "%s %s", table, op)
			assert.Equal(t, CodeMissingOrganizationID, res.Errors[0].Code)
			assert.Contains(t, res.Errors[0].Message, "organization_id")
			assert.Contains(t, res.Errors[0].Message, "tenant")
		}
	}

	res := ValidateMultiTenancy(TableEntities, OperationQuery, Payload{"organization_id": ""})
	assert.False(t, res.Valid)

	res = ValidateMultiTenancy(TableEntities, OperationQuery, Payload{"organization_id": int64(42)})
	assert.True(t, res.Valid)
}

func TestValidateMalformedSmartCodeIsWarningOnly(t *testing.T) {
	for _, code := range []string{"BAD_CODE", "HERA.CRM.CUST.ENT.v1", "hera.crm.cust.ent.profile.v1", "HERA.CRM.CUST.ENT.PROFILE.X1", "HERA.CRM.CUST.ENT.PROFILE"} {
		payload := validEntityPayload()
		payload["smart_code"] = code

		res := Validate(Request{Table: TableEntities, Operation: OperationCreate, Payload: payload})
		assert.True(t, res.Valid, code)
		assert.Empty(t, res.Errors, code)
		require.Len(t, res.Warnings, 1, code)
		assert.Equal(t, CodeInvalidSmartCode, res.Warnings[0].Code)
		assert.Contains(t, res.Warnings[0].Message, code)
	}
}

func TestValidateScenarios(t *testing.T) {
	t.Run("legacy clients table", func(t *testing.T) {
		res := Validate(Request{Table: "core_clients", Operation: OperationCreate, Payload: Payload{"organization_id": "org1"}})
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors[0].Message, "core_clients")
		require.NotNil(t, res.AutoFix)
		assert.Equal(t, "core_entities", res.AutoFix.Table)
		assert.Equal(t, "client", res.AutoFix.Payload["entity_type"])
		assert.Equal(t, "org1", res.AutoFix.Payload["organization_id"])
	})

	t.Run("deprecated columns without tenant", func(t *testing.T) {
		res := Validate(Request{
			Table:     TableRelationships,
			Operation: OperationCreate,
			Payload:   Payload{"source_entity_id": "x", "target_entity_id": "y"},
		})
		require.False(t, res.Valid)
		require.Len(t, res.Errors, 2)
		assert.Equal(t, CodeDeprecatedField, res.Errors[0].Code)
		assert.Equal(t, CodeMissingOrganizationID, res.Errors[1].Code)
		assert.Equal(t, []string{"organization_id"}, res.MissingFields)
	})

	t.Run("valid entity create", func(t *testing.T) {
		res := Validate(Request{Table: TableEntities, Operation: OperationCreate, Payload: validEntityPayload()})
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
		assert.Empty(t, res.Warnings)
		assert.Nil(t, res.AutoFix)
	})

	t.Run("bad smart code", func(t *testing.T) {
		payload := validEntityPayload()
		payload["smart_code"] = "BAD_CODE"
		res := Validate(Request{Table: TableEntities, Operation: OperationCreate, Payload: payload})
		assert.True(t, res.Valid)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0].Message, "BAD_CODE")
	})
}

func TestValidateDoesNotDuplicateTenantFinding(t *testing.T) {
	payload := validEntityPayload()
	delete(payload, "organization_id")
	delete(payload, "entity_name")

	res := Validate(Request{Table: TableEntities, Operation: OperationCreate, Payload: payload})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, CodeMissingRequiredField, res.Errors[0].Code)
	assert.Equal(t, "entity_name", res.Errors[0].Field)
	assert.Equal(t, CodeMissingOrganizationID, res.Errors[1].Code)
	assert.Equal(t, []string{"entity_name", "organization_id"}, res.MissingFields)
}

func TestAutoFixRoundTrip(t *testing.T) {
	cases := []Request{
		{Table: TableRelationships, Operation: OperationCreate, Payload: Payload{"source_entity_id": "x", "target_entity_id": "y"}},
		{Table: TableRelationships, Operation: OperationCreate, Payload: Payload{"organization_id": "o", "parent_entity_id": "x", "child_entity_id": "y", "relationship_type": "parent_of"}},
		{Table: "core_clients", Operation: OperationCreate, Payload: Payload{"organization_id": "o", "entity_name": "Acme"}},
		{Table: "core_memberships", Operation: OperationCreate, Payload: Payload{"organization_id": "o", "from_entity_id": "u", "to_entity_id": "g"}},
	}
	for _, req := range cases {
		res := Validate(req)
		require.NotNil(t, res.AutoFix, req.Table)

		fixed := ApplyAutoFix(req, res.AutoFix)
		again := Validate(fixed)
		for _, code := range res.AutoFix.Covers {
			assert.False(t, again.HasErrorCode(code), "%s still reports %s", req.Table, code)
		}
	}
}

func TestApplyAutoFixDoesNotMutateRequest(t *testing.T) {
	req := Request{Table: "core_clients", Operation: OperationCreate, Payload: Payload{"organization_id": "o"}}
	res := Validate(req)

	fixed := ApplyAutoFix(req, res.AutoFix)
	fixed.Payload["entity_name"] = "changed"

	assert.Equal(t, "core_clients", req.Table)
	assert.NotContains(t, req.Payload, "entity_type")
	assert.NotContains(t, res.AutoFix.Payload, "entity_name")
}

func TestFixAndValidate(t *testing.T) {
	req := Request{Table: TableRelationships, Operation: OperationCreate, Payload: Payload{
		"organization_id": "o", "source_entity_id": "x", "target_entity_id": "y",
	}}
	fixed, res, applied := FixAndValidate(req)
	assert.True(t, applied)
	assert.True(t, res.Valid)
	assert.Equal(t, "x", fixed.Payload["from_entity_id"])

	_, res, applied = FixAndValidate(Request{Table: TableEntities, Operation: OperationCreate, Payload: validEntityPayload()})
	assert.False(t, applied)
	assert.True(t, res.Valid)
}

func TestValidateIsIdempotent(t *testing.T) {
	reqs := []Request{
		{Table: TableRelationships, Operation: OperationCreate, Payload: Payload{"source_entity_id": "x", "target_entity_id": "y", "parent_entity_id": "z", "smart_code": "nope"}},
		{Table: "core_clients", Operation: OperationCreate, Payload: Payload{}},
		{Table: TableTransactionLines, Operation: OperationCreate, Payload: Payload{"line_number": 1}},
		{Table: TableEntities, Operation: "read", Payload: nil},
	}
	for _, req := range reqs {
		first := Validate(req)
		second := Validate(req)
		assert.Equal(t, first, second, req.Table)
	}
}

func TestOperationAliases(t *testing.T) {
	res := Validate(Request{Table: TableEntities, Operation: "READ", Payload: Payload{"organization_id": "o"}})
	assert.True(t, res.Valid)

	res = Validate(Request{Table: TableEntities, Operation: "delete", Payload: Payload{"organization_id": "o"}})
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"id"}, res.MissingFields)
}
