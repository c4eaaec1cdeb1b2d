package seed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	dynamicdatadomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guardrail"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	organizationTable = guardrail.TableOrganizations
	createOp          = guardrail.OperationCreate
)

var ErrUnknownVertical = errors.New("unknown_vertical")

type demoEntity struct {
	key       string
	kind      string
	name      string
	smartCode string
	fields    map[string]any
}

type demoLink struct {
	from, to  string
	kind      string
	smartCode string
}

type demoLine struct {
	entity   string
	quantity int64
	unit     string
}

type demoSale struct {
	customer  string
	kind      string
	smartCode string
	lines     []demoLine
}

type vertical struct {
	orgName   string
	orgType   string
	entities  []demoEntity
	links     []demoLink
	sales     []demoSale
	fieldCode string
	lineCode  string
}

var verticals = map[string]vertical{
	"salon": {
		orgName:   "Hair Talkz Salon",
		orgType:   "salon",
		fieldCode: "HERA.SALON.SVC.DYN.FIELD.v1",
		lineCode:  "HERA.SALON.POS.TXN.LINE.v1",
		entities: []demoEntity{
			{key: "stylist-rocky", kind: "employee", name: "Rocky", smartCode: "HERA.SALON.HR.EMP.STYLIST.v1",
				fields: map[string]any{"commission_rate": 0.35, "specialty": "color"}},
			{key: "svc-cut", kind: "service", name: "Haircut & Style", smartCode: "HERA.SALON.SVC.CATALOG.HAIR.v1",
				fields: map[string]any{"price": 45.0, "duration_minutes": 45}},
			{key: "svc-color", kind: "service", name: "Full Color", smartCode: "HERA.SALON.SVC.CATALOG.COLOR.v1",
				fields: map[string]any{"price": 120.0, "duration_minutes": 120}},
			{key: "cust-sarah", kind: "customer", name: "Sarah Johnson", smartCode: "HERA.SALON.CRM.CUST.PROFILE.v1",
				fields: map[string]any{"vip": true, "email": "sarah@example.com"}},
		},
		links: []demoLink{
			{from: "stylist-rocky", to: "svc-cut", kind: "performs", smartCode: "HERA.SALON.HR.REL.PERFORMS.v1"},
			{from: "stylist-rocky", to: "svc-color", kind: "performs", smartCode: "HERA.SALON.HR.REL.PERFORMS.v1"},
			{from: "cust-sarah", to: "stylist-rocky", kind: "preferred_stylist", smartCode: "HERA.SALON.CRM.REL.PREFERS.v1"},
		},
		sales: []demoSale{
			{customer: "cust-sarah", kind: "sale", smartCode: "HERA.SALON.POS.TXN.SALE.v1", lines: []demoLine{
				{entity: "svc-cut", quantity: 1, unit: "45"},
				{entity: "svc-color", quantity: 1, unit: "120"},
			}},
		},
	},
	"restaurant": {
		orgName:   "Mario's Trattoria",
		orgType:   "restaurant",
		fieldCode: "HERA.REST.MENU.DYN.FIELD.v1",
		lineCode:  "HERA.REST.POS.TXN.LINE.v1",
		entities: []demoEntity{
			{key: "menu-margherita", kind: "menu_item", name: "Pizza Margherita", smartCode: "HERA.REST.MENU.ITEM.PIZZA.v1",
				fields: map[string]any{"price": 14.5, "vegetarian": true}},
			{key: "menu-tiramisu", kind: "menu_item", name: "Tiramisu", smartCode: "HERA.REST.MENU.ITEM.DESSERT.v1",
				fields: map[string]any{"price": 8.0}},
			{key: "table-4", kind: "table", name: "Table 4", smartCode: "HERA.REST.FLOOR.TABLE.SEAT.v1",
				fields: map[string]any{"seats": 4}},
		},
		sales: []demoSale{
			{customer: "table-4", kind: "order", smartCode: "HERA.REST.POS.TXN.ORDER.v1", lines: []demoLine{
				{entity: "menu-margherita", quantity: 2, unit: "14.50"},
				{entity: "menu-tiramisu", quantity: 1, unit: "8"},
			}},
		},
	},
}

// Verticals lists the demo verticals SeedDemo understands.
func Verticals() []string {
	out := make([]string, 0, len(verticals))
	for name := range verticals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DemoResult summarises what SeedDemo wrote.
type DemoResult struct {
	OrganizationID snowflake.ID
	Created        bool
	Entities       int
	Fields         int
	Relationships  int
	Transactions   int
}

// SeedDemo writes a demo tenant for the vertical. It is idempotent: when the
// demo organization already exists nothing is written.
func SeedDemo(ctx context.Context, db *gorm.DB, node *snowflake.Node, name string) (DemoResult, error) {
	if db == nil || node == nil {
		return DemoResult{}, errors.New("seed database handle and id node are required")
	}
	v, ok := verticals[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return DemoResult{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownVertical, name, strings.Join(Verticals(), ", "))
	}

	code := "demo-" + slug.Make(name)
	var result DemoResult

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Table("core_organizations").Where("organization_code = ?", code).Count(&existing).Error; err != nil {
			return err
		}

		org, err := ensureOrgTx(ctx, tx, node.Generate(), v.orgName, code, v.orgType, map[string]any{"demo": true})
		if err != nil {
			return err
		}
		result.OrganizationID = org.ID
		if existing > 0 {
			return nil
		}
		result.Created = true

		now := time.Now().UTC()
		ids := map[string]snowflake.ID{}
		for _, e := range v.entities {
			entity := entitydomain.Entity{
				ID:         node.Generate(),
				OrgID:      org.ID,
				EntityType: e.kind,
				EntityName: e.name,
				EntityCode: strings.ToUpper(slug.Make(e.name)),
				SmartCode:  e.smartCode,
				Status:     entitydomain.StatusActive,
				Metadata:   datatypes.JSONMap{},
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := mustConform(guardrail.TableEntities, createOp, map[string]any{
				"organization_id": org.ID.String(),
				"entity_type":     entity.EntityType,
				"entity_name":     entity.EntityName,
				"smart_code":      entity.SmartCode,
			}); err != nil {
				return err
			}
			if err := tx.Create(&entity).Error; err != nil {
				return err
			}
			ids[e.key] = entity.ID
			result.Entities++

			for _, fieldName := range sortedKeys(e.fields) {
				field, err := demoField(node, org.ID, entity.ID, fieldName, e.fields[fieldName], v.fieldCode, now)
				if err != nil {
					return err
				}
				if err := tx.Create(&field).Error; err != nil {
					return err
				}
				result.Fields++
			}
		}

		for _, link := range v.links {
			rel := relationshipdomain.Relationship{
				ID:           node.Generate(),
				OrgID:        org.ID,
				FromEntityID: ids[link.from],
				ToEntityID:   ids[link.to],
				Type:         link.kind,
				SmartCode:    link.smartCode,
				Direction:    relationshipdomain.DirectionForward,
				IsActive:     true,
				Metadata:     datatypes.JSONMap{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := mustConform(guardrail.TableRelationships, createOp, map[string]any{
				"organization_id":   org.ID.String(),
				"from_entity_id":    rel.FromEntityID.String(),
				"to_entity_id":      rel.ToEntityID.String(),
				"relationship_type": rel.Type,
				"smart_code":        rel.SmartCode,
			}); err != nil {
				return err
			}
			if err := tx.Create(&rel).Error; err != nil {
				return err
			}
			result.Relationships++
		}

		for _, sale := range v.sales {
			if err := demoTransaction(tx, node, org.ID, ids, sale, v.lineCode, now); err != nil {
				return err
			}
			result.Transactions++
		}
		return nil
	})
	return result, err
}

func demoField(node *snowflake.Node, orgID, entityID snowflake.ID, name string, value any, smartCode string, now time.Time) (dynamicdatadomain.DynamicField, error) {
	field := dynamicdatadomain.DynamicField{
		ID:        node.Generate(),
		OrgID:     orgID,
		EntityID:  entityID,
		FieldName: name,
		SmartCode: smartCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch v := value.(type) {
	case string:
		field.FieldType = dynamicdatadomain.FieldTypeText
		field.ValueText = &v
	case bool:
		field.FieldType = dynamicdatadomain.FieldTypeBoolean
		field.ValueBoolean = &v
	case int:
		field.FieldType = dynamicdatadomain.FieldTypeNumber
		field.ValueNumber = decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case float64:
		field.FieldType = dynamicdatadomain.FieldTypeNumber
		field.ValueNumber = decimal.NewNullDecimal(decimal.NewFromFloat(v))
	default:
		return field, fmt.Errorf("unsupported demo field %s of type %T", name, value)
	}

	err := mustConform(guardrail.TableDynamicData, createOp, map[string]any{
		"organization_id": orgID.String(),
		"entity_id":       entityID.String(),
		"field_name":      name,
		"smart_code":      smartCode,
	})
	return field, err
}

func demoTransaction(tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, ids map[string]snowflake.ID, sale demoSale, lineCode string, now time.Time) error {
	customer := ids[sale.customer]
	txn := transactiondomain.Transaction{
		ID:                node.Generate(),
		OrgID:             orgID,
		TransactionType:   sale.kind,
		TransactionCode:   transactiondomain.CodePrefix + ulid.Make().String(),
		TransactionDate:   now,
		TransactionStatus: "completed",
		SmartCode:         sale.smartCode,
		SourceEntityID:    &customer,
		Metadata:          datatypes.JSONMap{"demo": true},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	lines := make([]transactiondomain.TransactionLine, 0, len(sale.lines))
	total := decimal.Zero
	for i, l := range sale.lines {
		entityID := ids[l.entity]
		qty := decimal.NewFromInt(l.quantity)
		unit := decimal.RequireFromString(l.unit)
		amount := qty.Mul(unit)
		total = total.Add(amount)
		lines = append(lines, transactiondomain.TransactionLine{
			ID:            node.Generate(),
			OrgID:         orgID,
			TransactionID: txn.ID,
			LineNumber:    i + 1,
			LineType:      "item",
			EntityID:      &entityID,
			Quantity:      qty,
			UnitAmount:    unit,
			LineAmount:    amount,
			SmartCode:     lineCode,
			Metadata:      datatypes.JSONMap{},
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	txn.TotalAmount = total

	if err := mustConform(guardrail.TableTransactions, createOp, map[string]any{
		"organization_id":  orgID.String(),
		"transaction_type": txn.TransactionType,
		"smart_code":       txn.SmartCode,
	}); err != nil {
		return err
	}
	if err := tx.Create(&txn).Error; err != nil {
		return err
	}
	return tx.Create(&lines).Error
}

// mustConform refuses to seed anything the convention validator rejects or
// warns about.
func mustConform(table, operation string, payload map[string]any) error {
	res := guardrail.Validate(guardrail.Request{Table: table, Operation: operation, Payload: payload})
	if !res.Valid || len(res.Warnings) > 0 {
		msgs := append(res.ErrorMessages(), res.WarningMessages()...)
		return fmt.Errorf("seed data for %s violates the six-table convention: %s", table, strings.Join(msgs, "; "))
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
