package universal

import (
	"context"
	"fmt"

	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	"github.com/heraerp/hera/internal/guardrail"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
)

func (s *Service) dispatch(ctx context.Context, table, operation string, payload guardrail.Payload) (any, error) {
	switch table {
	case guardrail.TableOrganizations:
		return s.organization(ctx, operation, payload)
	case guardrail.TableEntities:
		return s.entity(ctx, operation, payload)
	case guardrail.TableDynamicData:
		return s.dynamic(ctx, operation, payload)
	case guardrail.TableRelationships:
		return s.relationship(ctx, operation, payload)
	case guardrail.TableTransactions:
		return s.transaction(ctx, operation, payload)
	case guardrail.TableTransactionLines:
		return s.transactionLines(ctx, operation, payload)
	}
	return nil, unsupported(table, operation)
}

func (s *Service) organization(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	switch operation {
	case guardrail.OperationCreate:
		var req organizationdomain.CreateOrganizationRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.organizations.Create(ctx, req)
	case guardrail.OperationQuery:
		if id := stringValue(payload, guardrail.FieldID); id != "" {
			return s.organizations.GetByID(ctx, id)
		}
		var req organizationdomain.ListOrganizationRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.organizations.List(ctx, req)
	case guardrail.OperationUpdate:
		var req organizationdomain.UpdateStatusRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.organizations.UpdateStatus(ctx, req)
	case guardrail.OperationDelete:
		// organizations are archived, never removed
		return s.organizations.UpdateStatus(ctx, organizationdomain.UpdateStatusRequest{
			ID:     stringValue(payload, guardrail.FieldID),
			Status: organizationdomain.StatusArchived,
		})
	}
	return nil, unsupported(guardrail.TableOrganizations, operation)
}

func (s *Service) entity(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	switch operation {
	case guardrail.OperationCreate:
		var req entitydomain.CreateEntityRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.entities.Create(ctx, req)
	case guardrail.OperationQuery:
		if id := stringValue(payload, guardrail.FieldID); id != "" {
			return s.entities.GetByID(ctx, id)
		}
		var req entitydomain.ListEntityRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.entities.List(ctx, req)
	case guardrail.OperationUpdate:
		var req entitydomain.UpdateEntityRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.entities.Update(ctx, req)
	case guardrail.OperationDelete:
		id := stringValue(payload, guardrail.FieldID)
		if err := s.entities.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "status": entitydomain.StatusDeleted}, nil
	}
	return nil, unsupported(guardrail.TableEntities, operation)
}

func (s *Service) dynamic(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	entityID := stringValue(payload, "entity_id")
	fieldName := stringValue(payload, "field_name")

	switch operation {
	case guardrail.OperationCreate, guardrail.OperationUpdate:
		var req dynamicdomain.SetFieldRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.dynamicData.Set(ctx, req)
	case guardrail.OperationQuery:
		if fieldName != "" {
			return s.dynamicData.Get(ctx, entityID, fieldName)
		}
		return s.dynamicData.List(ctx, entityID)
	case guardrail.OperationDelete:
		if err := s.dynamicData.Delete(ctx, entityID, fieldName); err != nil {
			return nil, err
		}
		return map[string]any{"entity_id": entityID, "field_name": fieldName, "deleted": true}, nil
	}
	return nil, unsupported(guardrail.TableDynamicData, operation)
}

func (s *Service) relationship(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	switch operation {
	case guardrail.OperationCreate:
		var req relationshipdomain.CreateRelationshipRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.relationships.Create(ctx, req)
	case guardrail.OperationQuery:
		if id := stringValue(payload, guardrail.FieldID); id != "" {
			return s.relationships.GetByID(ctx, id)
		}
		var req relationshipdomain.ListRelationshipRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.relationships.List(ctx, req)
	case guardrail.OperationUpdate:
		// the only mutable column is is_active, and only towards false
		var patch struct {
			IsActive *bool `mapstructure:"is_active"`
		}
		if err := decode(payload, &patch); err != nil {
			return nil, err
		}
		if patch.IsActive == nil || *patch.IsActive {
			return nil, fmt.Errorf("%w: relationships can only be deactivated", ErrUnsupportedOperation)
		}
		return s.relationships.Deactivate(ctx, stringValue(payload, guardrail.FieldID))
	case guardrail.OperationDelete:
		return s.relationships.Deactivate(ctx, stringValue(payload, guardrail.FieldID))
	}
	return nil, unsupported(guardrail.TableRelationships, operation)
}

func (s *Service) transaction(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	switch operation {
	case guardrail.OperationCreate:
		var req transactiondomain.CreateTransactionRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.transactions.Create(ctx, req)
	case guardrail.OperationQuery:
		if id := stringValue(payload, guardrail.FieldID); id != "" {
			return s.transactions.GetByID(ctx, id)
		}
		var req transactiondomain.ListTransactionRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return s.transactions.List(ctx, req)
	}
	return nil, unsupported(guardrail.TableTransactions, operation)
}

// transactionLines are written with their header; only queries are served here.
func (s *Service) transactionLines(ctx context.Context, operation string, payload guardrail.Payload) (any, error) {
	if operation != guardrail.OperationQuery {
		return nil, unsupported(guardrail.TableTransactionLines, operation)
	}
	txnID := stringValue(payload, "transaction_id")
	if txnID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required to query lines", ErrInvalidPayload)
	}
	detail, err := s.transactions.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	return detail.Lines, nil
}

func unsupported(table, operation string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedOperation, operation, table)
}
