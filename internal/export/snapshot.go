package export

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/pkg/db/option"
	"github.com/heraerp/hera/pkg/db/pagination"
)

// Snapshot is every row of one organization, each table in id order.
type Snapshot struct {
	Organization  organizationdomain.Organization
	Entities      []entitydomain.Entity
	DynamicData   []dynamicdomain.DynamicField
	Relationships []relationshipdomain.Relationship
	Transactions  []transactiondomain.Transaction
	Lines         []transactiondomain.TransactionLine
	GeneratedAt   time.Time
}

func (s *Service) load(ctx context.Context, orgID snowflake.ID) (Snapshot, error) {
	org, err := s.orgRepo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	if org == nil {
		return Snapshot{}, ErrNotFound
	}
	snap := Snapshot{Organization: *org, GeneratedAt: s.clock.Now().UTC()}

	snap.Entities, err = collect(func(page pagination.Pagination) ([]*entitydomain.Entity, error) {
		return s.entityRepo.List(ctx, s.db, orgID, entitydomain.ListEntityFilter{IncludeDeleted: true}, page)
	}, func(e *entitydomain.Entity) snowflake.ID { return e.ID })
	if err != nil {
		return Snapshot{}, err
	}

	fields, err := s.dynamicRepo.ListByOrg(ctx, s.db, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	for _, field := range fields {
		if field != nil {
			snap.DynamicData = append(snap.DynamicData, *field)
		}
	}

	snap.Relationships, err = collect(func(page pagination.Pagination) ([]*relationshipdomain.Relationship, error) {
		return s.relationshipRepo.List(ctx, s.db, orgID, relationshipdomain.ListFilter{}, page)
	}, func(r *relationshipdomain.Relationship) snowflake.ID { return r.ID })
	if err != nil {
		return Snapshot{}, err
	}

	snap.Transactions, err = collect(func(page pagination.Pagination) ([]*transactiondomain.Transaction, error) {
		return s.transactionRepo.List(ctx, s.db, orgID, transactiondomain.ListFilter{}, page)
	}, func(t *transactiondomain.Transaction) snowflake.ID { return t.ID })
	if err != nil {
		return Snapshot{}, err
	}

	snap.Lines, err = s.transactionRepo.ListLinesByOrg(ctx, s.db, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// collect walks every cursor page of a repository list and returns the rows
// in ascending id order.
func collect[T any](fetch func(pagination.Pagination) ([]*T, error), id func(*T) snowflake.ID) ([]T, error) {
	var out []T
	page := pagination.Pagination{PageSize: option.MaxPageSize}
	for {
		items, err := fetch(page)
		if err != nil {
			return nil, err
		}
		more := len(items) > option.MaxPageSize
		if more {
			items = items[:option.MaxPageSize]
		}
		for _, item := range items {
			if item != nil {
				out = append(out, *item)
			}
		}
		if !more || len(items) == 0 {
			break
		}
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: id(items[len(items)-1]).String()})
		if err != nil {
			return nil, err
		}
		page.PageToken = token
	}
	sort.Slice(out, func(i, j int) bool { return id(&out[i]) < id(&out[j]) })
	return out, nil
}
