// Package export renders the six-table contents of one organization as CSV,
// XLSX, PDF or a ZIP bundle.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/heraerp/hera/internal/clock"
	dynamicdomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatZIP  = "zip"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported_export_format")
	ErrNotFound          = errors.New("not_found")
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPDF:  "application/pdf",
	FormatZIP:  "application/zip",
}

// Artifact is a rendered export ready to be streamed.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock `optional:"true"`
	OrgRepo          organizationdomain.Repository
	EntityRepo       entitydomain.Repository
	DynamicRepo      dynamicdomain.Repository
	RelationshipRepo relationshipdomain.Repository
	TransactionRepo  transactiondomain.Repository
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	orgRepo          organizationdomain.Repository
	entityRepo       entitydomain.Repository
	dynamicRepo      dynamicdomain.Repository
	relationshipRepo relationshipdomain.Repository
	transactionRepo  transactiondomain.Repository
}

var Module = fx.Module("export.service",
	fx.Provide(New),
)

func New(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("export.service"),
		clock:            c,
		orgRepo:          p.OrgRepo,
		entityRepo:       p.EntityRepo,
		dynamicRepo:      p.DynamicRepo,
		relationshipRepo: p.RelationshipRepo,
		transactionRepo:  p.TransactionRepo,
	}
}

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatCSV, FormatXLSX, FormatPDF, FormatZIP}
}

// Export renders every row of orgID in format. CSV carries the entities only.
func (s *Service) Export(ctx context.Context, orgID snowflake.ID, format string) (Artifact, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	contentType, ok := contentTypes[format]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	snap, err := s.load(ctx, orgID)
	if err != nil {
		return Artifact{}, err
	}

	var body []byte
	switch format {
	case FormatCSV:
		body, err = renderCSV(entityTable(snap))
	case FormatXLSX:
		body, err = renderXLSX(snap.tables())
	case FormatPDF:
		body, err = renderPDF(snap)
	case FormatZIP:
		body, err = renderZIP(snap)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s export: %w", format, err)
	}

	s.log.Info("organization exported",
		zap.String("organization_id", orgID.String()),
		zap.String("format", format),
		zap.Int("bytes", len(body)),
	)

	return Artifact{
		Filename:    filename(snap, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func filename(snap Snapshot, format string) string {
	base := slug.Make(snap.Organization.Code)
	if base == "" {
		base = snap.Organization.ID.String()
	}
	return fmt.Sprintf("%s-%s.%s", base, snap.GeneratedAt.Format("20060102"), format)
}
