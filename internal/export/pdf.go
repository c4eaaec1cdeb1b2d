package export

import (
	"sort"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	headingText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText    = props.Text{Size: 9}
	numberText  = props.Text{Size: 9, Align: align.Right}
)

type typeTotal struct {
	name  string
	count int
	total decimal.Decimal
}

// renderPDF draws a one-document organization summary: identity, row counts
// per table, entities per type and transaction totals per type.
func renderPDF(snap Snapshot) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	org := snap.Organization

	m.AddRow(20,
		text.NewCol(8, org.Name, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Generated "+timeCell(snap.GeneratedAt), props.Text{Size: 8, Align: align.Right, Top: 4}),
	)
	m.AddRow(20,
		col.New(6).Add(
			text.New("Code: "+org.Code, props.Text{Top: 0}),
			text.New("Type: "+org.Type, props.Text{Top: 5}),
			text.New("Status: "+org.Status, props.Text{Top: 10}),
		),
		col.New(6),
	)

	section(m, "Rows per table", "Table", "Rows")
	for _, t := range snap.tables() {
		m.AddRow(7,
			text.NewCol(9, t.Name, cellText),
			text.NewCol(3, strconv.Itoa(len(t.Rows)), numberText),
		)
	}

	entityCounts := map[string]int{}
	for _, e := range snap.Entities {
		entityCounts[e.EntityType]++
	}
	section(m, "Entities per type", "Entity type", "Count")
	for _, name := range sortedKeys(entityCounts) {
		m.AddRow(7,
			text.NewCol(9, name, cellText),
			text.NewCol(3, strconv.Itoa(entityCounts[name]), numberText),
		)
	}

	totals := transactionTotals(snap)
	m.AddRow(15, text.NewCol(12, "Transactions per type", props.Text{Size: 12, Style: fontstyle.Bold, Top: 5}))
	m.AddRow(8,
		text.NewCol(6, "Transaction type", headingText),
		text.NewCol(3, "Count", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Total amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	grand := decimal.Zero
	for _, tt := range totals {
		grand = grand.Add(tt.total)
		m.AddRow(7,
			text.NewCol(6, tt.name, cellText),
			text.NewCol(3, strconv.Itoa(tt.count), numberText),
			text.NewCol(3, tt.total.StringFixed(2), numberText),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", headingText),
		text.NewCol(3, grand.StringFixed(2), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func section(m core.Maroto, title, left, right string) {
	m.AddRow(15, text.NewCol(12, title, props.Text{Size: 12, Style: fontstyle.Bold, Top: 5}))
	m.AddRow(8,
		text.NewCol(9, left, headingText),
		text.NewCol(3, right, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
}

func transactionTotals(snap Snapshot) []typeTotal {
	byType := map[string]*typeTotal{}
	for _, txn := range snap.Transactions {
		tt, ok := byType[txn.TransactionType]
		if !ok {
			tt = &typeTotal{name: txn.TransactionType, total: decimal.Zero}
			byType[txn.TransactionType] = tt
		}
		tt.count++
		tt.total = tt.total.Add(txn.TotalAmount)
	}
	out := make([]typeTotal, 0, len(byType))
	for _, tt := range byType {
		out = append(out, *tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
