// backend/src/parsers/meta/parser.go
package meta

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/spendfolio/backend/src/models"
	"github.com/username/spendfolio/backend/src/security/validation"
)

// Meta exports arrive with either English or French column labels depending
// on the account locale. Header normalization happens once per batch, here,
// so the rest of the engine only sees the canonical row shape.
var headerAliases = map[string]string{
	"campaign_name":        "campaign_name",
	"campaign name":        "campaign_name",
	"nom de la campagne":   "campaign_name",
	"amount_spent":         "amount_spent",
	"amount spent (usd)":   "amount_spent",
	"montant dépensé (usd)": "amount_spent",
	"date":                 "date",
	"day":                  "date",
	"reporting starts":     "date",
	"début des rapports":   "date",
}

type MetaParser struct{}

func NewParser() *MetaParser {
	return &MetaParser{}
}

func (p *MetaParser) Parse(file io.Reader) ([]models.RawSpendRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	var rows []models.RawSpendRow
	for _, record := range records {
		row := models.RawSpendRow{
			CampaignName: validation.StripUnprintable(fieldAt(record, columns["campaign_name"])),
			Date:         normalizeDate(fieldAt(record, columns["date"])),
		}

		amountStr := fieldAt(record, columns["amount_spent"])
		if amountStr != "" {
			amount, err := parseAmount(amountStr)
			if err != nil {
				// Leave the amount at zero; the aggregator skips and counts it.
				log.Printf("Unparseable amount %q for campaign %q", amountStr, row.CampaignName)
			} else {
				row.AmountSpent = amount
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// mapHeader resolves each canonical field to a column index, tolerating
// English and French labels and a UTF-8 BOM on the first cell.
func mapHeader(header []string) (map[string]int, error) {
	columns := map[string]int{"campaign_name": -1, "amount_spent": -1, "date": -1}
	for i, label := range header {
		label = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(label, "\ufeff")))
		if canonical, ok := headerAliases[label]; ok && columns[canonical] == -1 {
			columns[canonical] = i
		}
	}
	for field, idx := range columns {
		if idx == -1 {
			return nil, fmt.Errorf("export is missing required column: %s", field)
		}
	}
	return columns, nil
}

func fieldAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseAmount handles both "1,234.56" and the French "1 234,56" shapes.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, "\u00a0", "") // non-breaking space in French exports
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "$")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// normalizeDate returns the date in YYYY-MM-DD, or an empty string when the
// value is unusable so the aggregator can count the skip.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	log.Printf("Unparseable date %q in export row", s)
	return ""
}
