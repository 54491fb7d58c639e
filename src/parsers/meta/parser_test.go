package meta

import (
	"strings"
	"testing"
)

func TestParse_EnglishExport(t *testing.T) {
	csvData := "Reporting starts,Campaign name,Amount spent (USD)\n" +
		"2024-03-01,cm-STUD-camp1,10.50\n" +
		"2024-03-01,tg-VIRAMAX-promo,\"1,234.56\"\n"

	rows, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].CampaignName != "cm-STUD-camp1" {
		t.Errorf("CampaignName = %q", rows[0].CampaignName)
	}
	if rows[0].AmountSpent != 10.50 {
		t.Errorf("AmountSpent = %v, want 10.50", rows[0].AmountSpent)
	}
	if rows[0].Date != "2024-03-01" {
		t.Errorf("Date = %q, want 2024-03-01", rows[0].Date)
	}
	if rows[1].AmountSpent != 1234.56 {
		t.Errorf("thousands separator not handled: %v", rows[1].AmountSpent)
	}
}

func TestParse_FrenchExport(t *testing.T) {
	// French locale: accented labels, comma decimal separator, non-breaking
	// space as thousands separator, DD/MM/YYYY dates.
	csvData := "Début des rapports,Nom de la campagne,Montant dépensé (USD)\n" +
		"01/03/2024,rdc-GLUCO-promo,\"1\u00a0234,56\"\n" +
		"02/03/2024,bn-STUD-x,\"45,10\"\n"

	rows, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].AmountSpent != 1234.56 {
		t.Errorf("AmountSpent = %v, want 1234.56", rows[0].AmountSpent)
	}
	if rows[0].Date != "2024-03-01" {
		t.Errorf("Date = %q, want 2024-03-01", rows[0].Date)
	}
	if rows[1].AmountSpent != 45.10 {
		t.Errorf("AmountSpent = %v, want 45.10", rows[1].AmountSpent)
	}
}

func TestParse_BOMHeader(t *testing.T) {
	csvData := "\ufeffCampaign name,Amount spent (USD),Date\n" +
		"cm-STUD-a,5.00,2024-03-01\n"

	rows, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed on BOM-prefixed header: %v", err)
	}
	if len(rows) != 1 || rows[0].CampaignName != "cm-STUD-a" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	csvData := "Campaign name,Date\ncm-STUD-a,2024-03-01\n"

	_, err := NewParser().Parse(strings.NewReader(csvData))
	if err == nil {
		t.Fatal("expected error for export without an amount column")
	}
	if !strings.Contains(err.Error(), "amount_spent") {
		t.Errorf("error should name the missing column, got %v", err)
	}
}

func TestParse_DegenerateValuesSurviveForSkipCounting(t *testing.T) {
	// Malformed dates and amounts are not dropped here; they come out empty or
	// zero so the aggregator can count every skip.
	csvData := "Campaign name,Amount spent (USD),Date\n" +
		"cm-STUD-baddate,5.00,not-a-date\n" +
		"cm-STUD-badamount,abc,2024-03-01\n" +
		"cm-STUD-dollar,$7.25,2024-03-02\n"

	rows, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Date != "" {
		t.Errorf("unusable date must come out empty, got %q", rows[0].Date)
	}
	if rows[1].AmountSpent != 0 {
		t.Errorf("unparseable amount must stay zero, got %v", rows[1].AmountSpent)
	}
	if rows[2].AmountSpent != 7.25 {
		t.Errorf("currency prefix not stripped: %v", rows[2].AmountSpent)
	}
}

func TestParse_TimestampDateNormalized(t *testing.T) {
	csvData := "Campaign name,Amount spent (USD),Date\n" +
		"cm-STUD-a,5.00,2024-03-01 00:00:00\n"

	rows, err := NewParser().Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if rows[0].Date != "2024-03-01" {
		t.Errorf("Date = %q, want 2024-03-01", rows[0].Date)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := NewParser().Parse(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for an empty export")
	}
}
