package attribution

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.L = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func TestParse_ValidName(t *testing.T) {
	p := NewNameParser(nil)

	parsed := p.Parse("rdc-VIRAMAX-promo1")
	if parsed.Kind != models.MatchValid {
		t.Fatalf("expected MatchValid, got %s", parsed.Kind)
	}
	if parsed.CountryCode != "RDC" {
		t.Errorf("CountryCode = %q, want %q", parsed.CountryCode, "RDC")
	}
	if parsed.CountryName != "RD Congo" {
		t.Errorf("CountryName = %q, want %q", parsed.CountryName, "RD Congo")
	}
	if parsed.Product != "VIRAMAX" {
		t.Errorf("Product = %q, want %q", parsed.Product, "VIRAMAX")
	}
	if parsed.IsUnrecognized() {
		t.Error("valid name must not be flagged unrecognized")
	}
}

func TestParse_CountryCodeCaseInsensitive(t *testing.T) {
	p := NewNameParser(nil)

	for _, name := range []string{"CM-stud-x", "Cm-stud-x", "cm-stud-x"} {
		parsed := p.Parse(name)
		if parsed.CountryCode != "CM" {
			t.Errorf("Parse(%q).CountryCode = %q, want %q", name, parsed.CountryCode, "CM")
		}
		if parsed.Product != "STUD" {
			t.Errorf("Parse(%q).Product = %q, want %q", name, parsed.Product, "STUD")
		}
	}
}

func TestParse_UnstructuredName(t *testing.T) {
	p := NewNameParser(nil)

	for _, name := range []string{"randomtext", ""} {
		parsed := p.Parse(name)
		if parsed.Kind != models.MatchUnstructured {
			t.Fatalf("Parse(%q): expected MatchUnstructured, got %s", name, parsed.Kind)
		}
		if parsed.CountryCode != UnknownCountryCode {
			t.Errorf("Parse(%q).CountryCode = %q, want %q", name, parsed.CountryCode, UnknownCountryCode)
		}
		if parsed.Product != UnidentifiedProduct {
			t.Errorf("Parse(%q).Product = %q, want %q", name, parsed.Product, UnidentifiedProduct)
		}
		if !parsed.IsUnrecognized() {
			t.Errorf("Parse(%q) must be flagged unrecognized", name)
		}
		// Historical behavior: even unstructured names stay valid rows.
		if !parsed.IsValid() {
			t.Errorf("Parse(%q) must still be valid for aggregation", name)
		}
	}
}

func TestParse_UnknownCountryKnownFormat(t *testing.T) {
	p := NewNameParser(nil)

	parsed := p.Parse("xx-GLUCO-camp")
	if parsed.Kind != models.MatchUnknownCountry {
		t.Fatalf("expected MatchUnknownCountry, got %s", parsed.Kind)
	}
	if parsed.CountryCode != OtherCountryCode {
		t.Errorf("CountryCode = %q, want %q", parsed.CountryCode, OtherCountryCode)
	}
	if parsed.CountryName != OtherCountryName {
		t.Errorf("CountryName = %q, want %q", parsed.CountryName, OtherCountryName)
	}
	if parsed.Product != "GLUCO" {
		t.Errorf("Product = %q, want %q", parsed.Product, "GLUCO")
	}
	if !parsed.IsUnrecognized() {
		t.Error("unknown country must be flagged unrecognized")
	}
}

func TestParse_ProductNormalization(t *testing.T) {
	p := NewNameParser(nil)

	cases := map[string]string{
		"cm-glu.co_2-x":    "GLU CO 2",
		"cm-  viramax  -x": "VIRAMAX",
		"cm-stud!!force-x": "STUD FORCE",
		"cm-...-ignored":   "...", // cleanup empties the segment; raw upper-cased fallback
	}
	for name, want := range cases {
		parsed := p.Parse(name)
		if parsed.Product != want {
			t.Errorf("Parse(%q).Product = %q, want %q", name, parsed.Product, want)
		}
	}
}

func TestParse_OnlyFirstTwoSegmentsSignificant(t *testing.T) {
	p := NewNameParser(nil)

	a := p.Parse("tg-STUD-summer-2024-retargeting")
	b := p.Parse("tg-STUD-other")
	if a.Product != b.Product || a.CountryCode != b.CountryCode {
		t.Errorf("trailing segments must be ignored: %+v vs %+v", a, b)
	}
}

func TestParse_CustomCountryTable(t *testing.T) {
	p := NewNameParser(map[string]CountryInfo{
		"zz": {Code: "ZZ", Name: "Zedland"},
	})

	if got := p.Parse("zz-STUD-a").CountryCode; got != "ZZ" {
		t.Errorf("CountryCode = %q, want %q", got, "ZZ")
	}
	// The default table must not leak into a custom parser.
	if got := p.Parse("cm-STUD-a").Kind; got != models.MatchUnknownCountry {
		t.Errorf("Kind = %s, want MatchUnknownCountry", got)
	}
}
