package attribution

import (
	"regexp"
	"strings"

	"github.com/username/spendfolio/backend/src/models"
)

// Fallback buckets. Unattributable spend is still aggregated under these so
// money is never dropped silently.
const (
	UnknownCountryCode    = "UNKNOWN"
	UnknownCountryName    = "Pays inconnu"
	OtherCountryCode      = "OTHER"
	OtherCountryName      = "Autre pays"
	UnidentifiedProduct   = "PRODUIT_NON_IDENTIFIE"
	nameSegmentSeparator  = "-"
	minMeaningfulSegments = 2
)

// CountryInfo is one entry of the campaign-naming country table.
type CountryInfo struct {
	Code string
	Name string
}

// DefaultCountryTable lists the country codes used by the media-buying team's
// naming convention: <country-code>-<product>-<free label...>.
func DefaultCountryTable() map[string]CountryInfo {
	return map[string]CountryInfo{
		"rc":  {Code: "RC", Name: "Congo (Brazzaville)"},
		"rdc": {Code: "RDC", Name: "RD Congo"},
		"tg":  {Code: "TG", Name: "Togo"},
		"bfa": {Code: "BFA", Name: "Burkina Faso"},
		"cm":  {Code: "CM", Name: "Cameroun"},
		"gn":  {Code: "GN", Name: "Guinée"},
		"mal": {Code: "MAL", Name: "Mali"},
		"bn":  {Code: "BN", Name: "Bénin"},
	}
}

var productCleanupRe = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)
var repeatedSpacesRe = regexp.MustCompile(` +`)

// NameParser decodes campaign names against an immutable country table.
// Construct it once and share it; it has no mutable state.
type NameParser struct {
	countries map[string]CountryInfo
}

func NewNameParser(countries map[string]CountryInfo) *NameParser {
	if countries == nil {
		countries = DefaultCountryTable()
	}
	return &NameParser{countries: countries}
}

// Parse decodes one free-text campaign name. Only the first two hyphen
// segments are significant; everything after the second hyphen is ignored.
func (p *NameParser) Parse(campaignName string) models.ParsedCampaign {
	segments := strings.Split(strings.TrimSpace(campaignName), nameSegmentSeparator)
	if campaignName == "" || len(segments) < minMeaningfulSegments {
		return models.ParsedCampaign{
			CountryCode: UnknownCountryCode,
			CountryName: UnknownCountryName,
			Product:     UnidentifiedProduct,
			Kind:        models.MatchUnstructured,
		}
	}

	kind := models.MatchValid
	countryKey := strings.ToLower(strings.TrimSpace(segments[0]))
	country, found := p.countries[countryKey]
	if !found {
		country = CountryInfo{Code: OtherCountryCode, Name: OtherCountryName}
		kind = models.MatchUnknownCountry
	}

	product := normalizeProduct(segments[1])
	if product == "" {
		product = strings.ToUpper(strings.TrimSpace(segments[1]))
	}

	return models.ParsedCampaign{
		CountryCode: country.Code,
		CountryName: country.Name,
		Product:     product,
		Kind:        kind,
	}
}

// normalizeProduct turns the second name segment into a stable product
// identifier: punctuation becomes spaces, runs of spaces collapse, result is
// trimmed and upper-cased.
func normalizeProduct(segment string) string {
	cleaned := productCleanupRe.ReplaceAllString(segment, " ")
	cleaned = repeatedSpacesRe.ReplaceAllString(cleaned, " ")
	return strings.ToUpper(strings.TrimSpace(cleaned))
}
