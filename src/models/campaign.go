package models

// MatchKind classifies how a campaign name was decoded. Downstream code
// switches on it instead of juggling boolean flags.
type MatchKind int

const (
	// MatchValid: both the country code and the product segment were decoded.
	MatchValid MatchKind = iota
	// MatchUnknownCountry: the name follows the convention but the country
	// code is not in the lookup table; spend goes to the OTHER bucket.
	MatchUnknownCountry
	// MatchUnstructured: the name has fewer than two hyphen segments; spend
	// goes to the UNKNOWN/unidentified-product bucket.
	MatchUnstructured
)

func (k MatchKind) String() string {
	switch k {
	case MatchValid:
		return "valid"
	case MatchUnknownCountry:
		return "unknown_country"
	case MatchUnstructured:
		return "unstructured"
	default:
		return "invalid"
	}
}

// ParsedCampaign is the result of decoding one campaign name. A row is never
// dropped solely because of a naming anomaly: every kind yields a usable
// (possibly fallback) attribution.
type ParsedCampaign struct {
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	Product     string    `json:"product"`
	Kind        MatchKind `json:"kind"`
}

// IsUnrecognized reports whether the campaign should be flagged for manual
// review. Advisory metadata only; it never blocks aggregation.
func (p ParsedCampaign) IsUnrecognized() bool {
	return p.Kind != MatchValid
}

// IsValid mirrors the historical flag: even unstructured names count as valid
// rows for aggregation purposes.
func (p ParsedCampaign) IsValid() bool {
	return true
}
