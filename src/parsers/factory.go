package parsers

import (
	"fmt"

	"github.com/username/spendfolio/backend/src/parsers/meta"
)

// GetParser resolves the parser for an export source. Meta Ads is the only
// platform imported today; the factory keeps room for further sources.
func GetParser(source string) (Parser, error) {
	switch source {
	case "", "meta":
		return meta.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
