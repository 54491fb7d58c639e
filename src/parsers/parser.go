package parsers

import (
	"io"

	"github.com/username/spendfolio/backend/src/models"
)

// Parser turns one advertising-platform export into canonical spend rows.
type Parser interface {
	Parse(file io.Reader) ([]models.RawSpendRow, error)
}
