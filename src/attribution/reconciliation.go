package attribution

import (
	"fmt"
	"math"

	"github.com/username/spendfolio/backend/src/models"
	"github.com/username/spendfolio/backend/src/utils"
)

// DefaultTolerancePct is the accepted divergence between computed and
// expected totals before an import is flagged.
const DefaultTolerancePct = 0.5

// Check compares a computed batch total against an independently supplied
// expected total. The report is advisory: it surfaces a warning when the
// naming convention drifted and large sums moved into a fallback bucket, but
// it never blocks persistence.
func Check(calculatedTotal, expectedTotal, tolerancePct float64) models.ReconciliationReport {
	report := models.ReconciliationReport{
		CalculatedTotal: calculatedTotal,
		ExpectedTotal:   expectedTotal,
	}

	if expectedTotal == 0 {
		report.MismatchPct = 0
	} else {
		report.MismatchPct = utils.RoundFloat(math.Abs(calculatedTotal-expectedTotal)/expectedTotal*100, 6)
	}

	report.IsCoherent = report.MismatchPct <= tolerancePct
	if !report.IsCoherent {
		report.Message = fmt.Sprintf(
			"computed total %.2f diverges from expected total %.2f by %.2f%% (tolerance %.2f%%)",
			calculatedTotal, expectedTotal, report.MismatchPct, tolerancePct)
	}
	return report
}
