package engine

import (
	"aitrader/internal/models"
)

// Resolve finds the live position matching instrument and side in the
// exchange's reported position set. Zero-contract entries are leftovers
// of closed positions and count as absent. A miss is an expected
// outcome, not an error: the source routinely asks to close a position
// that is already gone.
func Resolve(positions []models.Position, instID string, side models.PositionSide) (models.Position, bool) {
	for _, pos := range positions {
		if pos.Symbol != instID || pos.Side != side {
			continue
		}
		if !pos.Active() {
			continue
		}
		return pos, true
	}
	return models.Position{}, false
}
