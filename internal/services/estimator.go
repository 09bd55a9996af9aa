package services

import (
	"waitlist/models"
)

// Estimate assigns position and estimated wait to every party in the given
// arrival order. It touches nothing but the parties passed in.
func Estimate(waiting []*models.Party, serviceMinutes int) {
	for i, p := range waiting {
		p.Position = i + 1
		p.EstimatedWait = p.Position * serviceMinutes
	}
}
