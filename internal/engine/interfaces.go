package engine

import (
	"context"

	"github.com/tracekit/carbontrace/internal/model"
)

// LegResolver resolves a single trip leg to a distance in miles.
type LegResolver interface {
	FlightLeg(ctx context.Context, originCode, destinationCode string) model.ResolvedLeg
	DrivingLeg(ctx context.Context, origin, destination string) model.ResolvedLeg
}

// BranchFinder disambiguates a brand name to a concrete branch address near a
// delivery location.
type BranchFinder interface {
	NearestBranch(ctx context.Context, brandName, deliveryAddress string) (*model.BranchMatch, error)
}
