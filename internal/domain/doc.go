// Package domain models climate resilience for the regions of an island nation.
//
// # Resilience Index
//
// Every region carries three normalized factors on a 0-100 scale:
//
//	Exposure       physical exposure to hazard (coastline, flood plains, cyclone track)
//	Vulnerability  fragility of infrastructure and population
//	Adaptation     coping and response capacity
//
// The index inverts a weighted composite risk:
//
//	risk  = 0.45*E + 0.35*V - 0.20*A
//	index = clamp(100 - risk, 0, 100), rounded to 2 decimals
//
// Higher is safer. Weights are injected through [ScoringConfig]; the values
// above are the defaults returned by [DefaultScoringConfig].
//
// # Categories
//
// The index maps onto four contiguous tiers. Ranges are half-open except the
// top one, which includes 100:
//
//	critical [0, 30) | low [30, 50) | medium [50, 70) | high [70, 100]
//
// # Disaster Scenarios
//
// A disaster of severity S (0-100) raises every region's exposure by
// S * impactFactor (default 0.5) before rescoring. The shift is the same
// absolute amount for every region; it is a what-if lever, not a spatial
// hazard model.
//
// # Citizen Reports
//
// Citizens flag a region as "danger" or "safe". Reports are append-only and
// only leave the log through an age-based prune. Aggregates per region give
// danger/safe counts and the danger ratio, and are merged with scores into
// [RegionStatus] records for publishing.
//
// # Proximity
//
// Distances are planar Euclidean over decimal degrees, converted to
// kilometers with a flat 111 km/degree. Accuracy degrades away from the
// equator and over long distances.
package domain
