// Package pricing holds the pure scoring, recommendation, discount and
// demand computations. Nothing here performs I/O.
package pricing

import "airbnb-pricer/models"

// PriceDistribution is re-exported for brevity inside this package.
type PriceDistribution = models.PriceDistribution
