// Package geoindex keeps courier live positions in a Redis GEO set so
// dispatch can find nearby candidates without scanning the couriers table.
// The index is advisory: entries are re-verified against the database before
// any offer is made.
package geoindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"service-dispatch/internal/geo"
)

// Index maintains courier positions in one Redis GEO key.
type Index struct {
	client redis.Cmdable
	key    string
}

// New creates an Index over the given Redis client and key.
func New(client redis.Cmdable, key string) *Index {
	return &Index{client: client, key: key}
}

// Update stores the courier's current position.
func (i *Index) Update(ctx context.Context, courierID int64, p geo.Point) error {
	err := i.client.GeoAdd(ctx, i.key, &redis.GeoLocation{
		Name:      memberName(courierID),
		Longitude: p.Lon,
		Latitude:  p.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geo add: %w", err)
	}
	return nil
}

// Remove drops the courier from the index.
func (i *Index) Remove(ctx context.Context, courierID int64) error {
	if err := i.client.ZRem(ctx, i.key, memberName(courierID)).Err(); err != nil {
		return fmt.Errorf("geo remove: %w", err)
	}
	return nil
}

// Nearby returns ids of couriers within radiusKm of p, closest first,
// up to limit.
func (i *Index) Nearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]int64, error) {
	locs, err := i.client.GeoSearchLocation(ctx, i.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lon,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	ids := make([]int64, 0, len(locs))
	for _, loc := range locs {
		id, err := strconv.ParseInt(loc.Name, 10, 64)
		if err != nil {
			continue // foreign member, skip
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func memberName(courierID int64) string {
	return strconv.FormatInt(courierID, 10)
}
