package keys

import "codeberg.org/melodygen/server/internal/keypool"

// read-only view over a named key pool
type StatsSource interface {
	Stats() []keypool.KeyStats
	Len() int
}

// response for GET /keys/stats, one entry per upstream pool
type Response struct {
	Pools map[string]PoolStats `json:"pools"`
}

type PoolStats struct {
	Size int                `json:"size"`
	Keys []keypool.KeyStats `json:"keys"`
}
