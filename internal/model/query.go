package model

import "fmt"

// DiscoveryQuery is one discovery-stage work item: an industry searched in
// a single location. A run fans out the configured filters into the cross
// product of industries and locations.
type DiscoveryQuery struct {
	Industry     string `json:"industry"`
	Location     string `json:"location"`
	RadiusMeters int    `json:"radius_meters"`
	Limit        int    `json:"limit"`
}

// String identifies the query in logs and item-error reports.
func (q DiscoveryQuery) String() string {
	return fmt.Sprintf("%s in %s", q.Industry, q.Location)
}
