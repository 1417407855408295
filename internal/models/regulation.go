// internal/models/regulation.go
package models

import "time"

// WebSearchResult is one agent round-trip: the raw prose answer plus the
// deduplicated source URLs it cited. Immutable once created; never
// persisted by this subsystem.
type WebSearchResult struct {
	Query     string    `json:"query"`
	Results   string    `json:"results"`
	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// SunlightRegulation holds the shadow-rule sub-fields. An empty string
// means "unknown", never "no regulation".
type SunlightRegulation struct {
	MeasurementHeight string `json:"measurementHeight,omitempty"`
	TimeRange         string `json:"timeRange,omitempty"`
	ShadowTimeLimit   string `json:"shadowTimeLimit,omitempty"`
	TargetBuildings   string `json:"targetBuildings,omitempty"`
	TargetArea        string `json:"targetArea,omitempty"`
}

// Empty reports whether no sub-field was positively matched.
func (s *SunlightRegulation) Empty() bool {
	if s == nil {
		return true
	}
	return s.MeasurementHeight == "" && s.TimeRange == "" && s.ShadowTimeLimit == "" &&
		s.TargetBuildings == "" && s.TargetArea == ""
}

// RegulationInfo is the structured regulation record. A field is present
// only if some pattern or the structuring step positively matched it.
type RegulationInfo struct {
	UseDistrict            string              `json:"useDistrict,omitempty"`
	BuildingCoverageRatio  string              `json:"buildingCoverageRatio,omitempty"`
	FloorAreaRatio         string              `json:"floorAreaRatio,omitempty"`
	HeightRestriction      string              `json:"heightRestriction,omitempty"`
	HeightDistrict         string              `json:"heightDistrict,omitempty"`
	Sunlight               *SunlightRegulation `json:"sunlightRegulation,omitempty"`
	AdministrativeGuidance []string            `json:"administrativeGuidance,omitempty"`
}

// Locality is the pure input threaded through every call for prompt and
// query construction.
type Locality struct {
	Address    string `json:"address"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
}

// RegionReport is the composed result of the three concurrent category
// searches.
type RegionReport struct {
	UrbanPlanning          *RegulationInfo `json:"urbanPlanning"`
	SunlightRegulation     *RegulationInfo `json:"sunlightRegulation"`
	AdministrativeGuidance []string        `json:"administrativeGuidance"`
}

// MunicipalityRegulations is the partial-by-design variant returned by
// the free-query entry point.
type MunicipalityRegulations struct {
	UrbanPlanning          *RegulationInfo `json:"urbanPlanning,omitempty"`
	SunlightRegulation     *RegulationInfo `json:"sunlightRegulation,omitempty"`
	AdministrativeGuidance []string        `json:"administrativeGuidance,omitempty"`
}
