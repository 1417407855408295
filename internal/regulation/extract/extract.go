// Package extract is the deterministic text-mining layer of the pipeline:
// text in, struct out, no network, no side effects. It backs the
// structuring fallback and is usable standalone by tests.
package extract

import (
	"strings"

	"regsearch/internal/models"
)

// Field runs one field's rule cascade over text. The first rule whose
// match also passes the validity check supplies the value, normalized.
// An empty return means "unknown", never "negative".
func Field(field, text string) string {
	for _, rule := range fieldRules[field] {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		capture := m[len(m)-1]
		if !rule.Valid(capture) {
			continue
		}
		return rule.Normalize(capture)
	}
	return ""
}

// UrbanPlanningInfo extracts the zoning fields from raw search prose.
func UrbanPlanningInfo(text string) *models.RegulationInfo {
	return &models.RegulationInfo{
		UseDistrict:           Field(FieldUseDistrict, text),
		BuildingCoverageRatio: Field(FieldCoverageRatio, text),
		FloorAreaRatio:        Field(FieldFloorAreaRatio, text),
		HeightRestriction:     Field(FieldHeightRestriction, text),
		HeightDistrict:        Field(FieldHeightDistrict, text),
	}
}

// SunlightRegulation extracts the shadow-rule sub-fields.
func SunlightRegulation(text string) *models.SunlightRegulation {
	s := &models.SunlightRegulation{
		MeasurementHeight: Field(FieldMeasurementHeight, text),
		TimeRange:         Field(FieldTimeRange, text),
		ShadowTimeLimit:   Field(FieldShadowTimeLimit, text),
		TargetBuildings:   Field(FieldTargetBuildings, text),
		TargetArea:        Field(FieldTargetArea, text),
	}
	if s.Empty() {
		return nil
	}
	return s
}

// AdministrativeGuidance scans for the six canonical category keywords.
// Each keyword present contributes its canonical label, in the fixed
// category order.
func AdministrativeGuidance(text string) []string {
	var labels []string
	for _, cat := range GuidanceCategories {
		if strings.Contains(text, cat.Keyword) {
			labels = append(labels, cat.Label)
		}
	}
	return labels
}

// All extracts every regulation field from one body of raw text. This is
// the shape the structuring fallback returns, so it must stay equivalent
// to the AI path's output structure.
func All(text string) *models.RegulationInfo {
	info := UrbanPlanningInfo(text)
	info.Sunlight = SunlightRegulation(text)
	info.AdministrativeGuidance = AdministrativeGuidance(text)
	return info
}
