// internal/regulation/extract/extract_test.go
package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrbanPlanningInfo_LabeledFields(t *testing.T) {
	text := "用途地域：第一種住居地域、建ぺい率60%、容積率300%"

	info := UrbanPlanningInfo(text)

	assert.Equal(t, "第一種住居地域", info.UseDistrict)
	assert.Equal(t, "60%", info.BuildingCoverageRatio)
	assert.Equal(t, "300%", info.FloorAreaRatio)
	assert.Empty(t, info.HeightRestriction)
	assert.Empty(t, info.HeightDistrict)
}

func TestUrbanPlanningInfo_TableCases(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected map[string]string
	}{
		{
			name: "kanji coverage variant",
			text: "この地区の建蔽率は50％、容積率は200％です。",
			expected: map[string]string{
				FieldCoverageRatio:  "50%",
				FieldFloorAreaRatio: "200%",
			},
		},
		{
			name: "bare ratio gets percent sign",
			text: "建ぺい率：40 容積率：80",
			expected: map[string]string{
				FieldCoverageRatio:  "40%",
				FieldFloorAreaRatio: "80%",
			},
		},
		{
			name: "height restriction and district",
			text: "絶対高さ：10m の制限があり、第二種高度地区に指定されています。",
			expected: map[string]string{
				FieldHeightRestriction: "10m",
				FieldHeightDistrict:    "第二種高度地区",
			},
		},
		{
			name: "bare use district mid prose",
			text: "当該地は商業地域に属します。",
			expected: map[string]string{
				FieldUseDistrict: "商業地域",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for field, want := range tt.expected {
				assert.Equal(t, want, Field(field, tt.text), "field %s", field)
			}
		})
	}
}

// Earlier-listed patterns win: the labeled use-district form beats a bare
// category name appearing earlier in the text.
func TestField_PatternPriority(t *testing.T) {
	text := "周辺には第一種低層住居専用地域もありますが、用途地域：商業地域 です。"

	assert.Equal(t, "商業地域", Field(FieldUseDistrict, text))
}

// First-match-wins within one rule: at most one value per field per pass.
func TestField_FirstMatchWins(t *testing.T) {
	text := "建ぺい率60%、ただし角地緩和で建ぺい率70%"

	assert.Equal(t, "60%", Field(FieldCoverageRatio, text))
}

// A capture failing the validity check falls through to the next rule.
func TestField_ValidityFallthrough(t *testing.T) {
	text := "対象建築物：高さ10mを超える建築物および用途地域の定めによる"

	// Rule 1 captures the full clause including an adjacent field label,
	// which the validity filter rejects; rule 2 supplies the clean value.
	assert.Equal(t, "高さ10mを超える建築物", Field(FieldTargetBuildings, text))
}

func TestSunlightRegulation(t *testing.T) {
	text := "日影規制：測定面：4m、測定時間帯 8時〜16時、日影時間：3時間以内。対象建築物：高さ10mを超える建築物。"

	s := SunlightRegulation(text)

	assert.NotNil(t, s)
	assert.Equal(t, "4m", s.MeasurementHeight)
	assert.Equal(t, "8時〜16時", s.TimeRange)
	assert.Equal(t, "3時間以内", s.ShadowTimeLimit)
	assert.Equal(t, "高さ10mを超える建築物", s.TargetBuildings)
}

func TestSunlightRegulation_NoMatchIsNil(t *testing.T) {
	assert.Nil(t, SunlightRegulation("この地域に特別な定めはありません。"))
}

func TestAdministrativeGuidance_KeywordPresence(t *testing.T) {
	text := "緑化基準を満たす必要があります。また中高層建築物の事前周知が必要です。"

	guidance := AdministrativeGuidance(text)

	assert.Equal(t, []string{
		"緑化条例（緑地確保の義務）",
		"中高層建築物条例（紛争予防・事前周知）",
	}, guidance)
}

func TestAdministrativeGuidance_Empty(t *testing.T) {
	assert.Empty(t, AdministrativeGuidance("特記事項はありません。"))
}

// Applying the engine twice to the same text yields identical output.
func TestAll_Idempotent(t *testing.T) {
	text := "用途地域：第一種住居地域、建ぺい率60%、容積率300%。測定面：4m。緑化基準、景観計画あり。"

	first := All(text)
	second := All(text)

	assert.Equal(t, first, second)
}

func TestAll_AbsenceMeansUnknown(t *testing.T) {
	info := All("")

	assert.Empty(t, info.UseDistrict)
	assert.Empty(t, info.BuildingCoverageRatio)
	assert.Nil(t, info.Sunlight)
	assert.Empty(t, info.AdministrativeGuidance)
}
