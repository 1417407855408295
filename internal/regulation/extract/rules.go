// internal/regulation/extract/rules.go
package extract

import (
	"regexp"
	"strings"
)

// Rule is one step of a field's extraction cascade: a capture pattern, a
// validity check that rejects parse artifacts, and a normalizer applied
// to the accepted capture. Rule lists are static configuration.
type Rule struct {
	Pattern   *regexp.Regexp
	Valid     func(string) bool
	Normalize func(string) string
}

// Field names for the non-guidance extraction cascade.
const (
	FieldUseDistrict       = "useDistrict"
	FieldCoverageRatio     = "buildingCoverageRatio"
	FieldFloorAreaRatio    = "floorAreaRatio"
	FieldHeightRestriction = "heightRestriction"
	FieldHeightDistrict    = "heightDistrict"
	FieldMeasurementHeight = "measurementHeight"
	FieldTimeRange         = "timeRange"
	FieldShadowTimeLimit   = "shadowTimeLimit"
	FieldTargetBuildings   = "targetBuildings"
	FieldTargetArea        = "targetArea"
)

// artifactSubstrings are known parse artifacts: stray conjunctions and
// label fragments of adjacent fields that indicate the capture ran past
// its own field.
var artifactSubstrings = []string{
	"および",
	"または",
	"ならびに",
	"建ぺい率",
	"建蔽率",
	"容積率",
	"用途地域",
	"高度地区",
	"お問い合わせ",
}

func noArtifacts(s string) bool {
	for _, bad := range artifactSubstrings {
		if strings.Contains(s, bad) {
			return true
		}
	}
	return false
}

func validCapture(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !noArtifacts(s)
}

// validHeightDistrict rejects conjunction artifacts only: height-district
// captures legitimately contain their own field label.
func validHeightDistrict(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, bad := range []string{"および", "または", "ならびに"} {
		if strings.Contains(s, bad) {
			return false
		}
	}
	return true
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}

// percentNormalize appends a percent sign to bare-numeric ratio captures.
func percentNormalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "％", "%")
	if s != "" && !strings.HasSuffix(s, "%") {
		s += "%"
	}
	return s
}

// useDistrictRules match the designated land-use category. The labeled
// form takes priority over a bare category name found mid-prose.
var useDistrictRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`用途地域[：:は\s]*(第[一二１２12]種(?:低層|中高層)?住居(?:専用)?地域|田園住居地域|準住居地域|近隣商業地域|商業地域|準工業地域|工業専用地域|工業地域)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`(第[一二１２12]種(?:低層|中高層)?住居(?:専用)?地域|田園住居地域|準住居地域|近隣商業地域|商業地域|準工業地域|工業専用地域|工業地域)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var coverageRatioRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`建[ぺべ蔽]い?率[：:は\s]*([0-9０-９]+)\s*[%％]`),
		Valid:     validCapture,
		Normalize: percentNormalize,
	},
	{
		Pattern:   regexp.MustCompile(`建[ぺべ蔽]い?率[：:は\s]*([0-9０-９]+)`),
		Valid:     validCapture,
		Normalize: percentNormalize,
	},
}

var floorAreaRatioRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`容積率[：:は\s]*([0-9０-９]+)\s*[%％]`),
		Valid:     validCapture,
		Normalize: percentNormalize,
	},
	{
		Pattern:   regexp.MustCompile(`容積率[：:は\s]*([0-9０-９]+)`),
		Valid:     validCapture,
		Normalize: percentNormalize,
	},
}

var heightRestrictionRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`(?:絶対高さ|高さ(?:の最高限度|制限))[：:は\s]*([0-9０-９.]+\s*[mｍメートル])`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`高さ[：:は\s]*([0-9０-９.]+\s*[mｍメートル]以下)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var heightDistrictRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`(第[一二三四１２３４1-4]種高度地区)`),
		Valid:     validHeightDistrict,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`高度地区[：:は\s]*([^\s、。，]+)`),
		Valid:     validHeightDistrict,
		Normalize: trimSpace,
	},
}

var measurementHeightRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`測定(?:面|高さ)[：:は\s]*(?:平均地盤面から)?([0-9０-９.]+\s*[mｍメートル])`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`平均地盤面から([0-9０-９.]+\s*[mｍメートル])`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var timeRangeRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`([0-9０-９]{1,2}時(?:[0-9０-９]{1,2}分)?\s*[〜～~]\s*(?:午後)?[0-9０-９]{1,2}時(?:[0-9０-９]{1,2}分)?)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`(午前[0-9０-９]{1,2}時から午後[0-9０-９]{1,2}時(?:まで)?)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var shadowTimeLimitRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`([0-9０-９.]+時間\s*[・/／]\s*[0-9０-９.]+時間)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`日影(?:時間)?[：:は\s]*([0-9０-９.]+時間(?:以内|以下)?)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var targetBuildingsRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`対象建築物[：:は\s]*([^。\n]+)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
	{
		Pattern:   regexp.MustCompile(`((?:軒の?高さ|高さ)[0-9０-９.]+[mｍメートル]を超える建築物|[0-9０-９]+階(?:建て?)?以上の建築物)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

var targetAreaRules = []Rule{
	{
		Pattern:   regexp.MustCompile(`(?:規制)?対象区域[：:は\s]*([^。\n]+)`),
		Valid:     validCapture,
		Normalize: trimSpace,
	},
}

// fieldRules is the complete cascade configuration, keyed by field name.
var fieldRules = map[string][]Rule{
	FieldUseDistrict:       useDistrictRules,
	FieldCoverageRatio:     coverageRatioRules,
	FieldFloorAreaRatio:    floorAreaRatioRules,
	FieldHeightRestriction: heightRestrictionRules,
	FieldHeightDistrict:    heightDistrictRules,
	FieldMeasurementHeight: measurementHeightRules,
	FieldTimeRange:         timeRangeRules,
	FieldShadowTimeLimit:   shadowTimeLimitRules,
	FieldTargetBuildings:   targetBuildingsRules,
	FieldTargetArea:        targetAreaRules,
}

// GuidanceCategory is one of the six canonical administrative-guidance
// categories, detected by keyword presence only.
type GuidanceCategory struct {
	Keyword string
	Label   string
}

// GuidanceCategories is the fixed, enumerable label set. Presence of the
// keyword contributes the canonical label; there is no value extraction.
var GuidanceCategories = []GuidanceCategory{
	{Keyword: "開発許可", Label: "開発許可に関する指導要綱"},
	{Keyword: "緑化", Label: "緑化条例（緑地確保の義務）"},
	{Keyword: "景観", Label: "景観計画（色彩・デザインの制限）"},
	{Keyword: "福祉", Label: "福祉のまちづくり条例（バリアフリー基準）"},
	{Keyword: "中高層", Label: "中高層建築物条例（紛争予防・事前周知）"},
	{Keyword: "盛土", Label: "盛土規制法（造成・埋立ての規制）"},
}
