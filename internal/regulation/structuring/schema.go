// internal/regulation/structuring/schema.go
package structuring

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"regsearch/internal/common/errors"
)

// resultSchema is the fixed shape the completion service is instructed to
// emit. A schema-invalid object is treated the same as unparseable
// output: the deterministic fallback takes over.
const resultSchema = `{
  "type": "object",
  "properties": {
    "useDistrict": {"type": "string"},
    "buildingCoverageRatio": {"type": "string"},
    "floorAreaRatio": {"type": "string"},
    "heightRestriction": {"type": "string"},
    "heightDistrict": {"type": "string"},
    "sunlightRegulation": {
      "type": "object",
      "properties": {
        "measurementHeight": {"type": "string"},
        "timeRange": {"type": "string"},
        "shadowTimeLimit": {"type": "string"},
        "targetBuildings": {"type": "string"},
        "targetArea": {"type": "string"}
      },
      "additionalProperties": false
    },
    "administrativeGuidance": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(resultSchema)

func validateSchema(objText string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(objText))
	if err != nil {
		return errors.NewStructuringParseError("schema validation: " + err.Error())
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return errors.NewStructuringParseError("schema violations: " + strings.Join(problems, "; "))
	}
	return nil
}
