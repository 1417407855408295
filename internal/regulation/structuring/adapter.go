// internal/regulation/structuring/adapter.go
package structuring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"regsearch/internal/common/config"
	"regsearch/internal/common/errors"
	"regsearch/internal/common/logger"
	"regsearch/internal/common/metrics"
	"regsearch/internal/regulation/extract"
	"regsearch/internal/models"
)

// Adapter converts raw search prose into a structured RegulationInfo via
// the chat-completion service, falling back to the deterministic
// extraction engine on any failure. Callers receive the same result shape
// either way; the fallback equivalence is a hard contract.
type Adapter struct {
	cfg    config.ChatAPIConfig
	client *http.Client
	logger logger.Logger
}

func New(cfg config.ChatAPIConfig, log logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{},
		logger: log.With(map[string]interface{}{"component": "structuring"}),
	}
}

const systemInstruction = "あなたは建築規制情報の抽出アシスタントです。" +
	"与えられた検索結果テキストから規制情報を読み取り、指定された形の JSON オブジェクトを1つだけ出力してください。" +
	"説明文は出力せず、確認できない項目は省略してください。"

// Structure sends raw text plus the locality context to the completion
// service and parses the structured reply. It never fails: on missing
// credentials, a non-success response, unparseable output, or a
// schema-invalid object it returns the extraction engine's result for the
// same text instead.
func (a *Adapter) Structure(ctx context.Context, rawText string, loc models.Locality) *models.RegulationInfo {
	info, err := a.structureWithAI(ctx, rawText, loc)
	if err != nil {
		metrics.StructuringFallbacks.Inc()
		a.logger.Warn("structuring via completion service failed, using pattern extraction", map[string]interface{}{
			"error":      err.Error(),
			"prefecture": loc.Prefecture,
			"city":       loc.City,
		})
		return extract.All(rawText)
	}
	return info
}

func (a *Adapter) structureWithAI(ctx context.Context, rawText string, loc models.Locality) (*models.RegulationInfo, error) {
	if !a.cfg.Configured() {
		return nil, errors.NewConfigurationError("chat api endpoint, deployment or api key not set")
	}

	reqBody := map[string]interface{}{
		"model": a.cfg.Deployment,
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": a.buildPrompt(rawText, loc)},
		},
		"max_tokens":  a.cfg.MaxTokens,
		"temperature": a.cfg.Temperature,
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.cfg.Endpoint, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewTransientNetworkError("chat-api", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.NewTransientNetworkError("chat-api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewTransientNetworkError("chat-api",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(detail)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, errors.NewStructuringParseError("decode completion envelope: " + err.Error())
	}
	if len(completion.Choices) == 0 {
		return nil, errors.NewStructuringParseError("completion returned no choices")
	}

	return parseStructured(completion.Choices[0].Message.Content)
}

// parseStructured locates the top-level JSON object in the model's reply,
// validates it against the fixed result schema, and unmarshals it.
func parseStructured(content string) (*models.RegulationInfo, error) {
	objText, ok := extractJSONObject(content)
	if !ok {
		return nil, errors.NewStructuringParseError("no top-level JSON object in completion output")
	}

	if err := validateSchema(objText); err != nil {
		return nil, err
	}

	var info models.RegulationInfo
	if err := json.Unmarshal([]byte(objText), &info); err != nil {
		return nil, errors.NewStructuringParseError("unmarshal regulation object: " + err.Error())
	}
	return &info, nil
}

// extractJSONObject finds the first balanced top-level {...} substring.
// Brace counting skips braces inside JSON strings, so prose around or
// inside the object does not break the scan.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func (a *Adapter) buildPrompt(rawText string, loc models.Locality) string {
	var parts []string

	parts = append(parts, "以下は建築規制に関する検索結果です。")
	parts = append(parts, fmt.Sprintf("対象地: %s（%s%s）", loc.Address, loc.Prefecture, loc.City))
	parts = append(parts, "\n--- 検索結果 ---")
	parts = append(parts, rawText)
	parts = append(parts, "--- ここまで ---\n")
	parts = append(parts, "次の形の JSON オブジェクトを1つだけ出力してください:")
	parts = append(parts, `{
  "useDistrict": "用途地域",
  "buildingCoverageRatio": "建ぺい率（% 付き）",
  "floorAreaRatio": "容積率（% 付き）",
  "heightRestriction": "高さ制限",
  "heightDistrict": "高度地区",
  "sunlightRegulation": {
    "measurementHeight": "測定面の高さ",
    "timeRange": "測定時間帯",
    "shadowTimeLimit": "日影時間の上限",
    "targetBuildings": "対象建築物",
    "targetArea": "対象区域"
  },
  "administrativeGuidance": ["行政指導の項目"]
}`)

	return strings.Join(parts, "\n")
}
