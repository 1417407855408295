// test/e2e/e2e_test.go
//
// Full-pipeline tests against in-process fakes of the two external
// services: the conversational search agent (thread/run/message API) and
// the chat-completion API. No real network or credentials required.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regsearch/internal/common/config"
	"regsearch/internal/common/logger"
	"regsearch/internal/common/retry"
	"regsearch/internal/regulation/agent"
	"regsearch/internal/regulation/search"
	"regsearch/internal/regulation/structuring"
)

const (
	urbanReply = "新宿区の用途地域は第一種住居地域、建ぺい率60%、容積率300%です。" +
		"出典: https://www.city.shinjuku.lg.jp/toshikeikaku.html"
	sunlightReply = "日影規制：測定面：4m、8時〜16時、日影時間：3時間以内。" +
		"対象建築物：高さ10mを超える建築物。"
	guidanceReply = "中高層建築物の建築には条例に基づく事前周知が必要です。" +
		"また緑化基準により緑地確保が求められます。"
	noHitReply = "該当する定めは確認できませんでした。"
)

// fakeAgentService implements the agent's REST surface in memory.
type fakeAgentService struct {
	mu      sync.Mutex
	nextID  int
	queries map[string]string // thread id -> posted query
}

func newFakeAgentService() *fakeAgentService {
	return &fakeAgentService{queries: make(map[string]string)}
}

func (f *fakeAgentService) replyFor(query string) string {
	switch {
	case strings.Contains(query, "用途地域"):
		return urbanReply
	case strings.Contains(query, "日影規制"):
		return sunlightReply
	case strings.Contains(query, "中高層"), strings.Contains(query, "緑化条例"):
		return guidanceReply
	default:
		return noHitReply
	}
}

func (f *fakeAgentService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nextID++
		threadID := fmt.Sprintf("thread-%d", f.nextID)
		f.queries[threadID] = ""
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": threadID})
	})

	mux.HandleFunc("/threads/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		threadID := parts[1]

		switch {
		case len(parts) == 3 && parts[2] == "messages" && r.Method == http.MethodPost:
			var msg struct {
				Content string `json:"content"`
			}
			json.NewDecoder(r.Body).Decode(&msg)
			f.mu.Lock()
			f.queries[threadID] = msg.Content
			f.mu.Unlock()
			w.WriteHeader(http.StatusCreated)

		case len(parts) == 3 && parts[2] == "runs" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"id": "run-1", "status": "queued"})

		case len(parts) == 4 && parts[2] == "runs":
			json.NewEncoder(w).Encode(map[string]string{"id": parts[3], "status": "completed"})

		case len(parts) == 3 && parts[2] == "messages" && r.Method == http.MethodGet:
			f.mu.Lock()
			query := f.queries[threadID]
			f.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"id":         "m1",
						"role":       "assistant",
						"created_at": 1,
						"content": []map[string]string{
							{"type": "text", "text": f.replyFor(query)},
						},
					},
				},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return mux
}

// fakeCompletionService answers /chat/completions with structured JSON
// derived from the search text it is given.
func fakeCompletionService() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		user := req.Messages[1].Content
		var reply string
		switch {
		case strings.Contains(user, "第一種住居地域"):
			reply = `{"useDistrict":"第一種住居地域","buildingCoverageRatio":"60%","floorAreaRatio":"300%"}`
		case strings.Contains(user, "日影"):
			reply = `{"sunlightRegulation":{"measurementHeight":"4m","timeRange":"8時〜16時","shadowTimeLimit":"3時間以内","targetBuildings":"高さ10mを超える建築物"}}`
		default:
			reply = `{}`
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		})
	})
}

func instantSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func buildService(t *testing.T, agentURL, chatURL string, cache *search.Cache) *search.Service {
	t.Helper()
	log := logger.NewTestLogger(t)

	api := agent.NewHTTPConversationAPI(agentURL, "e2e-key")
	searcher := agent.NewClient(api, "agent-e2e", time.Millisecond, log)

	structurer := structuring.New(config.ChatAPIConfig{
		Endpoint:    chatURL,
		Deployment:  "gpt-e2e",
		APIKey:      "e2e-key",
		MaxTokens:   2000,
		Temperature: 0.1,
	}, log)

	policy := retry.New(log, retry.WithSleep(instantSleep))
	return search.NewService(searcher, structurer, policy, cache, time.Millisecond, log)
}

func TestComprehensivePipeline(t *testing.T) {
	agentSrv := httptest.NewServer(newFakeAgentService().handler())
	defer agentSrv.Close()
	chatSrv := httptest.NewServer(fakeCompletionService())
	defer chatSrv.Close()

	svc := buildService(t, agentSrv.URL, chatSrv.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := svc.SearchComprehensiveRegionInfo(ctx, "西新宿2-8-1", "東京都", "新宿区")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "第一種住居地域", report.UrbanPlanning.UseDistrict)
	assert.Equal(t, "60%", report.UrbanPlanning.BuildingCoverageRatio)
	assert.Equal(t, "300%", report.UrbanPlanning.FloorAreaRatio)

	require.NotNil(t, report.SunlightRegulation.Sunlight)
	assert.Equal(t, "4m", report.SunlightRegulation.Sunlight.MeasurementHeight)
	assert.Equal(t, "3時間以内", report.SunlightRegulation.Sunlight.ShadowTimeLimit)

	assert.Contains(t, report.AdministrativeGuidance, "中高層建築物条例（紛争予防・事前周知）")
	assert.Contains(t, report.AdministrativeGuidance, "緑化条例（緑地確保の義務）")
}

func TestComprehensivePipeline_CompletionDownFallsBackToExtraction(t *testing.T) {
	agentSrv := httptest.NewServer(newFakeAgentService().handler())
	defer agentSrv.Close()
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer chatSrv.Close()

	svc := buildService(t, agentSrv.URL, chatSrv.URL, nil)

	report, err := svc.SearchComprehensiveRegionInfo(context.Background(), "西新宿2-8-1", "東京都", "新宿区")
	require.NoError(t, err)

	// Pattern extraction recovers the same core fields from the raw prose.
	assert.Equal(t, "第一種住居地域", report.UrbanPlanning.UseDistrict)
	assert.Equal(t, "60%", report.UrbanPlanning.BuildingCoverageRatio)
	require.NotNil(t, report.SunlightRegulation.Sunlight)
	assert.Equal(t, "4m", report.SunlightRegulation.Sunlight.MeasurementHeight)
}

func TestUrbanPlanning_CachedAcrossCalls(t *testing.T) {
	fakeAgent := newFakeAgentService()
	agentSrv := httptest.NewServer(fakeAgent.handler())
	defer agentSrv.Close()
	chatSrv := httptest.NewServer(fakeCompletionService())
	defer chatSrv.Close()

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := search.NewCache(client, time.Hour, logger.NewTestLogger(t))

	svc := buildService(t, agentSrv.URL, chatSrv.URL, cache)
	ctx := context.Background()

	first := svc.SearchUrbanPlanningInfo(ctx, "西新宿2-8-1", "東京都", "新宿区")
	assert.Equal(t, "第一種住居地域", first.UseDistrict)

	fakeAgent.mu.Lock()
	threadsAfterFirst := fakeAgent.nextID
	fakeAgent.mu.Unlock()

	second := svc.SearchUrbanPlanningInfo(ctx, "西新宿2-8-1", "東京都", "新宿区")
	assert.Equal(t, first, second)

	fakeAgent.mu.Lock()
	threadsAfterSecond := fakeAgent.nextID
	fakeAgent.mu.Unlock()
	assert.Equal(t, threadsAfterFirst, threadsAfterSecond, "second lookup must be served from cache")
}

func TestUnconfiguredAgent_FallbackMode(t *testing.T) {
	chatSrv := httptest.NewServer(fakeCompletionService())
	defer chatSrv.Close()

	log := logger.NewTestLogger(t)
	searcher := agent.NewClient(nil, "", time.Millisecond, log)
	structurer := structuring.New(config.ChatAPIConfig{}, log)
	policy := retry.New(log, retry.WithSleep(instantSleep))
	svc := search.NewService(searcher, structurer, policy, nil, time.Millisecond, log)

	report, err := svc.SearchComprehensiveRegionInfo(context.Background(), "西新宿2-8-1", "東京都", "新宿区")
	require.NoError(t, err)
	assert.Empty(t, report.UrbanPlanning.UseDistrict)
	assert.Nil(t, report.SunlightRegulation.Sunlight)
	assert.Empty(t, report.AdministrativeGuidance)
}
