// Package search exposes the public operations of the regulation
// retrieval pipeline. Every operation except the comprehensive entry
// point is guaranteed to return a well-typed result: degraded data
// (partial or empty fields) is the visible signal of failure, not an
// error.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"regsearch/internal/common/errors"
	"regsearch/internal/common/logger"
	"regsearch/internal/common/metrics"
	"regsearch/internal/models"
)

// Search categories; each draws on an independent external rate-limit
// budget.
const (
	CategoryUrbanPlanning = "urban_planning"
	CategorySunlight      = "sunlight"
	CategoryGuidance      = "administrative_guidance"
)

// Searcher is the one-query boundary toward the conversational agent.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.WebSearchResult, error)
	Configured() bool
}

// Structurer converts raw search prose into a RegulationInfo. It never
// fails; the deterministic extraction fallback is internal to it.
type Structurer interface {
	Structure(ctx context.Context, rawText string, loc models.Locality) *models.RegulationInfo
}

// Retrier wraps throttling-sensitive operations and provides the fixed
// spacing primitive for the administrative-guidance sequence.
type Retrier interface {
	Do(ctx context.Context, operation string, op func() error) error
	Delay(ctx context.Context, d time.Duration) error
}

// Service implements the public operations. Stateless across calls
// except for the one-time fallback-mode notice.
type Service struct {
	agent         Searcher
	structurer    Structurer
	retry         Retrier
	cache         *Cache
	guidanceDelay time.Duration
	logger        logger.Logger

	fallbackNotice sync.Once
}

func NewService(agent Searcher, structurer Structurer, retrier Retrier, cache *Cache, guidanceDelay time.Duration, log logger.Logger) *Service {
	if guidanceDelay <= 0 {
		guidanceDelay = 2 * time.Second
	}
	return &Service{
		agent:         agent,
		structurer:    structurer,
		retry:         retrier,
		cache:         cache,
		guidanceDelay: guidanceDelay,
		logger:        log.With(map[string]interface{}{"component": "regulation-search"}),
	}
}

// fallbackMode reports whether the agent was never configured. Checked
// once per call path; the notice is logged exactly once per process
// lifetime.
func (s *Service) fallbackMode() bool {
	if s.agent.Configured() {
		return false
	}
	s.fallbackNotice.Do(func() {
		s.logger.Warn("search agent not configured, running in permanent fallback mode", nil)
	})
	return true
}

// SearchUrbanPlanningInfo retrieves zoning information for the locality.
// It always returns a result; missing fields mean "unknown".
func (s *Service) SearchUrbanPlanningInfo(ctx context.Context, address, prefecture, city string) *models.RegulationInfo {
	loc := models.Locality{Address: address, Prefecture: prefecture, City: city}
	return s.searchCategory(ctx, CategoryUrbanPlanning, urbanPlanningQuery(loc), loc)
}

// SearchSunlightRegulation retrieves shadow-rule information for the
// locality.
func (s *Service) SearchSunlightRegulation(ctx context.Context, address, prefecture, city string) *models.RegulationInfo {
	loc := models.Locality{Address: address, Prefecture: prefecture, City: city}
	return s.searchCategory(ctx, CategorySunlight, sunlightQuery(loc), loc)
}

// SearchMunicipalityRegulations runs one free-form query and returns
// whichever categories the structuring step could fill.
func (s *Service) SearchMunicipalityRegulations(ctx context.Context, query, prefecture, city string) *models.MunicipalityRegulations {
	loc := models.Locality{Address: query, Prefecture: prefecture, City: city}

	info := s.searchCategory(ctx, CategoryUrbanPlanning, municipalityQuery(query, loc), loc)

	out := &models.MunicipalityRegulations{}
	if info.UseDistrict != "" || info.BuildingCoverageRatio != "" || info.FloorAreaRatio != "" ||
		info.HeightRestriction != "" || info.HeightDistrict != "" {
		out.UrbanPlanning = info
	}
	if !info.Sunlight.Empty() {
		out.SunlightRegulation = &models.RegulationInfo{Sunlight: info.Sunlight}
	}
	if len(info.AdministrativeGuidance) > 0 {
		out.AdministrativeGuidance = info.AdministrativeGuidance
	}
	return out
}

// searchCategory is the shared single-category path: fallback-mode
// short-circuit, cache, retry-wrapped agent call, error funneling, then
// structuring. The classified error is converted to the non-throwing
// public shape here and nowhere else.
func (s *Service) searchCategory(ctx context.Context, category, query string, loc models.Locality) *models.RegulationInfo {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
	}()

	if s.fallbackMode() {
		metrics.SearchesTotal.WithLabelValues(category, "fallback_mode").Inc()
		return &models.RegulationInfo{}
	}

	result, outcome := s.rawSearch(ctx, category, query, loc)
	metrics.SearchesTotal.WithLabelValues(category, outcome).Inc()

	return s.structurer.Structure(ctx, result.Results, loc)
}

// rawSearch produces a WebSearchResult in every case. Failures degrade to
// an advisory result embedding the error text, never an error.
func (s *Service) rawSearch(ctx context.Context, category, query string, loc models.Locality) (*models.WebSearchResult, string) {
	if cached, ok := s.cache.Get(ctx, category, loc); ok {
		return cached, "cache_hit"
	}

	var result *models.WebSearchResult
	err := s.retry.Do(ctx, category, func() error {
		var searchErr error
		result, searchErr = s.agent.Search(ctx, query)
		return searchErr
	})
	if err == nil {
		s.cache.Set(ctx, category, loc, result)
		return result, "success"
	}

	switch {
	case errors.IsAuthentication(err):
		s.logger.Error("agent authentication failed", map[string]interface{}{
			"category": category,
			"error":    err.Error(),
		})
		return advisoryResult(query, loc,
			"検索エージェントの認証に失敗しました。API キーとテナント設定を確認してください。"), "auth_error"
	case errors.IsCode(err, errors.ErrCodeMaxRetriesExceeded):
		s.logger.Warn("retry budget exhausted for category", map[string]interface{}{
			"category": category,
			"error":    err.Error(),
		})
		return advisoryResult(query, loc, "検索リクエストが制限されました: "+err.Error()), "rate_limited"
	default:
		s.logger.Warn("search failed, returning advisory result", map[string]interface{}{
			"category": category,
			"error":    err.Error(),
		})
		return advisoryResult(query, loc, "検索中にエラーが発生しました: "+err.Error()), "error"
	}
}

// advisoryResult is the degraded WebSearchResult embedding remediation
// hints. Structuring it yields empty fields, which is the caller-visible
// failure signal.
func advisoryResult(query string, loc models.Locality, note string) *models.WebSearchResult {
	return &models.WebSearchResult{
		Query:     query,
		Results:   fmt.Sprintf("【参考情報】%s%s の規制情報は取得できませんでした。%s", loc.Prefecture, loc.City, note),
		Sources:   []string{},
		Timestamp: time.Now().UTC(),
	}
}

func urbanPlanningQuery(loc models.Locality) string {
	return fmt.Sprintf("%s%s%s の用途地域、建ぺい率、容積率、高さ制限、高度地区を教えてください。出典の URL も含めてください。",
		loc.Prefecture, loc.City, loc.Address)
}

func sunlightQuery(loc models.Locality) string {
	return fmt.Sprintf("%s%s%s の日影規制について、測定面の高さ、測定時間帯、日影時間の上限、対象建築物、対象区域を教えてください。",
		loc.Prefecture, loc.City, loc.Address)
}

func municipalityQuery(query string, loc models.Locality) string {
	return fmt.Sprintf("%s%s における「%s」に関する建築規制を教えてください。", loc.Prefecture, loc.City, query)
}
