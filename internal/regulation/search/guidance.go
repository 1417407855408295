// internal/regulation/search/guidance.go
package search

import (
	"context"
	"fmt"

	"regsearch/internal/common/metrics"
	"regsearch/internal/models"
	"regsearch/internal/regulation/extract"
)

// guidanceTopics are the six query subjects, one per canonical
// administrative-guidance category, in the fixed category order.
var guidanceTopics = []string{
	"開発許可の指導要綱",
	"緑化条例",
	"景観計画",
	"福祉のまちづくり条例",
	"中高層建築物に関する条例",
	"盛土規制",
}

// SearchAdministrativeGuidance issues the six guidance queries
// sequentially, each preceded by the fixed spacing delay and individually
// retried. A query whose retries are exhausted is logged and its category
// omitted; it never aborts the remaining queries.
func (s *Service) SearchAdministrativeGuidance(ctx context.Context, address, prefecture, city string) []string {
	loc := models.Locality{Address: address, Prefecture: prefecture, City: city}

	if s.fallbackMode() {
		metrics.SearchesTotal.WithLabelValues(CategoryGuidance, "fallback_mode").Inc()
		return []string{}
	}

	seen := make(map[string]bool)
	guidance := []string{}

	for _, topic := range guidanceTopics {
		// Proactive spacing: the six sub-queries share one external
		// rate-limit budget.
		if err := s.retry.Delay(ctx, s.guidanceDelay); err != nil {
			s.logger.Warn("guidance sequence cancelled", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
			break
		}

		query := guidanceQuery(topic, loc)

		var result *models.WebSearchResult
		err := s.retry.Do(ctx, CategoryGuidance, func() error {
			var searchErr error
			result, searchErr = s.agent.Search(ctx, query)
			return searchErr
		})
		if err != nil {
			s.logger.Warn("guidance query failed, omitting category", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
			metrics.SearchesTotal.WithLabelValues(CategoryGuidance, "omitted").Inc()
			continue
		}

		metrics.SearchesTotal.WithLabelValues(CategoryGuidance, "success").Inc()
		for _, label := range extract.AdministrativeGuidance(result.Results) {
			if !seen[label] {
				seen[label] = true
				guidance = append(guidance, label)
			}
		}
	}

	return guidance
}

func guidanceQuery(topic string, loc models.Locality) string {
	return fmt.Sprintf("%s%s の%sについて、建築計画への適用条件を教えてください。",
		loc.Prefecture, loc.City, topic)
}
