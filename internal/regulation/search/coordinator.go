// internal/regulation/search/coordinator.go
package search

import (
	"context"
	"fmt"
	"sync"

	"regsearch/internal/models"
)

// SearchComprehensiveRegionInfo fans the three category searches out
// concurrently and composes a single report. Each branch already
// guarantees a non-throwing result, so partial failure shows up as empty
// fields in the merged report. The only error this subsystem lets past
// its public boundary is a defect inside the fan-out itself, surfaced as
// a recovered panic.
func (s *Service) SearchComprehensiveRegionInfo(ctx context.Context, address, prefecture, city string) (report *models.RegionReport, err error) {
	report = &models.RegionReport{
		AdministrativeGuidance: []string{},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	panics := make(chan interface{}, 3)

	run := func(branch func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics <- r
				}
			}()
			branch()
		}()
	}

	run(func() {
		info := s.SearchUrbanPlanningInfo(ctx, address, prefecture, city)
		mu.Lock()
		report.UrbanPlanning = info
		mu.Unlock()
	})
	run(func() {
		info := s.SearchSunlightRegulation(ctx, address, prefecture, city)
		mu.Lock()
		report.SunlightRegulation = info
		mu.Unlock()
	})
	run(func() {
		guidance := s.SearchAdministrativeGuidance(ctx, address, prefecture, city)
		mu.Lock()
		report.AdministrativeGuidance = guidance
		mu.Unlock()
	})

	wg.Wait()
	close(panics)

	if r, ok := <-panics; ok {
		return nil, fmt.Errorf("comprehensive search defect: %v", r)
	}

	if report.UrbanPlanning == nil {
		report.UrbanPlanning = &models.RegulationInfo{}
	}
	if report.SunlightRegulation == nil {
		report.SunlightRegulation = &models.RegulationInfo{}
	}
	return report, nil
}
