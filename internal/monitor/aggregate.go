package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

// Aggregator fans out every configured source for one site, settles all
// outcomes independently and assembles the cycle's SiteResult. One adapter
// failing never disturbs the others; failures are converted into error
// outcomes at this boundary and never escape Aggregate.
type Aggregator struct {
	sources []Source
	imagery []ImagerySource
	store   Store
	retry   RetryPolicy
	cutoffs map[Program]QualityCutoffs
}

// NewAggregator creates an Aggregator. A nil cutoffs map selects the
// per-program defaults.
func NewAggregator(sources []Source, imagery []ImagerySource, store Store, retry RetryPolicy, cutoffs map[Program]QualityCutoffs) *Aggregator {
	if cutoffs == nil {
		cutoffs = DefaultQualityCutoffs()
	}
	return &Aggregator{
		sources: sources,
		imagery: imagery,
		store:   store,
		retry:   retry,
		cutoffs: cutoffs,
	}
}

// Aggregate fetches all metrics for one site concurrently, each call wrapped
// in the backoff executor, and builds the normalized result record. The
// record is persisted and alerts are evaluated only after it is fully
// assembled. Persistence failures are logged, never propagated.
func (a *Aggregator) Aggregate(ctx context.Context, site Site, thresholds AlertThresholds) (SiteResult, []AlertRecord) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	outcomes := make(map[Metric]Outcome, len(a.sources))
	imagery := make(map[Program]ImageryOutcome, len(a.imagery))

	for _, src := range a.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()

			value, err := Retry(ctx, a.retry, func() (float64, error) {
				return src.Fetch(ctx, site)
			})

			outcome := a.scalarOutcome(ctx, site, src, value, err)

			mu.Lock()
			outcomes[src.Metric()] = outcome
			mu.Unlock()
		}()
	}

	for _, cat := range a.imagery {
		cat := cat
		wg.Add(1)
		go func() {
			defer wg.Done()

			report, err := Retry(ctx, a.retry, func() (ImageryReport, error) {
				return cat.Fetch(ctx, site)
			})

			outcome := a.imageryOutcome(ctx, site, cat, report, err)

			mu.Lock()
			imagery[cat.Program()] = outcome
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Every tracked metric resolves to exactly one outcome, including
	// metrics no configured source covers.
	for _, m := range Metrics {
		if _, ok := outcomes[m]; !ok {
			outcomes[m] = fallbackOutcome(site, m, "no source configured for metric")
		}
	}

	result := SiteResult{
		SiteID:    site.ID,
		SiteName:  site.Name,
		Timestamp: time.Now().UTC(),
		Outcomes:  outcomes,
		Imagery:   imagery,
		Composite: compositeNDVI(imagery),
	}
	result.Rating = ClassifyOverall(result)

	ratings := make(map[Program]ImageryRating, len(imagery))
	for program, io := range imagery {
		ratings[program] = ClassifyImagery(io, a.cutoffs[program])
	}
	result.ImageryRatings = ratings

	if err := a.store.SaveResult(ctx, result); err != nil {
		log.Printf("store: failed to save result for %s: %v", site.ID, err)
		a.logError(ctx, "store", site.Name, err)
	}

	alerts := EvaluateAlerts(site, result, thresholds)
	for _, alert := range alerts {
		if err := a.store.AppendAlert(ctx, alert); err != nil {
			log.Printf("store: failed to append alert for %s: %v", site.ID, err)
			a.logError(ctx, "store", site.Name, err)
		}
	}

	return result, alerts
}

// scalarOutcome maps a settled source call to its observation outcome. On
// failure the site's fallback bundle supplies a historical substitute when it
// has one, tagged so the UI can tell measured from assumed.
func (a *Aggregator) scalarOutcome(ctx context.Context, site Site, src Source, value float64, err error) Outcome {
	if err == nil {
		v := value
		return Outcome{
			Status:     StatusSuccess,
			Value:      &v,
			Provenance: ProvenanceLive,
			Source:     src.Name(),
		}
	}

	log.Printf("source %s failed for %s: %v", src.Name(), site.Name, err)
	a.logError(ctx, src.Name(), site.Name, err)

	outcome := fallbackOutcome(site, src.Metric(), err.Error())
	outcome.Source = src.Name()
	return outcome
}

func fallbackOutcome(site Site, m Metric, reason string) Outcome {
	outcome := Outcome{
		Status: StatusError,
		Error:  reason,
	}
	if fb, ok := site.Fallback.Value(m); ok {
		outcome.Value = &fb
		outcome.Provenance = ProvenanceHistorical
	}
	return outcome
}

func (a *Aggregator) imageryOutcome(ctx context.Context, site Site, cat ImagerySource, report ImageryReport, err error) ImageryOutcome {
	if err == nil {
		return ImageryOutcome{Status: StatusSuccess, Report: &report}
	}

	log.Printf("imagery %s failed for %s: %v", cat.Name(), site.Name, err)
	a.logError(ctx, cat.Name(), site.Name, err)

	outcome := ImageryOutcome{Status: StatusError, Error: err.Error()}
	if hist, ok := cat.Historical(site); ok {
		outcome.Report = &hist
	}
	return outcome
}

func (a *Aggregator) logError(ctx context.Context, source, site string, err error) {
	if lerr := a.store.LogError(ctx, source, site, err.Error()); lerr != nil {
		log.Printf("store: failed to log error from %s: %v", source, lerr)
	}
}

// compositeNDVI compares the programs' vegetation indices: their mean, and
// the program whose latest scene had the least cloud.
func compositeNDVI(imagery map[Program]ImageryOutcome) NDVIComposite {
	var total float64
	var count int

	best := ProgramLandsat
	bestCloud := 101.0

	for program, io := range imagery {
		if io.Report == nil {
			continue
		}
		total += io.Report.NDVI
		count++
		if io.Report.CloudCover < bestCloud {
			bestCloud = io.Report.CloudCover
			best = program
		}
	}

	composite := NDVIComposite{BestQuality: best}
	if count > 0 {
		composite.Average = total / float64(count)
	}
	return composite
}
