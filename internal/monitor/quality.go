package monitor

// QualityCutoffs are the per-program cloud-cover cut points used to bucket
// imagery usefulness. They are configuration, not business law; different
// programs ship different defaults.
type QualityCutoffs struct {
	ExcellentBelow float64
	GoodBelow      float64
}

// DefaultQualityCutoffs mirror the archive operators' published guidance:
// Landsat scenes degrade faster with cloud than Sentinel-2's.
func DefaultQualityCutoffs() map[Program]QualityCutoffs {
	return map[Program]QualityCutoffs{
		ProgramLandsat:   {ExcellentBelow: 20, GoodBelow: 50},
		ProgramSentinel2: {ExcellentBelow: 15, GoodBelow: 40},
	}
}

// ClassifyOverall derives a site's cycle rating from how many of its live
// sources succeeded: high when all did, medium when some did, low when none.
// Synthetic imagery substitutes do not count as live successes.
func ClassifyOverall(result SiteResult) Rating {
	total := len(result.Outcomes) + len(result.Imagery)
	if total == 0 {
		return RatingLow
	}

	successes := result.LiveSuccesses()
	for _, io := range result.Imagery {
		if io.Status == StatusSuccess {
			successes++
		}
	}

	switch {
	case successes == total:
		return RatingHigh
	case successes > 0:
		return RatingMedium
	default:
		return RatingLow
	}
}

// ClassifyImagery buckets one program's outcome by its scene cloud cover.
// A failed catalog fetch is unavailable even when a synthetic substitute
// report was recorded.
func ClassifyImagery(outcome ImageryOutcome, cutoffs QualityCutoffs) ImageryRating {
	if outcome.Status != StatusSuccess || outcome.Report == nil {
		return ImageryUnavailable
	}

	switch cc := outcome.Report.CloudCover; {
	case cc < cutoffs.ExcellentBelow:
		return ImageryExcellent
	case cc < cutoffs.GoodBelow:
		return ImageryGood
	default:
		return ImageryMedium
	}
}
