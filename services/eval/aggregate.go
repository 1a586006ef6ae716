package eval

import (
	"math"

	"github.com/instantcocoa/naxos/services/dataset"
)

// Aggregate folds the runner's metric columns into the final report.
//
// Summary statistics for each metric cover only the samples with a valid
// score: the mean is the arithmetic average and the standard deviation is
// the sample standard deviation over exactly those values. A metric with
// no valid samples reports both as undefined rather than zero. Metrics are
// never combined or reweighted against each other.
func Aggregate(ds *dataset.Dataset, columns []MetricScores) *Report {
	report := &Report{
		Metrics: make([]MetricReport, 0, len(columns)),
		Samples: make([]SampleRow, ds.Len()),
	}

	for i := range report.Samples {
		report.Samples[i] = SampleRow{
			Index:    i,
			Question: ds.Question(i),
			Scores:   make(map[string]*float64, len(columns)),
		}
	}

	for _, col := range columns {
		mr := MetricReport{
			Name:   col.Name,
			Scores: make([]*float64, len(col.Results)),
		}

		valid := make([]float64, 0, len(col.Results))
		for i, res := range col.Results {
			row := &report.Samples[i]
			if res.Valid {
				score := res.Score
				mr.Scores[i] = &score
				row.Scores[col.Name] = &score
				valid = append(valid, res.Score)
			} else {
				row.Scores[col.Name] = nil
				if res.Reason != "" {
					if row.Reasons == nil {
						row.Reasons = make(map[string]string)
					}
					row.Reasons[col.Name] = res.Reason
				}
			}
			mr.TokensUsed += res.Tokens
		}

		mr.ValidCount = len(valid)
		mr.Mean, mr.StdDev = summarize(valid)
		report.Metrics = append(report.Metrics, mr)
	}

	return report
}

// summarize returns the mean and sample standard deviation of xs.
// Zero observations leave both undefined; a single observation leaves
// the deviation undefined.
func summarize(xs []float64) (mean, stddev *float64) {
	if len(xs) == 0 {
		return nil, nil
	}

	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	mean = &m

	if len(xs) < 2 {
		return mean, nil
	}

	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(xs)-1))
	stddev = &sd

	return mean, stddev
}
