// Package analysis turns a patient's chronological thyroid series into a
// trend report: a classification of the latest draw, a plain-language
// interpretation, three-period linear forecasts with 95% bands, and
// step-change anomalies per hormone. Everything here is a pure function of
// the input series, so calls are deterministic and safe to run concurrently.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/thyrolab/thyrolab/internal/domain/labs"
)

// ErrInsufficientData is returned by Predict when the series is too short to
// fit a trend. Handlers map it to a 400.
var ErrInsufficientData = errors.New("minimum 3 records required")

// ErrDegenerateFit reports a NaN or infinite regression result. The series
// length precondition prevents it; it exists so a bad fit surfaces as an
// error instead of NaN leaking into the response.
var ErrDegenerateFit = errors.New("regression produced a non-finite result")

type Classification string

const (
	Normal          Classification = "Normal"
	Hypothyroidism  Classification = "Hypothyroidism"
	Hyperthyroidism Classification = "Hyperthyroidism"
	Borderline      Classification = "Borderline/Needs Medical Review"
)

// minRecords is the shortest series Predict accepts; below it the regression
// is meaningless (and at n=1 its denominator is zero).
const minRecords = 3

// forecastPeriods is how many future draws Predict extrapolates.
const forecastPeriods = 3

// confidenceZ is the fixed 95% normal-approximation multiplier applied to
// the raw series standard deviation. It is not derived from sample size or
// regression residuals, so the bands are an approximation rather than a
// rigorous interval.
const confidenceZ = 1.96

// Classify labels a single draw. Rules are checked in order and the first
// match wins, so e.g. a suppressed TSH with elevated T4 is Hyperthyroidism
// even though it also fails the Normal rule.
func Classify(tsh, t3, t4 float64) Classification {
	switch {
	case tsh >= 0.4 && tsh <= 4.0 && t3 >= 0.8 && t3 <= 2.0 && t4 >= 5.0 && t4 <= 12.0:
		return Normal
	case tsh > 4.0 && (t3 < 0.8 || t4 < 5.0):
		return Hypothyroidism
	case tsh < 0.4 && (t3 > 2.0 || t4 > 12.0):
		return Hyperthyroidism
	default:
		return Borderline
	}
}

// Interpret maps a classification to its patient-facing sentence. The hypo
// and hyper sentences quote the TSH value that triggered them.
func Interpret(c Classification, tsh float64) string {
	switch c {
	case Normal:
		return "Your thyroid hormone levels are within normal clinical range."
	case Hypothyroidism:
		return fmt.Sprintf("Elevated TSH (%g µIU/mL) with low circulating hormones indicates hypothyroidism. A clinical follow-up is recommended.", tsh)
	case Hyperthyroidism:
		return fmt.Sprintf("Suppressed TSH (%g µIU/mL) with elevated circulating hormones indicates hyperthyroidism. A clinical follow-up is recommended.", tsh)
	default:
		return "Your results are borderline and need review by a medical specialist."
	}
}

// Fit computes an ordinary least squares line over values with x = 0..n-1.
// Unit-spaced indices are the independent variable, not calendar dates, so
// unevenly spaced draws are treated as consecutive periods. With fewer than
// two values the denominator is zero and the result is NaN; callers enforce
// a larger minimum upstream.
func Fit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	slope = (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// StdDev computes the population standard deviation (divide by n, not n-1).
// It doubles as the anomaly threshold and the forecast band half-width.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}

// Anomaly is a flagged jump between two consecutive draws.
type Anomaly struct {
	Index         int     `json:"index"`
	PreviousValue float64 `json:"previousValue"`
	CurrentValue  float64 `json:"currentValue"`
	Difference    float64 `json:"difference"`
}

// DetectAnomalies makes one left-to-right pass over the series and flags
// every adjacent pair whose absolute difference strictly exceeds twice the
// population standard deviation of the full series. A difference exactly at
// the threshold is not flagged. Index 0 has no predecessor and is never
// reported.
func DetectAnomalies(values []float64) []Anomaly {
	threshold := 2 * StdDev(values)
	var anomalies []Anomaly
	for i := 1; i < len(values); i++ {
		diff := math.Abs(values[i] - values[i-1])
		if diff > threshold {
			anomalies = append(anomalies, Anomaly{
				Index:         i,
				PreviousValue: round2(values[i-1]),
				CurrentValue:  round2(values[i]),
				Difference:    round2(diff),
			})
		}
	}
	return anomalies
}

// HormoneForecast is one hormone's projected value with its confidence band.
type HormoneForecast struct {
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// ForecastPoint bundles the three hormone forecasts for one future period.
type ForecastPoint struct {
	Period int             `json:"period"`
	TSH    HormoneForecast `json:"tsh"`
	T3     HormoneForecast `json:"t3"`
	T4     HormoneForecast `json:"t4"`
}

// LatestValues echoes the chronologically last draw of the series.
type LatestValues struct {
	RecordedOn string  `json:"recordedOn"`
	TSH        float64 `json:"tsh"`
	T3         float64 `json:"t3"`
	T4         float64 `json:"t4"`
}

type Result struct {
	LatestValues          LatestValues         `json:"latestValues"`
	Classification        Classification       `json:"classification"`
	Interpretation        string               `json:"interpretation"`
	RegressionPredictions []ForecastPoint      `json:"regressionPredictions"`
	Anomalies             map[string][]Anomaly `json:"anomalies"`
}

// Predict runs the full analysis over a chronological series. It requires at
// least three records; classification and interpretation come from the last
// record only, independent of the regression. Numeric output fields are
// rounded to two decimal places.
func Predict(series []*labs.Record) (*Result, error) {
	if len(series) < minRecords {
		return nil, ErrInsufficientData
	}
	n := len(series)

	tsh := make([]float64, n)
	t3 := make([]float64, n)
	t4 := make([]float64, n)
	for i, rec := range series {
		tsh[i] = rec.TSH
		t3[i] = rec.T3
		t4[i] = rec.T4
	}

	hormones := map[string][]float64{"tsh": tsh, "t3": t3, "t4": t4}
	type trend struct {
		slope, intercept, stddev float64
	}
	trends := make(map[string]trend, len(hormones))
	anomalies := make(map[string][]Anomaly, len(hormones))
	for name, values := range hormones {
		slope, intercept := Fit(values)
		if !isFinite(slope) || !isFinite(intercept) {
			return nil, fmt.Errorf("%w: %s", ErrDegenerateFit, name)
		}
		trends[name] = trend{slope: slope, intercept: intercept, stddev: StdDev(values)}
		a := DetectAnomalies(values)
		if a == nil {
			a = []Anomaly{}
		}
		anomalies[name] = a
	}

	forecast := func(name string, x float64) HormoneForecast {
		tr := trends[name]
		predicted := tr.slope*x + tr.intercept
		margin := confidenceZ * tr.stddev
		return HormoneForecast{
			Predicted: round2(predicted),
			Lower:     round2(predicted - margin),
			Upper:     round2(predicted + margin),
		}
	}

	points := make([]ForecastPoint, 0, forecastPeriods)
	for i := 1; i <= forecastPeriods; i++ {
		// The fit used x = 0..n-1, so period i continues at x = n+i-1.
		x := float64(n + i - 1)
		points = append(points, ForecastPoint{
			Period: i,
			TSH:    forecast("tsh", x),
			T3:     forecast("t3", x),
			T4:     forecast("t4", x),
		})
	}

	latest := series[n-1]
	c := Classify(latest.TSH, latest.T3, latest.T4)
	return &Result{
		LatestValues: LatestValues{
			RecordedOn: latest.RecordedOn.Format(labs.DateLayout),
			TSH:        round2(latest.TSH),
			T3:         round2(latest.T3),
			T4:         round2(latest.T4),
		},
		Classification:        c,
		Interpretation:        Interpret(c, latest.TSH),
		RegressionPredictions: points,
		Anomalies:             anomalies,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
