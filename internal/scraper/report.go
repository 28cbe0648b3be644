package scraper

import (
	"time"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

// ProductResult is the outcome of scraping one product card: either a
// product, a drop by the pipeline, or a failure tagged with its stage.
type ProductResult struct {
	Category  string
	Index     int
	DetailURL string
	Product   *types.Product
	Dropped   bool
	Stage     types.Stage
	Err       error
}

func (r ProductResult) fail(err error) ProductResult {
	r.Err = err
	r.Stage = types.StageOf(err)
	return r
}

func (r ProductResult) failure() Failure {
	return Failure{Category: r.Category, Index: r.Index, URL: r.DetailURL, Stage: r.Stage, Err: r.Err}
}

// Failure is one recorded error. Index is -1 for failures that concern the
// whole category.
type Failure struct {
	Category string
	Index    int
	URL      string
	Stage    types.Stage
	Err      error
}

// CategoryReport summarizes one category.
type CategoryReport struct {
	Name    string
	URL     string
	Cards   int
	Scraped int
	Failed  int
	Dropped int
	Written bool
	Skipped bool
}

// Report summarizes a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Categories []*CategoryReport
	Failures   []Failure
}

func newReport(runID string, start time.Time) *Report {
	return &Report{RunID: runID, StartedAt: start}
}

func (r *Report) category(name string) *CategoryReport {
	cr := &CategoryReport{Name: name}
	r.Categories = append(r.Categories, cr)
	return cr
}

func (r *Report) addFailure(f Failure) {
	r.Failures = append(r.Failures, f)
}

func (r *Report) finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// TotalScraped returns the number of products written across categories.
func (r *Report) TotalScraped() int {
	n := 0
	for _, c := range r.Categories {
		if c.Written {
			n += c.Scraped
		}
	}
	return n
}

// TotalFailed returns the number of recorded failures.
func (r *Report) TotalFailed() int {
	return len(r.Failures)
}

// Written returns the names of the categories whose output was stored.
func (r *Report) Written() []string {
	var names []string
	for _, c := range r.Categories {
		if c.Written {
			names = append(names, c.Name)
		}
	}
	return names
}
