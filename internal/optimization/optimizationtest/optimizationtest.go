// Package optimizationtest provides datasets, objectives and assertions
// shared by the optimization tests.
package optimizationtest

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// HousePrices is the two-point training set used throughout the tests:
// size in 1000 sqft against price in $1000s.
func HousePrices() optimization.Dataset {
	return optimization.MustDataset([]float64{1.0, 2.0}, []float64{300.0, 500.0})
}

// LinearDataset generates n points on y = w·x + b with uniform noise of the
// given amplitude, x drawn uniformly from [0, 10).
func LinearDataset(rng *rand.Rand, n int, w, b, noise float64) optimization.Dataset {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64() * 10
		ys[i] = w*xs[i] + b + noise*(rng.Float64()-0.5)
	}
	return optimization.MustDataset(xs, ys)
}

// AssertFloat64SlicesEqual checks if two float64 slices are approximately equal.
func AssertFloat64SlicesEqual(t testing.TB, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}

// AssertParamsNear checks that got is within tol of want in both components.
func AssertParamsNear(t testing.TB, got, want optimization.Params, tol float64) {
	t.Helper()

	if math.Abs(got.W-want.W) > tol || math.Abs(got.B-want.B) > tol {
		t.Fatalf("params: got (w=%v, b=%v), want (w=%v, b=%v) (tolerance %v)",
			got.W, got.B, want.W, want.B, tol)
	}
}

// RecordingObserver collects every event it receives.
type RecordingObserver struct {
	mu        sync.Mutex
	progress  []optimization.Progress
	completed []*optimization.Result
}

// OnProgress implements optimization.Observer.
func (o *RecordingObserver) OnProgress(p optimization.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

// OnComplete implements optimization.Observer.
func (o *RecordingObserver) OnComplete(r *optimization.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed = append(o.completed, r)
}

// Progress returns the progress events received so far.
func (o *RecordingObserver) Progress() []optimization.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]optimization.Progress(nil), o.progress...)
}

// Completed returns the results received so far.
func (o *RecordingObserver) Completed() []*optimization.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*optimization.Result(nil), o.completed...)
}
