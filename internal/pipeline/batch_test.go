package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/depscan/internal/model"
)

func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	factory := func(string) *Pipeline { return New() }

	tests := []struct {
		name        string
		opts        []BatchOption
		concurrency int
		source      string
	}{
		{"defaults", nil, DefaultBatchConcurrency, model.SourceGitHub},
		{"custom concurrency", []BatchOption{WithConcurrency(7)}, 7, model.SourceGitHub},
		{"non-positive concurrency ignored", []BatchOption{WithConcurrency(0)}, DefaultBatchConcurrency, model.SourceGitHub},
		{"custom source", []BatchOption{WithSource(model.SourceLocal)}, DefaultBatchConcurrency, model.SourceLocal},
		{"nil logger replaced", []BatchOption{WithBatchLogger(nil)}, DefaultBatchConcurrency, model.SourceGitHub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bp := NewBatchProcessor(factory, tt.opts...)
			if bp.concurrency != tt.concurrency {
				t.Errorf("expected concurrency %d, got %d", tt.concurrency, bp.concurrency)
			}
			if bp.source != tt.source {
				t.Errorf("expected source %q, got %q", tt.source, bp.source)
			}
			if bp.logger == nil {
				t.Error("expected non-nil logger")
			}
		})
	}
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns reports in input order", func(t *testing.T) {
		t.Parallel()

		targets := []string{"https://github.com/a/one", "https://github.com/a/two", "https://github.com/a/three"}
		bp := NewBatchProcessor(func(target string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "record",
				doFunc: func(_ context.Context, report *model.ScanReport) error {
					report.Manifest = target
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		reports, err := bp.ProcessBatch(context.Background(), targets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(targets) {
			t.Fatalf("expected %d reports, got %d", len(targets), len(reports))
		}
		for i, r := range reports {
			if r.Target != targets[i] || r.Manifest != targets[i] {
				t.Errorf("report %d: got target %q, expected %q", i, r.Target, targets[i])
			}
		}
	})

	t.Run("failed scans do not stop the batch", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(target string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "maybe-fail",
				doFunc: func(_ context.Context, _ *model.ScanReport) error {
					if target == "bad" {
						return errors.New("boom")
					}
					return nil
				},
			})
			return p
		})

		reports, err := bp.ProcessBatch(context.Background(), []string{"good", "bad", "good"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[1].ErrorMessage != "boom" {
			t.Errorf("expected failure recorded, got %q", reports[1].ErrorMessage)
		}
		if reports[0].Error != nil || reports[2].Error != nil {
			t.Error("successful scans should have no error")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(_ context.Context, _ *model.ScanReport) error {
					n := current.Add(1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					current.Add(-1)
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		if _, err := bp.ProcessBatch(context.Background(), []string{"a", "b", "c", "d", "e"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent scans, got %d", peak.Load())
		}
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		if _, err := bp.ProcessBatch(ctx, []string{"a", "b"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(func(string) *Pipeline { return New() }, WithSource(model.SourceLocal))
	err := bp.ProcessBatchWithCallback(context.Background(), []string{"x", "y"}, func(report *model.ScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = report.Target
		if report.Source != model.SourceLocal {
			t.Errorf("expected source local, got %q", report.Source)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "x" || seen[1] != "y" {
		t.Errorf("unexpected callbacks: %v", seen)
	}
}
