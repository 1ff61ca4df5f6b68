package evaluator

import (
	"context"
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchRunRes *Results

func BenchmarkRun(b *testing.B) {
	hub := setupHub(b)
	opt := testOptions(hub)
	opt.AdditionalStats = true

	ctx := context.Background()

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		ev, err := New(opt)
		if err != nil {
			panic(err)
		}
		benchRunRes, err = ev.Run(ctx)
		if err != nil {
			panic(err)
		}
	}

	bytes, err := json.MarshalIndent(benchRunRes.Document(), "", "  ")
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile("benchmark_summary.json", bytes, 0o644); err != nil {
		panic(err)
	}
}
