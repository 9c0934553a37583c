package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/celesta-db/celesta/internal/config"
	"github.com/celesta-db/celesta/internal/schema"
	"github.com/celesta-db/celesta/internal/scoreio"
	"github.com/celesta-db/celesta/internal/version"
)

// loadScore reads cfg.ScoreRoots and builds a Score with one Grain
// per declared grain source. Turning CelestaSQL source text into a
// grain's tables/views/sequences is the grammar front end's job
// (explicitly out of this module's core scope); loadScore only
// resolves each grain's identity — name, version, length, checksum —
// so the updater can still run its bookkeeping and DDL-phase loop
// against grains a real front end would otherwise have populated.
func loadScore(ctx context.Context, cfg *config.Config) (*schema.Score, error) {
	data, err := os.ReadFile(cfg.ScoreRoots)
	if err != nil {
		return nil, fmt.Errorf("read score roots %s: %w", cfg.ScoreRoots, err)
	}
	manifest, err := scoreio.ParseRootManifest(data)
	if err != nil {
		return nil, err
	}

	cacheDir := configDir + "/scoreio-cache"
	loader, err := scoreio.NewManifestLoader(ctx, manifest)
	if err != nil {
		return nil, err
	}
	cached, err := scoreio.NewCachingLoader(loader, cacheDir)
	if err != nil {
		return nil, err
	}

	score := schema.NewScore()
	for grainName := range manifest.Grains {
		src, err := cached.Load(ctx, grainName)
		if err != nil {
			return nil, fmt.Errorf("load grain %s: %w", grainName, err)
		}
		ver, err := version.Parse("version " + versionCommentOrDefault(src.Text))
		if err != nil {
			return nil, fmt.Errorf("grain %s: %w", grainName, err)
		}
		if err := score.AddGrain(schema.NewGrain(grainName, src.Text, ver, true)); err != nil {
			return nil, err
		}
	}

	if _, ok := score.Grain(cfg.SystemGrain); !ok {
		if err := score.AddGrain(schema.NewGrain(cfg.SystemGrain, "", mustVersion("version 1.0"), true)); err != nil {
			return nil, err
		}
	}
	if err := score.SetSystemGrain(cfg.SystemGrain); err != nil {
		return nil, err
	}

	if err := score.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize score: %w", err)
	}
	return score, nil
}

// versionCommentOrDefault looks for a leading "-- VERSION x.y.z"
// convention on a grain source's first line, falling back to "1.0"
// when absent — a stand-in for the version-tag extraction a real
// CelestaSQL grammar front end would perform.
func versionCommentOrDefault(text string) string {
	firstLine, _, _ := strings.Cut(text, "\n")
	firstLine = strings.TrimSpace(firstLine)
	const prefix = "-- VERSION "
	if strings.HasPrefix(firstLine, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(firstLine, prefix))
	}
	return "1.0"
}

func mustVersion(s string) *version.VersionString {
	v, err := version.Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
