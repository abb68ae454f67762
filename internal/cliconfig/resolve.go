package cliconfig

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tracejack/internal/app"
	"github.com/bft-labs/tracejack/internal/archive"
	"github.com/bft-labs/tracejack/internal/catalog"
	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/format"
	"github.com/bft-labs/tracejack/internal/output"
	"github.com/bft-labs/tracejack/internal/plan"
	"github.com/bft-labs/tracejack/internal/rename"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

// Resolved holds the typed settings of a run.
type Resolved struct {
	App          app.Config
	Archive      archive.Options
	OutputFormat format.Format
	Catalog      *catalog.Catalog
	MetricsFile  string
	LogLevel     zerolog.Level

	// Warnings are non-fatal remarks about the configuration.
	Warnings []string
}

// Resolve parses every option into typed settings. All errors wrap
// domain.ErrInvalidConfig or a more specific sentinel and are reported
// before any window is processed.
func (c *Config) Resolve() (*Resolved, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	r := &Resolved{MetricsFile: c.MetricsFile}

	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, domain.ErrInvalidConfig)
	}
	r.LogLevel = lvl

	req, err := c.planRequest()
	if err != nil {
		return nil, err
	}
	r.App.Plan = req

	if r.App.Grouping, err = domain.ParseGrouping(c.Group); err != nil {
		return nil, err
	}
	if r.App.Rename, err = c.renameRules(); err != nil {
		return nil, err
	}

	if r.OutputFormat, err = format.Parse(c.OutputFormat); err != nil {
		return nil, fmt.Errorf("output format: %w", err)
	}
	r.App.SingleTrace = r.OutputFormat.SingleTrace()

	tpl := c.Output
	if tpl == "" {
		tpl = output.DefaultTemplate(c.OutputDir, r.OutputFormat.Extension())
	}
	if r.App.Template, err = output.ParseTemplate(tpl); err != nil {
		return nil, err
	}
	if !r.App.Template.HasTimePlaceholder() {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"output template %q has no time placeholder, later windows overwrite earlier files", tpl))
	}

	r.Archive = archive.Options{
		Paths:     append([]string(nil), c.Paths...),
		Pattern:   c.Pattern,
		CacheDir:  c.CacheDir,
		FileCache: c.FileCache,
		Watch:     c.Watch,
	}
	if c.Format != DetectFormat {
		f, err := format.Parse(c.Format)
		if err != nil {
			return nil, fmt.Errorf("input format: %w", err)
		}
		r.Archive.Format = &f
	}
	if _, err := archive.NewMatcher(c.Pattern); err != nil {
		return nil, err
	}

	if r.Catalog, err = catalog.Load(c.Stations, c.Events); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Config) planRequest() (plan.Request, error) {
	var req plan.Request
	req.Snap = c.Snap

	parseTime := func(name, s string) (*float64, error) {
		if s == "" {
			return nil, nil
		}
		t, err := timeutil.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		return &t, nil
	}
	var err error
	if req.Tmin, err = parseTime("tmin", c.Tmin); err != nil {
		return req, err
	}
	if req.Tmax, err = parseTime("tmax", c.Tmax); err != nil {
		return req, err
	}
	if req.Tmin != nil && req.Tmax != nil && *req.Tmax <= *req.Tmin {
		return req, fmt.Errorf("--tmax must be after --tmin: %w", domain.ErrInvalidConfig)
	}

	if c.Tinc != "" {
		inc, err := plan.ParseDuration(c.Tinc)
		if err != nil {
			return req, fmt.Errorf("--tinc: %w", err)
		}
		req.Increment = &inc
	}

	if c.Downsample > 0 {
		req.TargetDeltat = 1.0 / c.Downsample
	}
	return req, nil
}

func (c *Config) renameRules() (rename.Rules, error) {
	var rules rename.Rules
	for _, set := range []struct {
		field rename.Field
		exprs []string
	}{
		{rename.Network, c.RenameNetwork},
		{rename.Station, c.RenameStation},
		{rename.Location, c.RenameLocation},
		{rename.Channel, c.RenameChannel},
	} {
		for _, expr := range set.exprs {
			rule, err := rename.ParseRule(set.field, expr)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}
