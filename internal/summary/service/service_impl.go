package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/nomadlabs/atlas/internal/clock"
	"github.com/nomadlabs/atlas/internal/config"
	countrydomain "github.com/nomadlabs/atlas/internal/country/domain"
	statusdomain "github.com/nomadlabs/atlas/internal/status/domain"
	"github.com/nomadlabs/atlas/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const summaryHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Atlas Summary</title>
  <style>
    body {
      margin: 0;
      padding: 40px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .card {
      background: #ffffff;
      max-width: 720px;
      margin: 0 auto;
      padding: 48px;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
      border-radius: 4px;
    }
    h1 { margin: 0 0 8px; font-size: 22px; }
    .meta { color: #8792a2; font-size: 13px; margin-bottom: 32px; }
    table { width: 100%; border-collapse: collapse; }
    th {
      text-align: left;
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      padding: 8px 12px;
      border-bottom: 2px solid #e3e8ee;
    }
    td { padding: 10px 12px; border-bottom: 1px solid #e3e8ee; font-size: 14px; }
    td.num { text-align: right; font-variant-numeric: tabular-nums; }
  </style>
</head>
<body>
  <div class="card">
    <h1>Top {{len .Countries}} countries by estimated GDP</h1>
    <div class="meta">
      {{.Status.TotalCountries}} countries tracked
      {{- if .Status.LastRefreshedAt}}, last refreshed {{.Status.LastRefreshedAt.Format "2006-01-02 15:04:05 UTC"}}{{end}}
      &middot; generated {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}
    </div>
    <table>
      <thead>
        <tr><th>#</th><th>Country</th><th>Region</th><th>Currency</th><th>Estimated GDP</th></tr>
      </thead>
      <tbody>
        {{- range $i, $c := .Countries}}
        <tr>
          <td>{{inc $i}}</td>
          <td>{{$c.Name}}</td>
          <td>{{deref $c.Region}}</td>
          <td>{{deref $c.CurrencyCode}}</td>
          <td class="num">{{gdp $c.EstimatedGDP}}</td>
        </tr>
        {{- end}}
      </tbody>
    </table>
  </div>
</body>
</html>
`

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Holder      *config.RefreshConfigHolder
	CountryRepo countrydomain.Repository
	StatusSvc   statusdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	holder      *config.RefreshConfigHolder
	countryRepo countrydomain.Repository
	statusSvc   statusdomain.Service
	tmpl        *template.Template
}

func New(p Params) (domain.Generator, error) {
	tmpl, err := template.New("summary").Funcs(template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"deref": derefString,
		"gdp":   formatGDP,
	}).Parse(summaryHTMLTemplate)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:          p.DB,
		log:         p.Log.Named("summary.service"),
		clock:       p.Clock,
		holder:      p.Holder,
		countryRepo: p.CountryRepo,
		statusSvc:   p.StatusSvc,
		tmpl:        tmpl,
	}, nil
}

func (s *Service) Generate(ctx context.Context) error {
	cfg := s.holder.Current()

	top, err := s.countryRepo.TopByEstimatedGDP(ctx, s.db, cfg.SummaryTopN)
	if err != nil {
		return fmt.Errorf("load top countries: %w", err)
	}
	status, err := s.statusSvc.Get(ctx)
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}

	var buf bytes.Buffer
	err = s.tmpl.Execute(&buf, map[string]any{
		"Countries":   top,
		"Status":      status,
		"GeneratedAt": s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	// Write to a sibling temp file first so readers never see a torn artifact.
	path := cfg.SummaryPath
	tmp := path + ".tmp"
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}

	s.log.Info("summary rendered",
		zap.String("path", path),
		zap.Int("countries", len(top)),
	)
	return nil
}

func (s *Service) Read(ctx context.Context) ([]byte, error) {
	_ = ctx
	data, err := os.ReadFile(s.holder.Current().SummaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotGenerated
		}
		return nil, err
	}
	return data, nil
}

func derefString(v *string) string {
	if v == nil {
		return "—"
	}
	return *v
}

func formatGDP(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *v)
}
