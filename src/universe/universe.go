// Package universe decides which symbols are eligible for entries.
package universe

import (
	"context"
	"fmt"
	"strings"

	"autotrader/src/controller"
	"autotrader/src/model"
	"autotrader/src/scoring"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Screener is the broker discovery surface.
type Screener interface {
	ConditionResult(ctx context.Context, userID, seq string) ([]model.Candidate, error)
	VolumeRank(ctx context.Context, minPrice, maxPrice int64) ([]model.Candidate, error)
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Ranker interface {
	Rank(ctx context.Context, symbols []string, topN int) []scoring.Scored
}

// Result is one discovery pass. FellBack marks an empty dynamic result
// replaced by the fixed list.
type Result struct {
	Source   string   `json:"source"`
	Symbols  []string `json:"symbols"`
	FellBack bool     `json:"fell_back"`
}

type Service struct {
	cfg       Config
	fixed     []string
	screener  Screener
	ranker    Ranker
	blacklist map[string]bool
	log       *logger.Entry
}

func NewService(cfg Config, fixed []string, screener Screener, ranker Ranker, log *logger.Entry) (*Service, error) {
	switch cfg.Source {
	case SourceFixed, SourceCondition, SourceVolume:
	case "":
		cfg.Source = SourceFixed
	default:
		return nil, fmt.Errorf("unknown universe source %q", cfg.Source)
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 10
	}
	if log == nil {
		log = logger.WithField("component", "universe")
	}
	bl := map[string]bool{}
	for _, s := range controller.NormalizeSymbols(cfg.Blacklist) {
		bl[s] = true
	}
	return &Service{
		cfg:       cfg,
		fixed:     controller.NormalizeSymbols(fixed),
		screener:  screener,
		ranker:    ranker,
		blacklist: bl,
		log:       log,
	}, nil
}

// Discover runs the configured source. Dynamic sources never fail: an
// error or an empty result falls back to the fixed list.
func (s *Service) Discover(ctx context.Context) Result {
	if s.cfg.Source == SourceFixed {
		return Result{Source: SourceFixed, Symbols: s.fixed}
	}

	var (
		symbols []string
		err     error
	)
	switch s.cfg.Source {
	case SourceCondition:
		symbols, err = s.byCondition(ctx)
	case SourceVolume:
		symbols, err = s.byVolume(ctx)
	}
	if err != nil {
		s.log.WithError(err).WithField("source", s.cfg.Source).Error("Discovery failed")
	}

	if len(symbols) > 0 && s.cfg.ScoringTopN > 0 && s.ranker != nil {
		symbols = scoring.Symbols(s.ranker.Rank(ctx, symbols, s.cfg.ScoringTopN))
	}

	if len(symbols) == 0 {
		s.log.WithField("source", s.cfg.Source).Warn("Discovery returned nothing, using fixed symbols")
		return Result{Source: s.cfg.Source, Symbols: s.fixed, FellBack: true}
	}

	s.log.WithFields(map[string]interface{}{
		"source":  s.cfg.Source,
		"symbols": symbols,
	}).Info("Universe discovered")
	return Result{Source: s.cfg.Source, Symbols: symbols}
}

func (s *Service) byCondition(ctx context.Context) ([]string, error) {
	if s.cfg.UserID == "" {
		return nil, fmt.Errorf("condition search requires KIS_USER_ID")
	}
	rows, err := s.screener.ConditionResult(ctx, s.cfg.UserID, s.cfg.Seq)
	if err != nil {
		return nil, fmt.Errorf("condition result: %w", err)
	}

	minPrice := decimal.NewFromInt(s.cfg.MinPrice)
	var out []string
	for _, code := range s.candidates(rows) {
		if len(out) >= s.cfg.MaxCount {
			break
		}
		price, err := s.screener.CurrentPrice(ctx, code)
		if err != nil {
			s.log.WithField("symbol", code).WithError(err).Debug("Dropping candidate, price unavailable")
			continue
		}
		if price.LessThan(minPrice) {
			s.log.WithFields(map[string]interface{}{"symbol": code, "price": price.String()}).Debug("Dropping penny stock")
			continue
		}
		out = append(out, code)
	}
	s.log.WithFields(map[string]interface{}{"rows": len(rows), "kept": len(out)}).Info("Condition search filtered")
	return out, nil
}

func (s *Service) byVolume(ctx context.Context) ([]string, error) {
	rows, err := s.screener.VolumeRank(ctx, s.cfg.MinPrice, s.cfg.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("volume rank: %w", err)
	}

	minPrice := decimal.NewFromInt(s.cfg.MinPrice)
	maxPrice := decimal.NewFromInt(s.cfg.MaxPrice)
	prices := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		prices[controller.NormalizeSymbol(r.Symbol)] = r.Price
	}

	var out []string
	for _, code := range s.candidates(rows) {
		if len(out) >= s.cfg.MaxCount {
			break
		}
		if IsPreferred(code) {
			continue
		}
		p := prices[code]
		if p.LessThan(minPrice) || p.GreaterThan(maxPrice) {
			continue
		}
		out = append(out, code)
	}
	s.log.WithFields(map[string]interface{}{"rows": len(rows), "kept": len(out)}).Info("Volume rank filtered")
	return out, nil
}

// candidates normalizes codes and drops blanks, duplicates and blacklisted symbols.
func (s *Service) candidates(rows []model.Candidate) []string {
	raw := make([]string, 0, len(rows))
	for _, r := range rows {
		raw = append(raw, r.Symbol)
	}
	var out []string
	for _, code := range controller.NormalizeSymbols(raw) {
		if s.blacklist[code] {
			continue
		}
		out = append(out, code)
	}
	return out
}

// IsPreferred reports a preferred share: KRX codes of preferred lines do
// not end in 0 (005935 for 005930).
func IsPreferred(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && code[len(code)-1] != '0'
}
