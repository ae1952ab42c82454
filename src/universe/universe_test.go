package universe

import (
	"context"
	"errors"
	"testing"

	"autotrader/src/model"
	"autotrader/src/scoring"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScreener struct {
	condition  []model.Candidate
	volume     []model.Candidate
	prices     map[string]int64
	err        error
	priceCalls int
}

func (s *stubScreener) ConditionResult(context.Context, string, string) ([]model.Candidate, error) {
	return s.condition, s.err
}

func (s *stubScreener) VolumeRank(context.Context, int64, int64) ([]model.Candidate, error) {
	return s.volume, s.err
}

func (s *stubScreener) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.priceCalls++
	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return decimal.NewFromInt(p), nil
}

type reverseRanker struct{ topN int }

func (r *reverseRanker) Rank(_ context.Context, symbols []string, topN int) []scoring.Scored {
	r.topN = topN
	var out []scoring.Scored
	for i := len(symbols) - 1; i >= 0 && len(out) < topN; i-- {
		out = append(out, scoring.Scored{Symbol: symbols[i]})
	}
	return out
}

func cand(symbol string, price int64) model.Candidate {
	return model.Candidate{Symbol: symbol, Price: decimal.NewFromInt(price)}
}

func baseConfig(source string) Config {
	return Config{
		Source:    source,
		UserID:    "trader1",
		MaxCount:  3,
		MinPrice:  1000,
		MaxPrice:  200000,
		Blacklist: []string{"035720"},
	}
}

func TestDiscover_Fixed(t *testing.T) {
	svc, err := NewService(baseConfig(SourceFixed), []string{"5930", "000660"}, &stubScreener{}, nil, nil)
	require.NoError(t, err)

	res := svc.Discover(context.Background())
	assert.Equal(t, []string{"005930", "000660"}, res.Symbols)
	assert.False(t, res.FellBack)
}

func TestDiscover_ConditionFilters(t *testing.T) {
	sc := &stubScreener{
		condition: []model.Candidate{
			cand("035720", 0), // blacklisted
			cand("000100", 0), // penny
			cand("000200", 0), // no quote
			cand("000300", 0),
			cand("000400", 0),
			cand("000500", 0),
			cand("000600", 0), // beyond max count
		},
		prices: map[string]int64{"000100": 500, "000300": 5000, "000400": 1000, "000500": 9000, "000600": 9000},
	}
	svc, err := NewService(baseConfig(SourceCondition), []string{"005930"}, sc, nil, nil)
	require.NoError(t, err)

	res := svc.Discover(context.Background())
	assert.Equal(t, []string{"000300", "000400", "000500"}, res.Symbols)
	assert.Equal(t, 5, sc.priceCalls)
}

func TestDiscover_VolumeFilters(t *testing.T) {
	sc := &stubScreener{volume: []model.Candidate{
		cand("005935", 60000),  // preferred
		cand("035720", 50000),  // blacklisted
		cand("000010", 500),    // below min
		cand("000020", 300000), // above max
		cand("000030", 10000),
		cand("000040", 20000),
	}}
	svc, err := NewService(baseConfig(SourceVolume), []string{"005930"}, sc, nil, nil)
	require.NoError(t, err)

	res := svc.Discover(context.Background())
	assert.Equal(t, []string{"000030", "000040"}, res.Symbols)
	assert.Equal(t, 0, sc.priceCalls)
}

func TestDiscover_RanksWhenTopNSet(t *testing.T) {
	cfg := baseConfig(SourceVolume)
	cfg.ScoringTopN = 1
	ranker := &reverseRanker{}
	sc := &stubScreener{volume: []model.Candidate{cand("000030", 10000), cand("000040", 20000)}}
	svc, err := NewService(cfg, []string{"005930"}, sc, ranker, nil)
	require.NoError(t, err)

	res := svc.Discover(context.Background())
	assert.Equal(t, []string{"000040"}, res.Symbols)
	assert.Equal(t, 1, ranker.topN)
}

func TestDiscover_FallsBackToFixed(t *testing.T) {
	cases := map[string]*stubScreener{
		"empty":  {},
		"failed": {err: errors.New("EGW00201")},
	}
	for name, sc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, err := NewService(baseConfig(SourceVolume), []string{"005930"}, sc, nil, nil)
			require.NoError(t, err)

			res := svc.Discover(context.Background())
			assert.True(t, res.FellBack)
			assert.Equal(t, []string{"005930"}, res.Symbols)
		})
	}

	cfg := baseConfig(SourceCondition)
	cfg.UserID = ""
	svc, err := NewService(cfg, []string{"005930"}, &stubScreener{condition: []model.Candidate{cand("000300", 0)}}, nil, nil)
	require.NoError(t, err)
	assert.True(t, svc.Discover(context.Background()).FellBack)
}

func TestNewService_RejectsUnknownSource(t *testing.T) {
	_, err := NewService(Config{Source: "magic"}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestIsPreferred(t *testing.T) {
	if !IsPreferred("005935") || IsPreferred("005930") || IsPreferred("") {
		t.Fatalf("unexpected preferred share classification")
	}
}
