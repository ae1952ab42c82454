package strategy

import (
	"context"
	"errors"
	"testing"

	"autotrader/src/model"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_List(t *testing.T) {
	list := DefaultRegistry().List()
	names := make([]string, 0, len(list))
	for _, d := range list {
		names = append(names, d.Name)
		hasTrailing := false
		for _, p := range d.ParamSchema {
			hasTrailing = hasTrailing || p.Name == ParamTrailingStopPct
		}
		assert.True(t, hasTrailing, "%s has no trailing stop parameter", d.Name)
	}
	assert.Equal(t, []string{"bollinger", "ma_crossover", "rsi", "volatility_breakout"}, names)
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	_, err := DefaultRegistry().Build("martingale", &stubMarket{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestRegistry_ParameterValidation(t *testing.T) {
	r := DefaultRegistry()
	cases := []struct {
		name   string
		params Params
	}{
		{NameVolatilityBreakout, Params{"k": 1.5}},
		{NameVolatilityBreakout, Params{"ma_period": 0}},
		{NameVolatilityBreakout, Params{"ma_period": 2.5}},
		{NameRSI, Params{"oversold": 80, "overbought": 70}},
		{NameRSI, Params{"period": "fourteen"}},
		{NameBollinger, Params{"std_dev": 0}},
		{NameBollinger, Params{"trailing_stop_pct": 120}},
	}
	for _, tc := range cases {
		_, err := r.Build(tc.name, &stubMarket{}, tc.params)
		assert.Error(t, err, "%s %v", tc.name, tc.params)
	}
}

func TestRegistry_ParametersRoundTrip(t *testing.T) {
	s := mustBuild(t, NameRSI, &stubMarket{}, Params{"period": 9.0, "oversold": "25"})
	assert.Equal(t, map[string]any{
		"period":            9,
		"oversold":          25.0,
		"overbought":        70.0,
		"trailing_stop_pct": 5.0,
	}, s.Parameters())
	assert.Equal(t, 5.0, s.TrailingStopPct())
}

type stubAssignments struct {
	row *model.StrategyAssignment
	err error
}

func (s stubAssignments) ActiveFor(context.Context, string) (*model.StrategyAssignment, error) {
	return s.row, s.err
}

func testResolverConfig() Config {
	return Config{DefaultStrategy: NameVolatilityBreakout, DefaultTrailingStopPct: 5.0, VolatilityBreakoutK: 0.4}
}

func TestResolver_UsesActiveAssignment(t *testing.T) {
	row := &model.StrategyAssignment{Symbol: "005930", StrategyName: NameBollinger, Active: true}
	require.NoError(t, row.SetParams(map[string]any{"period": 10, "std_dev": 1.5}))

	r := NewResolver(DefaultRegistry(), &stubMarket{}, stubAssignments{row: row}, testResolverConfig(), nil)
	s, err := r.For(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, NameBollinger, s.Name())
	assert.Equal(t, 10, s.Parameters()["period"])
}

func TestResolver_FallsBackToDefault(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	bad := &model.StrategyAssignment{Symbol: "005930", StrategyName: "unknown", Active: true}

	cases := []struct {
		name string
		src  AssignmentSource
	}{
		{"no source", nil},
		{"no row", stubAssignments{}},
		{"lookup error", stubAssignments{err: errors.New("db down")}},
		{"invalid row", stubAssignments{row: bad}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(DefaultRegistry(), &stubMarket{}, tc.src, testResolverConfig(), log.WithField("component", "test"))
			s, err := r.For(context.Background(), "005930")
			require.NoError(t, err)
			assert.Equal(t, NameVolatilityBreakout, s.Name())
			assert.Equal(t, 0.4, s.Parameters()[ParamK])
			assert.Equal(t, 5.0, s.TrailingStopPct())
		})
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "invalid strategy assignment, using default", hook.LastEntry().Message)
}
