package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestLoad_MissingFileStartsClosed(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "trade_status.json"))
	l := Load(store, []string{"005930", "000660"}, nil)

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	for sym, p := range snap {
		assert.False(t, p.Held, sym)
		assert.NoError(t, p.Validate())
	}
}

func TestLoad_CorruptFileStartsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_status.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	log, hook := logrustest.NewNullLogger()

	l := Load(NewFileStore(path), []string{"005930"}, log.WithField("component", "ledger"))

	p, ok := l.Get("005930")
	assert.True(t, ok)
	assert.False(t, p.Held)
	assert.Equal(t, "Ledger state unreadable, starting all symbols closed", hook.LastEntry().Message)
}

func TestLoad_ReadsLegacyNumericFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_status.json")
	legacy := `{"005930": {"bought": true, "purchase_price": 71000.0, "quantity": 3, "stop_price": 67450.0},
	            "000660": {"bought": false, "purchase_price": 0.0, "quantity": 0, "stop_price": 0.0}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	l := Load(NewFileStore(path), []string{"035720"}, nil)

	p, _ := l.Get("005930")
	assert.True(t, p.Held)
	assert.Equal(t, int64(3), p.Quantity)
	assert.True(t, p.StopPrice.Equal(d(67450)))
	assert.Equal(t, []string{"005930"}, l.HeldSymbols())
	_, tracked := l.Get("035720")
	assert.True(t, tracked)
}

func TestLoad_ResetsInvalidEntries(t *testing.T) {
	store := &MemoryStore{Saved: map[string]model.Position{
		"005930": {Held: false, Quantity: 4, StopPrice: d(10)},
	}}
	l := Load(store, nil, nil)
	p, _ := l.Get("005930")
	assert.Equal(t, model.ClosedPosition(), p)
}

func TestOpenCloseRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trade_status.json")
	store := NewFileStore(path)
	l := Load(store, []string{"005930"}, nil)

	require.NoError(t, l.Open("005930", d(40000), 3, d(38000)))

	reloaded := Load(NewFileStore(path), nil, nil)
	p, _ := reloaded.Get("005930")
	assert.True(t, p.Held)
	assert.True(t, p.EntryPrice.Equal(d(40000)))
	assert.Equal(t, int64(3), p.Quantity)

	require.NoError(t, l.Close("005930"))
	reloaded = Load(NewFileStore(path), nil, nil)
	p, _ = reloaded.Get("005930")
	assert.Equal(t, model.ClosedPosition().Held, p.Held)
	assert.Equal(t, int64(0), p.Quantity)
	assert.True(t, p.StopPrice.IsZero())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRaiseStop_OnlyUpward(t *testing.T) {
	store := &MemoryStore{}
	l := Load(store, []string{"005930"}, nil)
	require.NoError(t, l.Open("005930", d(100), 1, d(95)))
	saves := store.Saves

	raised, err := l.RaiseStop("005930", d(94))
	require.NoError(t, err)
	assert.False(t, raised)
	assert.Equal(t, saves, store.Saves)

	raised, err = l.RaiseStop("005930", d(97))
	require.NoError(t, err)
	assert.True(t, raised)
	assert.Equal(t, saves+1, store.Saves)

	p, _ := l.Get("005930")
	assert.True(t, p.StopPrice.Equal(d(97)))

	require.NoError(t, l.Close("005930"))
	raised, _ = l.RaiseStop("005930", d(200))
	assert.False(t, raised, "closed positions keep a zero stop")
}

func TestSaveFailureKeepsMutation(t *testing.T) {
	boom := errors.New("disk full")
	store := &MemoryStore{SaveErr: boom}
	l := Load(store, []string{"005930"}, nil)

	err := l.Open("005930", d(100), 2, d(95))
	assert.ErrorIs(t, err, boom)

	p, _ := l.Get("005930")
	assert.True(t, p.Held)
}

func TestOpenRejectsInvalid(t *testing.T) {
	l := Load(&MemoryStore{}, nil, nil)
	assert.Error(t, l.Open("005930", d(100), -1, d(95)))
}

func TestEnsureSavesOnlyWhenAdding(t *testing.T) {
	store := &MemoryStore{}
	l := Load(store, []string{"005930"}, nil)

	require.NoError(t, l.Ensure("005930"))
	assert.Equal(t, 0, store.Saves)

	require.NoError(t, l.Ensure("005930", "000660"))
	assert.Equal(t, 1, store.Saves)
	assert.Len(t, store.Saved, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	l := Load(&MemoryStore{}, []string{"005930"}, nil)
	snap := l.Snapshot()
	snap["005930"] = model.OpenPosition(d(1), 1, d(1))

	p, _ := l.Get("005930")
	assert.False(t, p.Held)
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	l := Load(&MemoryStore{}, []string{"005930"}, nil)
	require.NoError(t, l.Open("005930", d(100), 1, d(90)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(91); i < 200; i++ {
			_, _ = l.RaiseStop("005930", d(i))
		}
	}()
	go func() {
		defer wg.Done()
		last := d(0)
		for i := 0; i < 200; i++ {
			p := l.Snapshot()["005930"]
			assert.True(t, p.StopPrice.GreaterThanOrEqual(last))
			last = p.StopPrice
		}
	}()
	wg.Wait()
}
