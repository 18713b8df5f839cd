package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Bar is one daily OHLCV row as stored in the data files.
type Bar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// FileOracle reads daily bars from a data directory holding one JSON file
// per symbol (<SYMBOL>.json, a date -> bar map). Files are parsed once and
// cached for the life of the oracle.
type FileOracle struct {
	dir string
	log zerolog.Logger

	mu     sync.Mutex
	series map[string]map[string]Bar // symbol -> date -> bar
}

func NewFileOracle(dir string, log zerolog.Logger) *FileOracle {
	return &FileOracle{
		dir:    dir,
		log:    log,
		series: make(map[string]map[string]Bar),
	}
}

func (o *FileOracle) OpenPrices(date string, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		bars, err := o.load(sym)
		if err != nil {
			return nil, err
		}
		bar, ok := bars[date]
		if !ok || bar.Open <= 0 {
			o.log.Debug().Str("symbol", sym).Str("date", date).Msg("no open price")
			continue
		}
		out[sym] = bar.Open
	}
	return out, nil
}

func (o *FileOracle) load(symbol string) (map[string]Bar, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if bars, ok := o.series[symbol]; ok {
		return bars, nil
	}

	path := filepath.Join(o.dir, symbol+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Unknown symbol: remember the miss so we stat once.
			o.series[symbol] = nil
			return nil, nil
		}
		return nil, fmt.Errorf("pricing: read %s: %w", path, err)
	}

	var bars map[string]Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("pricing: parse %s: %w", path, err)
	}
	o.series[symbol] = bars
	return bars, nil
}
