package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

var (
	symbols    = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "NFLX"}
	symbolBase = map[string]float64{
		"AAPL": 190, "MSFT": 420, "GOOGL": 145, "AMZN": 180, "TSLA": 220, "NVDA": 800, "NFLX": 550,
	}
	portfolios = []string{"pf-alpha", "pf-bravo", "pf-charlie", "pf-delta"}
)

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func pick[T any](xs []T) T { return xs[rng.Intn(len(xs))] }

func genTrade() tradeevent.TradeEvent {
	sym := pick(symbols)
	base := symbolBase[sym]
	price := round(base*(1+(rng.Float64()-0.5)*0.03), 2)

	side := tradeevent.SideBuy
	if rng.Intn(2) == 0 {
		side = tradeevent.SideSell
	}

	return tradeevent.TradeEvent{
		TradeID:        uuid.NewString(),
		PortfolioID:    pick(portfolios),
		Symbol:         sym,
		Side:           side,
		PricePerStock:  price,
		Quantity:       int64(rng.Intn(50) + 1),
		EventTimestamp: time.Now().UTC(),
	}
}
