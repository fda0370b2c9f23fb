// Package report reduces a run's ledger into round-trip trades and summary
// statistics, and exports them for offline analysis.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/tradesim/tradesim/internal/account"
	"github.com/tradesim/tradesim/internal/types"
)

// Trade is one realized round trip reconstructed from the ledger. Partial
// closes produce one Trade per closing fill, with opening commission
// attributed proportionally to the closed size.
type Trade struct {
	Instrument string          `json:"instrument"`
	Direction  types.Direction `json:"direction"`
	EntryTime  time.Time       `json:"entryTime"`
	ExitTime   time.Time       `json:"exitTime"`
	EntryPrice float64         `json:"entryPrice"`
	ExitPrice  float64         `json:"exitPrice"`
	Size       float64         `json:"size"`
	PnL        float64         `json:"pnl"`
	Reason     string          `json:"reason"`
}

type openLot struct {
	size       float64 // signed
	avgEntry   float64
	openTime   time.Time
	commission float64 // opening commissions not yet attributed
}

// TradesFromLedger replays the ledger and pairs every closing fill with the
// position it reduces. Entries never flip sign in one fill, so a reducing
// fill always closes against the current lot.
func TradesFromLedger(l *account.Ledger) []Trade {
	open := make(map[string]*openLot)
	var trades []Trade

	for _, e := range l.Entries() {
		lot := open[e.Instrument]
		if lot == nil || lot.size == 0 {
			open[e.Instrument] = &openLot{
				size:       e.SizeDelta,
				avgEntry:   e.FillPrice,
				openTime:   e.Timestamp,
				commission: e.Commission,
			}
			continue
		}

		if sameSign(lot.size, e.SizeDelta) {
			// growing the lot re-averages the entry, mirroring the account
			total := lot.size + e.SizeDelta
			lot.avgEntry = (lot.avgEntry*lot.size + e.FillPrice*e.SizeDelta) / total
			lot.size = total
			lot.commission += e.Commission
			continue
		}

		closed := math.Abs(e.SizeDelta)
		dirSign := 1.0
		dir := types.LONG
		if lot.size < 0 {
			dirSign = -1.0
			dir = types.SHORT
		}
		commShare := lot.commission * closed / math.Abs(lot.size)

		trades = append(trades, Trade{
			Instrument: e.Instrument,
			Direction:  dir,
			EntryTime:  lot.openTime,
			ExitTime:   e.Timestamp,
			EntryPrice: lot.avgEntry,
			ExitPrice:  e.FillPrice,
			Size:       closed,
			PnL:        closed*(e.FillPrice-lot.avgEntry)*dirSign - commShare - e.Commission,
			Reason:     e.Reason,
		})

		lot.size += e.SizeDelta
		lot.commission -= commShare
		if lot.size == 0 {
			delete(open, e.Instrument)
		}
	}

	return trades
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

type Results struct {
	InitialBalance float64
	FinalBalance   float64
	Trades         []Trade

	stats *Statistics
}

// FromLedger builds the results view for one finished run.
func FromLedger(l *account.Ledger) *Results {
	return &Results{
		InitialBalance: l.InitialBalance(),
		FinalBalance:   l.Replay(),
		Trades:         TradesFromLedger(l),
	}
}

type Statistics struct {
	// Basic
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`

	// P&L
	TotalPnL        float64 `json:"totalPnl"`
	TotalPnLPercent float64 `json:"totalPnlPercent"`
	GrossProfit     float64 `json:"grossProfit"`
	GrossLoss       float64 `json:"grossLoss"`
	ProfitFactor    float64 `json:"profitFactor"`

	// Averages
	AvgWin        float64 `json:"avgWin"`
	AvgLoss       float64 `json:"avgLoss"`
	ExpectedValue float64 `json:"expectedValue"`
	SharpeRatio   float64 `json:"sharpeRatio"`

	// Risk
	MaxDrawdown        float64 `json:"maxDrawdown"`
	MaxDrawdownPercent float64 `json:"maxDrawdownPercent"`

	// Duration
	AvgTradeDuration time.Duration `json:"avgTradeDuration"`
}

func (r *Results) Calculate() *Statistics {
	if r.stats != nil {
		return r.stats
	}

	stats := &Statistics{
		TotalTrades: len(r.Trades),
	}

	if len(r.Trades) == 0 {
		r.stats = stats
		return stats
	}

	var totalWin, totalLoss float64
	var totalDuration time.Duration
	peak := r.InitialBalance
	var maxDD float64
	runningBalance := r.InitialBalance

	for _, trade := range r.Trades {
		if trade.PnL > 0 {
			stats.WinningTrades++
			totalWin += trade.PnL
		} else if trade.PnL < 0 {
			stats.LosingTrades++
			totalLoss += trade.PnL // already negative
		}

		runningBalance += trade.PnL
		if runningBalance > peak {
			peak = runningBalance
		}
		if dd := peak - runningBalance; dd > maxDD {
			maxDD = dd
		}

		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100

	stats.GrossProfit = totalWin
	stats.GrossLoss = totalLoss
	stats.TotalPnL = r.FinalBalance - r.InitialBalance
	stats.TotalPnLPercent = (stats.TotalPnL / r.InitialBalance) * 100

	if totalLoss != 0 {
		stats.ProfitFactor = totalWin / -totalLoss
	}

	if stats.WinningTrades > 0 {
		stats.AvgWin = totalWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = totalLoss / float64(stats.LosingTrades)
	}
	stats.ExpectedValue = stats.TotalPnL / float64(stats.TotalTrades)
	stats.SharpeRatio = sharpe(r.Trades)

	stats.MaxDrawdown = maxDD
	if peak > 0 {
		stats.MaxDrawdownPercent = (maxDD / peak) * 100
	}

	stats.AvgTradeDuration = totalDuration / time.Duration(stats.TotalTrades)

	r.stats = stats
	return stats
}

// sharpe is the per-trade Sharpe ratio: mean PnL over its standard deviation,
// unannualized. Undefined below two trades or with zero variance.
func sharpe(trades []Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	var sum float64
	for _, t := range trades {
		sum += t.PnL
	}
	mean := sum / float64(len(trades))

	var variance float64
	for _, t := range trades {
		d := t.PnL - mean
		variance += d * d
	}
	variance /= float64(len(trades) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

func (s *Statistics) Print() {
	fmt.Println("\n=== Run Results ===")
	fmt.Printf("Total Trades:     %d\n", s.TotalTrades)
	fmt.Printf("Winning Trades:   %d (%.2f%%)\n", s.WinningTrades, s.WinRate)
	fmt.Printf("Losing Trades:    %d\n\n", s.LosingTrades)

	fmt.Printf("Total P&L:        %.2f (%.2f%%)\n", s.TotalPnL, s.TotalPnLPercent)
	fmt.Printf("Gross Profit:     %.2f\n", s.GrossProfit)
	fmt.Printf("Gross Loss:       %.2f\n", s.GrossLoss)
	fmt.Printf("Profit Factor:    %.2f\n\n", s.ProfitFactor)

	fmt.Printf("Avg Win:          %.2f\n", s.AvgWin)
	fmt.Printf("Avg Loss:         %.2f\n", s.AvgLoss)
	fmt.Printf("Expected Value:   %.2f per trade\n", s.ExpectedValue)
	fmt.Printf("Sharpe Ratio:     %.2f\n\n", s.SharpeRatio)

	fmt.Printf("Max Drawdown:     %.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPercent)
	fmt.Printf("Avg Duration:     %s\n", s.AvgTradeDuration.Round(time.Minute))
}

func (r *Results) PrintTrades() {
	fmt.Println("\n=== Trade List ===")
	for i, trade := range r.Trades {
		fmt.Printf("#%d | %s | Entry: %.5f | Exit: %.5f | P&L: %.2f | %s | %s\n",
			i+1,
			trade.Direction,
			trade.EntryPrice,
			trade.ExitPrice,
			trade.PnL,
			trade.Reason,
			trade.EntryTime.Format("2006-01-02 15:04"),
		)
	}
}
