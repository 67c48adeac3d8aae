package reporting

import (
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"portfolio-sim/internal/domain"
)

// historyRow is the CSV shape of a HistoryRecord.
type historyRow struct {
	Date           string `csv:"date"`
	Price          string `csv:"price"`
	Cash           string `csv:"cash"`
	Shares         string `csv:"shares"`
	AssetValue     string `csv:"asset_value"`
	PortfolioValue string `csv:"portfolio_value"`
}

// tradeRow is the CSV shape of a ledger Trade.
type tradeRow struct {
	Date       string `csv:"date"`
	Action     string `csv:"action"`
	Shares     string `csv:"shares"`
	Price      string `csv:"price"`
	CashChange string `csv:"cash_change"`
}

// HistoryCSV writes the daily value trajectory as CSV with a header row.
func HistoryCSV(w io.Writer, history []domain.HistoryRecord) error {
	rows := make([]*historyRow, 0, len(history))
	for _, h := range history {
		rows = append(rows, &historyRow{
			Date:           h.Date.Format(domain.DateFormat),
			Price:          formatFloat(h.Price),
			Cash:           formatFloat(h.Cash),
			Shares:         formatFloat(h.Shares),
			AssetValue:     formatFloat(h.AssetValue),
			PortfolioValue: formatFloat(h.PortfolioValue),
		})
	}
	return gocsv.Marshal(&rows, w)
}

// TradesCSV writes the ledger as CSV with a header row.
func TradesCSV(w io.Writer, trades []domain.Trade) error {
	rows := make([]*tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &tradeRow{
			Date:       t.Date.Format(domain.DateFormat),
			Action:     string(t.Action),
			Shares:     formatFloat(t.Shares),
			Price:      formatFloat(t.Price),
			CashChange: formatFloat(t.CashChange),
		})
	}
	return gocsv.Marshal(&rows, w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
