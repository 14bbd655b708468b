package reporting

import (
	"fmt"
	"strings"

	"github.com/skpark33/bnf-stock/internal/domain"
)

// RenderSignalsCSV renders signal records as a CSV string.
func RenderSignalsCSV(signals []domain.SignalRecord) string {
	var sb strings.Builder

	sb.WriteString("signal_date,code,name,strategy,entry_price,")
	sb.WriteString("stop_loss,stop_loss_pct,take_profit_1,take_profit_1_pct,take_profit_2,take_profit_2_pct,support_low,")
	sb.WriteString("volume_ratio,macd,macd_signal,rsi,adx,ma60,ma120\n")

	for _, s := range signals {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.0f,%.0f,%.2f,%.0f,%.2f,%.0f,%.2f,%.0f,%.2f,%.4f,%.4f,%.2f,%.2f,%.0f,%.0f\n",
			s.SignalDate,
			s.Code,
			csvEscape(s.Name),
			s.Strategy,
			s.EntryPrice,
			s.StopLoss,
			s.StopLossPct,
			s.TakeProfit1,
			s.TakeProfit1Pct,
			s.TakeProfit2,
			s.TakeProfit2Pct,
			s.SupportLow,
			s.Snapshot.VolumeRatio,
			s.Snapshot.MACD,
			s.Snapshot.MACDSignal,
			s.Snapshot.RSI,
			s.Snapshot.ADX,
			s.Snapshot.MA60,
			s.Snapshot.MA120,
		))
	}

	return sb.String()
}

// RenderResultsCSV renders exit results as a CSV string.
func RenderResultsCSV(results []domain.ExitResult) string {
	var sb strings.Builder

	sb.WriteString("signal_id,code,strategy,entry_date,entry_price,exit_date,exit_reason,return_pct,first_exit_date,first_exit_reason\n")

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.0f,%s,%s,%.2f,%s,%s\n",
			r.SignalID,
			r.Code,
			r.Strategy,
			r.EntryDate,
			r.EntryPrice,
			r.ExitDate,
			r.ExitReason,
			r.ReturnPct,
			r.FirstExitDate,
			r.FirstExitReason,
		))
	}

	return sb.String()
}

// csvEscape quotes a field containing separators. Instrument names can
// carry commas.
func csvEscape(field string) string {
	if strings.ContainsAny(field, ",\"\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}
