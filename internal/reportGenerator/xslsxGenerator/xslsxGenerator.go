package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"aegis/internal/model"
	"aegis/utils"
	"github.com/xuri/excelize/v2"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillLedgerSheet(f, report); err != nil {
		slog.Error("got error while filling ledger sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillTaxSheet(f, report); err != nil {
		slog.Error("got error while filling tax sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillHistorySheet(f, report); err != nil {
		slog.Error("got error while filling history sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	// drop the default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XSLSXGenerator) fillLedgerSheet(f *excelize.File, report model.LedgerReport) error {
	const sheetName = "Ledger"

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// cash events block
	if err := f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Cash events")

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "kind")
	_ = f.SetCellStr(sheetName, "C2", "KRW")
	_ = f.SetCellStr(sheetName, "D2", "USD")
	_ = f.SetCellStr(sheetName, "E2", "rate")

	for i, event := range report.CashEvents {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), event.Date.Format("2006-01-02"))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(event.Kind))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), event.AmountKRW.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), event.AmountUSD.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), event.Rate.InexactFloat64())
	}

	// trade events block
	if err := f.MergeCell(sheetName, "G1", "M1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "G1", "Trade events")

	styleID, err = g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "G1", "G1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "G2", "date")
	_ = f.SetCellStr(sheetName, "H2", "ticker")
	_ = f.SetCellStr(sheetName, "I2", "action")
	_ = f.SetCellStr(sheetName, "J2", "qty")
	_ = f.SetCellStr(sheetName, "K2", "price")
	_ = f.SetCellStr(sheetName, "L2", "fee")
	_ = f.SetCellStr(sheetName, "M2", "rate")

	for i, event := range report.TradeEvents {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", row), event.Date.Format("2006-01-02"))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("H%d", row), event.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("I%d", row), string(event.Action))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), event.Qty.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), event.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("L%d", row), event.Fee.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("M%d", row), event.Rate.InexactFloat64())
	}

	// summary block
	rowNum := max(len(report.CashEvents), len(report.TradeEvents)) + 5

	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("C%d", rowNum)); err != nil {
		return err
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Summary")

	styleID, err = g.headerStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+1), "KRW balance")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+1), report.Balance.KRW.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+2), "USD balance")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+2), report.Balance.USD.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+3), "avg exchange rate")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+3), report.CostBasis.AvgRate.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+4), "USD principal")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+4), report.CostBasis.USDPrincipal.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+5), "KRW principal")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+5), report.CostBasis.KRWPrincipal.InexactFloat64())

	return nil
}

func (g *XSLSXGenerator) fillTaxSheet(f *excelize.File, report model.LedgerReport) error {
	const sheetName = "Tax"

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "C1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Realized gains %d", report.Tax.Year))

	styleID, err := g.headerStyle(f, "#f4cccc")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "ticker")
	_ = f.SetCellStr(sheetName, "C2", "profit KRW")

	for i, gain := range report.Tax.Gains {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), gain.Date.Format("2006-01-02"))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), gain.Ticker)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), gain.ProfitKRW.InexactFloat64())
	}

	rowNum := len(report.Tax.Gains) + 4
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "realized total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), report.Tax.RealizedKRW.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+1), "estimated tax")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+1), report.Tax.EstimatedTaxKRW.InexactFloat64())
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum+2), "remaining allowance")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum+2), report.Tax.RemainingAllowance.InexactFloat64())

	return nil
}

func (g *XSLSXGenerator) fillHistorySheet(f *excelize.File, report model.LedgerReport) error {
	const sheetName = "History"

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Daily balances")

	styleID, err := g.headerStyle(f, "#cccccc")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "KRW")
	_ = f.SetCellStr(sheetName, "C2", "USD")
	_ = f.SetCellStr(sheetName, "D2", "net deposits")

	for i, snapshot := range report.History {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), snapshot.Date.Format("2006-01-02"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), snapshot.KRW.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), snapshot.USD.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), snapshot.NetDeposits.InexactFloat64())
	}

	return nil
}
