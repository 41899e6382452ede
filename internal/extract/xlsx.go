package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/reconcileai/reconcileai/internal/entity"
)

func (e *Extractor) parseXLSX(doc Document) ([]entity.Transaction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("extract.xlsx.close_error", "file", doc.Name, "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := mapColumns(rows[0])
	if !cols.usable() {
		e.logger.Warn("extract.xlsx.no_amount_column", "file", doc.Name, "header", rows[0])
		return nil, nil
	}

	prefix := prefixOr(doc.IDPrefix, "xlsx")
	txs := make([]entity.Transaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tx, ok := e.rowTransaction(row, cols, prefix, len(txs)+1); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
