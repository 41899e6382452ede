package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/reconcileai/reconcileai/internal/entity"
)

func (e *Extractor) parseCSV(doc Document) ([]entity.Transaction, error) {
	r := csv.NewReader(bytes.NewReader(doc.Data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := mapColumns(records[0])
	if !cols.usable() {
		e.logger.Warn("extract.csv.no_amount_column", "file", doc.Name, "header", records[0])
		return nil, nil
	}

	prefix := prefixOr(doc.IDPrefix, "csv")
	txs := make([]entity.Transaction, 0, len(records)-1)
	for _, row := range records[1:] {
		if tx, ok := e.rowTransaction(row, cols, prefix, len(txs)+1); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
