package inventory

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/erazemk/popis/internal/model"
)

// ExportFilename is the suggested name of the exported file.
const ExportFilename = "inventory_management.csv"

// exportHeader lists the exported columns. Conditions and the used breakdown
// are not exported.
var exportHeader = []string{
	"Type", "Description", "QTY Total", "Status", "Source",
	"From", "To", "Location Used", "QTY Used", "QTY Excess",
}

// ExportSnapshot writes the current list (not a fresh fetch, and ignoring the
// search) as CSV: a header line, then one line per record with every field
// double-quoted. Lines are separated by "\n" with no trailing newline.
func (c *Controller) ExportSnapshot(w io.Writer) error {
	return WriteCSV(w, c.Records())
}

// WriteCSV writes records in the export format.
func WriteCSV(w io.Writer, records []model.InventoryRecord) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(exportHeader, ","))

	for _, rec := range records {
		row := []string{
			rec.Type,
			rec.Description,
			strconv.Itoa(rec.QtyTotal),
			string(rec.Status),
			rec.Source,
			rec.From,
			rec.To,
			rec.LocationUsed,
			strconv.Itoa(rec.QtyUsed),
			strconv.Itoa(rec.QtyExcess),
		}
		bw.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			bw.WriteByte('"')
		}
	}
	return bw.Flush()
}
