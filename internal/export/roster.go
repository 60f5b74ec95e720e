// Package export writes the rendered catalog as a spreadsheet roster.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"mergington/signup/internal/render"
)

const SheetName = "Roster"

var (
	header = []interface{}{"Activity", "Schedule", "Spots left", "Participant"}

	ErrNoCatalog = errors.New("catalog_unavailable")
)

// WriteRoster writes one row per participant; activities nobody joined get a
// single row with an empty participant cell.
func WriteRoster(w io.Writer, view render.View) error {
	if view.Error != "" {
		return ErrNoCatalog
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, card := range view.Cards {
		participants := make([]string, 0, len(card.Participants))
		for _, p := range card.Participants {
			participants = append(participants, p.Email)
		}
		if len(participants) == 0 {
			participants = append(participants, "")
		}
		for _, email := range participants {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{card.Name, card.Schedule, card.SpotsLeft, email}
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetColWidth(SheetName, "A", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "D", "D", 32); err != nil {
		return err
	}
	return f.Write(w)
}
