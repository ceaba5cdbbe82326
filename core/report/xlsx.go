package report

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Roster"

// WriteXLSX renders the roster as a spreadsheet: child, then a column per skill, then readiness.
func (r Roster) WriteXLSX() ([]byte, error) {
	f := excelize.NewFile()
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	title := fmt.Sprintf("%s (%s - %s)", r.LessonName, r.StartDate, r.EndDate)
	if err := f.SetCellValue(rosterSheet, "A1", title); err != nil {
		return nil, errors.Wrap(err, "writing title")
	}

	header := make([]interface{}, 0, len(r.Skills)+2)
	header = append(header, "Child")
	for _, sk := range r.Skills {
		header = append(header, sk.Name)
	}
	header = append(header, "Ready for next level")
	if err := f.SetSheetRow(rosterSheet, "A3", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}

	for i, row := range r.Rows {
		values := make([]interface{}, 0, len(header))
		values = append(values, row.ChildName)
		for _, sk := range r.Skills {
			values = append(values, row.Statuses[sk.ID])
		}
		ready := "no"
		if row.ReadyForNextLevel {
			ready = "yes"
		}
		values = append(values, ready)

		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, errors.Wrap(err, "computing cell")
		}
		if err = f.SetSheetRow(rosterSheet, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+1)
		}
	}

	if err := f.SetPanes(rosterSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      3,
		TopLeftCell: "B4",
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, errors.Wrap(err, "freezing panes")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing spreadsheet")
	}
	return buf.Bytes(), nil
}
