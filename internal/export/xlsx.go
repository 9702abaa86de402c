// Package export writes run results in formats the outreach team can
// consume directly.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscout/internal/model"
)

var prospectHeader = []string{
	"Company", "Domain", "Website", "Industry", "City", "State", "Phone",
	"Rating", "Reviews", "ICP Score", "Primary Contact", "Contact Title",
	"Contact Email", "Contact LinkedIn", "Stages Completed",
}

// WriteXLSX writes the report's qualified prospects to an XLSX workbook
// at path: one prospect per row, primary contact inline.
func WriteXLSX(report *model.RunReport, path string) error {
	if report == nil {
		return eris.New("export: nil report")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Prospects")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range prospectHeader {
		header.AddCell().SetString(h)
	}

	for _, p := range report.Prospects {
		row := sheet.AddRow()
		row.AddCell().SetString(p.CompanyName)
		row.AddCell().SetString(p.Domain)
		row.AddCell().SetString(p.Website)
		row.AddCell().SetString(p.Industry)
		row.AddCell().SetString(p.Location.City)
		row.AddCell().SetString(p.Location.State)
		row.AddCell().SetString(p.Phone)
		row.AddCell().SetFloat(p.Rating)
		row.AddCell().SetInt(p.ReviewCount)
		row.AddCell().SetFloat(p.ICPScore)

		if c := p.PrimaryContact(); c != nil {
			row.AddCell().SetString(c.Name)
			row.AddCell().SetString(c.Title)
			row.AddCell().SetString(c.Email)
			row.AddCell().SetString(c.LinkedIn)
		} else {
			for i := 0; i < 4; i++ {
				row.AddCell()
			}
		}

		row.AddCell().SetInt(p.Stages.Count())
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
