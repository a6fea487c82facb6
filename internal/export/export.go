package export

import (
	"encoding/json"
	"io"
	"time"

	"evoting/portal-service/internal/models"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AuditLogs writes entries in the order given, timestamps in loc.
func AuditLogs(w io.Writer, entries []models.AuditLogEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		timestamp := ""
		if !entry.Timestamp.IsZero() {
			timestamp = entry.Timestamp.In(loc).Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []any{timestamp, entry.ActorID, entry.ActorRole, entry.Action, compactJSON(entry.Metadata)})
	}
	return write(w, "Audit Logs", []string{"Timestamp", "Actor", "Role", "Action", "Details"}, rows)
}

func Voters(w io.Writer, voters []models.Voter) error {
	rows := make([][]any, 0, len(voters))
	for _, v := range voters {
		rows = append(rows, []any{v.VoterID, v.Name, maskAadhaar(v.Aadhaar), v.Mobile, v.District, v.Block, v.LocalBody, v.Ward, v.Status, v.IsBlocked})
	}
	header := []string{"Voter ID", "Name", "Aadhaar", "Mobile", "District", "Block", "Local Body", "Ward", "Status", "Blocked"}
	return write(w, "Voters", header, rows)
}

// Results writes one row per candidate, grouped by election.
func Results(w io.Writer, results []models.ElectionResult) error {
	var rows [][]any
	for _, result := range results {
		for _, c := range result.Candidates {
			party := c.PartyName
			if c.Independent() {
				party = "Independent"
			}
			rows = append(rows, []any{result.Title, c.Name, party, c.Votes})
		}
	}
	return write(w, "Results", []string{"Election", "Candidate", "Party", "Votes"}, rows)
}

func write(w io.Writer, sheet string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func maskAadhaar(value string) string {
	if len(value) <= 4 {
		return value
	}
	masked := make([]byte, len(value))
	for i := range masked {
		masked[i] = 'X'
	}
	copy(masked[len(value)-4:], value[len(value)-4:])
	return string(masked)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
