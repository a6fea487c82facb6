package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"evoting/portal-service/internal/models"

	"github.com/xuri/excelize/v2"
)

func TestAuditLogsWorkbook(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	entries := []models.AuditLogEntry{
		{Timestamp: time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC), ActorID: "a1", ActorRole: "SUPER_ADMIN", Action: "ELECTION_CREATED", Metadata: json.RawMessage(`{ "election_id": "e1" }`)},
	}
	var buf bytes.Buffer
	if err := AuditLogs(&buf, entries, loc); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Audit Logs")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	if rows[1][0] != "2024-05-02 00:00:00" {
		t.Fatalf("expected local timestamp, got %q", rows[1][0])
	}
	if rows[1][4] != `{"election_id":"e1"}` {
		t.Fatalf("unexpected details %q", rows[1][4])
	}
}

func TestVotersMasksAadhaar(t *testing.T) {
	var buf bytes.Buffer
	if err := Voters(&buf, []models.Voter{{VoterID: "KL01", Name: "Anil", Aadhaar: "123456789012", Status: models.VoterVerified}}); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	value, err := f.GetCellValue("Voters", "C2")
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	if value != "XXXXXXXX9012" {
		t.Fatalf("expected masked aadhaar, got %q", value)
	}
}
