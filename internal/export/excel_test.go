package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/garyjia/reimbursement-bot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExcelExporter_Write(t *testing.T) {
	exporter := NewExcelExporter(zap.NewNop())

	requests := []*repository.CompletedRequest{
		{
			ID:          1,
			RequesterID: "ou_alice",
			Fields: map[string]string{
				"merchant":       "Sample Coffee Shop",
				"date":           "2026-08-20",
				"total":          "24.50",
				"currency":       "USD",
				"payment_method": "card",
				"project":        "Atlas",
			},
			CompletedAt: time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
		},
		{
			ID:          2,
			RequesterID: "ou_bob",
			Fields:      map[string]string{"merchant": "Taxi Co"},
			CompletedAt: time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(&buf, requests))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Requester", rows[0][1])

	assert.Equal(t, "ou_alice", rows[1][1])
	assert.Equal(t, "Sample Coffee Shop", rows[1][2])
	assert.Equal(t, "24.50", rows[1][4])
	assert.Equal(t, "project: Atlas", rows[1][7])
	assert.Equal(t, "2026-08-20 14:30:00", rows[1][8])

	assert.Equal(t, "ou_bob", rows[2][1])
	assert.Equal(t, "Taxi Co", rows[2][2])
}

func TestExcelExporter_WriteEmpty(t *testing.T) {
	exporter := NewExcelExporter(zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header row")
}

func TestExtraDetails(t *testing.T) {
	assert.Equal(t, "", extraDetails(map[string]string{"merchant": "X"}))
	assert.Equal(t, "a: 1; b: 2", extraDetails(map[string]string{"b": "2", "a": "1", "total": "9"}))
}
