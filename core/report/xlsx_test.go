package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lanes-app/lanes/core"
)

func TestRoster_WriteXLSX(t *testing.T) {
	r := Roster{
		LessonName: "Starfish Monday",
		StartDate:  core.NewDate(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)),
		EndDate:    core.NewDate(time.Date(2026, 12, 14, 0, 0, 0, 0, time.UTC)),
		Skills:     []RosterSkill{{ID: "s1", Name: "Float"}, {ID: "s2", Name: "Kick"}},
		Rows: []RosterRow{
			{ChildName: "Amir Hassan", ReadyForNextLevel: true, Statuses: map[string]string{"s1": "COMPLETED", "s2": "COMPLETED"}},
			{ChildName: "Zuri Otieno", Statuses: map[string]string{"s1": "IN_PROGRESS"}},
		},
	}

	content, err := r.WriteXLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{rosterSheet}, f.GetSheetList())
	title, err := f.GetCellValue(rosterSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Starfish Monday (2026-09-07 - 2026-12-14)", title)

	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Child", "Float", "Kick", "Ready for next level"}, rows[2])
	assert.Equal(t, []string{"Amir Hassan", "COMPLETED", "COMPLETED", "yes"}, rows[3])
	assert.Equal(t, []string{"Zuri Otieno", "IN_PROGRESS", "", "no"}, rows[4])
}

func TestRoster_WriteXLSX_empty(t *testing.T) {
	content, err := Roster{LessonName: "Empty"}.WriteXLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Child", "Ready for next level"}, rows[2])
}
