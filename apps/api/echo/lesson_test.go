package echoapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/testutil"
)

func lessonNames(lessons []lesson.Lesson) []string {
	names := make([]string, 0, len(lessons))
	for _, l := range lessons {
		names = append(names, l.Name)
	}
	return names
}

func Test_lessonApi_create(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	other, _ := app.CreateOrganization(t, "Orca Club", "olga@orcas.test")
	kofi := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")
	starfish := app.CreateClassLevel(t, org.ID, "Starfish", "Float")
	foreign := app.CreateClassLevel(t, other.ID, "Orca pups", "Float")
	token := app.tokenOf(t, anna)
	path := "/api/organizations/" + org.ID + "/lessons"

	newLesson := func(classLevelID, instructorID, start, end string) []byte {
		return []byte(`{
			"name": "  Starfish Tuesday ",
			"class_level_id": "` + classLevelID + `",
			"instructor_id": "` + instructorID + `",
			"day_of_week": 2,
			"start_time": "09:15",
			"duration_minutes": 30,
			"capacity": 6,
			"start_date": "` + start + `",
			"end_date": "` + end + `"
		}`)
	}

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: path, token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"name": "this field is required",
				"class_level_id": "this field is required",
				"day_of_week": "this field is required",
				"start_time": "this field is required",
				"duration_minutes": "this field is required",
				"start_date": "this field is required",
				"end_date": "this field is required"
			}`),
		},
		{
			name: "end before start", method: http.MethodPost, path: path, token: token,
			body: newLesson(starfish.ID, kofi.ID, "2026-06-01", "2026-05-01"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_date": "end date cannot be before start date"}`),
		},
		{
			name: "class level of another organization", method: http.MethodPost, path: path, token: token,
			body: newLesson(foreign.ID, kofi.ID, "2026-05-01", "2026-06-01"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"class_level_id": "unknown class level"}`),
		},
		{
			name: "unknown instructor", method: http.MethodPost, path: path, token: token,
			body: newLesson(starfish.ID, starfish.ID, "2026-05-01", "2026-06-01"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"instructor_id": "unknown instructor"}`),
		},
		{
			name: "instructor cannot create", method: http.MethodPost, path: path, token: app.getToken(t, kofi.UserID),
			body: newLesson(starfish.ID, kofi.ID, "2026-05-01", "2026-06-01"), wantCode: http.StatusForbidden,
		},
	}
	app.run(t, tests)

	rec := app.do(http.MethodPost, path, token, newLesson(starfish.ID, kofi.ID, "2026-05-01", "2026-06-01"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var l lesson.Lesson
	unmarshal(t, rec, &l)
	assert.Equal(t, "Starfish Tuesday", l.Name)
	assert.Equal(t, kofi.ID, l.InstructorID)
	assert.Equal(t, "2026-05-01", l.StartDate.String())
	assert.Equal(t, 6, l.Capacity)
}

func Test_lessonApi_query(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	kofi := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")
	grace := app.CreateInstructor(t, org, "Grace Wanjiru", "grace@dolphins.test")
	mona := app.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")
	starfish := app.CreateClassLevel(t, org.ID, "Starfish", "Float")
	seahorse := app.CreateClassLevel(t, org.ID, "Seahorse", "Dive")

	app.CreateLesson(t, org.ID, starfish.ID, "Alpha", testutil.WithInstructor(kofi))
	app.CreateLesson(t, org.ID, seahorse.ID, "Bravo", testutil.WithInstructor(grace))
	app.CreateLesson(t, org.ID, starfish.ID, "Charlie")

	token := app.tokenOf(t, anna)
	path := "/api/organizations/" + org.ID + "/lessons"

	cases := []struct {
		name  string
		query string
		token string
		want  []string
	}{
		{"admin", "?ordering=name", token, []string{"Alpha", "Bravo", "Charlie"}},
		{"descending", "?ordering=-name", token, []string{"Charlie", "Bravo", "Alpha"}},
		{"by class level", "?ordering=name&class_level_id=" + starfish.ID, token, []string{"Alpha", "Charlie"}},
		{"by instructor", "?instructor_id=" + grace.ID, token, []string{"Bravo"}},
		{"by day", "?day_of_week=3", token, []string{}},
		{"instructor sees their lessons", "?ordering=name", app.getToken(t, kofi.UserID), []string{"Alpha"}},
		{"parent", "?ordering=name", app.getToken(t, mona.UserID), []string{"Alpha", "Bravo", "Charlie"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, path+tc.query, tc.token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var lessons []lesson.Lesson
			unmarshal(t, rec, &lessons)
			assert.Equal(t, tc.want, lessonNames(lessons))
		})
	}
}

func Test_lessonApi_update(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	kofi := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")
	mona := app.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")
	zuri := app.CreateChild(t, org.ID, "Zuri", "Otieno", mona)
	amir := app.CreateChild(t, org.ID, "Amir", "Otieno", mona)
	starfish := app.CreateClassLevel(t, org.ID, "Starfish", "Float")
	seahorse := app.CreateClassLevel(t, org.ID, "Seahorse", "Dive")

	empty := app.CreateLesson(t, org.ID, starfish.ID, "Empty")
	busy := app.CreateLesson(t, org.ID, starfish.ID, "Busy", testutil.WithInstructor(kofi))
	app.Enroll(t, org.ID, zuri.ID, busy.ID)
	app.Enroll(t, org.ID, amir.ID, busy.ID)

	token := app.tokenOf(t, anna)
	path := "/api/organizations/" + org.ID + "/lessons/"

	tests := []httpTest{
		{
			name: "class level of a lesson with enrollments", method: http.MethodPut, path: path + busy.ID, token: token,
			body: []byte(`{"class_level_id": "` + seahorse.ID + `"}`), wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: lesson.ErrClassLevelLocked.Error()}),
		},
		{
			name: "capacity below enrolled", method: http.MethodPut, path: path + busy.ID, token: token,
			body: []byte(`{"capacity": 1}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"capacity": "capacity cannot be lower than the number of enrolled children"}`),
		},
		{
			name: "bad start time", method: http.MethodPut, path: path + busy.ID, token: token,
			body: []byte(`{"start_time": "25:00"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "parent", method: http.MethodPut, path: path + busy.ID, token: app.getToken(t, mona.UserID),
			body: []byte(`{"name": "Mine"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "not found", method: http.MethodPut, path: path + seahorse.ID, token: token, body: []byte(`{}`), wantCode: http.StatusNotFound},
	}
	app.run(t, tests)

	t.Run("class level of an empty lesson", func(t *testing.T) {
		rec := app.do(http.MethodPut, path+empty.ID, token, []byte(`{"class_level_id": "`+seahorse.ID+`", "capacity": 4}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var l lesson.Lesson
		unmarshal(t, rec, &l)
		assert.Equal(t, seahorse.ID, l.ClassLevelID)
		assert.Equal(t, 4, l.Capacity)
	})

	t.Run("unassign the instructor", func(t *testing.T) {
		rec := app.do(http.MethodPut, path+busy.ID, token, []byte(`{"instructor_id": "", "name": "Busy Monday"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var l lesson.Lesson
		unmarshal(t, rec, &l)
		assert.Empty(t, l.InstructorID)
		assert.Equal(t, "Busy Monday", l.Name)
		assert.Equal(t, int64(2), l.EnrolledCount)

		// kofi lost access
		rec = app.do(http.MethodGet, path+busy.ID, app.getToken(t, kofi.UserID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete cascades", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path+busy.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		var enrollments []enrollment.Enrollment
		unmarshal(t, app.do(http.MethodGet, "/api/organizations/"+org.ID+"/enrollments", token), &enrollments)
		assert.Empty(t, enrollments)
		assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, path+busy.ID, token).Code)
	})
}

func Test_lessonApi_roster(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	kofi := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")
	grace := app.CreateInstructor(t, org, "Grace Wanjiru", "grace@dolphins.test")
	mona := app.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")
	zuri := app.CreateChild(t, org.ID, "Zuri", "Otieno", mona)
	amir := app.CreateChild(t, org.ID, "Amir", "Otieno", mona)
	starfish := app.CreateClassLevel(t, org.ID, "Starfish", "Float", "Kick")
	l := app.CreateLesson(t, org.ID, starfish.ID, "Starfish Monday 17:30", testutil.WithInstructor(kofi),
		testutil.WithDates(core.NewDate(core.Today().AddDate(0, 0, -7)), core.NewDate(core.Today().AddDate(0, 0, 7))))

	enr := app.Enroll(t, org.ID, zuri.ID, l.ID)
	app.Enroll(t, org.ID, amir.ID, l.ID)
	rec := app.do(http.MethodPut, "/api/organizations/"+org.ID+"/enrollments/"+enr.ID+"/progress/"+starfish.Skills[1].ID,
		app.getToken(t, kofi.UserID), []byte(`{"status": "IN_PROGRESS"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	path := "/api/organizations/" + org.ID + "/lessons/" + l.ID + "/roster.xlsx"
	app.run(t, []httpTest{
		{name: "other instructor", path: path, token: app.getToken(t, grace.UserID), wantCode: http.StatusForbidden},
		{name: "parent", path: path, token: app.getToken(t, mona.UserID), wantCode: http.StatusForbidden},
	})

	rec = app.do(http.MethodGet, path, app.getToken(t, kofi.UserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="roster-starfish-monday-17-30.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Roster")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Child", "Float", "Kick", "Ready for next level"}, rows[2])
	assert.Equal(t, []string{"Amir Otieno", "NOT_STARTED", "NOT_STARTED", "no"}, rows[3])
	assert.Equal(t, []string{"Zuri Otieno", "NOT_STARTED", "IN_PROGRESS", "no"}, rows[4])

	t.Run("progress report", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/organizations/"+org.ID+"/reports/progress", app.tokenOf(t, anna))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `[{
			"class_level_id": "`+starfish.ID+`",
			"class_level_name": "Starfish",
			"position": 0,
			"active_enrollments": 2,
			"completed_skills": 0,
			"total_skills": 4,
			"ready_for_next_level": 0
		}]`, rec.Body.String())

		rec = app.do(http.MethodGet, "/api/organizations/"+org.ID+"/reports/progress", app.getToken(t, kofi.UserID))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
