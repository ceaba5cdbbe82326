package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/testutil"
)

func progressByName(progress []enrollment.SkillProgress) map[string]enrollment.SkillProgress {
	res := make(map[string]enrollment.SkillProgress, len(progress))
	for _, sp := range progress {
		res[sp.SkillName] = sp
	}
	return res
}

func Test_enrollmentApi(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	kofi := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")
	mona := app.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")
	omar := app.CreateParent(t, org, "Omar Hassan", "omar@dolphins.test")
	zuri := app.CreateChild(t, org.ID, "Zuri", "Otieno", mona)
	amir := app.CreateChild(t, org.ID, "Amir", "Hassan", omar)

	starfish := app.CreateClassLevel(t, org.ID, "Starfish", "Float", "Kick", "Glide")
	seahorse := app.CreateClassLevel(t, org.ID, "Seahorse", "Breathe", "Dive")
	monday := app.CreateLesson(t, org.ID, starfish.ID, "Starfish Monday", testutil.WithInstructor(kofi), testutil.WithCapacity(1))
	friday := app.CreateLesson(t, org.ID, starfish.ID, "Starfish Friday")
	deep := app.CreateLesson(t, org.ID, seahorse.ID, "Seahorse Deep")

	adminToken := app.tokenOf(t, anna)
	kofiToken := app.getToken(t, kofi.UserID)
	monaToken := app.getToken(t, mona.UserID)
	omarToken := app.getToken(t, omar.UserID)
	base := "/api/organizations/" + org.ID + "/enrollments"

	// mona's phone gets the pushes
	rec := app.do(http.MethodPost, "/api/device-tokens", monaToken, marshalObj(t, notification.NewDeviceToken{Token: "ExponentPushToken[mona]", Platform: "ios"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// enroll
	rec = app.do(http.MethodPost, base, monaToken, marshalObj(t, enrollment.NewEnrollment{ChildID: zuri.ID, LessonID: monday.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var enr enrollment.Enrollment
	unmarshal(t, rec, &enr)
	assert.Equal(t, "Zuri Otieno", enr.ChildName)
	assert.Equal(t, monday.StartDate.String(), enr.StartDate.String())
	assert.Equal(t, monday.EndDate.String(), enr.EndDate.String())
	require.Len(t, enr.Progress, 3)
	for _, sp := range enr.Progress {
		assert.Equal(t, enrollment.StatusNotStarted, sp.Status)
	}
	float := progressByName(enr.Progress)["Float"]
	require.NotEmpty(t, float.SkillID)

	tests := []httpTest{
		{
			name: "already enrolled", method: http.MethodPost, path: base, token: adminToken,
			body: marshalObj(t, enrollment.NewEnrollment{ChildID: zuri.ID, LessonID: monday.ID}), wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: enrollment.ErrAlreadyEnrolled.Error()}),
		},
		{
			name: "lesson full", method: http.MethodPost, path: base, token: adminToken,
			body: marshalObj(t, enrollment.NewEnrollment{ChildID: amir.ID, LessonID: monday.ID}), wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: enrollment.ErrLessonFull.Error()}),
		},
		{
			name: "parent cannot enroll other children", method: http.MethodPost, path: base, token: omarToken,
			body: marshalObj(t, enrollment.NewEnrollment{ChildID: zuri.ID, LessonID: friday.ID}), wantCode: http.StatusNotFound,
		},
		{
			name: "instructor cannot enroll", method: http.MethodPost, path: base, token: kofiToken,
			body: marshalObj(t, enrollment.NewEnrollment{ChildID: zuri.ID, LessonID: friday.ID}), wantCode: http.StatusForbidden,
		},
		{name: "other parent: hidden", path: base + "/" + enr.ID, token: omarToken, wantCode: http.StatusNotFound},
		{name: "parent", path: base + "/" + enr.ID, token: monaToken},
		{name: "instructor of the lesson", path: base + "/" + enr.ID + "/progress", token: kofiToken},
		{
			name: "parent cannot record progress", method: http.MethodPut, path: base + "/" + enr.ID + "/progress/" + float.SkillID,
			token: monaToken, body: []byte(`{"status": "COMPLETED"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown status", method: http.MethodPut, path: base + "/" + enr.ID + "/progress/" + float.SkillID,
			token: kofiToken, body: []byte(`{"status": "DONE"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown skill", method: http.MethodPut, path: base + "/" + enr.ID + "/progress/" + seahorse.Skills[0].ID,
			token: kofiToken, body: []byte(`{"status": "COMPLETED"}`), wantCode: http.StatusNotFound,
		},
	}
	app.run(t, tests)

	t.Run("progress notifies the parents", func(t *testing.T) {
		app.Push.Reset()
		rec := app.do(http.MethodPut, base+"/"+enr.ID+"/progress/"+float.SkillID, kofiToken, []byte(`{"status": "COMPLETED", "notes": "floats on her back"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sp enrollment.SkillProgress
		unmarshal(t, rec, &sp)
		assert.Equal(t, enrollment.StatusCompleted, sp.Status)
		assert.Equal(t, kofi.UserID, sp.UpdatedBy)

		sent := app.Push.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "ExponentPushToken[mona]", sent[0].To)
		assert.Equal(t, "Zuri Otieno: Float is now completed", sent[0].Body)

		notifs, err := app.Notifications.Query(context.Background(), notification.QueryFilter{UserID: mona.UserID})
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, enr.ID, notifs[0].Data["enrollment_id"])
	})

	t.Run("readiness", func(t *testing.T) {
		rec := app.do(http.MethodPut, base+"/"+enr.ID+"/readiness", kofiToken, []byte(`{"ready_for_next_level": true, "notes": "strong kick"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var e enrollment.Enrollment
		unmarshal(t, rec, &e)
		assert.True(t, e.ReadyForNextLevel)
		assert.Equal(t, "strong kick", e.ReadinessNotes)

		rec = app.do(http.MethodPut, base+"/"+enr.ID+"/readiness", kofiToken, []byte(`{"notes": "missing flag"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("next: same class level carries the progress", func(t *testing.T) {
		rec := app.do(http.MethodPost, base+"/"+enr.ID+"/next", kofiToken, marshalObj(t, enrollment.NextEnrollment{LessonID: friday.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var next enrollment.Enrollment
		unmarshal(t, rec, &next)
		assert.Equal(t, zuri.ID, next.ChildID)
		assert.Equal(t, friday.ID, next.LessonID)
		assert.False(t, next.ReadyForNextLevel)

		progress := progressByName(next.Progress)
		require.Len(t, progress, 3)
		assert.Equal(t, enrollment.StatusCompleted, progress["Float"].Status)
		assert.Equal(t, "floats on her back", progress["Float"].Notes)
		assert.Equal(t, enrollment.StatusNotStarted, progress["Kick"].Status)
	})

	t.Run("next: other class level starts over", func(t *testing.T) {
		rec := app.do(http.MethodPost, base+"/"+enr.ID+"/next", adminToken, marshalObj(t, enrollment.NextEnrollment{LessonID: deep.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var next enrollment.Enrollment
		unmarshal(t, rec, &next)

		progress := progressByName(next.Progress)
		require.Len(t, progress, 2)
		for _, name := range []string{"Breathe", "Dive"} {
			assert.Equal(t, enrollment.StatusNotStarted, progress[name].Status, name)
		}

		rec = app.do(http.MethodPost, base+"/"+enr.ID+"/next", adminToken, marshalObj(t, enrollment.NextEnrollment{LessonID: deep.ID}))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("listing", func(t *testing.T) {
		var enrollments []enrollment.Enrollment
		unmarshal(t, app.do(http.MethodGet, base, monaToken), &enrollments)
		assert.Len(t, enrollments, 3)

		unmarshal(t, app.do(http.MethodGet, base, omarToken), &enrollments)
		assert.Len(t, enrollments, 0)

		// kofi only teaches monday
		unmarshal(t, app.do(http.MethodGet, base, kofiToken), &enrollments)
		require.Len(t, enrollments, 1)
		assert.Equal(t, enr.ID, enrollments[0].ID)

		unmarshal(t, app.do(http.MethodGet, base+"?lesson_id="+friday.ID, adminToken), &enrollments)
		assert.Len(t, enrollments, 1)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, base+"/"+enr.ID, omarToken).Code)
		assert.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, base+"/"+enr.ID, monaToken).Code)
		assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, base+"/"+enr.ID, adminToken).Code)

		// the seat is free again
		rec := app.do(http.MethodPost, base, adminToken, marshalObj(t, enrollment.NewEnrollment{ChildID: amir.ID, LessonID: monday.ID}))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}
