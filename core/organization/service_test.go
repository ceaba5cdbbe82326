package organization_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/testutil"
)

var tables = []string{
	"organizations", "users", "admins", "instructors", "parents", "children", "parent_children",
	"class_levels", "skills", "lessons", "enrollments", "skill_progress", "notifications", "device_tokens",
}

func countRows(t *testing.T, env *testutil.Env) map[string]int64 {
	t.Helper()
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		require.NoError(t, env.DB.Table(table).Count(&n).Error, table)
		counts[table] = n
	}
	return counts
}

// populate fills the organization with one row or more of every kind.
func populate(t *testing.T, env *testutil.Env, org organization.Organization, domain string) {
	t.Helper()
	ctx := context.Background()
	ins := env.CreateInstructor(t, org, "Kofi Mensah", "kofi@"+domain)
	prt := env.CreateParent(t, org, "Mona Otieno", "mona@"+domain)
	c := env.CreateChild(t, org.ID, "Zuri", "Otieno", prt)
	cl := env.CreateClassLevel(t, org.ID, "Starfish", "Float", "Kick")
	l := env.CreateLesson(t, org.ID, cl.ID, "Starfish Monday", testutil.WithInstructor(ins))
	env.Enroll(t, org.ID, c.ID, l.ID)

	_, err := env.Notifications.RegisterDevice(ctx, prt.UserID, notification.NewDeviceToken{Token: "ExponentPushToken[" + domain + "]"})
	require.NoError(t, err)
	env.Notifications.NotifyUsers(ctx, []string{prt.UserID, ins.UserID}, "Welcome", "Lessons start on Monday", nil)
}

func Test_Service_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	doomed, _ := env.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	kept, _ := env.CreateOrganization(t, "Orca Club", "olga@orcas.test")
	populate(t, env, doomed, "dolphins.test")
	populate(t, env, kept, "orcas.test")

	before := countRows(t, env)
	for _, table := range tables {
		require.NotZero(t, before[table], table)
		require.Zero(t, before[table]%2, table)
	}

	require.NoError(t, env.Orgs.Delete(ctx, doomed.ID))

	after := countRows(t, env)
	for _, table := range tables {
		assert.Equal(t, before[table]/2, after[table], table)
	}
	_, err := env.Orgs.Get(ctx, doomed.ID)
	assert.Equal(t, organization.ErrNotFound, err)
	_, err = env.Users.GetByEmail(ctx, "mona@dolphins.test")
	assert.Equal(t, user.ErrNotFound, err)
	_, err = env.Users.GetByEmail(ctx, "mona@orcas.test")
	assert.NoError(t, err)

	assert.Equal(t, organization.ErrNotFound, env.Orgs.Delete(ctx, doomed.ID))
}

func Test_Service_Signup(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	org, admin, err := env.Orgs.Signup(ctx, organization.Signup{
		Organization: organization.NewOrganization{Name: "  Blue Dolphins ", Email: "Office@Dolphins.test"},
		Admin:        testutil.NewUser("Anna", "anna@dolphins.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue Dolphins", org.Name)
	assert.Equal(t, "office@dolphins.test", org.Email)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.Equal(t, org.ID, admin.OrganizationID)

	admins, err := env.Orgs.QueryAdmins(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].UserID)

	t.Run("nothing is created when the admin is invalid", func(t *testing.T) {
		nu := testutil.NewUser("Olga", "anna@dolphins.test")
		_, _, err := env.Orgs.Signup(ctx, organization.Signup{
			Organization: organization.NewOrganization{Name: "Orca Club"},
			Admin:        nu,
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)

		orgs, err := env.Orgs.Query(ctx, organization.QueryFilter{Search: "orca"}, nil)
		require.NoError(t, err)
		assert.Empty(t, orgs)
	})
}

func Test_Service_admins(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	org, anna := env.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	annaP := env.Principal(t, anna.ID)
	kofi := env.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")

	_, err := env.Orgs.CreateAdmin(ctx, env.Principal(t, kofi.UserID), org.ID, testutil.NewUser("Grace Wanjiru", "grace@dolphins.test"))
	assert.Equal(t, organization.ErrRoleNotGranted, err)

	env.Mail.Reset()
	grace, err := env.Orgs.CreateAdmin(ctx, annaP, org.ID, testutil.NewUser("Grace Wanjiru", "grace@dolphins.test"))
	require.NoError(t, err)
	assert.Equal(t, "grace@dolphins.test", grace.Email)
	assert.True(t, grace.IsActive)
	assert.Len(t, env.Mail.SentMessages(), 1)

	assert.Equal(t, organization.ErrDeleteSelf, env.Orgs.DeleteAdmin(ctx, annaP, org.ID, adminIDOf(t, env, org.ID, anna.ID)))
	require.NoError(t, env.Orgs.DeleteAdmin(ctx, annaP, org.ID, grace.ID))
	assert.Equal(t, organization.ErrAdminNotFound, env.Orgs.DeleteAdmin(ctx, annaP, org.ID, grace.ID))
	_, err = env.Users.GetByID(ctx, grace.UserID)
	assert.Equal(t, user.ErrNotFound, err)
}

func adminIDOf(t *testing.T, env *testutil.Env, orgID, userID string) string {
	t.Helper()
	admins, err := env.Orgs.QueryAdmins(context.Background(), orgID)
	require.NoError(t, err)
	for _, adm := range admins {
		if adm.UserID == userID {
			return adm.ID
		}
	}
	t.Fatalf("no admin for user %s", userID)
	return ""
}
