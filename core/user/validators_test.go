package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
	logsvc "github.com/lanes-app/lanes/services/logger"
	"github.com/lanes-app/lanes/testutil"
)

func TestNewUser_passwordPolicy(t *testing.T) {
	conf := core.NewTestConfig()
	validate, translator := testutil.NewValidator(logsvc.NewRollbarLogger(conf))

	tests := []struct {
		name    string
		pwd     string
		confirm string
		want    map[string]string
	}{
		{name: "valid", pwd: testutil.Password},
		{name: "missing", want: map[string]string{"password": "this field is required", "password_confirm": "this field is required"}},
		{name: "too short", pwd: "Sw1m!", want: map[string]string{"password": "password must contain at least 8 characters"}},
		{name: "whitespace", pwd: "Sw1m! Lanes#42", want: map[string]string{"password": "password must not contain whitespace"}},
		{name: "numeric", pwd: "2718281828", want: map[string]string{"password": "password cannot be entirely numeric"}},
		{
			name: "simple", pwd: "swimlanes42",
			want: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{name: "like the name", pwd: "Nyokabi#01", want: map[string]string{"password": "password cannot be similar to user attributes"}},
		{name: "like the email", pwd: "N.nyokabi1", want: map[string]string{"password": "password cannot be similar to user attributes"}},
		{name: "common", pwd: "P@ssw0rd", want: map[string]string{"password": "password is too common"}},
		{
			name: "confirmation mismatch", pwd: testutil.Password, confirm: testutil.Password + "!",
			want: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirm := tt.confirm
			if confirm == "" {
				confirm = tt.pwd
			}
			nu := user.NewUser{Name: "Nyokabi", Email: "n.nyokabi@lanes.test", Password: tt.pwd, PasswordConfirm: confirm}
			err := validate.Struct(nu)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUser_role(t *testing.T) {
	conf := core.NewTestConfig()
	validate, _ := testutil.NewValidator(logsvc.NewRollbarLogger(conf))

	nu := testutil.NewUser("Amani", "amani@lanes.test")
	nu.Role = "lifeguard"
	var verrs validator.ValidationErrors
	require.ErrorAs(t, validate.Struct(nu), &verrs)
	assert.Equal(t, "role", verrs[0].Tag())

	nu.Role = user.RoleInstructor
	assert.NoError(t, validate.Struct(nu))
}

func TestPrincipal(t *testing.T) {
	const orgID, otherID = "org-1", "org-2"
	super := user.Principal{UserID: "u0", Role: user.RoleSuperAdmin}
	admin := user.Principal{UserID: "u1", Role: user.RoleAdmin, OrganizationID: orgID}
	ins := user.Principal{UserID: "u2", Role: user.RoleInstructor, OrganizationID: orgID}
	prt := user.Principal{UserID: "u3", Role: user.RoleParent, OrganizationID: orgID}

	assert.True(t, super.IsOrgAdmin(otherID))
	assert.True(t, admin.IsOrgAdmin(orgID))
	assert.False(t, admin.IsOrgAdmin(otherID))
	assert.False(t, ins.IsOrgAdmin(orgID))

	assert.True(t, super.HasAnyRole(user.RoleParent))
	assert.True(t, prt.HasAnyRole(user.RoleAdmin, user.RoleParent))
	assert.False(t, prt.HasAnyRole(user.RoleAdmin, user.RoleInstructor))

	assert.True(t, super.CanAccessOrganization(otherID))
	assert.True(t, prt.CanAccessOrganization(orgID))
	assert.False(t, prt.CanAccessOrganization(otherID))
	assert.False(t, user.Principal{UserID: "u4", Role: user.RoleAdmin}.CanAccessOrganization(""))

	assert.True(t, admin.CanGrant(user.RoleAdmin))
	assert.True(t, admin.CanGrant(user.RoleParent))
	assert.False(t, admin.CanGrant(user.RoleSuperAdmin))
	assert.False(t, ins.CanGrant(user.RoleAdmin))
	assert.False(t, user.Principal{}.IsAuthenticated())
}
