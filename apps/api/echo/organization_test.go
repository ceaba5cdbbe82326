package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/core/parent"
	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/testutil"
)

func Test_organizationApi_signup(t *testing.T) {
	app := setup(t)
	app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")

	signup := func(orgName, email string) []byte {
		return marshalObj(t, organization.Signup{
			Organization: organization.NewOrganization{Name: orgName},
			Admin:        testutil.NewUser("Grace Wanjiru", email),
		})
	}

	tests := []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/api/organizations/signup",
			body: signup("Orcas", "anna@dolphins.test"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
		{
			name: "blank name", method: http.MethodPost, path: "/api/organizations/signup",
			body: signup("   ", "grace@orcas.test"), wantCode: http.StatusBadRequest,
		},
	}
	app.run(t, tests)

	rec := app.do(http.MethodPost, "/api/organizations/signup", "", signup(" Orcas  Swim ", "Grace@Orcas.test"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Organization organization.Organization `json:"organization"`
		Admin        user.User                 `json:"admin"`
	}
	unmarshal(t, rec, &res)
	assert.Equal(t, "Orcas Swim", res.Organization.Name)
	assert.Equal(t, "grace@orcas.test", res.Admin.Email)
	assert.Equal(t, user.RoleAdmin, res.Admin.Role)
	assert.Equal(t, res.Organization.ID, res.Admin.OrganizationID)

	admins, err := app.Orgs.QueryAdmins(context.Background(), res.Organization.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, res.Admin.ID, admins[0].UserID)
}

func Test_organizationApi_access(t *testing.T) {
	app := setup(t)
	dolphins, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	orcas, grace := app.CreateOrganization(t, "Orcas", "grace@orcas.test")
	prt := app.CreateParent(t, dolphins, "Mona Otieno", "mona@dolphins.test")
	root := app.CreateSuperAdmin(t, "Root", "root@lanes.test")

	annaToken := app.tokenOf(t, anna)
	rootToken := app.tokenOf(t, root)
	parentToken := app.getToken(t, prt.UserID)
	notFound := marshalObj(t, httpErr{Error: "not found"})
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "auth required", path: "/api/organizations/" + dolphins.ID, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingAuth)},
		{name: "member", path: "/api/organizations/" + dolphins.ID, token: parentToken},
		{name: "other organization is hidden", path: "/api/organizations/" + orcas.ID, token: annaToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "other organization's lessons are hidden", path: "/api/organizations/" + orcas.ID + "/lessons",
			token: annaToken, wantCode: http.StatusNotFound, wantData: notFound,
		},
		{name: "super admin sees any", path: "/api/organizations/" + orcas.ID, token: rootToken},
		{name: "super admin: unknown organization", path: "/api/organizations/8a0e9f4e-0000-4000-8000-000000000000", token: rootToken, wantCode: http.StatusNotFound},
		{
			name: "parent cannot update", method: http.MethodPut, path: "/api/organizations/" + dolphins.ID,
			token: parentToken, body: []byte(`{"name": "Mine"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "admin updates", method: http.MethodPut, path: "/api/organizations/" + dolphins.ID,
			token: annaToken, body: []byte(`{"phone": " +254 700 000 000 "}`),
		},
		{name: "admins list: parent forbidden", path: "/api/organizations/" + dolphins.ID + "/admins", token: parentToken, wantCode: http.StatusForbidden},
		{name: "organizations list: admin forbidden", path: "/api/organizations", token: annaToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "organizations list", path: "/api/organizations?ordering=-name", token: rootToken},
		{
			name: "admin cannot delete organization", method: http.MethodDelete, path: "/api/organizations/" + dolphins.ID,
			token: annaToken, wantCode: http.StatusForbidden,
		},
	}
	app.run(t, tests)

	org, err := app.Orgs.Get(context.Background(), dolphins.ID)
	require.NoError(t, err)
	assert.Equal(t, "+254 700 000 000", org.Phone)

	rec := app.do(http.MethodGet, "/api/organizations?ordering=-name", rootToken)
	var orgs []organization.Organization
	unmarshal(t, rec, &orgs)
	require.Len(t, orgs, 2)
	assert.Equal(t, orcas.ID, orgs[0].ID)
	assert.Equal(t, dolphins.ID, orgs[1].ID)

	t.Run("grace still reaches her organization", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/organizations/"+orcas.ID, app.tokenOf(t, grace))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_organizationApi_admins(t *testing.T) {
	app := setup(t)
	org, anna := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	token := app.tokenOf(t, anna)
	base := "/api/organizations/" + org.ID + "/admins"

	rec := app.do(http.MethodPost, base, token, marshalObj(t, testutil.NewUser("Kevin Ouma", "kevin@dolphins.test")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var adm organization.Admin
	unmarshal(t, rec, &adm)
	assert.Equal(t, "kevin@dolphins.test", adm.Email)

	admins, err := app.Orgs.QueryAdmins(context.Background(), org.ID)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	var self organization.Admin
	for _, a := range admins {
		if a.UserID == anna.ID {
			self = a
		}
	}

	tests := []httpTest{
		{name: "cannot delete self", method: http.MethodDelete, path: base + "/" + self.ID, token: token, wantCode: http.StatusForbidden},
		{name: "delete other admin", method: http.MethodDelete, path: base + "/" + adm.ID, token: token, wantCode: http.StatusNoContent},
		{name: "already deleted", method: http.MethodDelete, path: base + "/" + adm.ID, token: token, wantCode: http.StatusNotFound},
	}
	app.run(t, tests)

	_, err = app.Users.GetByID(context.Background(), adm.UserID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func Test_organizationApi_registerParent(t *testing.T) {
	app := setup(t)
	org, _ := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")

	body := marshalObj(t, parent.NewParent{NewUser: testutil.NewUser("Mona Otieno", "mona@dolphins.test"), Phone: "0700"})
	tests := []httpTest{
		{
			name: "unknown organization", method: http.MethodPost, path: "/api/organizations/8a0e9f4e-0000-4000-8000-000000000000/parents/register",
			body: body, wantCode: http.StatusNotFound,
		},
		{name: "registered", method: http.MethodPost, path: "/api/organizations/" + org.ID + "/parents/register", body: body, wantCode: http.StatusCreated},
		{
			name: "email taken", method: http.MethodPost, path: "/api/organizations/" + org.ID + "/parents/register",
			body: body, wantCode: http.StatusBadRequest, wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
	}
	app.run(t, tests)

	usr, err := app.Users.GetByEmail(context.Background(), "mona@dolphins.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleParent, usr.Role)
	assert.Equal(t, org.ID, usr.OrganizationID)
}
