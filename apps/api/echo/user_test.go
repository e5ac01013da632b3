package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/comedor/core/user"
	"github.com/trezcool/comedor/tests"
)

func Test_userApi_login(t *testing.T) {
	app := newTestApp(t)
	pwd := "Cocina.2024"
	testutil.CreateUser(t, app.usrRepo, "Lola", "lola", "lola@test.local", pwd, []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, app.usrRepo, "Old", "old", "old@test.local", pwd, nil, false)

	app.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "lola", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "pepe", Password: pwd}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "old", Password: pwd}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("by username or email", func(t *testing.T) {
		for _, uname := range []string{"LOLA", "lola@test.local"} {
			rec := app.do(httpTest{
				method: http.MethodPost, path: "/v1/users/login",
				body: marchallObj(t, LoginRequest{Username: uname, Password: pwd}),
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp LoginResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)

			// the token opens authed endpoints
			rec = app.do(httpTest{path: "/v1/courses", token: resp.Token})
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := newTestApp(t)
	usr := testutil.CreateUser(t, app.usrRepo, "Lola", "lola", "", "", []string{user.RoleKitchen}, true)
	inactive := testutil.CreateUser(t, app.usrRepo, "Old", "old", "", "", nil, false)

	app.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/token-refresh", token: app.token(t, inactive),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	rec := app.do(httpTest{method: http.MethodPost, path: "/v1/users/token-refresh", token: app.token(t, usr)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_create(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.local", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	adminToken := app.token(t, admin)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Nuevo",
			Username:        uname,
			Password:        "Comedor.2024",
			PasswordConfirm: "Comedor.2024",
			Roles:           roles,
		})
	}

	app.run(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/users/register", token: app.token(t, teacher),
			body: newUser("nuevo"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "username taken", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: newUser("teacher"), wantCode: http.StatusBadRequest,
		},
		{
			name: "cannot grant a higher role", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: newUser("owner", user.RoleAdminOwner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": errNoPermsToSetRoles}),
		},
	})

	rec := app.do(httpTest{method: http.MethodPost, path: "/v1/users/register", token: adminToken, body: newUser("cocina", user.RoleKitchen)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "cocina", usr.Username)
	assert.Equal(t, []string{user.RoleKitchen}, usr.Roles)
}

func Test_userApi_detail(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", "", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other", "", "", []string{user.RoleTeacher}, true)
	teacherToken := app.token(t, teacher)

	app.run(t, []httpTest{
		{name: "self", path: "/v1/users/" + teacher.ID, token: teacherToken},
		{name: "other user is hidden", path: "/v1/users/" + other.ID, token: teacherToken, wantCode: http.StatusNotFound},
		{name: "admin sees everyone", path: "/v1/users/" + other.ID, token: app.token(t, admin)},
		{name: "unknown", path: "/v1/users/nope", token: app.token(t, admin), wantCode: http.StatusNotFound},
		{
			name: "roles are admin only", method: http.MethodPut, path: "/v1/users/" + teacher.ID, token: teacherToken,
			body: marchallObj(t, map[string]interface{}{"roles": []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: app.token(t, admin),
			wantCode: http.StatusForbidden,
		},
		{
			name: "delete", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: app.token(t, admin),
			wantCode: http.StatusNoContent,
		},
	})

	rec := app.do(httpTest{
		method: http.MethodPut, path: "/v1/users/" + teacher.ID, token: teacherToken,
		body: marchallObj(t, map[string]string{"name": "Profe Lola"}),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "Profe Lola", usr.Name)
}

func Test_userApi_queryRoles(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)

	app.run(t, []httpTest{
		{name: "auth required", path: "/v1/users/roles", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "roles", path: "/v1/users/roles", token: app.token(t, admin), wantData: marchallObj(t, user.Roles)},
	})
}
