package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/billing"
	"github.com/trezcool/comedor/core/promotion"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
	"github.com/trezcool/comedor/services/email"
	"github.com/trezcool/comedor/storage/database/sqlx"
	"github.com/trezcool/comedor/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// testApp is a server backed by a fresh sqlite database.
type testApp struct {
	db      *sqlx.DB
	conf    *core.Config
	srv     *server
	mailer  *emailsvc.ConsoleServiceMock
	usrRepo user.Repository
	schools school.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, conf := testutil.PrepareDB(t)
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	app := &testApp{
		db:      db,
		conf:    conf,
		mailer:  emailsvc.NewConsoleServiceMock(conf),
		usrRepo: sqlxrepos.NewUserRepository(db),
		schools: sqlxrepos.NewSchoolRepository(db),
	}

	usrSvc := user.NewService(app.usrRepo)
	schoolSvc := school.NewService(app.schools)
	app.srv = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         testutil.NopLogger{},
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		SchoolSvc:      schoolSvc,
		AttendanceSvc: attendance.NewService(
			db, sqlxrepos.NewAttendanceRepository(db), schoolSvc, app.mailer, conf,
		),
		PromotionSvc: promotion.NewService(
			db, sqlxrepos.NewPromotionRepository(db), app.schools, conf, testutil.NopLogger{},
		),
		BillingSvc: billing.NewService(sqlxrepos.NewBillingRepository(db), schoolSvc, usrSvc, conf),
		Validate:   validate,
		Translator: translator,
	}).(*server)
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.srv.auth.generateToken(app.srv.auth.userClaims(usr))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode(): %v; body %s", err, rec.Body.String())
	}
}
