package echoapi

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/escolabr/escola/auth"
	dummyauth "github.com/escolabr/escola/auth/dummy"
	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/core/school"
	emailsvc "github.com/escolabr/escola/services/email"
	logsvc "github.com/escolabr/escola/services/logger"
	dummystore "github.com/escolabr/escola/store/dummy"
)

type testApp struct {
	server Server
	reg    *school.Registry
	st     *dummystore.Store
	idp    *dummyauth.Provider

	adminToken   string
	teacherToken string
}

func setup(t *testing.T) *testApp {
	t.Helper()

	st := dummystore.Open()
	idp := dummyauth.Open()
	logger := logsvc.NewConsoleLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	reg := school.NewRegistry(st, idp, emailsvc.NewConsoleServiceMock(), logger)

	server := NewServer(ServerDeps{
		DisableReqLogs: true,
		Logger:         logger,
		Registry:       reg,
		Identity:       idp,
		Validate:       core.Validate,
		Translator:     core.Translator,
	})

	admin, err := idp.Seed(auth.Actor{Name: "Admin", Email: "admin@escola.br", Role: auth.RoleAdmin}, "secret")
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	teacher, err := idp.Seed(auth.Actor{Name: "Teacher", Email: "teacher@escola.br", Role: auth.RoleTeacher}, "secret")
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	return &testApp{
		server:       server,
		reg:          reg,
		st:           st,
		idp:          idp,
		adminToken:   getToken(t, admin),
		teacherToken: getToken(t, teacher),
	}
}

func getToken(t *testing.T, actor auth.Actor) string {
	t.Helper()

	token, err := GenerateToken(GetActorClaims(actor))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) request(t *testing.T, method, path, token string, body, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("request() failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusBadRequest {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("request() failed to decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, want, rec.Body.String())
	}
}
