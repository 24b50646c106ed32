package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithIdentity(c echo.Context, roles []string, patientID string) {
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	ctx = context.WithValue(ctx, PatientIDKey, patientID)
	c.SetRequest(c.Request().WithContext(ctx))
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequireRole_Allows(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	contextWithIdentity(c, []string{RoleDoctor}, "")

	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypasses(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	contextWithIdentity(c, []string{RoleAdmin}, "")

	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Fatalf("expected admin to pass doctor check, got %v", err)
	}
}

func TestRequireRole_Forbids(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	contextWithIdentity(c, []string{RolePatient}, "p1")

	err := RequireRole(RoleDoctor)(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := RequireRole(RoleDoctor)(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func newParamContext(e *echo.Echo, param, value string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames(param)
	c.SetParamValues(value)
	return c
}

func TestRequireOwnPatient_AllowsOwn(t *testing.T) {
	e := echo.New()
	c := newParamContext(e, "id", "p1")
	contextWithIdentity(c, []string{RolePatient}, "p1")

	if err := RequireOwnPatient("id")(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireOwnPatient_ForbidsOther(t *testing.T) {
	e := echo.New()
	c := newParamContext(e, "id", "p2")
	contextWithIdentity(c, []string{RolePatient}, "p1")

	err := RequireOwnPatient("id")(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireOwnPatient_DoctorUnrestricted(t *testing.T) {
	e := echo.New()
	c := newParamContext(e, "id", "p2")
	contextWithIdentity(c, []string{RoleDoctor}, "")

	if err := RequireOwnPatient("id")(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPatientScoped(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"patient only", []string{RolePatient}, true},
		{"doctor", []string{RoleDoctor}, false},
		{"admin", []string{RoleAdmin}, false},
		{"patient and doctor", []string{RolePatient, RoleDoctor}, false},
		{"no roles", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PatientScoped(tt.roles); got != tt.want {
				t.Errorf("PatientScoped(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestRequireOwnPatient_MissingClaim(t *testing.T) {
	e := echo.New()
	c := newParamContext(e, "id", "p1")
	contextWithIdentity(c, []string{RolePatient}, "")

	err := RequireOwnPatient("id")(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
