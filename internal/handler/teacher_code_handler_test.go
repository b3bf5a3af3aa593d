package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/handler"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/internal/utils"
)

type mockTeacherCodeService struct {
	issueResult  dto.TeacherCodeResponse
	issueErr     error
	redeemResult dto.RedeemCodeResponse
	redeemErr    error
	revokeErr    error

	gotTeacherID string
	gotCode      string
	gotIsAdmin   bool
}

func (m *mockTeacherCodeService) Issue(_ context.Context, teacherID string, _ dto.IssueCodeRequest) (dto.TeacherCodeResponse, error) {
	m.gotTeacherID = teacherID
	return m.issueResult, m.issueErr
}

func (m *mockTeacherCodeService) MyCode(context.Context, string) (dto.TeacherCodeResponse, error) {
	return m.issueResult, m.issueErr
}

func (m *mockTeacherCodeService) List(context.Context, string) ([]dto.TeacherCodeResponse, error) {
	return nil, nil
}

func (m *mockTeacherCodeService) Revoke(_ context.Context, teacherID string, _ uint, isAdmin bool) error {
	m.gotTeacherID = teacherID
	m.gotIsAdmin = isAdmin
	return m.revokeErr
}

func (m *mockTeacherCodeService) RedeemAccessCode(_ context.Context, _ string, code string) (dto.RedeemCodeResponse, error) {
	m.gotCode = code
	return m.redeemResult, m.redeemErr
}

func (m *mockTeacherCodeService) RedeemTeacherOnboardingCode(_ context.Context, _, code string) error {
	m.gotCode = code
	return m.redeemErr
}

func (m *mockTeacherCodeService) StudentAccess(context.Context, string) (dto.StudentAccessResponse, error) {
	return dto.StudentAccessResponse{}, nil
}

func (m *mockTeacherCodeService) CheckAssignment(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *mockTeacherCodeService) ListStudents(context.Context, string) ([]dto.TeacherLinkResponse, error) {
	return nil, nil
}

func setupCodeApp(mock *mockTeacherCodeService, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		c.Locals("user_role", role)
		return c.Next()
	})

	h := handler.NewTeacherCodeHandler(mock, zerolog.Nop())
	h.RegisterTeacher(app.Group("/teacher"))
	h.RegisterStudent(app.Group("/connect"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (int, utils.APIResponse) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestIssueCodeReturnsCreated(t *testing.T) {
	mock := &mockTeacherCodeService{
		issueResult: dto.TeacherCodeResponse{ID: 1, Code: "AB12CD34", TeacherID: "user-1", Unlimited: true, IsActive: true},
	}
	app := setupCodeApp(mock, "teacher")

	status, body := postJSON(t, app, "/teacher/codes", dto.IssueCodeRequest{MaxUses: 0})
	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, body.Success)
	require.Equal(t, "user-1", mock.gotTeacherID)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "AB12CD34", data["code"])
}

func TestRedeemExpiredCodeReturnsGone(t *testing.T) {
	for _, cause := range []error{service.ErrCodeExpired, service.ErrCodeInactive, service.ErrCodeExhausted} {
		mock := &mockTeacherCodeService{redeemErr: cause}
		app := setupCodeApp(mock, "student")

		status, body := postJSON(t, app, "/connect/redeem", dto.RedeemCodeRequest{Code: "AB12CD34"})
		require.Equal(t, fiber.StatusGone, status)
		require.False(t, body.Success)
	}
}

func TestRedeemDuplicateReturnsConflict(t *testing.T) {
	mock := &mockTeacherCodeService{redeemErr: service.ErrCodeAlreadyRedeemed}
	app := setupCodeApp(mock, "student")

	status, _ := postJSON(t, app, "/connect/redeem", dto.RedeemCodeRequest{Code: "AB12CD34"})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "AB12CD34", mock.gotCode)
}

func TestRedeemUnknownCodeReturnsNotFound(t *testing.T) {
	mock := &mockTeacherCodeService{redeemErr: service.ErrCodeNotFound}
	app := setupCodeApp(mock, "student")

	status, _ := postJSON(t, app, "/connect/redeem", dto.RedeemCodeRequest{Code: "NOPE0000"})
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestRevokePassesAdminFlag(t *testing.T) {
	mock := &mockTeacherCodeService{}
	app := setupCodeApp(mock, "admin")

	req := httptest.NewRequest("DELETE", "/teacher/codes/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, mock.gotIsAdmin)
}

func TestRevokeForeignCodeReturnsForbidden(t *testing.T) {
	mock := &mockTeacherCodeService{revokeErr: service.ErrCodeNotOwned}
	app := setupCodeApp(mock, "teacher")

	req := httptest.NewRequest("DELETE", "/teacher/codes/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.False(t, mock.gotIsAdmin)
}
