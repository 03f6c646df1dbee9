package v1_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngSignature cukup untuk lolos validasi ekstensi dan content type
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func uploadAvatar(t *testing.T, app *fiber.App, token, employeeID, filename, contentType string) (int, map[string]any) {
	t.Helper()
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(pngSignature)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/employees/"+employeeID+"/avatar", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestUploadAvatar(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, _ := createEmployee(t, app, admin, "Wayan")
	otherID, _ := createEmployee(t, app, admin, "Yudi")
	member := createMember(t, app, empID)

	status, body := uploadAvatar(t, app, member, empID, "me.png", "image/png")
	require.Equal(t, http.StatusOK, status, body)
	avatar := body["data"].(map[string]any)["avatar"].(string)
	assert.Regexp(t, `^/api/v1/uploads/[0-9a-f-]+\.png$`, avatar)

	// the stored file is served back without a token
	resp, err := app.Test(httptest.NewRequest("GET", avatar, nil), 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngSignature, served)

	status, _ = uploadAvatar(t, app, member, otherID, "me.png", "image/png")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = uploadAvatar(t, app, member, empID, "me.gif", "image/gif")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = uploadAvatar(t, app, member, empID, "me.png", "text/plain")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetUploadMissingFile(t *testing.T) {
	app := createTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/uploads/nothing.png", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
