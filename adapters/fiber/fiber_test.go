package fiber

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/kontak"
	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/services"
)

type testEnv struct {
	app       *fiber.App
	db        *services.FakeStorageProvider
	graph     *services.FakeGraph
	authority *services.FakeAuthority
}

func newTestEnv(t *testing.T, frontendURL string) *testEnv {
	t.Helper()

	env := &testEnv{
		app:       NewApp(AppConfig{}),
		db:        services.NewFakeStorageProvider(),
		graph:     services.NewFakeGraph("Sales Team"),
		authority: services.NewFakeAuthority(),
	}

	_, err := kontak.New(kontak.Config{
		Secret:    strings.Repeat("s", 32),
		Database:  env.db,
		HTTP:      New(env.app),
		Graph:     env.graph,
		Authority: env.authority,
		Microsoft: core.MicrosoftConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TenantID:     "tenant-id",
			RedirectURI:  "http://localhost:8080/api/auth/microsoft/callback",
			TeamName:     "Sales Team",
		},
		DisableCache: true,
		FrontendURL:  frontendURL,
	})
	require.NoError(t, err)
	return env
}

type response struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]any
}

func (e *testEnv) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := e.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	return resp.body["token"].(string)
}

// microsoftSignIn completes the callback and returns the session token.
func (e *testEnv) microsoftSignIn(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/auth/microsoft/callback?code=code-1", "", nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	return resp.body["token"].(string)
}

// Requirement: every catalog endpoint is mounted under its group and
// protected endpoints reject requests without a credential.
func TestRegisterRoutes_MountsCatalog(t *testing.T) {
	env := newTestEnv(t, "")

	for _, ep := range services.NewEndpointRegistry().Endpoints() {
		if ep.Access == core.AccessPublic {
			continue
		}
		ep := ep
		t.Run(ep.Method+" "+string(ep.Group)+ep.Path, func(t *testing.T) {
			// Arrange
			path := "/api/" + string(ep.Group) + strings.NewReplacer(":userId", "u-1", ":fileId", "f-1", ":id", "x-1").Replace(ep.Path)

			// Act
			resp := env.do(t, ep.Method, path, "", nil)

			// Assert
			assert.Equal(t, http.StatusUnauthorized, resp.status)
			assert.Equal(t, core.ErrMissingAuthHeader.Error(), resp.body["error"])
			assert.NotEmpty(t, resp.body["authUrl"])
			assert.Nil(t, resp.body["reauthRequired"])
		})
	}
}

func TestHealthzAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t, "")

	health := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, health.status)
	assert.Equal(t, "ok", health.body["status"])

	missing := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.status)
	assert.NotEmpty(t, missing.body["error"])
}

// Requirement: register, me and logout work end to end, and a logged-out
// token is no longer accepted.
func TestAuthFlow(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.register(t, "Alice@Example.com")

	// Act
	me := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	logout := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	after := env.do(t, http.MethodGet, "/api/auth/me", token, nil)

	// Assert
	require.Equal(t, http.StatusOK, me.status)
	user := me.body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, string(me.raw), "passwordHash")

	assert.Equal(t, http.StatusOK, logout.status)
	assert.Equal(t, http.StatusUnauthorized, after.status)
}

// Requirement: logout-all revokes every session of the caller, on any device.
func TestLogoutAll(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	first := env.register(t, "dana@example.com")
	login := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "dana@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, login.status, string(login.raw))
	second := login.body["token"].(string)
	other := env.register(t, "fred@example.com")

	// Act
	resp := env.do(t, http.MethodPost, "/api/auth/logout-all", second, nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.Equal(t, float64(2), resp.body["sessions"])
	for _, token := range []string{first, second} {
		me := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, me.status)
	}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/auth/me", other, nil).status)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/auth/logout-all", "", nil).status)
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "taken@example.com")

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{name: "missing email", body: map[string]string{"password": "password123"}, wantStatus: http.StatusBadRequest},
		{name: "invalid email", body: map[string]string{"email": "nope", "password": "password123"}, wantStatus: http.StatusBadRequest},
		{name: "short password", body: map[string]string{"email": "a@example.com", "password": "short"}, wantStatus: http.StatusBadRequest},
		{name: "duplicate email", body: map[string]string{"email": "TAKEN@example.com", "password": "password123"}, wantStatus: http.StatusConflict},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, http.MethodPost, "/api/auth/register", "", test.body)

			// Assert
			assert.Equal(t, test.wantStatus, resp.status)
			assert.NotEmpty(t, resp.body["error"])
		})
	}
}

// Requirement: a wrong password and an unknown email fail identically, and
// both carry a fresh authorization URL.
func TestLogin(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "bob@example.com")

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{name: "correct password", email: "bob@example.com", password: "password123", wantStatus: http.StatusOK},
		{name: "wrong password", email: "bob@example.com", password: "password124", wantStatus: http.StatusUnauthorized},
		{name: "unknown email", email: "nobody@example.com", password: "password123", wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": test.email, "password": test.password,
			})

			// Assert
			assert.Equal(t, test.wantStatus, resp.status)
			if test.wantStatus == http.StatusOK {
				assert.NotEmpty(t, resp.body["token"])
				assert.Nil(t, resp.body["authUrl"])
				return
			}
			assert.Equal(t, core.ErrInvalidCredentials.Error(), resp.body["error"])
			assert.True(t, strings.HasPrefix(resp.body["authUrl"].(string), "https://login.example.test/authorize"))
			assert.Nil(t, resp.body["reauthRequired"])
		})
	}
}

// Requirement: a revoked session token is rejected with an authorization URL.
func TestMe_RevokedTokenCarriesAuthURL(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.register(t, "erin@example.com")
	env.do(t, http.MethodPost, "/api/auth/logout", token, nil)

	// Act
	resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.NotEmpty(t, resp.body["authUrl"])
	assert.Nil(t, resp.body["reauthRequired"])
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.register(t, "carol@example.com")

	tests := []struct {
		name      string
		body      any
		wantValid bool
	}{
		{name: "no credential", wantValid: false},
		{name: "garbage credential", body: map[string]string{"token": "not-a-token"}, wantValid: false},
		{name: "live credential", body: map[string]string{"token": token}, wantValid: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, http.MethodPost, "/api/auth/verify", "", test.body)

			// Assert
			require.Equal(t, http.StatusOK, resp.status)
			assert.Equal(t, test.wantValid, resp.body["valid"])
		})
	}
}

// Requirement: the login endpoint hands out the authorization URL with a
// state that is also set as a cookie, or redirects to it on request.
func TestMicrosoftLogin(t *testing.T) {
	env := newTestEnv(t, "")

	t.Run("json", func(t *testing.T) {
		// Act
		resp := env.do(t, http.MethodGet, "/api/auth/microsoft/login", "", nil)

		// Assert
		require.Equal(t, http.StatusOK, resp.status)
		state := resp.body["state"].(string)
		assert.NotEmpty(t, state)
		assert.Contains(t, resp.body["authUrl"], "state="+state)
		assert.Contains(t, resp.header.Get(fiber.HeaderSetCookie), stateCookie+"="+state)
	})

	t.Run("redirect", func(t *testing.T) {
		// Act
		resp := env.do(t, http.MethodGet, "/api/auth/microsoft/login?redirect=true", "", nil)

		// Assert
		assert.Equal(t, http.StatusFound, resp.status)
		assert.True(t, strings.HasPrefix(resp.header.Get(fiber.HeaderLocation), "https://login.example.test/authorize"))
	})
}

func TestMicrosoftCallback(t *testing.T) {
	t.Run("json without frontend", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")

		// Act
		resp := env.do(t, http.MethodGet, "/api/auth/microsoft/callback?code=code-1", "", nil)

		// Assert
		require.Equal(t, http.StatusOK, resp.status)
		assert.NotEmpty(t, resp.body["token"])
		user := resp.body["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, "ms-alice", user["microsoftId"])
		assert.NotContains(t, string(resp.raw), "refresh-code-1")
	})

	t.Run("redirects to frontend", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "http://localhost:5173/")

		// Act
		resp := env.do(t, http.MethodGet, "/api/auth/microsoft/callback?code=code-1", "", nil)

		// Assert
		assert.Equal(t, http.StatusFound, resp.status)
		assert.True(t, strings.HasPrefix(resp.header.Get(fiber.HeaderLocation), "http://localhost:5173/auth/callback#token="))
	})
}

func TestMicrosoftCallback_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		cookie     string
		wantStatus int
		wantReauth bool
	}{
		{name: "missing code", path: "/api/auth/microsoft/callback", wantStatus: http.StatusBadRequest},
		{name: "authority error", path: "/api/auth/microsoft/callback?error=access_denied&error_description=denied", wantStatus: http.StatusUnauthorized, wantReauth: true},
		{name: "state mismatch", path: "/api/auth/microsoft/callback?code=c&state=other", cookie: "expected", wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			env := newTestEnv(t, "")
			req := httptest.NewRequest(http.MethodGet, test.path, nil)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: test.cookie})
			}

			// Act
			resp := env.send(t, req)

			// Assert
			assert.Equal(t, test.wantStatus, resp.status)
			if test.wantReauth {
				assert.Equal(t, true, resp.body["reauthRequired"])
				assert.NotEmpty(t, resp.body["authUrl"])
			}
		})
	}
}

// Requirement: Microsoft endpoints need a linked, live Microsoft session;
// otherwise the response asks for re-authentication with a fresh URL.
func TestMicrosoftEndpoints_ReauthRequired(t *testing.T) {
	t.Run("password user is not linked", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")
		token := env.register(t, "dave@example.com")

		// Act
		resp := env.do(t, http.MethodGet, "/api/microsoft/email", token, nil)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, true, resp.body["reauthRequired"])
		assert.True(t, strings.HasPrefix(resp.body["authUrl"].(string), "https://login.example.test/authorize"))
	})

	t.Run("silent refresh rejected", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")
		env.authority.ExpireTokens(-time.Minute)
		token := env.microsoftSignIn(t)
		env.authority.FailRefresh(core.ErrInvalidGrant)

		// Act
		resp := env.do(t, http.MethodGet, "/api/microsoft/email", token, nil)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, true, resp.body["reauthRequired"])
		assert.Equal(t, 0, env.authority.Refreshes())
	})

	t.Run("transient refresh failure keeps the session", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")
		env.authority.ExpireTokens(-time.Minute)
		token := env.microsoftSignIn(t)
		env.authority.FailRefresh(errors.Join(core.ErrUpstream, errors.New("dial tcp: i/o timeout")))

		// Act
		failed := env.do(t, http.MethodGet, "/api/microsoft/email", token, nil)
		env.authority.FailRefresh(nil)
		recovered := env.do(t, http.MethodGet, "/api/microsoft/email", token, nil)

		// Assert
		assert.Equal(t, http.StatusBadGateway, failed.status)
		assert.Nil(t, failed.body["reauthRequired"])
		assert.Equal(t, http.StatusOK, recovered.status)
		assert.Equal(t, 1, env.authority.Refreshes())
	})

	t.Run("expired token refreshed silently", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")
		env.authority.ExpireTokens(-time.Minute)
		token := env.microsoftSignIn(t)

		// Act
		resp := env.do(t, http.MethodGet, "/api/microsoft/email", token, nil)

		// Assert
		assert.Equal(t, http.StatusOK, resp.status)
		assert.Equal(t, 1, env.authority.Refreshes())
	})

	t.Run("logout forgets the microsoft session", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t, "")
		first := env.microsoftSignIn(t)
		second := env.microsoftSignIn(t)

		// Act
		logout := env.do(t, http.MethodPost, "/api/auth/logout", first, nil)
		resp := env.do(t, http.MethodGet, "/api/microsoft/email", second, nil)

		// Assert
		assert.Equal(t, http.StatusOK, logout.status)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, true, resp.body["reauthRequired"])
	})
}

func TestMicrosoftUser(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.microsoftSignIn(t)
	me := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.status)
	userID := me.body["user"].(map[string]any)["id"].(string)

	tests := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{name: "self", userID: userID, wantStatus: http.StatusOK},
		{name: "someone else", userID: "user-999", wantStatus: http.StatusForbidden},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, http.MethodGet, "/api/auth/microsoft/user/"+test.userID, token, nil)

			// Assert
			assert.Equal(t, test.wantStatus, resp.status)
			if test.wantStatus == http.StatusOK {
				assert.Equal(t, true, resp.body["microsoftLinked"])
				assert.Equal(t, "alice@example.com", resp.body["microsoftEmail"])
			}
		})
	}
}

func uploadRequest(t *testing.T, token string, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/microsoft/documents/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

// Requirement: a document uploaded for a contact lands in the contact
// folder, is listed there, and downloads with its original bytes.
func TestDocuments_UploadListDownload(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.microsoftSignIn(t)
	fields := map[string]string{"companyName": "Acme/Corp", "contactName": "Jane Doe"}

	// Act
	upload := env.send(t, uploadRequest(t, token, fields, "quote.pdf", "pdf-bytes"))
	list := env.do(t, http.MethodGet, "/api/microsoft/documents?companyName=Acme/Corp&contactName=Jane%20Doe", token, nil)

	// Assert
	require.Equal(t, http.StatusCreated, upload.status, string(upload.raw))
	assert.Equal(t, "General/Sales Team/Projects/Acme_Corp/Contacts/Jane Doe", upload.body["folderPath"])
	assert.NotEmpty(t, upload.body["shareUrl"])
	assert.Equal(t, 1, env.db.DocumentCount())

	require.Equal(t, http.StatusOK, list.status)
	docs := list.body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "quote.pdf", docs[0].(map[string]any)["name"])

	download := env.do(t, http.MethodGet, "/api/microsoft/documents/"+upload.body["id"].(string)+"/download", token, nil)
	assert.Equal(t, http.StatusOK, download.status)
	assert.Equal(t, "pdf-bytes", string(download.raw))
	assert.Contains(t, download.header.Get(fiber.HeaderContentDisposition), "quote.pdf")
}

func TestDocuments_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.microsoftSignIn(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{
			name:       "upload without file",
			req:        uploadRequest(t, token, map[string]string{"companyName": "Acme", "contactName": "Jane"}, "", ""),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "upload without contact",
			req:        uploadRequest(t, token, map[string]string{"companyName": "Acme"}, "a.txt", "x"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "search without query",
			req:        authed(httptest.NewRequest(http.MethodGet, "/api/microsoft/documents/search", nil), token),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "download unknown file",
			req:        authed(httptest.NewRequest(http.MethodGet, "/api/microsoft/documents/nope/download", nil), token),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.send(t, test.req)

			// Assert
			assert.Equal(t, test.wantStatus, resp.status, string(resp.raw))
		})
	}
}

// Requirement: a contact folder that does not exist yet lists as empty.
func TestDocuments_ListMissingFolder(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.microsoftSignIn(t)

	resp := env.do(t, http.MethodGet, "/api/microsoft/documents?companyName=New&contactName=Nobody", token, nil)

	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.body["documents"])
	assert.NotNil(t, resp.body["documents"])
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestEmail_SendAndHistory(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.microsoftSignIn(t)

	// Act
	sent := env.do(t, http.MethodPost, "/api/microsoft/email/send", token, map[string]any{
		"to": []string{"bob@example.com"}, "subject": "Quote", "body": "Hello",
	})
	invalid := env.do(t, http.MethodPost, "/api/microsoft/email/send", token, map[string]any{
		"subject": "No one",
	})
	history := env.do(t, http.MethodGet, "/api/microsoft/email/history", token, nil)

	// Assert
	assert.Equal(t, http.StatusAccepted, sent.status, string(sent.raw))
	require.Len(t, env.graph.Sent(), 1)
	assert.Equal(t, "Quote", env.graph.Sent()[0].Subject)

	assert.Equal(t, http.StatusBadRequest, invalid.status)
	assert.Equal(t, core.ErrRecipientRequired.Error(), invalid.body["error"])

	require.Equal(t, http.StatusOK, history.status)
	assert.Len(t, history.body["emails"], 1)
}

func TestEmail_List(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	now := time.Now()
	env.graph.SetMessages(
		core.EmailMessage{ID: "old", Subject: "old", ReceivedDateTime: now.Add(-time.Hour)},
		core.EmailMessage{ID: "new", Subject: "new", ReceivedDateTime: now},
	)
	token := env.microsoftSignIn(t)

	// Act
	resp := env.do(t, http.MethodGet, "/api/microsoft/email?search=quote&top=5", token, nil)

	// Assert
	require.Equal(t, http.StatusOK, resp.status)
	messages := resp.body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "new", messages[0].(map[string]any)["id"])
}

func TestSettings(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.register(t, "erin@example.com")

	// Act
	defaults := env.do(t, http.MethodGet, "/api/microsoft/settings", token, nil)
	updated := env.do(t, http.MethodPut, "/api/microsoft/settings", token, map[string]any{
		"recordEmailHistory": false, "emailSignature": "Erin",
	})
	after := env.do(t, http.MethodGet, "/api/microsoft/settings", token, nil)

	// Assert
	require.Equal(t, http.StatusOK, defaults.status)
	assert.Equal(t, true, defaults.body["recordEmailHistory"])
	assert.Equal(t, http.StatusOK, updated.status)
	assert.Equal(t, false, after.body["recordEmailHistory"])
	assert.Equal(t, "Erin", after.body["emailSignature"])
}

// Requirement: deleting a company takes its dependent records with it.
func TestCRM_CompanyLifecycle(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.register(t, "frank@example.com")

	// Act
	company := env.do(t, http.MethodPost, "/api/crm/companies", token, map[string]any{"name": "Acme", "tags": []string{"b2b", "b2b"}})
	require.Equal(t, http.StatusCreated, company.status, string(company.raw))
	companyID := company.body["id"].(string)

	contact := env.do(t, http.MethodPost, "/api/crm/contacts", token, map[string]any{"firstName": "Jane", "lastName": "Doe", "companyId": companyID})
	require.Equal(t, http.StatusCreated, contact.status, string(contact.raw))
	contactID := contact.body["id"].(string)

	task := env.do(t, http.MethodPost, "/api/crm/tasks", token, map[string]any{"title": "Call back", "contactId": contactID})
	require.Equal(t, http.StatusCreated, task.status, string(task.raw))

	contacts := env.do(t, http.MethodGet, "/api/crm/contacts", token, nil)
	tasks := env.do(t, http.MethodGet, "/api/crm/contacts/"+contactID+"/tasks", token, nil)
	deleted := env.do(t, http.MethodDelete, "/api/crm/companies/"+companyID, token, nil)
	gone := env.do(t, http.MethodGet, "/api/crm/companies/"+companyID, token, nil)

	// Assert
	assert.Equal(t, []any{"b2b"}, company.body["tags"])
	assert.NotEmpty(t, company.body["ownerId"])
	assert.Len(t, contacts.body["contacts"], 1)
	assert.Len(t, tasks.body["tasks"], 1)
	assert.Equal(t, http.StatusNoContent, deleted.status)
	assert.Equal(t, http.StatusNotFound, gone.status)
}

func TestCRM_Leads(t *testing.T) {
	// Arrange
	env := newTestEnv(t, "")
	token := env.register(t, "grace@example.com")
	lead := env.do(t, http.MethodPost, "/api/crm/leads", token, map[string]any{"title": "Big deal"})
	require.Equal(t, http.StatusCreated, lead.status, string(lead.raw))
	leadID := lead.body["id"].(string)

	tests := []struct {
		name       string
		status     string
		wantStatus int
	}{
		{name: "known status", status: "qualified", wantStatus: http.StatusOK},
		{name: "unknown status", status: "maybe", wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp := env.do(t, http.MethodPatch, "/api/crm/leads/"+leadID+"/status", token, map[string]string{"status": test.status})

			// Assert
			assert.Equal(t, test.wantStatus, resp.status, string(resp.raw))
			if test.wantStatus == http.StatusOK {
				assert.Equal(t, test.status, resp.body["status"])
			}
		})
	}

	assert.Equal(t, "new", lead.body["status"])
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: core.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: core.ErrReauthRequired, want: http.StatusUnauthorized},
		{err: errors.Join(core.ErrUpstream, core.ErrReauthRequired), want: http.StatusUnauthorized},
		{err: core.ErrForbidden, want: http.StatusForbidden},
		{err: core.ErrQueryRequired, want: http.StatusBadRequest},
		{err: core.ErrInvalidOAuthState, want: http.StatusBadRequest},
		{err: core.ErrDocumentNotFound, want: http.StatusNotFound},
		{err: core.ErrUserExists, want: http.StatusConflict},
		{err: core.ErrNotImplemented, want: http.StatusNotImplemented},
		{err: core.ErrUpstream, want: http.StatusBadGateway},
		{err: io.ErrUnexpectedEOF, want: http.StatusInternalServerError},
	}

	for _, test := range tests {
		test := test
		name := "nil"
		if test.err != nil {
			name = test.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, mapErrorToStatus(test.err))
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr error
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lower-case scheme", header: "bearer abc", want: "abc"},
		{name: "cookie fallback", cookie: "from-cookie", want: "from-cookie"},
		{name: "wrong scheme", header: "Basic abc", wantErr: core.ErrInvalidAuthHeader},
		{name: "nothing", wantErr: core.ErrMissingAuthHeader},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			app := fiber.New()
			var got string
			var gotErr error
			app.Get("/", func(c fiber.Ctx) error {
				got, gotErr = extractToken(c)
				return c.SendStatus(fiber.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, test.header)
			}
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: authCookie, Value: test.cookie})
			}

			// Act
			_, err := app.Test(req)

			// Assert
			require.NoError(t, err)
			assert.ErrorIs(t, gotErr, test.wantErr)
			assert.Equal(t, test.want, got)
		})
	}
}
