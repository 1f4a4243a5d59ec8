package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/studybot/internal/domain"
	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
	authuc "github.com/kailas-cloud/studybot/internal/usecase/auth"
	chatuc "github.com/kailas-cloud/studybot/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/studybot/internal/usecase/health"
	noteuc "github.com/kailas-cloud/studybot/internal/usecase/note"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testNote(id string) domnote.Note {
	return domnote.Reconstruct(id,
		domnote.Meta{Title: "Osmosis", Subject: "Biology", Description: "Water transport"},
		domnote.File{Key: "notes/" + id + "/osmosis.txt", URL: "http://minio/notes/osmosis.txt",
			Name: "osmosis.txt", Type: "text/plain", Size: 42},
		"Water moves across a membrane.", "staff-1", fixedNow, fixedNow)
}

func do(t *testing.T, h http.Handler, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, want, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, want ErrorCode) {
	t.Helper()
	if code := decodeErrorCode(t, rr); code != want {
		t.Errorf("error code = %q, want %q", code, want)
	}
}

// --- Auth ---

func TestSignup_Created(t *testing.T) {
	d := newTestDeps()
	d.accounts.registerFn = func(_ context.Context, reg authuc.Registration) (domuser.User, error) {
		if reg.Role != "staff" {
			t.Errorf("role = %q, want staff", reg.Role)
		}
		return domuser.Reconstruct("u1", reg.Email, reg.FullName, domuser.RoleStaff, "hash", fixedNow, fixedNow), nil
	}

	rr := do(t, d.handler(), "POST", "/auth/signup", "", jsonBody(t, map[string]string{
		"email": "t@example.com", "password": "secret123", "fullName": "Tea Cher", "role": "staff",
	}))

	expectStatus(t, rr, http.StatusCreated)
	if strings.Contains(rr.Body.String(), "hash") {
		t.Error("password hash leaked into the response")
	}
	var resp profileResponse
	decodeBody(t, rr, &resp)
	if resp.ID != "u1" || resp.Role != "staff" {
		t.Errorf("profile = %+v", resp)
	}
}

func TestSignup_ValidationError(t *testing.T) {
	d := newTestDeps()
	d.accounts.registerFn = func(context.Context, authuc.Registration) (domuser.User, error) {
		return domuser.User{}, domain.NewValidationError("password", "must be at most 72 bytes")
	}

	rr := do(t, d.handler(), "POST", "/auth/signup", "", jsonBody(t, map[string]string{"email": "x@y.z"}))

	expectStatus(t, rr, http.StatusBadRequest)
	expectErrorCode(t, rr, CodeValidationFailed)
}

func TestSignup_Duplicate(t *testing.T) {
	d := newTestDeps()
	d.accounts.registerFn = func(context.Context, authuc.Registration) (domuser.User, error) {
		return domuser.User{}, fmt.Errorf("create user: %w", domain.ErrAlreadyExists)
	}

	rr := do(t, d.handler(), "POST", "/auth/signup", "", jsonBody(t, map[string]string{"email": "x@y.z"}))

	expectStatus(t, rr, http.StatusConflict)
	expectErrorCode(t, rr, CodeAlreadyExists)
}

func TestSignup_MalformedJSON(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), "POST", "/auth/signup", "", strings.NewReader("{"))

	expectStatus(t, rr, http.StatusBadRequest)
	expectErrorCode(t, rr, CodeBadRequest)
}

func TestLogin_SetsCookieAndHeader(t *testing.T) {
	d := newTestDeps()
	exp := fixedNow.Add(24 * time.Hour)
	d.accounts.loginFn = func(_ context.Context, email, password string) (authuc.Token, error) {
		if email != "s@example.com" || password != "secret123" {
			t.Errorf("credentials = %q / %q", email, password)
		}
		u := domuser.Reconstruct("u2", email, "Stu Dent", domuser.RoleStudent, "hash", fixedNow, fixedNow)
		return authuc.Token{Value: "jwt-value", ExpiresAt: exp, User: u}, nil
	}

	rr := do(t, d.handler(), "POST", "/auth/login", "", jsonBody(t, map[string]string{
		"email": "s@example.com", "password": "secret123",
	}))

	expectStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Authorization"); got != "Bearer jwt-value" {
		t.Errorf("Authorization = %q", got)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if c := cookies[0]; c.Name != AuthCookie || c.Value != "jwt-value" || !c.HttpOnly {
		t.Errorf("cookie = %+v", c)
	}

	var resp loginResponse
	decodeBody(t, rr, &resp)
	if resp.Token != "jwt-value" || resp.User.Role != "student" {
		t.Errorf("login = %+v", resp)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	d := newTestDeps()
	d.accounts.loginFn = func(context.Context, string, string) (authuc.Token, error) {
		return authuc.Token{}, domain.ErrUnauthorized
	}

	rr := do(t, d.handler(), "POST", "/auth/login", "", jsonBody(t, map[string]string{"email": "a@b.c"}))

	expectStatus(t, rr, http.StatusUnauthorized)
	expectErrorCode(t, rr, CodeUnauthorized)
}

func TestLogout_ClearsCookie(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), "POST", "/auth/logout", "", nil)

	expectStatus(t, rr, http.StatusNoContent)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if c := cookies[0]; c.Name != AuthCookie || c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie = %+v", c)
	}
}

func TestMe(t *testing.T) {
	d := newTestDeps()
	d.accounts.profileFn = func(_ context.Context, id string) (domuser.User, error) {
		if id != "student-1" {
			t.Errorf("profile id = %q", id)
		}
		return domuser.Reconstruct(id, "s@example.com", "Stu", domuser.RoleStudent, "h", fixedNow, fixedNow), nil
	}

	rr := do(t, d.handler(), "GET", "/me", "student-token", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"email":"s@example.com"`) {
		t.Errorf("body = %s", rr.Body.String())
	}

	rr = do(t, d.handler(), "GET", "/me", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

// --- Chat ---

func TestChat_Stateless(t *testing.T) {
	d := newTestDeps()
	d.chat.replyFn = func(_ context.Context, message string) (assistant.Reply, error) {
		if message != "explain osmosis" {
			t.Errorf("message = %q", message)
		}
		return assistant.Reply{Text: "Based on...", RelatedDocumentIDs: []string{"n1"}, Intent: assistant.IntentExplain}, nil
	}

	rr := do(t, d.handler(), "POST", "/chat", "staff-token", jsonBody(t, map[string]string{"message": "explain osmosis"}))

	expectStatus(t, rr, http.StatusOK)
	var resp chatResponse
	decodeBody(t, rr, &resp)
	if resp.Reply != "Based on..." || len(resp.RelatedNotes) != 1 || resp.RelatedNotes[0] != "n1" {
		t.Errorf("chat = %+v", resp)
	}
}

func TestChat_WithSessionStoresExchange(t *testing.T) {
	d := newTestDeps()
	d.chat.sendFn = func(_ context.Context, caller domuser.Principal, sessionID, message string) (chatuc.Exchange, error) {
		if caller.ID != "student-1" || sessionID != "sess-1" {
			t.Errorf("send caller = %q session = %q", caller.ID, sessionID)
		}
		return chatuc.Exchange{
			User:      domsession.NewUserMessage("m1", sessionID, message, fixedNow),
			Assistant: domsession.NewAssistantMessage("m2", sessionID, "Hello!", nil, fixedNow),
		}, nil
	}

	rr := do(t, d.handler(), "POST", "/chat", "student-token",
		jsonBody(t, map[string]string{"message": "hi", "sessionId": "sess-1"}))

	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"relatedNotes":[]`) {
		t.Errorf("relatedNotes should be an empty array: %s", rr.Body.String())
	}
	var resp chatResponse
	decodeBody(t, rr, &resp)
	if resp.Reply != "Hello!" {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestChat_RequiresAuth(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), "POST", "/chat", "", jsonBody(t, map[string]string{"message": "hi"}))
	expectStatus(t, rr, http.StatusUnauthorized)
}

// --- Notes ---

func TestListNotes_PassesQueryAndSubject(t *testing.T) {
	d := newTestDeps()
	d.notes.searchFn = func(_ context.Context, term, subject string) ([]domnote.Note, error) {
		if term != "osmo" || subject != "Cell Biology" {
			t.Errorf("search term = %q subject = %q", term, subject)
		}
		return []domnote.Note{testNote("n1")}, nil
	}

	rr := do(t, d.handler(), "GET", "/notes?q=osmo&subject=Cell+Biology", "student-token", nil)

	expectStatus(t, rr, http.StatusOK)
	var resp noteListResponse
	decodeBody(t, rr, &resp)
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("list = %+v", resp)
	}
	if resp.Items[0].ID != "n1" {
		t.Errorf("id = %q", resp.Items[0].ID)
	}
	if resp.Items[0].ContentText != "" {
		t.Error("list view should omit extracted text")
	}
}

func TestListNotes_NoFilters(t *testing.T) {
	d := newTestDeps()
	d.notes.searchFn = func(_ context.Context, term, subject string) ([]domnote.Note, error) {
		if term != "" || subject != "" {
			t.Errorf("search term = %q subject = %q", term, subject)
		}
		return nil, nil
	}

	rr := do(t, d.handler(), "GET", "/notes", "student-token", nil)

	expectStatus(t, rr, http.StatusOK)
	if got := strings.TrimSpace(rr.Body.String()); got != `{"items":[],"total":0}` {
		t.Errorf("body = %s", got)
	}
}

func TestListSubjects(t *testing.T) {
	d := newTestDeps()
	d.notes.subjectsFn = func(context.Context) ([]string, error) {
		return []string{"Biology", "Math"}, nil
	}

	rr := do(t, d.handler(), "GET", "/notes/subjects", "student-token", nil)

	expectStatus(t, rr, http.StatusOK)
	var resp subjectsResponse
	decodeBody(t, rr, &resp)
	if strings.Join(resp.Items, ",") != "Biology,Math" {
		t.Errorf("subjects = %v", resp.Items)
	}
}

func TestGetNote_IncludesContent(t *testing.T) {
	d := newTestDeps()
	d.notes.getFn = func(_ context.Context, id string) (domnote.Note, error) {
		return testNote(id), nil
	}

	rr := do(t, d.handler(), "GET", "/notes/n7", "student-token", nil)

	expectStatus(t, rr, http.StatusOK)
	var resp noteResponse
	decodeBody(t, rr, &resp)
	if resp.ID != "n7" || resp.ContentText != "Water moves across a membrane." {
		t.Errorf("note = %+v", resp)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	d := newTestDeps()
	d.notes.getFn = func(context.Context, string) (domnote.Note, error) {
		return domnote.Note{}, fmt.Errorf("get note: %w", domain.ErrNoteNotFound)
	}

	rr := do(t, d.handler(), "GET", "/notes/missing", "student-token", nil)

	expectStatus(t, rr, http.StatusNotFound)
	expectErrorCode(t, rr, CodeNoteNotFound)
}

func TestDownloadNote_StreamsFile(t *testing.T) {
	d := newTestDeps()
	d.notes.downloadFn = func(context.Context, string) (noteuc.Download, error) {
		return noteuc.Download{
			Body:        io.NopCloser(strings.NewReader("file bytes")),
			Name:        "osmosis notes.txt",
			ContentType: "text/plain",
			Size:        10,
		}, nil
	}

	rr := do(t, d.handler(), "GET", "/notes/n1/file", "student-token", nil)

	expectStatus(t, rr, http.StatusOK)
	headers := map[string]string{
		"Content-Type":        "text/plain",
		"Content-Length":      "10",
		"Content-Disposition": `attachment; filename="osmosis notes.txt"`,
	}
	for k, want := range headers {
		if got := rr.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if rr.Body.String() != "file bytes" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func multipartNote(t *testing.T, withFile bool) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{{"title", "Osmosis"}, {"subject", "Biology"}, {"description", "Water transport"}}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if withFile {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="osmosis.txt"`)
		h.Set("Content-Type", "text/plain")
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte("Water moves across a membrane.")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postNote(t *testing.T, h http.Handler, token string, withFile bool) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartNote(t, withFile)
	req := httptest.NewRequest("POST", "/notes", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUploadNote_Created(t *testing.T) {
	d := newTestDeps()
	d.notes.uploadFn = func(
		_ context.Context, caller domuser.Principal, meta domnote.Meta, up noteuc.Upload,
	) (domnote.Note, error) {
		if caller.ID != "staff-1" || meta.Title != "Osmosis" {
			t.Errorf("caller = %q title = %q", caller.ID, meta.Title)
		}
		if up.Name != "osmosis.txt" || up.ContentType != "text/plain" {
			t.Errorf("upload name = %q type = %q", up.Name, up.ContentType)
		}
		body, err := io.ReadAll(up.Body)
		if err != nil {
			t.Fatalf("read upload: %v", err)
		}
		if string(body) != "Water moves across a membrane." {
			t.Errorf("upload body = %q", body)
		}
		return testNote("n9"), nil
	}

	rr := postNote(t, d.handler(), "staff-token", true)

	expectStatus(t, rr, http.StatusCreated)
	if loc := rr.Header().Get("Location"); loc != "/notes/n9" {
		t.Errorf("Location = %q", loc)
	}
}

func TestUploadNote_MissingFile(t *testing.T) {
	d := newTestDeps()
	rr := postNote(t, d.handler(), "staff-token", false)

	expectStatus(t, rr, http.StatusBadRequest)
	expectErrorCode(t, rr, CodeValidationFailed)
}

func TestUploadNote_StudentForbidden(t *testing.T) {
	d := newTestDeps()
	rr := postNote(t, d.handler(), "student-token", true)
	expectStatus(t, rr, http.StatusForbidden)
}

func TestUploadNote_TooLarge(t *testing.T) {
	d := newTestDeps()
	d.notes.uploadFn = func(context.Context, domuser.Principal, domnote.Meta, noteuc.Upload) (domnote.Note, error) {
		return domnote.Note{}, domain.ErrPayloadTooLarge
	}

	rr := postNote(t, d.handler(), "staff-token", true)

	expectStatus(t, rr, http.StatusRequestEntityTooLarge)
	expectErrorCode(t, rr, CodePayloadTooLarge)
}

func TestDeleteNote(t *testing.T) {
	d := newTestDeps()
	d.notes.deleteFn = func(_ context.Context, caller domuser.Principal, id string) error {
		if caller.ID != "staff-1" {
			t.Errorf("caller = %q", caller.ID)
		}
		if id == "foreign" {
			return domain.ErrForbidden
		}
		return nil
	}
	h := d.handler()

	tests := []struct {
		path, token string
		want        int
	}{
		{"/notes/n1", "staff-token", http.StatusNoContent},
		{"/notes/foreign", "staff-token", http.StatusForbidden},
		{"/notes/n1", "student-token", http.StatusForbidden},
	}
	for _, tc := range tests {
		if rr := do(t, h, "DELETE", tc.path, tc.token, nil); rr.Code != tc.want {
			t.Errorf("DELETE %s as %s: status = %d, want %d", tc.path, tc.token, rr.Code, tc.want)
		}
	}
}

func TestListOwnNotes(t *testing.T) {
	d := newTestDeps()
	d.notes.listOwnFn = func(_ context.Context, caller domuser.Principal, term string) ([]domnote.Note, error) {
		if caller.ID != "staff-1" || term != "bio" {
			t.Errorf("caller = %q term = %q", caller.ID, term)
		}
		return nil, nil
	}

	rr := do(t, d.handler(), "GET", "/staff/notes?q=bio", "staff-token", nil)

	expectStatus(t, rr, http.StatusOK)
	if got := strings.TrimSpace(rr.Body.String()); got != `{"items":[],"total":0}` {
		t.Errorf("body = %s", got)
	}
}

// --- Sessions ---

func TestSessions_Lifecycle(t *testing.T) {
	d := newTestDeps()
	sess := domsession.Reconstruct("sess-1", "student-1", domsession.DefaultTitle, fixedNow, fixedNow)
	d.chat.createSessionFn = func(context.Context, domuser.Principal) (domsession.Session, error) {
		return sess, nil
	}
	d.chat.listSessionsFn = func(context.Context, domuser.Principal) ([]domsession.Session, error) {
		return []domsession.Session{sess}, nil
	}
	d.chat.messagesFn = func(_ context.Context, _ domuser.Principal, id string) ([]domsession.Message, error) {
		if id != "sess-1" {
			return nil, domain.ErrSessionNotFound
		}
		return []domsession.Message{domsession.NewUserMessage("m1", id, "hello", fixedNow)}, nil
	}
	d.chat.sendFn = func(_ context.Context, _ domuser.Principal, id, message string) (chatuc.Exchange, error) {
		return chatuc.Exchange{
			User:      domsession.NewUserMessage("m1", id, message, fixedNow),
			Assistant: domsession.NewAssistantMessage("m2", id, "reply", []string{"n1"}, fixedNow),
		}, nil
	}
	h := d.handler()

	rr := do(t, h, "POST", "/sessions", "student-token", nil)
	expectStatus(t, rr, http.StatusCreated)
	if !strings.Contains(rr.Body.String(), `"title":"New Chat"`) {
		t.Errorf("create body = %s", rr.Body.String())
	}

	rr = do(t, h, "GET", "/sessions", "student-token", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"id":"sess-1"`) {
		t.Errorf("list body = %s", rr.Body.String())
	}

	rr = do(t, h, "GET", "/sessions/sess-1/messages", "student-token", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"relatedNotes":[]`) {
		t.Errorf("messages body = %s", rr.Body.String())
	}

	rr = do(t, h, "GET", "/sessions/other/messages", "student-token", nil)
	expectStatus(t, rr, http.StatusNotFound)
	expectErrorCode(t, rr, CodeSessionNotFound)

	rr = do(t, h, "POST", "/sessions/sess-1/messages", "student-token", jsonBody(t, map[string]string{"message": "hi"}))
	expectStatus(t, rr, http.StatusCreated)
	var ex exchangeResponse
	decodeBody(t, rr, &ex)
	if ex.User.Role != "user" || ex.Assistant.Role != "assistant" {
		t.Errorf("roles = %q / %q", ex.User.Role, ex.Assistant.Role)
	}
	if len(ex.Assistant.RelatedNotes) != 1 || ex.Assistant.RelatedNotes[0] != "n1" {
		t.Errorf("related = %v", ex.Assistant.RelatedNotes)
	}
}

func TestSessions_StaffForbidden(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), "GET", "/sessions", "staff-token", nil)
	expectStatus(t, rr, http.StatusForbidden)
}

// --- Health and errors ---

func TestHealthCheck(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), "GET", "/health", "", nil)
	expectStatus(t, rr, http.StatusOK)

	var resp healthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" || resp.Version != "dev" || resp.Checks["database"] != "ok" || len(resp.Checks) != 1 {
		t.Errorf("health = %+v", resp)
	}

	d.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "objects": healthuc.CheckError},
	}
	rr = do(t, d.handler(), "GET", "/health", "", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
}

func TestHandleDomainError_HidesInternals(t *testing.T) {
	d := newTestDeps()
	d.notes.getFn = func(context.Context, string) (domnote.Note, error) {
		return domnote.Note{}, fmt.Errorf("redis: connection reset by 10.0.0.5:6379")
	}

	rr := do(t, d.handler(), "GET", "/notes/n1", "student-token", nil)

	expectStatus(t, rr, http.StatusInternalServerError)
	if strings.Contains(rr.Body.String(), "10.0.0.5") {
		t.Error("internal error details leaked")
	}
	expectErrorCode(t, rr, CodeInternalError)
}

func TestHandleDomainError_StorageUnavailable(t *testing.T) {
	d := newTestDeps()
	d.notes.downloadFn = func(context.Context, string) (noteuc.Download, error) {
		return noteuc.Download{}, fmt.Errorf("get object: %w", domain.ErrStorageUnavailable)
	}

	rr := do(t, d.handler(), "GET", "/notes/n1/file", "student-token", nil)

	expectStatus(t, rr, http.StatusBadGateway)
	expectErrorCode(t, rr, CodeStorageUnavailable)
}
