package chi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/studybot/internal/domain"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
	authuc "github.com/kailas-cloud/studybot/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/studybot/internal/usecase/health"
	noteuc "github.com/kailas-cloud/studybot/internal/usecase/note"
	"github.com/kailas-cloud/studybot/internal/version"
)

// AuthCookie carries the access token for browser clients.
const AuthCookie = "auth"

// multipart overhead allowed on top of the file size limit
const formOverheadBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options tunes HTTP behaviour.
type Options struct {
	MaxUploadBytes int64
	SecureCookie   bool
}

// Server serves the study assistant HTTP API.
type Server struct {
	accounts      Accounts
	notes         Notes
	chat          Chat
	health        HealthChecker
	logger        *zap.Logger
	opts          Options
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	accounts Accounts,
	notes Notes,
	chat Chat,
	health HealthChecker,
	logger *zap.Logger,
	opts Options,
) *Server {
	s := &Server{
		accounts: accounts,
		notes:    notes,
		chat:     chat,
		health:   health,
		logger:   logger,
		opts:     opts,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNoteNotFound, http.StatusNotFound, CodeNoteNotFound),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusBadGateway, CodeStorageUnavailable),
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r gochi.Router) {
		r.Post("/signup", s.Signup)
		r.Post("/login", s.Login)
		r.Post("/logout", s.Logout)
	})
	r.Get("/me", s.Me)

	r.Post("/chat", s.Chat)

	r.Route("/notes", func(r gochi.Router) {
		r.Get("/", s.ListNotes)
		r.Get("/subjects", s.ListSubjects)
		r.With(RequireRole(domuser.RoleStaff)).Post("/", s.UploadNote)
		r.Get("/{id}", s.GetNote)
		r.Get("/{id}/file", s.DownloadNote)
		r.With(RequireRole(domuser.RoleStaff)).Delete("/{id}", s.DeleteNote)
	})
	r.With(RequireRole(domuser.RoleStaff)).Get("/staff/notes", s.ListOwnNotes)

	r.Route("/sessions", func(r gochi.Router) {
		r.Use(RequireRole(domuser.RoleStudent))
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Get("/{id}/messages", s.ListMessages)
		r.Post("/{id}/messages", s.SendMessage)
	})
}

// Signup handles POST /auth/signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.accounts.Register(r.Context(), authuc.Registration{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profileToResponse(&u))
}

// Login handles POST /auth/login. The token is returned in the body, a cookie
// and the Authorization header.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tok, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    tok.Value,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Authorization", "Bearer "+tok.Value)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		User:      profileToResponse(&tok.User),
	})
}

// Logout handles POST /auth/logout.
func (s *Server) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	p := callerFrom(r)
	u, err := s.accounts.Profile(r.Context(), p.ID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(&u))
}

// Chat handles POST /chat. With a sessionId the exchange is also stored in
// the caller's session.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID != "" {
		ex, err := s.chat.Send(r.Context(), callerFrom(r), req.SessionID, req.Message)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Reply: ex.Assistant.Content, RelatedNotes: ex.Assistant.RelatedNotes})
		return
	}

	reply, err := s.chat.Reply(r.Context(), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply.Text, RelatedNotes: reply.RelatedDocumentIDs})
}

// ListNotes handles GET /notes?q=&subject=.
func (s *Server) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := s.notes.Search(r.Context(), q.Get("q"), q.Get("subject"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notesToResponse(notes))
}

// ListSubjects handles GET /notes/subjects.
func (s *Server) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.notes.Subjects(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjectsResponse{Items: subjects})
}

// ListOwnNotes handles GET /staff/notes?q=.
func (s *Server) ListOwnNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.ListOwn(r.Context(), callerFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notesToResponse(notes))
}

// UploadNote handles POST /notes (multipart: title, subject, description, file).
func (s *Server) UploadNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(formOverheadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, domain.ErrPayloadTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	meta := domnote.Meta{
		Title:       r.FormValue("title"),
		Subject:     r.FormValue("subject"),
		Description: r.FormValue("description"),
	}
	n, err := s.notes.Upload(r.Context(), callerFrom(r), meta, noteuc.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/notes/"+n.ID())
	writeJSON(w, http.StatusCreated, noteToResponse(&n, false))
}

// GetNote handles GET /notes/{id}.
func (s *Server) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.notes.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, noteToResponse(&n, true))
}

// DownloadNote handles GET /notes/{id}/file.
func (s *Server) DownloadNote(w http.ResponseWriter, r *http.Request) {
	d, err := s.notes.Download(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	defer func() { _ = d.Body.Close() }()

	if d.ContentType != "" {
		w.Header().Set("Content-Type", d.ContentType)
	}
	if d.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, d.Body); err != nil {
		s.logger.Warn("download interrupted", zap.Error(err))
	}
}

// DeleteNote handles DELETE /notes/{id}.
func (s *Server) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), callerFrom(r), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.chat.CreateSession(r.Context(), callerFrom(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToResponse(&sess))
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.chat.ListSessions(r.Context(), callerFrom(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]sessionResponse, len(list))
	for i := range list {
		items[i] = sessionToResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ListMessages handles GET /sessions/{id}/messages.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.Messages(r.Context(), callerFrom(r), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		items[i] = messageToResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SendMessage handles POST /sessions/{id}/messages.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ex, err := s.chat.Send(r.Context(), callerFrom(r), gochi.URLParam(r, "id"), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exchangeResponse{
		User:      messageToResponse(ex.User),
		Assistant: messageToResponse(ex.Assistant),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNoteNotFound,
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidInput,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrPayloadTooLarge,
		domain.ErrStorageUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the offending field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, ve.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
