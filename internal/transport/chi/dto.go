package chi

import (
	"time"

	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeNotFound           ErrorCode = "not_found"
	CodeNoteNotFound       ErrorCode = "note_not_found"
	CodeSessionNotFound    ErrorCode = "session_not_found"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodePayloadTooLarge    ErrorCode = "payload_too_large"
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      profileResponse `json:"user"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatResponse struct {
	Reply        string   `json:"reply"`
	RelatedNotes []string `json:"relatedNotes"`
}

type noteResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	FileName    string    `json:"fileName"`
	FileType    string    `json:"fileType"`
	FileSize    int64     `json:"fileSize"`
	ContentText string    `json:"contentText,omitempty"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type subjectsResponse struct {
	Items []string `json:"items"`
}

type noteListResponse struct {
	Items []noteResponse `json:"items"`
	Total int            `json:"total"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	RelatedNotes []string  `json:"relatedNotes"`
	CreatedAt    time.Time `json:"createdAt"`
}

type exchangeResponse struct {
	User      messageResponse `json:"user"`
	Assistant messageResponse `json:"assistant"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func profileToResponse(u *domuser.User) profileResponse {
	return profileResponse{
		ID:        u.ID(),
		Email:     u.Email(),
		FullName:  u.FullName(),
		Role:      string(u.Role()),
		CreatedAt: u.CreatedAt(),
	}
}

func noteToResponse(n *domnote.Note, withContent bool) noteResponse {
	f := n.File()
	resp := noteResponse{
		ID:          n.ID(),
		Title:       n.Title(),
		Subject:     n.Subject(),
		Description: n.Description(),
		FileURL:     f.URL,
		FileName:    f.Name,
		FileType:    f.Type,
		FileSize:    f.Size,
		UploadedBy:  n.UploadedBy(),
		CreatedAt:   n.CreatedAt(),
		UpdatedAt:   n.UpdatedAt(),
	}
	if withContent {
		resp.ContentText = n.ContentText()
	}
	return resp
}

func notesToResponse(notes []domnote.Note) noteListResponse {
	items := make([]noteResponse, len(notes))
	for i := range notes {
		items[i] = noteToResponse(&notes[i], false)
	}
	return noteListResponse{Items: items, Total: len(items)}
}

func sessionToResponse(s *domsession.Session) sessionResponse {
	return sessionResponse{ID: s.ID(), Title: s.Title(), CreatedAt: s.CreatedAt(), UpdatedAt: s.UpdatedAt()}
}

func messageToResponse(m domsession.Message) messageResponse {
	related := m.RelatedNotes
	if related == nil {
		related = []string{}
	}
	return messageResponse{
		ID:           m.ID,
		Role:         string(m.Role),
		Content:      m.Content,
		RelatedNotes: related,
		CreatedAt:    m.CreatedAt,
	}
}
