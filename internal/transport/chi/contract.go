package chi

import (
	"context"

	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
	authuc "github.com/kailas-cloud/studybot/internal/usecase/auth"
	chatuc "github.com/kailas-cloud/studybot/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/studybot/internal/usecase/health"
	noteuc "github.com/kailas-cloud/studybot/internal/usecase/note"
)

// Accounts is the auth use case as seen by the HTTP layer.
type Accounts interface {
	Register(ctx context.Context, reg authuc.Registration) (domuser.User, error)
	Login(ctx context.Context, email, password string) (authuc.Token, error)
	Profile(ctx context.Context, id string) (domuser.User, error)
}

// Authenticator resolves a bearer credential to a principal.
type Authenticator interface {
	Authenticate(credential string) (domuser.Principal, error)
}

// Notes is the note use case as seen by the HTTP layer.
type Notes interface {
	Upload(ctx context.Context, caller domuser.Principal, meta domnote.Meta, up noteuc.Upload) (domnote.Note, error)
	List(ctx context.Context) ([]domnote.Note, error)
	Search(ctx context.Context, term, subject string) ([]domnote.Note, error)
	Subjects(ctx context.Context) ([]string, error)
	ListOwn(ctx context.Context, caller domuser.Principal, term string) ([]domnote.Note, error)
	Get(ctx context.Context, id string) (domnote.Note, error)
	Delete(ctx context.Context, caller domuser.Principal, id string) error
	Download(ctx context.Context, id string) (noteuc.Download, error)
}

// Chat is the chat use case as seen by the HTTP layer.
type Chat interface {
	Reply(ctx context.Context, message string) (assistant.Reply, error)
	CreateSession(ctx context.Context, caller domuser.Principal) (domsession.Session, error)
	ListSessions(ctx context.Context, caller domuser.Principal) ([]domsession.Session, error)
	Messages(ctx context.Context, caller domuser.Principal, sessionID string) ([]domsession.Message, error)
	Send(ctx context.Context, caller domuser.Principal, sessionID, message string) (chatuc.Exchange, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
