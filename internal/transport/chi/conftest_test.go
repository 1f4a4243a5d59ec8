package chi

import (
	"context"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
	authuc "github.com/kailas-cloud/studybot/internal/usecase/auth"
	chatuc "github.com/kailas-cloud/studybot/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/studybot/internal/usecase/health"
	noteuc "github.com/kailas-cloud/studybot/internal/usecase/note"
)

type mockAccounts struct {
	registerFn func(ctx context.Context, reg authuc.Registration) (domuser.User, error)
	loginFn    func(ctx context.Context, email, password string) (authuc.Token, error)
	profileFn  func(ctx context.Context, id string) (domuser.User, error)
}

func (m *mockAccounts) Register(ctx context.Context, reg authuc.Registration) (domuser.User, error) {
	return m.registerFn(ctx, reg)
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (authuc.Token, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAccounts) Profile(ctx context.Context, id string) (domuser.User, error) {
	return m.profileFn(ctx, id)
}

type mockNotes struct {
	uploadFn   func(ctx context.Context, caller domuser.Principal, meta domnote.Meta, up noteuc.Upload) (domnote.Note, error)
	listFn     func(ctx context.Context) ([]domnote.Note, error)
	searchFn   func(ctx context.Context, term, subject string) ([]domnote.Note, error)
	subjectsFn func(ctx context.Context) ([]string, error)
	listOwnFn  func(ctx context.Context, caller domuser.Principal, term string) ([]domnote.Note, error)
	getFn      func(ctx context.Context, id string) (domnote.Note, error)
	deleteFn   func(ctx context.Context, caller domuser.Principal, id string) error
	downloadFn func(ctx context.Context, id string) (noteuc.Download, error)
}

func (m *mockNotes) Upload(
	ctx context.Context, caller domuser.Principal, meta domnote.Meta, up noteuc.Upload,
) (domnote.Note, error) {
	return m.uploadFn(ctx, caller, meta, up)
}

func (m *mockNotes) List(ctx context.Context) ([]domnote.Note, error) {
	return m.listFn(ctx)
}

func (m *mockNotes) Search(ctx context.Context, term, subject string) ([]domnote.Note, error) {
	return m.searchFn(ctx, term, subject)
}

func (m *mockNotes) Subjects(ctx context.Context) ([]string, error) {
	return m.subjectsFn(ctx)
}

func (m *mockNotes) ListOwn(ctx context.Context, caller domuser.Principal, term string) ([]domnote.Note, error) {
	return m.listOwnFn(ctx, caller, term)
}

func (m *mockNotes) Get(ctx context.Context, id string) (domnote.Note, error) {
	return m.getFn(ctx, id)
}

func (m *mockNotes) Delete(ctx context.Context, caller domuser.Principal, id string) error {
	return m.deleteFn(ctx, caller, id)
}

func (m *mockNotes) Download(ctx context.Context, id string) (noteuc.Download, error) {
	return m.downloadFn(ctx, id)
}

type mockChat struct {
	replyFn         func(ctx context.Context, message string) (assistant.Reply, error)
	createSessionFn func(ctx context.Context, caller domuser.Principal) (domsession.Session, error)
	listSessionsFn  func(ctx context.Context, caller domuser.Principal) ([]domsession.Session, error)
	messagesFn      func(ctx context.Context, caller domuser.Principal, sessionID string) ([]domsession.Message, error)
	sendFn          func(ctx context.Context, caller domuser.Principal, sessionID, message string) (chatuc.Exchange, error)
}

func (m *mockChat) Reply(ctx context.Context, message string) (assistant.Reply, error) {
	return m.replyFn(ctx, message)
}

func (m *mockChat) CreateSession(ctx context.Context, caller domuser.Principal) (domsession.Session, error) {
	return m.createSessionFn(ctx, caller)
}

func (m *mockChat) ListSessions(ctx context.Context, caller domuser.Principal) ([]domsession.Session, error) {
	return m.listSessionsFn(ctx, caller)
}

func (m *mockChat) Messages(
	ctx context.Context, caller domuser.Principal, sessionID string,
) ([]domsession.Message, error) {
	return m.messagesFn(ctx, caller, sessionID)
}

func (m *mockChat) Send(
	ctx context.Context, caller domuser.Principal, sessionID, message string,
) (chatuc.Exchange, error) {
	return m.sendFn(ctx, caller, sessionID, message)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testDeps struct {
	accounts *mockAccounts
	notes    *mockNotes
	chat     *mockChat
	health   *mockHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		accounts: &mockAccounts{},
		notes:    &mockNotes{},
		chat:     &mockChat{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
}

func (d *testDeps) handler() http.Handler {
	srv := NewServer(d.accounts, d.notes, d.chat, d.health, zap.NewNop(), Options{MaxUploadBytes: 1 << 10})
	r := gochi.NewRouter()
	r.Use(CORSMiddleware)
	r.Use(AuthMiddleware(testAuthn))
	srv.Routes(r)
	return r
}
