package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lborres/kontak/core"
)

// FakeStorageProvider is a test-only fake implementing core.Storage.
// It keeps rows in maps and exposes error fields for behavior injection.
type FakeStorageProvider struct {
	mu sync.RWMutex

	users          map[string]*core.User
	sessions       map[string]*core.Session // by token hash
	companies      map[string]*core.Company
	contacts       map[string]*core.Contact
	leads          map[string]*core.Lead
	tasks          map[string]*core.Task
	communications map[string]*core.Communication
	documents      map[string]*core.Document
	emails         []*core.EmailRecord
	settings       map[string]*core.IntegrationSettings
	seq            int

	createUserErr    error
	getUserErr       error
	createSessionErr error
	getSessionErr    error
	deleteSessionErr error
	createDocErr     error
	createEmailErr   error
}

var _ core.Storage = (*FakeStorageProvider)(nil)

func NewFakeStorageProvider() *FakeStorageProvider {
	return &FakeStorageProvider{
		users:          make(map[string]*core.User),
		sessions:       make(map[string]*core.Session),
		companies:      make(map[string]*core.Company),
		contacts:       make(map[string]*core.Contact),
		leads:          make(map[string]*core.Lead),
		tasks:          make(map[string]*core.Task),
		communications: make(map[string]*core.Communication),
		documents:      make(map[string]*core.Document),
		settings:       make(map[string]*core.IntegrationSettings),
	}
}

func (f *FakeStorageProvider) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *FakeStorageProvider) UserCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.users)
}

func (f *FakeStorageProvider) SessionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sessions)
}

// Users

func (f *FakeStorageProvider) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.ErrUserExists
		}
	}
	if u.ID == "" {
		u.ID = f.nextID("user")
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	f.users[u.ID] = u
	return nil
}

func (f *FakeStorageProvider) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (f *FakeStorageProvider) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorageProvider) GetUserByMicrosoftID(_ context.Context, microsoftID string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.MicrosoftID != nil && *u.MicrosoftID == microsoftID {
			return u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorageProvider) UpdateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return core.ErrUserNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *FakeStorageProvider) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *FakeStorageProvider) LinkMicrosoftAccount(_ context.Context, userID string, profile *core.MicrosoftProfile, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	id, mail, account := profile.ID, profile.Email(), accountID
	u.MicrosoftID, u.MicrosoftEmail, u.MicrosoftAccountID = &id, &mail, &account
	return nil
}

func (f *FakeStorageProvider) UnlinkMicrosoftAccount(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.MicrosoftAccountID = nil
	return nil
}

// Sessions

func (f *FakeStorageProvider) CreateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeStorageProvider) GetSessionByHash(_ context.Context, tokenHash string) (*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	s, ok := f.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s, nil
}

func (f *FakeStorageProvider) GetUserSessions(_ context.Context, userID string) ([]*core.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var sessions []*core.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (f *FakeStorageProvider) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteSessionErr != nil {
		return f.deleteSessionErr
	}
	if _, ok := f.sessions[tokenHash]; !ok {
		return core.ErrSessionNotFound
	}
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeStorageProvider) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for k, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

func (f *FakeStorageProvider) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for k, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, k)
			count++
		}
	}
	return count, nil
}

// CRM

func (f *FakeStorageProvider) CreateCompany(_ context.Context, c *core.Company) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("company")
	f.companies[c.ID] = c
	return nil
}

func (f *FakeStorageProvider) GetCompany(_ context.Context, id string) (*core.Company, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return c, nil
}

func (f *FakeStorageProvider) ListCompanies(_ context.Context, opts core.ListOptions) ([]*core.Company, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Company, 0, len(f.companies))
	for _, c := range f.companies {
		if opts.Search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(opts.Search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, opts), nil
}

// DeleteCompany mirrors the schema: dependent documents, communications
// and tasks are removed, contacts and leads lose the reference.
func (f *FakeStorageProvider) DeleteCompany(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.companies, id)
	for k, d := range f.documents {
		if matches(d.CompanyID, id) {
			delete(f.documents, k)
		}
	}
	for k, c := range f.communications {
		if matches(c.CompanyID, id) {
			delete(f.communications, k)
		}
	}
	for k, t := range f.tasks {
		if matches(t.CompanyID, id) {
			delete(f.tasks, k)
		}
	}
	for _, c := range f.contacts {
		if matches(c.CompanyID, id) {
			c.CompanyID = nil
		}
	}
	for _, l := range f.leads {
		if matches(l.CompanyID, id) {
			l.CompanyID = nil
		}
	}
	return nil
}

func (f *FakeStorageProvider) CreateContact(_ context.Context, c *core.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("contact")
	f.contacts[c.ID] = c
	return nil
}

func (f *FakeStorageProvider) GetContact(_ context.Context, id string) (*core.Contact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return c, nil
}

func (f *FakeStorageProvider) ListContactSummaries(_ context.Context, opts core.ListOptions) ([]*core.ContactSummary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.ContactSummary, 0, len(f.contacts))
	for _, c := range f.contacts {
		s := &core.ContactSummary{Contact: *c}
		if c.CompanyID != nil {
			if company, ok := f.companies[*c.CompanyID]; ok {
				s.CompanyName = &company.Name
			}
		}
		for _, d := range f.documents {
			if matches(d.ContactID, c.ID) {
				s.DocumentCount++
			}
		}
		for _, m := range f.communications {
			if matches(m.ContactID, c.ID) {
				s.CommunicationCount++
			}
		}
		for _, t := range f.tasks {
			if matches(t.ContactID, c.ID) && t.Status == core.TaskOpen {
				s.OpenTaskCount++
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts), nil
}

func (f *FakeStorageProvider) DeleteContact(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contacts[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.contacts, id)
	for k, d := range f.documents {
		if matches(d.ContactID, id) {
			delete(f.documents, k)
		}
	}
	for k, c := range f.communications {
		if matches(c.ContactID, id) {
			delete(f.communications, k)
		}
	}
	for k, t := range f.tasks {
		if matches(t.ContactID, id) {
			delete(f.tasks, k)
		}
	}
	for _, l := range f.leads {
		if matches(l.ContactID, id) {
			l.ContactID = nil
		}
	}
	return nil
}

func (f *FakeStorageProvider) CreateLead(_ context.Context, l *core.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.nextID("lead")
	f.leads[l.ID] = l
	return nil
}

func (f *FakeStorageProvider) GetLead(id string) (*core.Lead, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	l, ok := f.leads[id]
	return l, ok
}

func (f *FakeStorageProvider) ListLeads(_ context.Context, opts core.ListOptions) ([]*core.Lead, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Lead, 0, len(f.leads))
	for _, l := range f.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts), nil
}

func (f *FakeStorageProvider) UpdateLeadStatus(_ context.Context, id string, status core.LeadStatus) (*core.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	l.Status = status
	return l, nil
}

func (f *FakeStorageProvider) CreateTask(_ context.Context, t *core.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID("task")
	f.tasks[t.ID] = t
	return nil
}

func (f *FakeStorageProvider) ListTasks(_ context.Context, contactID string, opts core.ListOptions) ([]*core.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Task, 0)
	for _, t := range f.tasks {
		if contactID == "" || matches(t.ContactID, contactID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts), nil
}

func (f *FakeStorageProvider) CompleteTask(_ context.Context, id string, at time.Time) (*core.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	t.Status = core.TaskCompleted
	t.CompletedAt = &at
	return t, nil
}

func (f *FakeStorageProvider) CreateCommunication(_ context.Context, c *core.Communication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("communication")
	f.communications[c.ID] = c
	return nil
}

func (f *FakeStorageProvider) ListCommunications(_ context.Context, contactID string, opts core.ListOptions) ([]*core.Communication, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Communication, 0)
	for _, c := range f.communications {
		if matches(c.ContactID, contactID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return page(out, opts), nil
}

// Documents, email history and settings

func (f *FakeStorageProvider) CreateDocument(_ context.Context, d *core.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createDocErr != nil {
		return f.createDocErr
	}
	d.ID = f.nextID("document")
	f.documents[d.ID] = d
	return nil
}

func (f *FakeStorageProvider) ListContactDocuments(_ context.Context, contactID string) ([]*core.Document, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Document, 0)
	for _, d := range f.documents {
		if matches(d.ContactID, contactID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStorageProvider) DocumentCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.documents)
}

func (f *FakeStorageProvider) CreateEmailRecord(_ context.Context, r *core.EmailRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEmailErr != nil {
		return f.createEmailErr
	}
	r.ID = f.nextID("email")
	f.emails = append(f.emails, r)
	return nil
}

func (f *FakeStorageProvider) ListEmailRecords(_ context.Context, userID string, limit int) ([]*core.EmailRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.EmailRecord, 0)
	for i := len(f.emails) - 1; i >= 0 && len(out) < limit; i-- {
		if f.emails[i].UserID == userID {
			out = append(out, f.emails[i])
		}
	}
	return out, nil
}

func (f *FakeStorageProvider) GetIntegrationSettings(_ context.Context, userID string) (*core.IntegrationSettings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.settings[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return s, nil
}

func (f *FakeStorageProvider) UpsertIntegrationSettings(_ context.Context, s *core.IntegrationSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[s.UserID] = s
	return nil
}

func matches(ref *string, id string) bool {
	return ref != nil && *ref == id
}

func page[T any](rows []T, opts core.ListOptions) []T {
	if opts.Offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[opts.Offset:]
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows
}

// FakeAuthority is a test-only core.MicrosoftAuthority. Exchange and
// Refresh hand out numbered tokens so callers can tell them apart.
type FakeAuthority struct {
	mu sync.Mutex

	exchangeErr error
	refreshErr  error
	expiresIn   time.Duration
	exchanges   int
	refreshes   int
}

var _ core.MicrosoftAuthority = (*FakeAuthority)(nil)

func NewFakeAuthority() *FakeAuthority {
	return &FakeAuthority{expiresIn: time.Hour}
}

func (a *FakeAuthority) AuthCodeURL(state string) string {
	return "https://login.example.test/authorize?state=" + state
}

func (a *FakeAuthority) Exchange(_ context.Context, code string) (*core.ExternalToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	a.exchanges++
	return &core.ExternalToken{
		AccessToken:  fmt.Sprintf("access-%s-%d", code, a.exchanges),
		RefreshToken: "refresh-" + code,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(a.expiresIn),
	}, nil
}

func (a *FakeAuthority) Refresh(_ context.Context, token *core.ExternalToken) (*core.ExternalToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	a.refreshes++
	return &core.ExternalToken{
		AccessToken:  fmt.Sprintf("refreshed-%d", a.refreshes),
		RefreshToken: token.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

// FailRefresh makes every later Refresh return err.
func (a *FakeAuthority) FailRefresh(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshErr = err
}

func (a *FakeAuthority) FailExchange(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchangeErr = err
}

// ExpireTokens makes tokens handed out afterwards expire after d.
func (a *FakeAuthority) ExpireTokens(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expiresIn = d
}

func (a *FakeAuthority) Refreshes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}

// FakeGraph is a test-only core.GraphClient backed by an in-memory drive.
// Folder paths are stored exactly as given.
type FakeGraph struct {
	mu sync.Mutex

	profile  *core.MicrosoftProfile
	teams    []core.Team
	site     core.Site
	folders  map[string]bool
	files    map[string]core.DriveItem // by id
	contents map[string][]byte
	hits     []core.DriveItem
	messages []core.EmailMessage
	sent     []*core.SendEmailInput

	created     []string
	searchSizes []int
	lastFilter  core.EmailFilter
	seq         int

	meErr     error
	teamsErr  error
	uploadErr error
	sendErr   error
}

var _ core.GraphClient = (*FakeGraph)(nil)

func NewFakeGraph(teamName string) *FakeGraph {
	return &FakeGraph{
		profile:  &core.MicrosoftProfile{ID: "ms-alice", DisplayName: "Alice", Mail: "alice@example.com"},
		teams:    []core.Team{{ID: "team-1", DisplayName: teamName}},
		site:     core.Site{ID: "site-1", WebURL: "https://example.sharepoint.test/sites/team"},
		folders:  make(map[string]bool),
		files:    make(map[string]core.DriveItem),
		contents: make(map[string][]byte),
	}
}

// SetTeams replaces the joined teams.
func (g *FakeGraph) SetTeams(teams ...core.Team) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.teams = teams
}

func (g *FakeGraph) SetMessages(messages ...core.EmailMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = messages
}

// Sent returns the messages passed to SendMail.
func (g *FakeGraph) Sent() []*core.SendEmailInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*core.SendEmailInput(nil), g.sent...)
}

func (g *FakeGraph) Me(_ context.Context, _ string) (*core.MicrosoftProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.meErr != nil {
		return nil, g.meErr
	}
	p := *g.profile
	return &p, nil
}

func (g *FakeGraph) JoinedTeams(_ context.Context, _ string) ([]core.Team, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.teamsErr != nil {
		return nil, g.teamsErr
	}
	return append([]core.Team(nil), g.teams...), nil
}

func (g *FakeGraph) TeamSite(_ context.Context, _, _ string) (*core.Site, error) {
	site := g.site
	return &site, nil
}

func (g *FakeGraph) GetItemByPath(_ context.Context, _, _, path string) (*core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.folders[path] {
		return &core.DriveItem{ID: "folder:" + path, Name: path, IsFolder: true}, nil
	}
	return nil, core.ErrFolderNotFound
}

func (g *FakeGraph) GetItem(_ context.Context, _, _, itemID string) (*core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	item, ok := g.files[itemID]
	if !ok {
		return nil, core.ErrFolderNotFound
	}
	return &item, nil
}

func (g *FakeGraph) CreateFolder(_ context.Context, _, _, parentPath, name string) (*core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	path := name
	if parentPath != "" {
		path = parentPath + "/" + name
	}
	g.folders[path] = true
	g.created = append(g.created, path)
	return &core.DriveItem{ID: "folder:" + path, Name: name, IsFolder: true}, nil
}

func (g *FakeGraph) Upload(_ context.Context, _, _, folderPath, fileName string, content io.Reader, size int64) (*core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.uploadErr != nil {
		return nil, g.uploadErr
	}
	if !g.folders[folderPath] {
		return nil, core.ErrFolderNotFound
	}
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	// Same path replaces the existing file and keeps its id.
	id := ""
	for existing, item := range g.files {
		if item.ParentPath == folderPath && item.Name == fileName {
			id = existing
		}
	}
	if id == "" {
		g.seq++
		id = fmt.Sprintf("file-%d", g.seq)
	}
	item := core.DriveItem{
		ID:              id,
		Name:            fileName,
		WebURL:          g.site.WebURL + "/" + folderPath + "/" + fileName,
		Size:            int64(len(body)),
		ParentPath:      folderPath,
		CreatedDateTime: time.Now(),
	}
	g.files[id] = item
	g.contents[id] = body
	return &item, nil
}

func (g *FakeGraph) CreateShareLink(_ context.Context, _, _, itemID string) (string, error) {
	return "https://share.example.test/" + itemID, nil
}

func (g *FakeGraph) ListChildren(_ context.Context, _, _, path string) ([]core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.folders[path] {
		return nil, core.ErrFolderNotFound
	}
	out := make([]core.DriveItem, 0)
	for _, item := range g.files {
		if item.ParentPath == path {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *FakeGraph) Download(_ context.Context, _, _, itemID string) (*core.FileContent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	item, ok := g.files[itemID]
	if !ok {
		return nil, core.ErrFolderNotFound
	}
	body := g.contents[itemID]
	return &core.FileContent{
		Name:        item.Name,
		ContentType: "application/octet-stream",
		Size:        int64(len(body)),
		Body:        io.NopCloser(bytes.NewReader(body)),
	}, nil
}

func (g *FakeGraph) SearchFiles(_ context.Context, _, _ string, size int) ([]core.DriveItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchSizes = append(g.searchSizes, size)
	hits := g.hits
	if len(hits) > size {
		hits = hits[:size]
	}
	return append([]core.DriveItem(nil), hits...), nil
}

func (g *FakeGraph) SendMail(_ context.Context, _ string, input *core.SendEmailInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, input)
	return nil
}

func (g *FakeGraph) ListMessages(_ context.Context, _ string, filter core.EmailFilter) ([]core.EmailMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFilter = filter
	return append([]core.EmailMessage(nil), g.messages...), nil
}

// FakeMigrationStorage is a test-only core.MigrationStorage. present holds
// statements whose objects already exist; a version in failing rolls back
// without touching present or the ledger.
type FakeMigrationStorage struct {
	applied  map[int]bool
	present  map[string]bool
	failing  map[int]bool
	attempts []int
}

var _ core.MigrationStorage = (*FakeMigrationStorage)(nil)

func NewFakeMigrationStorage() *FakeMigrationStorage {
	return &FakeMigrationStorage{
		applied: make(map[int]bool),
		present: make(map[string]bool),
		failing: make(map[int]bool),
	}
}

func (f *FakeMigrationStorage) EnsureLedger(context.Context) error { return nil }

func (f *FakeMigrationStorage) AppliedVersions(context.Context) (map[int]bool, error) {
	out := make(map[int]bool, len(f.applied))
	for k, v := range f.applied {
		out[k] = v
	}
	return out, nil
}

func (f *FakeMigrationStorage) ApplyMigration(_ context.Context, m core.Migration) core.MigrationResult {
	f.attempts = append(f.attempts, m.Version)
	if f.failing[m.Version] {
		return core.MigrationResult{Migration: m, Outcome: core.MigrationFailed, Err: fmt.Errorf("syntax error")}
	}

	created := false
	for _, stmt := range m.Statements {
		if !f.present[stmt] {
			f.present[stmt] = true
			created = true
		}
	}
	f.applied[m.Version] = true

	if created {
		return core.MigrationResult{Migration: m, Outcome: core.MigrationCreated}
	}
	return core.MigrationResult{Migration: m, Outcome: core.MigrationAlreadyExists}
}
