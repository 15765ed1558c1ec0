package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/dbx"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/files"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/users"
)

// --- repository manager ---

type fakeRepoManager struct {
	users *fakeUsersRepo
	files *fakeFilesRepo

	mu sync.Mutex
	// fileHandles records the DBTX each Files call was bound to.
	fileHandles []dbx.DBTX
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileHandles = append(m.fileHandles, db)
	return m.files
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users: &fakeUsersRepo{byID: map[string]*models.User{}},
		files: &fakeFilesRepo{byID: map[string]*models.File{}},
	}
}

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	getErr    error
	getCalls  int
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.UserName == u.UserName || existing.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	c := *u
	c.ID = "u" + strconv.Itoa(len(f.byID)+1)
	c.CreatedAt = time.Now()
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == login {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

// --- files ---

type fakeFilesRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.File
	createErr error
	deleteErr error
	seq       int
}

func (f *fakeFilesRepo) Create(_ context.Context, file *models.File) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	c := *file
	c.ID = "f" + strconv.Itoa(f.seq)
	c.CreatedAt = time.Now()
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeFilesRepo) GetByID(_ context.Context, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) ListByUser(_ context.Context, userID string) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.File{}
	for _, file := range f.byID {
		if file.UserID == userID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- object store ---

type issueCall struct {
	key      string
	expiry   time.Duration
	filename string
}

type fakeGateway struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	issueErr  error
	deleted   []string
	issued    []issueCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: map[string][]byte{}}
}

func (g *fakeGateway) Exists(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.objects[key]
	return ok, nil
}

func (g *fakeGateway) IssueRetrievalCapability(_ context.Context, key string, expiry time.Duration, filename string) (*models.RetrievalCapability, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued = append(g.issued, issueCall{key: key, expiry: expiry, filename: filename})
	if g.issueErr != nil {
		return nil, g.issueErr
	}
	if _, ok := g.objects[key]; !ok {
		return nil, common.ErrObjectMissing
	}
	return &models.RetrievalCapability{
		URL:       "https://objects.test/" + key + "?sig=x",
		ObjectKey: key,
		ExpiresAt: time.Now().Add(expiry),
		Filename:  filename,
	}, nil
}

func (g *fakeGateway) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if g.putErr != nil {
		return g.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[key] = buf.Bytes()
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, key)
	if g.deleteErr != nil {
		return g.deleteErr
	}
	delete(g.objects, key)
	return nil
}

// --- notifications ---

type sentCode struct {
	recipient string
	code      string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (s *fakeSender) Send(_ context.Context, recipient, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{recipient: recipient, code: code})
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
