package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// stubCredentialStore is an in-memory CredentialStore for tests.
type stubCredentialStore struct {
	mu      sync.Mutex
	cred    model.Credential
	saveErr error
	loadErr error
	saves   int
	deletes int
}

var _ driven.CredentialStore = (*stubCredentialStore)(nil)

func (s *stubCredentialStore) Save(_ context.Context, cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cred = cred
	return nil
}

func (s *stubCredentialStore) Load(_ context.Context) (model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return model.Credential{}, s.loadErr
	}
	return s.cred, nil
}

func (s *stubCredentialStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	s.cred = model.Credential{}
	return nil
}

func (s *stubCredentialStore) deleteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

// stubAuthorizer hands out tokens in order, sticking with the last one once
// the list is exhausted. A non-nil gate blocks Authorize until closed so tests
// can observe in-flight flows.
type stubAuthorizer struct {
	mu     sync.Mutex
	tokens []string
	err    error
	gate   chan struct{}
	calls  int
}

var _ driven.Authorizer = (*stubAuthorizer)(nil)

func (a *stubAuthorizer) Authorize(ctx context.Context) (model.Credential, error) {
	a.mu.Lock()
	a.calls++
	n := a.calls
	gate := a.gate
	err := a.err
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.Credential{}, ctx.Err()
		}
	}
	if err != nil {
		return model.Credential{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := n - 1
	if idx >= len(a.tokens) {
		idx = len(a.tokens) - 1
	}
	return model.Credential{Token: a.tokens[idx], AcquiredAt: time.Now().UTC()}, nil
}

func (a *stubAuthorizer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// mockDriveClient fakes the Drive backend. Per-method error queues are popped
// one entry per call, so a test can script "fail once, then succeed".
type mockDriveClient struct {
	mu sync.Mutex

	folderID string
	docs     []model.Document

	uploadDoc model.Document

	ensureErrs []error
	listErrs   []error
	uploadErrs []error
	deleteErrs []error

	listGate chan struct{}

	ensureCalls int
	listCalls   int
	uploadCalls int
	deleteCalls int
	deletedIDs  []string

	content     string
	contentType string
	downloadErr error
}

var _ driven.DriveClient = (*mockDriveClient)(nil)

func (m *mockDriveClient) EnsureFolder(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureCalls++
	if err := popErr(&m.ensureErrs); err != nil {
		return "", err
	}
	if m.folderID == "" {
		m.folderID = "folder-1"
	}
	return m.folderID, nil
}

func (m *mockDriveClient) ListDocuments(ctx context.Context, _ string) ([]model.Document, error) {
	m.mu.Lock()
	m.listCalls++
	gate := m.listGate
	err := popErr(&m.listErrs)
	docs := append([]model.Document(nil), m.docs...)
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *mockDriveClient) UploadDocument(_ context.Context, _ string, _ []byte, mimeType, period string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCalls++
	if err := popErr(&m.uploadErrs); err != nil {
		return model.Document{}, err
	}
	if m.uploadDoc.ID != "" {
		return m.uploadDoc, nil
	}
	return model.Document{
		ID:        fmt.Sprintf("doc-%d", m.uploadCalls),
		Title:     "Payslip_" + period,
		Period:    period,
		CreatedAt: time.Now().UTC(),
		MimeType:  mimeType,
	}, nil
}

func (m *mockDriveClient) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if err := popErr(&m.deleteErrs); err != nil {
		return err
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockDriveClient) DownloadDocument(context.Context, string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return nil, "", m.downloadErr
	}
	return io.NopCloser(strings.NewReader(m.content)), m.contentType, nil
}

func (m *mockDriveClient) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func popErr(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

// authRejection builds the StorageError shape the Drive adapter produces when
// the backend rejects the credential.
func authRejection(status int) error {
	return &model.StorageError{Op: "list documents", Status: status, Err: errors.New("credential rejected")}
}

// syncFixture wires a SyncService onto the stubs above, counting client
// factory invocations so tests can assert on rebuilds.
type syncFixture struct {
	svc   *SyncService
	store *stubCredentialStore
	authz *stubAuthorizer
	drive *mockDriveClient

	factoryCalls atomic.Int32
}

func newSyncFixture(tokens ...string) *syncFixture {
	if len(tokens) == 0 {
		tokens = []string{"token-1"}
	}

	f := &syncFixture{
		store: &stubCredentialStore{},
		authz: &stubAuthorizer{tokens: tokens},
		drive: &mockDriveClient{},
	}

	auth := NewAuthSession(f.store, f.authz, time.Hour)
	provider := NewDriveClientProvider(func(_ context.Context, _ string) (driven.DriveClient, error) {
		f.factoryCalls.Add(1)
		return f.drive, nil
	})
	f.svc = NewSyncService(auth, provider)
	return f
}
