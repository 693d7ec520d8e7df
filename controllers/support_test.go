package controllers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nkhalil/accounts_backend/models"
	"github.com/nkhalil/accounts_backend/repositories"
)

const testJWTSecret = "test-signing-secret"

// mockUserStore is an in-memory UserStore for handler tests.
type mockUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	findErr error

	createCalls  int
	refreshCalls int
	setOTPCalls  int
}

func newMockStore() *mockUserStore {
	return &mockUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (m *mockUserStore) add(user *models.User) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = user
	return user.ID
}

// get returns the live stored user for assertions.
func (m *mockUserStore) get(id primitive.ObjectID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (m *mockUserStore) FindByEmailOrMobile(_ context.Context, email, mobile string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Mobile == mobile {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (m *mockUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (m *mockUserStore) Create(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	m.users[user.ID] = &cp
	return user.ID, nil
}

func (m *mockUserStore) RefreshChallenge(_ context.Context, id primitive.ObjectID, name, passwordHash string, otp models.OTPInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Name = name
	u.Password = passwordHash
	u.OTPInfo = &otp
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserStore) SetOTP(_ context.Context, id primitive.ObjectID, otp models.OTPInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setOTPCalls++
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.OTPInfo = &otp
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserStore) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsVerified = true
	u.OTPInfo = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Password = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserStore) ResetPassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Password = passwordHash
	u.OTPInfo = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (m *mockUserStore) ClearExpiredOTPs(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared int64
	now := time.Now()
	for _, u := range m.users {
		if u.OTPInfo != nil && u.OTPInfo.Expired(now) {
			u.OTPInfo = nil
			cleared++
		}
	}
	return cleared, nil
}

type sentMail struct {
	name  string
	email string
	otp   string
}

// mockMailer records delivered OTPs and can be told to fail.
type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockMailer) SendOTPEmail(name, email, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{name: name, email: email, otp: otp})
	return nil
}

func (m *mockMailer) lastOTP() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].otp
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

// postJSON runs a handler against a JSON POST and returns the recorder.
func postJSON(t *testing.T, e *echo.Echo, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
