package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"movment/config"
	"movment/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memStore struct {
	fail  error
	saved []models.Notification
}

func (m *memStore) Insert(_ context.Context, n *models.Notification) error {
	if m.fail != nil {
		return m.fail
	}
	m.saved = append(m.saved, *n)
	return nil
}

func (m *memStore) InsertMany(_ context.Context, batch []models.Notification) error {
	if m.fail != nil {
		return m.fail
	}
	m.saved = append(m.saved, batch...)
	return nil
}

type pushes struct {
	mu  sync.Mutex
	got []primitive.ObjectID
}

func (p *pushes) Push(user primitive.ObjectID, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, user)
}

type contacts map[primitive.ObjectID]*models.User

func (c contacts) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := c[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

type recorder struct{ to []string }

func (r *recorder) Send(_ context.Context, to, _, _ string) error {
	r.to = append(r.to, to)
	return nil
}

func newTestService(store *memStore, users contacts) (*Service, *pushes, *recorder, *recorder) {
	p, email, sms := &pushes{}, &recorder{}, &recorder{}
	s := NewService(store, p, users, email, sms, zap.NewNop())
	s.async = false
	s.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return s, p, email, sms
}

func TestNotifyPersistsPushesAndRelays(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "asha@example.com", Phone: "+919876543210"}
	store := &memStore{}
	s, p, email, sms := newTestService(store, contacts{user.ID: user})

	n := &models.Notification{User: user.ID, Type: models.NotifyReminder, Title: "Event reminder", Body: "soon"}
	require.NoError(t, s.Notify(context.Background(), n))

	require.Len(t, store.saved, 1)
	assert.False(t, store.saved[0].CreatedAt.IsZero())
	assert.Equal(t, []primitive.ObjectID{user.ID}, p.got)
	assert.Equal(t, []string{"asha@example.com"}, email.to)
	assert.Equal(t, []string{"+919876543210"}, sms.to)
}

func TestNotifyGeneralStaysInApp(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "ravi@example.com", Phone: "+919876500000"}
	s, _, email, sms := newTestService(&memStore{}, contacts{user.ID: user})

	require.NoError(t, s.Notify(context.Background(), &models.Notification{User: user.ID, Type: models.NotifyGeneral}))
	assert.Empty(t, email.to)
	assert.Empty(t, sms.to)
}

func TestNotifyStoreFailureIsReturned(t *testing.T) {
	store := &memStore{fail: errors.New("write concern")}
	s, p, _, _ := newTestService(store, contacts{})

	err := s.Notify(context.Background(), &models.Notification{User: primitive.NewObjectID(), Type: models.NotifyReminder})
	assert.Error(t, err)
	assert.Empty(t, p.got)
}

func TestNotifyManyFansOut(t *testing.T) {
	store := &memStore{}
	s, p, _, _ := newTestService(store, contacts{})
	users := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	n, err := s.NotifyMany(context.Background(), users, models.Notification{Type: models.NotifyOffer, Title: "Diwali offer"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, store.saved, 3)
	for i, saved := range store.saved {
		assert.Equal(t, users[i], saved.User)
		assert.Equal(t, "Diwali offer", saved.Title)
	}
	assert.Len(t, p.got, 3)
}

func TestDisabledChannelsAreStubs(t *testing.T) {
	cfg := config.DeliveryConfig{}
	assert.IsType(t, stubSender{}, NewEmailSender(cfg, zap.NewNop()))
	assert.IsType(t, stubSender{}, NewSMSSender(cfg, zap.NewNop()))

	cfg.SMSEnabled = true
	assert.IsType(t, stubSender{}, NewSMSSender(cfg, zap.NewNop()), "enabled without credentials stays a stub")
}

func TestSMTPSenderFormatsMessage(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	sender := NewEmailSender(config.DeliveryConfig{EmailEnabled: true, SMTPHost: "smtp.test", SMTPPort: 587, SMTPFrom: "noreply@test"}, zap.NewNop()).(*smtpSender)
	sender.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), "a@b.c", "Event reminder", "Tomorrow"))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Event reminder\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nTomorrow")
}

func TestSMTPSenderKeepsHeadersOnOneLine(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	sender := NewEmailSender(config.DeliveryConfig{EmailEnabled: true, SMTPHost: "smtp.test", SMTPPort: 587, SMTPFrom: "noreply@test"}, zap.NewNop()).(*smtpSender)
	sender.send = func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotTo, gotMsg = to, msg
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), "a@b.c\r\nBcc: x@evil.test", "Sale\r\nBcc: y@evil.test\nX-Spam: 1", "Hello"))
	head, _, found := strings.Cut(string(gotMsg), "\r\n\r\n")
	require.True(t, found)
	assert.NotContains(t, head, "\r\nBcc:")
	assert.NotContains(t, head, "\r\nX-Spam:")
	assert.Contains(t, head, "Subject: Sale Bcc: y@evil.test X-Spam: 1\r\n")
	assert.Equal(t, []string{"a@b.c Bcc: x@evil.test"}, gotTo)
}

func TestTwilioSenderPostsForm(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		assert.Equal(t, "AC123", user)
		require.NoError(t, r.ParseForm())
		gotPath, gotBody = r.URL.Path, r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewSMSSender(config.DeliveryConfig{SMSEnabled: true, TwilioAccountSID: "AC123", TwilioAuthToken: "tok", TwilioFrom: "+15550000"}, zap.NewNop()).(*twilioSender)
	sender.baseURL = srv.URL

	require.NoError(t, sender.Send(context.Background(), "+919876543210", "", "hello"))
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "hello", gotBody)

	assert.Error(t, sender.Send(context.Background(), "12345", "", "hello"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "a***@example.com", mask("asha@example.com"))
	assert.Equal(t, "***3210", mask("+919876543210"))
}
