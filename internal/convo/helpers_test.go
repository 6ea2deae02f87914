package convo

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"kino-bot/internal/broadcast"
	"kino-bot/internal/logging"
	"kino-bot/internal/recommend"
	"kino-bot/internal/repo"
	"kino-bot/migrations"
)

const adminID int64 = 1000

type fakeSender struct {
	mu         sync.Mutex
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	nextID     int
	requestErr error
	sendErr    func(c tgbotapi.Chattable) error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs, "no text message sent")
	return msgs[len(msgs)-1]
}

func (f *fakeSender) videos() []tgbotapi.VideoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.VideoConfig
	for _, c := range f.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeSender) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeSender) answers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if a, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent, f.requests = nil, nil
}

// countingRepo records code lookups that reach the store.
type countingRepo struct {
	repo.Repository
	mu      sync.Mutex
	lookups []string
}

func (c *countingRepo) GetMovieByCode(ctx context.Context, code string) (*repo.Movie, error) {
	c.mu.Lock()
	c.lookups = append(c.lookups, code)
	c.mu.Unlock()
	return c.Repository.GetMovieByCode(ctx, code)
}

type fakeMembers struct {
	mu     sync.Mutex
	status map[int64]tgbotapi.ChatMember
	err    error
	calls  []tgbotapi.GetChatMemberConfig
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{status: map[int64]tgbotapi.ChatMember{}}
}

func (f *fakeMembers) set(userID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[userID] = tgbotapi.ChatMember{Status: status}
}

func (f *fakeMembers) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg)
	if f.err != nil {
		return tgbotapi.ChatMember{}, f.err
	}
	m, ok := f.status[cfg.UserID]
	if !ok {
		return tgbotapi.ChatMember{Status: "left"}, nil
	}
	return m, nil
}

func (f *fakeMembers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDeliverer struct {
	mu      sync.Mutex
	chatIDs []int64
	texts   []string
}

func (f *fakeDeliverer) DeliverText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

type fixedCodes struct {
	codes []string
	i     int
}

func (f *fixedCodes) Next() string {
	c := f.codes[f.i%len(f.codes)]
	f.i++
	return c
}

// memCache is an in-memory JSONCache.
type memCache struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = string(raw)
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}

type harness struct {
	engine    *Engine
	sender    *fakeSender
	store     *repo.SQLiteRepository
	members   *fakeMembers
	delivered *fakeDeliverer
	codes     *fixedCodes
	sessions  *MemoryStore
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	channel  string
	pageSize int
}

func withChannel(ch string) harnessOption {
	return func(c *harnessConfig) { c.channel = ch }
}

func withPageSize(n int) harnessOption {
	return func(c *harnessConfig) { c.pageSize = n }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()
	cfg := harnessConfig{pageSize: 10}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.Discard()
	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "bot.db"), logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))

	h := &harness{
		sender:    &fakeSender{},
		store:     store,
		members:   newFakeMembers(),
		delivered: &fakeDeliverer{},
		codes:     &fixedCodes{codes: []string{"12345"}},
		sessions:  NewMemoryStore(),
	}
	gate := NewGate(h.members, cfg.channel, "https://t.me/kino", nil, 0, nil, logger)
	picks := recommend.New(store, time.UTC, logger)
	caster := broadcast.New(store, h.delivered, 0, nil, logger)

	h.engine = New(store, picks, h.sender, h.sessions, gate, caster, h.codes, nil, logger, EngineConfig{
		AdminID:  adminID,
		PageSize: cfg.pageSize,
	})
	return h
}

func (h *harness) process(u tgbotapi.Update) {
	h.engine.ProcessUpdate(context.Background(), u)
}

func (h *harness) state(t *testing.T, userID int64) State {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return s.State
}

func (h *harness) addMovie(t *testing.T, code, description string) {
	t.Helper()
	_, err := h.store.InsertMovie(context.Background(), repo.Movie{FileID: "file-" + code, Description: description, Code: code})
	require.NoError(t, err)
}

func (h *harness) addUser(t *testing.T, id int64) {
	t.Helper()
	_, err := h.store.UpsertUser(context.Background(), repo.UserProfile{ID: id, FullName: "User", PhoneNumber: "+100"})
	require.NoError(t, err)
}

func newMessage(userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Test", LastName: "User", UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
	}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := newMessage(userID)
	msg.Text = text
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{Message: msg}
}

func videoUpdate(userID int64, fileID string) tgbotapi.Update {
	msg := newMessage(userID)
	msg.Video = &tgbotapi.Video{FileID: fileID}
	return tgbotapi.Update{Message: msg}
}

func contactUpdate(userID, contactUserID int64, phone string) tgbotapi.Update {
	msg := newMessage(userID)
	msg.Contact = &tgbotapi.Contact{PhoneNumber: phone, FirstName: "Test", UserID: contactUserID}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string, messageID int) tgbotapi.Update {
	msg := newMessage(userID)
	msg.MessageID = messageID
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    msg.From,
		Message: msg,
		Data:    data,
	}}
}

var errBoom = errors.New("boom")
