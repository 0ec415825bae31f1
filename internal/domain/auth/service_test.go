package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/domain/user"
	"github.com/avtoline/avtoline-api/internal/pkg/jwt"
	"github.com/avtoline/avtoline-api/internal/pkg/password"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*user.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	for _, existing := range f.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return user.ErrPhoneExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	for _, u := range f.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Name = name
	return nil
}

func (f *fakeUserRepo) SaveFCMToken(ctx context.Context, id uuid.UUID, token string) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.FCMToken = &token
	return nil
}

func (f *fakeUserRepo) GetFCMTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error) {
	var tokens []string
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok && u.FCMToken != nil && *u.FCMToken != "" {
			tokens = append(tokens, *u.FCMToken)
		}
	}
	return tokens, nil
}

func (f *fakeUserRepo) ListUserIDs(ctx context.Context, forBusiness bool) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, u := range f.users {
		if u.IsBusiness != forBusiness {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeTokenStore struct {
	values map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{values: map[string]string{}}
}

func (f *fakeTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeTokenStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", ErrInvalidRefreshToken
	}
	return v, nil
}

func (f *fakeTokenStore) Del(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func newTestService() (*Service, *fakeUserRepo, *fakeTokenStore) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	return NewService(repo, jwtService, store), repo, store
}

func TestRegisterNormalizesPhoneAndHashesPassword(t *testing.T) {
	svc, repo, store := newTestService()

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "0555 123-456",
		Name:        "Азамат",
		Password:    "strongpass1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.PhoneNumber != "+996555123456" {
		t.Fatalf("phone = %q, want +996555123456", resp.User.PhoneNumber)
	}
	if resp.User.PasswordHash == "strongpass1" || resp.User.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	if !password.Verify("strongpass1", resp.User.PasswordHash) {
		t.Fatal("stored hash does not verify against the password")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens in the response")
	}
	if len(repo.users) != 1 {
		t.Fatalf("users stored = %d, want 1", len(repo.users))
	}
	if len(store.values) != 1 {
		t.Fatalf("refresh hashes stored = %d, want 1", len(store.values))
	}
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	svc, _, _ := newTestService()

	req := &RegisterRequest{PhoneNumber: "+996700111222", Name: "Нурлан", Password: "strongpass1"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	// Same number in local notation
	req2 := &RegisterRequest{PhoneNumber: "0700111222", Name: "Другой", Password: "strongpass2"}
	if _, err := svc.Register(context.Background(), req2); err != ErrPhoneAlreadyExists {
		t.Fatalf("err = %v, want ErrPhoneAlreadyExists", err)
	}
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "12345",
		Name:        "Тест",
		Password:    "strongpass1",
	})
	if err != ErrInvalidPhoneNumber {
		t.Fatalf("err = %v, want ErrInvalidPhoneNumber", err)
	}
}

func TestLoginWrongPasswordFails(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "+996555000111", Name: "Айбек", Password: "strongpass1",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Login(context.Background(), &LoginRequest{PhoneNumber: "+996555000111", Password: "wrongpass"})
	if err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{PhoneNumber: "0555000111", Password: "strongpass1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestRefreshRotationInvalidatesOldToken(t *testing.T) {
	svc, _, store := newTestService()

	reg, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "+996555222333", Name: "Чолпон", Password: "strongpass1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == reg.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if len(store.values) != 1 {
		t.Fatalf("refresh hashes stored = %d, want 1 after rotation", len(store.values))
	}

	// The old token is gone
	if _, err := svc.Refresh(context.Background(), reg.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("replayed refresh err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	svc, _, _ := newTestService()

	otherJWT := jwt.NewService("other-secret", time.Minute, time.Hour)
	token, _, _, err := otherJWT.GenerateRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), token); err != ErrInvalidRefreshToken {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogoutDropsRefreshToken(t *testing.T) {
	svc, _, store := newTestService()

	reg, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "+996555444555", Name: "Бакыт", Password: "strongpass1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(context.Background(), reg.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("refresh hashes stored = %d, want 0", len(store.values))
	}
	if _, err := svc.Refresh(context.Background(), reg.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("refresh after logout err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestSaveFCMTokenAndUpdateName(t *testing.T) {
	svc, repo, _ := newTestService()

	reg, err := svc.Register(context.Background(), &RegisterRequest{
		PhoneNumber: "+996555666777", Name: "Салтанат", Password: "strongpass1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	userID := reg.User.ID

	if err := svc.SaveFCMToken(context.Background(), userID, "device-token"); err != nil {
		t.Fatalf("SaveFCMToken: %v", err)
	}
	if u := repo.users[userID]; u.FCMToken == nil || *u.FCMToken != "device-token" {
		t.Fatal("fcm token not stored")
	}

	u, err := svc.UpdateName(context.Background(), userID, "Салтанат К.")
	if err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if u.Name != "Салтанат К." {
		t.Fatalf("name = %q", u.Name)
	}

	if err := svc.SaveFCMToken(context.Background(), uuid.New(), "x"); err != ErrUserNotFound {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestNormalizePhoneVariants(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+996555123456", "+996555123456", true},
		{"996555123456", "+996555123456", true},
		{"0555123456", "+996555123456", true},
		{"+996 (555) 123-456", "+996555123456", true},
		{"+79161234567", "", false},
		{"555123456", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := normalizePhone(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("normalizePhone(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err != ErrInvalidPhoneNumber {
			t.Errorf("normalizePhone(%q) err = %v, want ErrInvalidPhoneNumber", tc.in, err)
		}
	}
}
