package service

import (
	"errors"
	"testing"
	"time"

	"leettrack-sync/internal/domain"
)

type mockUserRepo struct {
	users map[string]*domain.User // by email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(user *domain.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) FindByEmail(email string) (*domain.User, error) {
	if u, exists := m.users[email]; exists {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepo) FindByID(id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepo) FindByUsername(username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepo) Update(user *domain.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) EmailExists(email string) (bool, error) {
	_, exists := m.users[email]
	return exists, nil
}

func (m *mockUserRepo) UsernameExists(username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func newTestAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(
		repo,
		"test-secret",
		15*time.Minute,
		168*time.Hour,
		"admin@example.com",
		[]string{"cert1@example.com", "cert2@example.com"},
	)
}

func TestAuthService_RoleFor(t *testing.T) {
	service := newTestAuthService(newMockUserRepo())

	tests := []struct {
		name  string
		email string
		want  domain.Role
	}{
		{"admin email", "admin@example.com", domain.RoleAdmin},
		{"certificate email", "cert1@example.com", domain.RoleCertificate},
		{"second certificate email", "cert2@example.com", domain.RoleCertificate},
		{"unlisted email", "someone@example.com", domain.RoleNormal},
		{"empty email", "", domain.RoleNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.RoleFor(tt.email); got != tt.want {
				t.Errorf("RoleFor(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestAuthService_RegisterAssignsRole(t *testing.T) {
	repo := newMockUserRepo()
	service := newTestAuthService(repo)

	err := service.Register(&domain.RegisterRequest{
		Username: "certuser",
		Email:    "cert1@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user := repo.users["cert1@example.com"]
	if user == nil {
		t.Fatal("user not created")
	}
	if user.Role != domain.RoleCertificate {
		t.Errorf("role = %v, want certificate", user.Role)
	}
	if user.Password == "password123" {
		t.Error("password stored unhashed")
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	service := newTestAuthService(repo)

	req := &domain.RegisterRequest{Username: "user1", Email: "dup@example.com", Password: "password123"}
	if err := service.Register(req); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	req2 := &domain.RegisterRequest{Username: "user2", Email: "dup@example.com", Password: "password123"}
	if err := service.Register(req2); !errors.Is(err, ErrEmailRegistered) {
		t.Errorf("expected ErrEmailRegistered, got %v", err)
	}
}

func TestAuthService_LoginIssuesRoleToken(t *testing.T) {
	repo := newMockUserRepo()
	service := newTestAuthService(repo)

	service.Register(&domain.RegisterRequest{
		Username: "adminuser",
		Email:    "admin@example.com",
		Password: "password123",
	})

	resp, err := service.Login(&domain.LoginRequest{Email: "admin@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("Login() returned empty tokens")
	}
	if resp.User.Role != domain.RoleAdmin {
		t.Errorf("role = %v, want admin", resp.User.Role)
	}
	if resp.User.Password != "" {
		t.Error("Login() leaked password hash")
	}
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	service := newTestAuthService(repo)

	service.Register(&domain.RegisterRequest{
		Username: "someone",
		Email:    "someone@example.com",
		Password: "password123",
	})

	_, err := service.Login(&domain.LoginRequest{Email: "someone@example.com", Password: "wrongpass123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_LoginReResolvesRole(t *testing.T) {
	repo := newMockUserRepo()
	service := newTestAuthService(repo)

	service.Register(&domain.RegisterRequest{
		Username: "normaluser",
		Email:    "plain@example.com",
		Password: "password123",
	})
	repo.users["plain@example.com"].Role = domain.RoleAdmin // tampered stored role

	resp, err := service.Login(&domain.LoginRequest{Email: "plain@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.Role != domain.RoleNormal {
		t.Errorf("stale role not downgraded at login: got %v", resp.User.Role)
	}
}
