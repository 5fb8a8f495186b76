package service

import (
	"fmt"
	"time"

	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/repository"
	"leettrack-sync/pkg/hash"
	"leettrack-sync/pkg/jwt"

	"github.com/google/uuid"
)

type AuthService struct {
	userRepo          repository.UserRepository
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	adminEmail        string
	certificateEmails map[string]struct{}
}

func NewAuthService(
	userRepo repository.UserRepository,
	jwtSecret string,
	jwtExp, refreshExp time.Duration,
	adminEmail string,
	certificateEmails []string,
) *AuthService {
	certs := make(map[string]struct{}, len(certificateEmails))
	for _, email := range certificateEmails {
		if email != "" {
			certs[email] = struct{}{}
		}
	}

	return &AuthService{
		userRepo:          userRepo,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
		adminEmail:        adminEmail,
		certificateEmails: certs,
	}
}

// RoleFor resolves a user's tier from the configured admin and certificate
// email lists. Anyone not listed is a normal, local-only user.
func (s *AuthService) RoleFor(email string) domain.Role {
	if email == "" {
		return domain.RoleNormal
	}
	if email == s.adminEmail && s.adminEmail != "" {
		return domain.RoleAdmin
	}
	if _, ok := s.certificateEmails[email]; ok {
		return domain.RoleCertificate
	}
	return domain.RoleNormal
}

func (s *AuthService) Register(req *domain.RegisterRequest) error {
	emailExists, err := s.userRepo.EmailExists(req.Email)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailExists {
		return ErrEmailRegistered
	}

	usernameExists, err := s.userRepo.UsernameExists(req.Username)
	if err != nil {
		return fmt.Errorf("failed to check username existence: %w", err)
	}
	if usernameExists {
		return ErrUsernameTaken
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashedPassword,
		Role:      s.RoleFor(req.Email),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (s *AuthService) Login(req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Certificates are granted and revoked by config; re-resolve at every
	// login so a stale stored role never widens access.
	role := s.RoleFor(user.Email)
	if role != user.Role {
		user.Role = role
		user.UpdatedAt = time.Now()
		if err := s.userRepo.Update(user); err != nil {
			return nil, fmt.Errorf("failed to update user role: %w", err)
		}
	}

	accessToken, err := jwt.GenerateToken(user.ID, string(role), s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, string(role), s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	user.Password = ""

	return &domain.LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) RefreshToken(req *domain.RefreshTokenRequest) (*domain.TokenResponse, error) {
	claims, err := jwt.ValidateToken(req.RefreshToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	accessToken, err := jwt.GenerateToken(claims.UserID, claims.Role, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}
