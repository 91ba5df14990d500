package service

import (
	"context"
	"errors"
	"fmt"

	"geoauth/internal/common"
	"geoauth/internal/common/security"
	"geoauth/internal/domain/model"
	"geoauth/internal/domain/repository"
)

type AuthService struct {
	users  repository.UserRepository
	tokens *security.TokenService
}

func NewAuthService(users repository.UserRepository, tokens *security.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// Signup creates the account. No token is issued; the client logs in
// separately.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return common.ErrMissingFields
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.users.Create(ctx, req.Username, req.Email, hashedPassword); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrMissingCredentials
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUsernameIncorrect
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrPasswordIncorrect
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResponse{
		Message: "login successful",
		Token:   token,
		User:    user.Public(),
	}, nil
}
