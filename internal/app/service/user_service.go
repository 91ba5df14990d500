package service

import (
	"context"
	"fmt"

	"geoauth/internal/common/security"
	"geoauth/internal/domain/model"
	"geoauth/internal/domain/repository"
)

type UserService struct {
	users  repository.UserRepository
	tokens *security.TokenService
}

func NewUserService(users repository.UserRepository, tokens *security.TokenService) *UserService {
	return &UserService{users: users, tokens: tokens}
}

type UpdateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
	Token   string           `json:"token,omitempty"`
}

// Update applies the supplied profile fields to current. Fields equal to the
// stored value are skipped; an all-skipped request is a successful no-op. A
// fresh token is issued only when the username actually changed — the old
// token stays valid until its natural expiry.
func (s *UserService) Update(ctx context.Context, current *model.User, req UpdateRequest) (*UpdateResponse, error) {
	var patch model.UserPatch
	if req.Username != "" && req.Username != current.Username {
		patch.Username = &req.Username
	}
	if req.Email != "" && req.Email != current.Email {
		patch.Email = &req.Email
	}
	if req.Password != "" {
		hashedPassword, err := security.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		patch.HashedPassword = &hashedPassword
	}

	if patch.IsZero() {
		return &UpdateResponse{Message: "no changes made", User: current.Public()}, nil
	}

	updated, err := s.users.Update(ctx, current.ID, patch)
	if err != nil {
		return nil, err
	}

	resp := &UpdateResponse{Message: "profile updated successfully", User: updated.Public()}
	if patch.Username != nil {
		token, err := s.tokens.Issue(updated.ID, updated.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to issue token: %w", err)
		}
		resp.Token = token
	}
	return resp, nil
}
