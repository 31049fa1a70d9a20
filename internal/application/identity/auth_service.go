// Package identity implements registration, login and operator management.
package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/identity"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/auth"
)

// Enroller opens the initial trial subscription for a new account
type Enroller interface {
	EnrollTrial(ctx context.Context, ownerID uuid.UUID) error
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	enroller   Enroller
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	enroller Enroller,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		enroller:   enroller,
		logger:     logger,
	}
}

// RegisterRequest carries the fields for opening an account
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

// LoginRequest carries the login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateOperatorRequest carries the fields for an operator sub-user
type CreateOperatorRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

// UserResponse is the API shape of an account
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role"`
	AccountID uuid.UUID  `json:"account_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
}

// LoginResponse bundles the tokens with the account
type LoginResponse struct {
	User   *UserResponse   `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func toUserResponse(u *identity.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      string(u.Role),
		AccountID: u.AccountID(),
		ParentID:  u.ParentID,
	}
}

// Register opens a regular account and its trial subscription
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(req.Email, req.Password, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := s.enroller.EnrollTrial(ctx, user.ID); err != nil {
		s.logger.Error("trial enrollment failed after registration",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", zap.String("user_id", user.ID.String()))
	return &LoginResponse{User: toUserResponse(user), Tokens: tokens}, nil
}

// Login authenticates a user and returns a token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if !user.CheckPassword(req.Password) {
		s.logger.Warn("failed login attempt", zap.String("email", req.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_SUSPENDED", "Account is suspended")
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: toUserResponse(user), Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token is invalid or expired")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Refresh token is invalid")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_SUSPENDED", "Account is suspended")
	}
	return s.jwtService.RefreshTokenPair(refreshToken, s.tokenInput(user))
}

// Logout revokes the presented access token until it expires
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.blacklist.AddToBlacklist(ctx, claims.ID, ttl)
}

// Me returns the authenticated account
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// UpdateProfile edits the authenticated account's profile
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(req.FirstName, req.LastName, req.Phone); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// CreateOperator opens an operator sub-user under the given account
func (s *AuthService) CreateOperator(ctx context.Context, parentID uuid.UUID, req CreateOperatorRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}
	op, err := identity.NewOperator(parentID, req.Email, req.Password, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, op); err != nil {
		return nil, err
	}
	return toUserResponse(op), nil
}

// ListOperators returns the account's operator sub-users
func (s *AuthService) ListOperators(ctx context.Context, parentID uuid.UUID) ([]UserResponse, error) {
	ops, err := s.userRepo.FindOperators(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(ops))
	for i := range ops {
		out = append(out, *toUserResponse(&ops[i]))
	}
	return out, nil
}

// RemoveOperator deletes an operator sub-user of the account
func (s *AuthService) RemoveOperator(ctx context.Context, parentID, operatorID uuid.UUID) error {
	op, err := s.userRepo.FindByID(ctx, operatorID)
	if err != nil {
		return err
	}
	if op.Role != identity.RoleOperator || op.ParentID == nil || *op.ParentID != parentID {
		return shared.ErrForbidden
	}
	return s.userRepo.Delete(ctx, operatorID)
}

func (s *AuthService) issueTokens(user *identity.User) (*auth.TokenPair, error) {
	return s.jwtService.GenerateTokenPair(s.tokenInput(user))
}

func (s *AuthService) tokenInput(user *identity.User) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		UserID:      user.ID,
		AccountID:   user.AccountID(),
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Role.Permissions(),
	}
}
