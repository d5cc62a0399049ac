package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/hash"
	"board-ai-go/pkg/log"
	"board-ai-go/pkg/token"
)

// RegisterRequest 是注册所需的字段。
type RegisterRequest struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name" binding:"required"`
}

// Token 是签发给客户端的 access token。
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// UserService 接口定义了所有与用户凭证相关的业务操作。
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*Token, error)
	// Resolve 将 bearer token 解析为用户；任何校验失败都返回 ErrUnauthorized。
	Resolve(ctx context.Context, tokenString string) (*model.User, error)
	ResolveOrganization(ctx context.Context, user *model.User) (*model.Organization, error)
	// Logout 吊销 token 直到其自然过期。
	Logout(ctx context.Context, tokenString string) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	orgRepo    repository.OrganizationRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	orgName := strings.TrimSpace(req.OrganizationName)
	if email == "" || req.Password == "" || orgName == "" {
		return nil, fmt.Errorf("%w: email, password and organization_name are required", ErrBadRequest)
	}

	// 1. 检查邮箱是否已注册
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrBadRequest)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 2. 按名称查找组织，不存在则创建
	org, err := s.orgRepo.FirstOrCreateByName(ctx, orgName)
	if err != nil {
		log.Errorf("[UserService] 获取或创建组织失败, org: %s, error: %v", orgName, err)
		return nil, fmt.Errorf("获取或创建组织失败: %w", err)
	}

	// 3. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	// 4. 创建新用户
	newUser := &model.User{
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       req.FullName,
		IsActive:       true,
		OrganizationID: org.ID,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		// 并发注册同一邮箱时由唯一索引兜底
		if errors.Is(err, repository.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrBadRequest)
		}
		return nil, err
	}

	log.Infow("用户注册成功", "user_id", newUser.ID, "organization_id", org.ID)
	return newUser, nil
}

// Authenticate 校验邮箱和密码并签发 access token。
func (s *userService) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
		}
		return nil, err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.HashedPassword) {
		return nil, fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	}

	// 3. 生成 access token
	accessToken, expiresAt, err := s.jwtManager.GenerateToken(user.Email, user.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: accessToken, TokenType: token.TokenType, ExpiresAt: expiresAt}, nil
}

func (s *userService) Resolve(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: not authenticated", ErrUnauthorized)
	}
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate credentials", ErrUnauthorized)
	}

	revoked, err := s.blacklist.IsRevoked(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("检查 token 黑名单失败: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token has been revoked", ErrUnauthorized)
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: could not validate credentials", ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ResolveOrganization(ctx context.Context, user *model.User) (*model.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	return org, nil
}

// Logout 处理用户登出逻辑，将 token 加入黑名单。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return fmt.Errorf("%w: could not validate credentials", ErrUnauthorized)
	}
	// token 的剩余有效期将作为黑名单条目的过期时间。
	return s.blacklist.Revoke(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}
