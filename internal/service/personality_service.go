package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
)

// PersonalityRequest 是创建自定义顾问人格的请求体。
type PersonalityRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	PromptTemplate string `json:"prompt_template" binding:"required"`
}

// PersonalityService 管理组织自定义的顾问人格。
type PersonalityService interface {
	Create(ctx context.Context, orgID uint, req PersonalityRequest) (*model.Personality, error)
	List(ctx context.Context, orgID uint) ([]model.Personality, error)
	Delete(ctx context.Context, orgID, id uint) error
}

type personalityService struct {
	repo repository.PersonalityRepository
}

// NewPersonalityService 创建一个新的 PersonalityService 实例。
func NewPersonalityService(repo repository.PersonalityRepository) PersonalityService {
	return &personalityService{repo: repo}
}

// Create 创建人格。名称与内置角色或组织内已有人格重名（不区分大小写）时返回 ErrConflict。
func (s *personalityService) Create(ctx context.Context, orgID uint, req PersonalityRequest) (*model.Personality, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if strings.TrimSpace(req.PromptTemplate) == "" {
		return nil, fmt.Errorf("%w: prompt_template is required", ErrBadRequest)
	}
	if IsBuiltinRole(name) {
		return nil, fmt.Errorf("%w: %q is a built-in advisor role", ErrConflict, name)
	}

	_, err := s.repo.FindByName(ctx, orgID, name)
	if err == nil {
		return nil, fmt.Errorf("%w: personality %q already exists", ErrConflict, name)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p := &model.Personality{
		Name:           name,
		Description:    req.Description,
		PromptTemplate: req.PromptTemplate,
		OrganizationID: orgID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: personality %q already exists", ErrConflict, name)
		}
		return nil, err
	}
	return p, nil
}

func (s *personalityService) List(ctx context.Context, orgID uint) ([]model.Personality, error) {
	return s.repo.FindByOrganization(ctx, orgID)
}

func (s *personalityService) Delete(ctx context.Context, orgID, id uint) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return notFound(err, "personality")
	}
	return nil
}
