package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"board-ai-go/internal/config"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/llm"
	"board-ai-go/pkg/log"
)

// AdvisorRole 描述组织可用的一个顾问角色。
type AdvisorRole struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Custom      bool   `json:"custom"`
}

// RoleResponse 是某个角色的完整回答，用于生成总结。
type RoleResponse struct {
	Role string
	Text string
}

// AdvisorFactory 按请求为 (角色, 组织) 创建顾问实例，不在进程内缓存任何顾问。
type AdvisorFactory struct {
	personalities repository.PersonalityRepository
	documents     repository.DocumentRepository
	conversations repository.ConversationRepository
	llmClient     llm.Client
	cfg           config.AdvisorConfig
}

// NewAdvisorFactory 创建一个新的 AdvisorFactory。
func NewAdvisorFactory(
	personalities repository.PersonalityRepository,
	documents repository.DocumentRepository,
	conversations repository.ConversationRepository,
	llmClient llm.Client,
	cfg config.AdvisorConfig,
) *AdvisorFactory {
	return &AdvisorFactory{
		personalities: personalities,
		documents:     documents,
		conversations: conversations,
		llmClient:     llmClient,
		cfg:           cfg,
	}
}

// Roles 返回内置角色和组织自定义角色。
func (f *AdvisorFactory) Roles(ctx context.Context, orgID uint) ([]AdvisorRole, error) {
	custom, err := f.personalities.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	roles := make([]AdvisorRole, 0, len(builtinRoles)+len(custom))
	for _, r := range builtinRoles {
		roles = append(roles, AdvisorRole{Name: r})
	}
	for _, p := range custom {
		roles = append(roles, AdvisorRole{Name: p.Name, Description: p.Description, Custom: true})
	}
	return roles, nil
}

// Build 按请求顺序为每个角色创建顾问。任一角色未知时返回 ErrBadRequest，并列出全部未知角色。
func (f *AdvisorFactory) Build(ctx context.Context, orgID uint, roles []string) ([]*Advisor, error) {
	custom, err := f.personalities.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	templates := make(map[string]string, len(custom))
	for _, p := range custom {
		templates[p.Name] = p.PromptTemplate
	}

	advisors := make([]*Advisor, 0, len(roles))
	var invalid []string
	for _, role := range roles {
		adv := &Advisor{
			role:      role,
			orgID:     orgID,
			llmClient: f.llmClient,
			docRepo:   f.documents,
			convRepo:  f.conversations,
			cfg:       f.cfg,
		}
		if text, ok := builtinPersonalities[role]; ok {
			adv.personality = text
		} else if text, ok := templates[role]; ok {
			adv.personality = text
			adv.custom = true
		} else {
			invalid = append(invalid, role)
			continue
		}
		advisors = append(advisors, adv)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: Invalid advisor roles: [%s]", ErrBadRequest, strings.Join(invalid, ", "))
	}
	return advisors, nil
}

// Synthesize 以中立主持人的身份总结各角色的回答。错误同样以文本片段的形式产出。
func (f *AdvisorFactory) Synthesize(ctx context.Context, topic string, responses []RoleResponse) iter.Seq[string] {
	var discussion strings.Builder
	for _, r := range responses {
		fmt.Fprintf(&discussion, "%s ADVISOR:\n%s\n", strings.ToUpper(r.Role), r.Text)
	}
	prompt := fmt.Sprintf(`The following advisors have provided their perspectives on: %s

Previous discussion:
%s
As a neutral facilitator:
1. Identify points of agreement and disagreement
2. Highlight potential conflicts between different priorities
3. Suggest a balanced approach that considers all perspectives
4. Provide final recommendations
`, topic, discussion.String())

	return func(yield func(string) bool) {
		for frag, err := range f.llmClient.Stream(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil) {
			if err != nil {
				log.Warnw("总结生成失败", "error", err)
				yield(fmt.Sprintf("Error from facilitator: %s", err.Error()))
				return
			}
			if frag == "" {
				continue
			}
			if !yield(frag) {
				return
			}
		}
	}
}
