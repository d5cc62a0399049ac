package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"board-ai-go/internal/config"
	"board-ai-go/internal/metrics"
	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/llm"
	"board-ai-go/pkg/log"
)

const timestampLayout = "2006-01-02 15:04:05"

// 内置顾问角色。
const (
	RoleLegal      = "legal"
	RoleFinancial  = "financial"
	RoleTechnology = "technology"
)

var builtinRoles = []string{RoleLegal, RoleFinancial, RoleTechnology}

var builtinPersonalities = map[string]string{
	RoleLegal: `You are a seasoned Legal Advisor with expertise in corporate law, compliance, and risk management.
Your priorities are:
1. Ensuring legal compliance
2. Protecting the company from legal risks
3. Analyzing regulatory implications
4. Structuring deals and partnerships legally
5. Maintaining ethical standards`,
	RoleFinancial: `You are an experienced Financial Advisor with expertise in corporate finance and investment strategy.
Your priorities are:
1. Financial performance analysis
2. ROI optimization
3. Risk management
4. Market analysis
5. Capital allocation`,
	RoleTechnology: `You are a Technology Strategy Advisor with expertise in digital transformation and tech trends.
Your priorities are:
1. Technical feasibility assessment
2. Technology stack optimization
3. Digital transformation strategy
4. Cybersecurity considerations
5. Innovation opportunities`,
}

// IsBuiltinRole 判断名称是否与内置角色相同（不区分大小写）。
func IsBuiltinRole(name string) bool {
	for _, r := range builtinRoles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// Advisor 是某个角色在某个组织下的顾问实例，只在单个请求内使用。
type Advisor struct {
	role        string
	personality string
	custom      bool
	orgID       uint

	llmClient llm.Client
	docRepo   repository.DocumentRepository
	convRepo  repository.ConversationRepository
	cfg       config.AdvisorConfig
}

// Role 返回顾问的角色名。
func (a *Advisor) Role() string {
	return a.role
}

// Analyze 针对话题生成一个惰性的文本片段序列。
// 任何错误都不会向上传播，而是作为最后一个片段 "Error from {role} advisor: {message}" 产出。
func (a *Advisor) Analyze(ctx context.Context, topic string) iter.Seq[string] {
	return func(yield func(string) bool) {
		prompt, err := a.buildPrompt(ctx, topic)
		if err != nil {
			a.fail(yield, err)
			return
		}
		messages := []llm.Message{{Role: "user", Content: prompt}}
		for frag, err := range a.llmClient.Stream(ctx, messages, nil) {
			if err != nil {
				a.fail(yield, err)
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

func (a *Advisor) fail(yield func(string) bool, err error) {
	log.Warnw("顾问生成失败", "role", a.role, "organization_id", a.orgID, "error", err)
	metrics.AdvisorErrorsTotal.WithLabelValues(a.kind()).Inc()
	yield(fmt.Sprintf("Error from %s advisor: %s", a.role, err.Error()))
}

func (a *Advisor) kind() string {
	if a.custom {
		return "custom"
	}
	return "builtin"
}

// buildPrompt 拼接角色人格、最近的对话、最近的文档和当前话题。
// 上下文按时间倒序取最近 N 条，而不是按语义相关度排序。
func (a *Advisor) buildPrompt(ctx context.Context, topic string) (string, error) {
	history, err := a.convRepo.FindRecent(ctx, a.orgID, a.cfg.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load conversation history: %w", err)
	}
	docs, err := a.docRepo.FindRecent(ctx, a.orgID, a.cfg.DocumentLimit)
	if err != nil {
		return "", fmt.Errorf("load documents: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "As a %s advisor with the following context:\n%s\n\n", a.role, a.personality)
	if s := formatHistory(history); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := formatDocuments(docs, a.cfg.SnippetLength); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Current topic:\n%s\n\nProvide your perspective based on your expertise and priorities.\n", topic)
	return b.String(), nil
}

func formatHistory(convs []model.Conversation) string {
	entries := make([]string, 0, len(convs))
	for _, c := range convs {
		if c.Discussion == nil {
			log.Warnf("[Advisor] 对话 %d 缺少 discussion, 已跳过", c.ID)
			continue
		}
		keyPoints := c.Discussion.Synthesis
		if keyPoints == "" {
			keyPoints = "No synthesis available"
		}
		entries = append(entries, fmt.Sprintf("Date: %s\nTopic: %s\nKey Points: %s\n",
			c.Timestamp.Format(timestampLayout), c.Topic, keyPoints))
	}
	if len(entries) == 0 {
		return ""
	}
	return "Relevant past discussions:\n" + strings.Join(entries, "\n")
}

func formatDocuments(docs []model.Document, snippetLength int) string {
	entries := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content == nil {
			log.Warnf("[Advisor] 文档 %d 没有内容, 已跳过", d.ID)
			continue
		}
		entries = append(entries, fmt.Sprintf("Type: %s\nDate: %s\nContent: %s...\n",
			d.Type, d.Timestamp.Format(timestampLayout), truncateRunes(*d.Content, snippetLength)))
	}
	if len(entries) == 0 {
		return ""
	}
	return "Relevant company documents:\n" + strings.Join(entries, "\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
