package service

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"sync"

	"board-ai-go/internal/config"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/llm"
)

var rolePattern = regexp.MustCompile(`^As a (.+?) advisor`)

// scriptedLLM 按提示词开头的角色名返回预设的片段或错误。
type scriptedLLM struct {
	mu      sync.Mutex
	tokens  map[string][]string
	errs    map[string]error
	prompts []string
	// synthesis 是非顾问提示词（总结）的返回值
	synthesis []string
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{tokens: map[string][]string{}, errs: map[string]error{}}
}

func (s *scriptedLLM) Stream(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) iter.Seq2[string, error] {
	prompt := messages[len(messages)-1].Content
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	return func(yield func(string, error) bool) {
		m := rolePattern.FindStringSubmatch(prompt)
		if m == nil {
			for _, t := range s.synthesis {
				if !yield(t, nil) {
					return
				}
			}
			return
		}
		role := m[1]
		for _, t := range s.tokens[role] {
			if !yield(t, nil) {
				return
			}
		}
		if err := s.errs[role]; err != nil {
			yield("", err)
		}
	}
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

var errCompletion = errors.New("upstream unavailable")

func testAdvisorConfig() config.AdvisorConfig {
	return config.AdvisorConfig{HistoryLimit: 5, DocumentLimit: 3, SnippetLength: 500}
}

func newTestFactory(repos *repository.Repositories, client llm.Client) *AdvisorFactory {
	return NewAdvisorFactory(repos.Personalities, repos.Documents, repos.Conversations, client, testAdvisorConfig())
}

// collectWriter 收集写出的片段，可在第 failAfter 次写入后模拟客户端断开。
type collectWriter struct {
	fragments []string
	failAfter int
	writes    int
}

func (c *collectWriter) write(fragment string) error {
	c.writes++
	if c.failAfter > 0 && c.writes > c.failAfter {
		return errors.New("broken pipe")
	}
	c.fragments = append(c.fragments, fragment)
	return nil
}
