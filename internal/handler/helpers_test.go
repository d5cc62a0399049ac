package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"board-ai-go/internal/config"
	"board-ai-go/internal/middleware"
	"board-ai-go/internal/repository"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/llm"
	"board-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var rolePattern = regexp.MustCompile(`^As a (.+?) advisor`)

// fakeLLM 按提示词中的角色名返回预设片段，errs 中的角色在片段之后返回错误。
type fakeLLM struct {
	tokens    map[string][]string
	errs      map[string]error
	synthesis []string
}

func (f *fakeLLM) Stream(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) iter.Seq2[string, error] {
	prompt := messages[len(messages)-1].Content
	return func(yield func(string, error) bool) {
		toks := f.synthesis
		var failure error
		if m := rolePattern.FindStringSubmatch(prompt); m != nil {
			toks = f.tokens[m[1]]
			failure = f.errs[m[1]]
		}
		for _, t := range toks {
			if !yield(t, nil) {
				return
			}
		}
		if failure != nil {
			yield("", failure)
		}
	}
}

type testServer struct {
	router *gin.Engine
	repos  *repository.Repositories
	llm    *fakeLLM
}

func newTestServer(t *testing.T, limiter *middleware.OrgRateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repository.NewMemoryRepositories()
	fake := &fakeLLM{tokens: map[string][]string{}, errs: map[string]error{}}
	factory := service.NewAdvisorFactory(repos.Personalities, repos.Documents, repos.Conversations, fake,
		config.AdvisorConfig{HistoryLimit: 5, DocumentLimit: 3, SnippetLength: 500})
	userService := service.NewUserService(repos.Users, repos.Organizations, repository.NewMemoryTokenBlacklist(), token.NewJWTManager("test-secret", 30))

	router := NewRouter(RouterDeps{
		UserService:         userService,
		DocumentService:     service.NewDocumentService(repos.Documents, nil, nil, nil),
		PersonalityService:  service.NewPersonalityService(repos.Personalities),
		ConversationService: service.NewConversationService(repos.Conversations),
		SearchService:       service.NewSearchService(nil),
		AnalysisService:     service.NewAnalysisService(factory, repos.Conversations),
		AdvisorFactory:      factory,
		RateLimiter:         limiter,
		MaxUploadMB:         1,
		HealthChecks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		},
	})
	return &testServer{router: router, repos: repos, llm: fake}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return s.do(req)
}

// login 注册用户（如未注册）并返回 access token。
func (s *testServer) login(t *testing.T, email, org string) string {
	t.Helper()
	w := s.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "pw", "full_name": "Test User", "organization_name": org,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	form := url.Values{"username": {email}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	require.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func (s *testServer) upload(t *testing.T, tok, filename, content string, extra map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("type", "notes"))
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	return s.do(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

var errUpstream = errors.New("upstream unavailable")
