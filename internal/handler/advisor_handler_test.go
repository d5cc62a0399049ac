package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"board-ai-go/internal/config"
	"board-ai-go/internal/middleware"
	"board-ai-go/internal/model"
	"board-ai-go/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeBody(topic string, roles ...string) map[string]any {
	return map[string]any{"topic": topic, "advisor_roles": roles}
}

func (s *testServer) conversation(t *testing.T, tok string, id string) model.Conversation {
	t.Helper()
	w := s.doJSON(t, http.MethodGet, "/api/v1/advisors/conversations/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.Conversation](t, w)
}

func TestAnalyzeStreamsRolesInOrder(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")
	s.llm.tokens["legal"] = []string{"A", "B"}
	s.llm.tokens["financial"] = []string{"C"}

	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("Should we expand?", "legal", "financial"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))

	body := w.Body.String()
	assert.Equal(t, "### LEGAL ADVISOR:\n\nAB\n\n### FINANCIAL ADVISOR:\n\nC\n\n", body)

	convID := w.Header().Get(ConversationIDHeader)
	require.NotEmpty(t, convID)
	conv := s.conversation(t, tok, convID)
	require.NotNil(t, conv.Discussion)
	assert.Equal(t, map[string]string{"legal": "AB", "financial": "C"}, conv.Discussion.Responses)
	assert.True(t, conv.Discussion.Complete)
	assert.Equal(t, "Should we expand?", conv.Topic)

	w = s.doJSON(t, http.MethodGet, "/api/v1/advisors/conversations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Conversation](t, w), 1)
}

func TestAnalyzeAdvisorFailureIsInline(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")
	s.llm.tokens["legal"] = []string{"fine"}
	s.llm.errs["technology"] = errUpstream

	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("Migrate?", "legal", "technology"))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	legal := strings.Index(body, "fine")
	failure := strings.Index(body, "Error from technology advisor: upstream unavailable")
	require.GreaterOrEqual(t, legal, 0)
	require.GreaterOrEqual(t, failure, 0)
	assert.Less(t, legal, failure)

	conv := s.conversation(t, tok, w.Header().Get(ConversationIDHeader))
	assert.True(t, conv.Discussion.Complete)
	assert.Equal(t, "fine", conv.Discussion.Responses["legal"])
}

func TestAnalyzeSynthesis(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")
	s.llm.tokens["legal"] = []string{"ok"}
	s.llm.synthesis = []string{"Proceed", " carefully"}

	body := analyzeBody("Expand?", "legal")
	body["synthesize"] = true
	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.SynthesisHeader+"Proceed carefully")

	conv := s.conversation(t, tok, w.Header().Get(ConversationIDHeader))
	assert.Equal(t, "Proceed carefully", conv.Discussion.Synthesis)
	assert.Equal(t, map[string]string{"legal": "ok"}, conv.Discussion.Responses)
}

func TestAnalyzeValidation(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("Expand?", "legal", "astrology"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Detail, "astrology")

	w = s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("", "legal"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("Expand?"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 校验失败不会留下对话记录
	w = s.doJSON(t, http.MethodGet, "/api/v1/advisors/conversations", tok, nil)
	assert.Empty(t, decode[[]model.Conversation](t, w))
}

func TestConversationsAreTenantScoped(t *testing.T) {
	s := newTestServer(t, nil)
	acme := s.login(t, "a@acme.com", "Acme")
	globex := s.login(t, "g@globex.com", "Globex")

	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", acme, analyzeBody("Expand?", "legal"))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(ConversationIDHeader)

	w = s.doJSON(t, http.MethodGet, "/api/v1/advisors/conversations/"+id, globex, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeRateLimit(t *testing.T) {
	limiter := middleware.NewOrgRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1})
	s := newTestServer(t, limiter)
	acme := s.login(t, "a@acme.com", "Acme")
	globex := s.login(t, "g@globex.com", "Globex")

	w := s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", acme, analyzeBody("Expand?", "legal"))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", acme, analyzeBody("Again?", "legal"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他组织有自己的令牌桶
	w = s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", globex, analyzeBody("Expand?", "legal"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPersonalitiesAndRoles(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")

	w := s.doJSON(t, http.MethodPost, "/api/v1/personalities/create", tok, map[string]string{
		"name": "cfo", "description": "Finance chief", "prompt_template": "You guard the runway.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfo := decode[model.Personality](t, w)

	w = s.doJSON(t, http.MethodPost, "/api/v1/personalities/create", tok, map[string]string{
		"name": "Legal", "prompt_template": "x",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/personalities/list", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Personality](t, w), 1)

	w = s.doJSON(t, http.MethodGet, "/api/v1/advisors/roles", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	roles := decode[[]service.AdvisorRole](t, w)
	require.Len(t, roles, 4)
	assert.Equal(t, service.AdvisorRole{Name: "cfo", Description: "Finance chief", Custom: true}, roles[3])

	s.llm.tokens["cfo"] = []string{"Cut costs"}
	w = s.doJSON(t, http.MethodPost, "/api/v1/advisors/analyze", tok, analyzeBody("Hire?", "cfo"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "### CFO ADVISOR:\n\nCut costs\n\n", w.Body.String())

	w = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/personalities/%d", cfo.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/personalities/%d", cfo.ID), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvisorWebSocket(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.login(t, "a@acme.com", "Acme")
	s.llm.tokens["legal"] = []string{"A", "B"}

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/advisors/ws/"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("validation error frame", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(analyzeBody("Expand?", "astrology")))
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "error", frame.Type)
		assert.Contains(t, frame.Detail, "astrology")
	})

	t.Run("fragments then completion", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(analyzeBody("Expand?", "legal")))

		var text strings.Builder
		var done wsFrame
		for done.Type == "" {
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			if strings.HasPrefix(string(msg), `{"type":`) {
				require.NoError(t, json.Unmarshal(msg, &done))
				continue
			}
			text.Write(msg)
		}
		assert.Equal(t, "completion", done.Type)
		assert.Equal(t, "### LEGAL ADVISOR:\n\nAB\n\n", text.String())

		conv := s.conversation(t, tok, strconv.FormatUint(uint64(done.ConversationID), 10))
		assert.True(t, conv.Discussion.Complete)
		assert.Equal(t, "AB", conv.Discussion.Responses["legal"])
	})
}
