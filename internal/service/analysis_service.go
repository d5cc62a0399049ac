package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"board-ai-go/internal/metrics"
	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/log"
)

// SynthesisHeader 是总结部分在流中的标题。
const SynthesisHeader = "### SYNTHESIS AND RECOMMENDATIONS:\n\n"

const roleSeparator = "\n\n"

// analysisStartError 在无法获取数据库 session 时写给客户端，内部错误只记录日志。
const analysisStartError = "Error: analysis could not start\n\n"

// AnalyzeRequest 是多顾问分析的请求体。
type AnalyzeRequest struct {
	Topic        string   `json:"topic"`
	AdvisorRoles []string `json:"advisor_roles"`
	Synthesize   bool     `json:"synthesize"`
}

// AnalysisRun 是一次已通过校验、已创建对话记录的分析。
type AnalysisRun struct {
	ConversationID uint
	OrganizationID uint
	Topic          string
	synthesize     bool
	advisors       []*Advisor
}

// FragmentWriter 将一个文本片段写给客户端。返回错误表示客户端已不可写。
type FragmentWriter func(fragment string) error

// AnalysisService 是对话编排器：按顺序把话题交给每个顾问，流式输出并持久化结果。
type AnalysisService interface {
	// Prepare 校验请求并创建对话记录；校验失败时不会创建任何记录。
	Prepare(ctx context.Context, orgID uint, req AnalyzeRequest) (*AnalysisRun, error)
	// Stream 依次运行所有角色并写出片段。每个角色结束后写一次库，
	// 无论以何种方式结束，最后都会写入 complete=true。客户端断开不会中止执行。
	Stream(ctx context.Context, run *AnalysisRun, w FragmentWriter) error
}

type analysisService struct {
	factory  *AdvisorFactory
	convRepo repository.ConversationRepository
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。
func NewAnalysisService(factory *AdvisorFactory, convRepo repository.ConversationRepository) AnalysisService {
	return &analysisService{factory: factory, convRepo: convRepo}
}

func (s *analysisService) Prepare(ctx context.Context, orgID uint, req AnalyzeRequest) (*AnalysisRun, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrBadRequest)
	}
	if len(req.AdvisorRoles) == 0 {
		return nil, fmt.Errorf("%w: advisor_roles must not be empty", ErrBadRequest)
	}

	advisors, err := s.factory.Build(ctx, orgID, req.AdvisorRoles)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		Topic:          req.Topic,
		Discussion:     &model.Discussion{Responses: map[string]string{}},
		OrganizationID: orgID,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("创建对话记录失败: %w", err)
	}

	return &AnalysisRun{
		ConversationID: conv.ID,
		OrganizationID: orgID,
		Topic:          req.Topic,
		synthesize:     req.Synthesize,
		advisors:       advisors,
	}, nil
}

// streamOutput 包装 FragmentWriter：第一次写失败后不再写，只记录一次日志。
type streamOutput struct {
	write  FragmentWriter
	convID uint
	gone   bool
}

func (o *streamOutput) emit(fragment string) {
	if o.gone {
		return
	}
	if err := o.write(fragment); err != nil {
		o.gone = true
		log.Warnw("客户端已断开, 继续在后台完成分析", "conversation_id", o.convID, "error", err)
	}
}

func (s *analysisService) Stream(ctx context.Context, run *AnalysisRun, w FragmentWriter) error {
	// 客户端断开不影响后续角色和最终的 complete 写入
	ctx = context.WithoutCancel(ctx)
	out := &streamOutput{write: w, convID: run.ConversationID}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	started := false
	err := s.convRepo.RunInSession(ctx, func(repo repository.ConversationRepository) error {
		started = true
		return s.runInSession(ctx, repo, run, out)
	})
	if !started {
		// 没拿到独占连接时 fn 不会执行，终态写入改走连接池
		err = s.abort(ctx, run, out, err)
	}
	outcome := "completed"
	if err != nil {
		outcome = "failed"
		log.Errorf("[AnalysisService] 分析失败, conversation_id=%d: %v", run.ConversationID, err)
	}
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	return err
}

// abort 在分析未能开始时输出错误片段，并通过连接池写入 complete=true。
func (s *analysisService) abort(ctx context.Context, run *AnalysisRun, out *streamOutput, cause error) error {
	if cause == nil {
		cause = errors.New("analysis session was not started")
	}
	out.emit(analysisStartError)
	discussion := &model.Discussion{Responses: map[string]string{}, Complete: true}
	if uerr := s.convRepo.UpdateDiscussion(ctx, run.OrganizationID, run.ConversationID, discussion); uerr != nil {
		return errors.Join(cause, fmt.Errorf("标记对话完成失败: %w", uerr))
	}
	return cause
}

func (s *analysisService) runInSession(ctx context.Context, repo repository.ConversationRepository, run *AnalysisRun, out *streamOutput) (err error) {
	discussion := &model.Discussion{Responses: map[string]string{}}

	// 唯一的终态写入，所有退出路径（包括 panic）都会执行
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
			out.emit(fmt.Sprintf("Error: %v", r))
		}
		discussion.Complete = true
		if uerr := repo.UpdateDiscussion(ctx, run.OrganizationID, run.ConversationID, discussion); uerr != nil {
			err = errors.Join(err, fmt.Errorf("标记对话完成失败: %w", uerr))
		}
	}()

	responses := make([]RoleResponse, 0, len(run.advisors))
	for _, adv := range run.advisors {
		out.emit(fmt.Sprintf("### %s ADVISOR:\n\n", strings.ToUpper(adv.Role())))

		var full strings.Builder
		for frag := range adv.Analyze(ctx, run.Topic) {
			out.emit(frag)
			full.WriteString(frag)
		}
		out.emit(roleSeparator)

		discussion.Responses[adv.Role()] = full.String()
		responses = append(responses, RoleResponse{Role: adv.Role(), Text: full.String()})
		if uerr := repo.UpdateDiscussion(ctx, run.OrganizationID, run.ConversationID, discussion); uerr != nil {
			// 单个角色保存失败不影响其他角色
			log.Errorf("[AnalysisService] 保存 %s 回答失败, conversation_id=%d: %v", adv.Role(), run.ConversationID, uerr)
			out.emit(fmt.Sprintf("Error: could not save %s advisor response\n\n", adv.Role()))
		}
	}

	if run.synthesize {
		out.emit(SynthesisHeader)
		var synthesis strings.Builder
		for frag := range s.factory.Synthesize(ctx, run.Topic, responses) {
			out.emit(frag)
			synthesis.WriteString(frag)
		}
		out.emit(roleSeparator)
		discussion.Synthesis = synthesis.String()
		if uerr := repo.UpdateDiscussion(ctx, run.OrganizationID, run.ConversationID, discussion); uerr != nil {
			log.Errorf("[AnalysisService] 保存总结失败, conversation_id=%d: %v", run.ConversationID, uerr)
		}
	}
	return nil
}
