package service

import (
	"context"
	"testing"

	"board-ai-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalityLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()
	svc := NewPersonalityService(repos.Personalities)

	p, err := svc.Create(ctx, 1, PersonalityRequest{Name: "  ethics ", Description: "Ethics officer", PromptTemplate: "You weigh ethics."})
	require.NoError(t, err)
	assert.Equal(t, "ethics", p.Name)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	others, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, others)

	assert.ErrorIs(t, svc.Delete(ctx, 2, p.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, 1, p.ID), ErrNotFound)
}

func TestPersonalityNameRules(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()
	svc := NewPersonalityService(repos.Personalities)

	_, err := svc.Create(ctx, 1, PersonalityRequest{Name: "Legal", PromptTemplate: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, 1, PersonalityRequest{Name: "   ", PromptTemplate: "x"})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(ctx, 1, PersonalityRequest{Name: "ops", PromptTemplate: ""})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(ctx, 1, PersonalityRequest{Name: "ops", PromptTemplate: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, PersonalityRequest{Name: "OPS", PromptTemplate: "y"})
	assert.ErrorIs(t, err, ErrConflict)

	// 其他组织可以使用相同名称
	_, err = svc.Create(ctx, 2, PersonalityRequest{Name: "ops", PromptTemplate: "z"})
	assert.NoError(t, err)
}
