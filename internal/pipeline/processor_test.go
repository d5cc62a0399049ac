package pipeline

import (
	"context"
	"strings"
	"testing"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	chunks  []model.EsDocument
	deleted []uint
}

func (f *fakeIndex) IndexChunk(_ context.Context, doc model.EsDocument) error {
	f.chunks = append(f.chunks, doc)
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, _, documentID uint) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func TestSplitText(t *testing.T) {
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 800)
	chunks := splitText(text, 1000, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1000, len([]rune(chunks[0])))
	assert.Equal(t, strings.Repeat("a", 100)+strings.Repeat("b", 800), chunks[1])

	assert.Nil(t, splitText("", 1000, 100))
	assert.Equal(t, []string{"ab", "cd"}, splitText("abcd", 2, 5))
}

func TestProcessIndexesChunks(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()
	content := strings.Repeat("x", 1500)
	doc := &model.Document{
		Type: "memo", Content: &content, OrganizationID: 4,
		Metadata: model.Metadata{model.MetaFilename: "memo.txt"},
	}
	require.NoError(t, repos.Documents.Create(ctx, doc))

	idx := &fakeIndex{}
	p := NewProcessor(repos.Documents, idx)
	require.NoError(t, p.Process(ctx, tasks.DocumentIndexTask{Action: tasks.ActionIndex, DocumentID: doc.ID, OrganizationID: 4}))

	assert.Equal(t, []uint{doc.ID}, idx.deleted)
	require.Len(t, idx.chunks, 2)
	assert.Equal(t, "memo.txt", idx.chunks[0].Filename)
	assert.Equal(t, uint(4), idx.chunks[1].OrganizationID)
	assert.Equal(t, 1, idx.chunks[1].ChunkID)
}

func TestProcessSkipsOtherTenantAndDeletes(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()
	content := "secret"
	doc := &model.Document{Content: &content, OrganizationID: 1}
	require.NoError(t, repos.Documents.Create(ctx, doc))

	idx := &fakeIndex{}
	p := NewProcessor(repos.Documents, idx)

	require.NoError(t, p.Process(ctx, tasks.DocumentIndexTask{Action: tasks.ActionIndex, DocumentID: doc.ID, OrganizationID: 2}))
	assert.Empty(t, idx.chunks)

	require.NoError(t, p.Process(ctx, tasks.DocumentIndexTask{Action: tasks.ActionDelete, DocumentID: doc.ID, OrganizationID: 1}))
	assert.Empty(t, idx.chunks)
	assert.Len(t, idx.deleted, 2)
}
