package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"board-ai-go/internal/config"
	"board-ai-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type countingProcessor struct {
	failures map[uint]int
	calls    map[uint]int
}

func (p *countingProcessor) Process(_ context.Context, task tasks.DocumentIndexTask) error {
	p.calls[task.DocumentID]++
	if p.calls[task.DocumentID] <= p.failures[task.DocumentID] {
		return errors.New("es unavailable")
	}
	return nil
}

func message(t *testing.T, task tasks.DocumentIndexTask) kafka.Message {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestConsumeRetriesThenCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(t, tasks.DocumentIndexTask{Action: tasks.ActionIndex, DocumentID: 1, OrganizationID: 1}),
		message(t, tasks.DocumentIndexTask{Action: tasks.ActionIndex, DocumentID: 2, OrganizationID: 1}),
		{Value: []byte("not json")},
	}}
	proc := &countingProcessor{
		failures: map[uint]int{1: 1, 2: 10},
		calls:    map[uint]int{},
	}

	consume(context.Background(), reader, proc)

	assert.Equal(t, 2, proc.calls[1])
	assert.Equal(t, maxAttempts, proc.calls[2])
	assert.Len(t, reader.committed, 3)
	assert.True(t, reader.closed)
}

func TestBrokersSplitsList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(config.KafkaConfig{Brokers: "a:9092, b:9092,"}))
}

func TestTaskKey(t *testing.T) {
	assert.Equal(t, "4:9", tasks.DocumentIndexTask{DocumentID: 9, OrganizationID: 4}.Key())
}
