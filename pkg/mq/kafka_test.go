package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader 内存实现的 messageReader，消息耗尽后取消 context 结束消费循环
type fakeReader struct {
	msgs    []kafka.Message
	commits []kafka.Message
	cancel  context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		return kafka.Message{}, context.Canceled
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.commits = append(f.commits, msgs...)
	return nil
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return f.FetchMessage(ctx)
}

func (f *fakeReader) Close() error {
	return nil
}

func newFakeConsumer(msgs ...kafka.Message) (*KafkaConsumer, *fakeReader, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{msgs: msgs, cancel: cancel}
	return &KafkaConsumer{reader: reader}, reader, ctx
}

func TestConsumeCommitsAfterHandlerSucceeds(t *testing.T) {
	consumer, reader, ctx := newFakeConsumer(
		kafka.Message{Topic: "orders.filled", Offset: 1, Value: []byte("a")},
		kafka.Message{Topic: "orders.filled", Offset: 2, Value: []byte("b")},
	)

	var handled []string
	err := consumer.Consume(ctx, func(ctx context.Context, msg *Message) error {
		handled = append(handled, string(msg.Value))
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"a", "b"}, handled)
	require.Len(t, reader.commits, 2)
	assert.Equal(t, int64(1), reader.commits[0].Offset)
	assert.Equal(t, int64(2), reader.commits[1].Offset)
}

func TestConsumeLeavesFailedMessageUncommitted(t *testing.T) {
	consumer, reader, ctx := newFakeConsumer(
		kafka.Message{Topic: "orders.filled", Offset: 1, Value: []byte("bad")},
		kafka.Message{Topic: "orders.filled", Offset: 2, Value: []byte("good")},
	)

	errPersist := errors.New("persist failed")
	err := consumer.Consume(ctx, func(ctx context.Context, msg *Message) error {
		if string(msg.Value) == "bad" {
			return errPersist
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	// 失败消息的偏移量未提交，重启后会重新投递
	require.Len(t, reader.commits, 1)
	assert.Equal(t, int64(2), reader.commits[0].Offset)
}
