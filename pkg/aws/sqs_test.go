package aws

import (
	"context"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSQS struct {
	messages   []types.Message
	deleted    []string
	deleteErrs []error
	sent       []string
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, sdkaws.ToString(in.ReceiptHandle))
	f.deleteErrs = append(f.deleteErrs, ctx.Err())
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, sdkaws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func sqsMessage(body, receipt string) types.Message {
	return types.Message{Body: sdkaws.String(body), ReceiptHandle: sdkaws.String(receipt)}
}

func TestPollOnce_DeletesHandledMessagesAfterStop(t *testing.T) {
	api := &fakeSQS{messages: []types.Message{sqsMessage("a", "r1"), sqsMessage("b", "r2")}}
	q := &SQSQueue{client: api, queueURL: "http://localhost/q", logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []string
	err := q.pollOnce(ctx, func(_ context.Context, body string) error {
		handled = append(handled, body)
		cancel() // shutdown arrives while the batch is being handled
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, handled)
	assert.Equal(t, []string{"r1", "r2"}, api.deleted)
	assert.Equal(t, []error{nil, nil}, api.deleteErrs)
}

func TestPollOnce_KeepsMessageWhenHandlerFails(t *testing.T) {
	api := &fakeSQS{messages: []types.Message{sqsMessage("a", "r1")}}
	q := &SQSQueue{client: api, queueURL: "http://localhost/q", logger: zap.NewNop()}

	err := q.pollOnce(context.Background(), func(context.Context, string) error {
		return assert.AnError
	})

	assert.NoError(t, err)
	assert.Empty(t, api.deleted)
}

func TestSendMessage(t *testing.T) {
	api := &fakeSQS{}
	q := &SQSQueue{client: api, queueURL: "http://localhost/q", logger: zap.NewNop()}

	assert.NoError(t, q.SendMessage(context.Background(), `{"check_id":"x"}`))
	assert.Equal(t, []string{`{"check_id":"x"}`}, api.sent)
}
