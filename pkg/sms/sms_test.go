package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilio struct {
	params *api.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &api.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioProvider_SendSMS(t *testing.T) {
	fake := &fakeTwilio{}
	p := &TwilioProvider{api: fake, fromNumber: "+15550000"}

	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550100", Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", resp.MessageID)
	assert.Equal(t, "+15550000", *fake.params.From)
	assert.Equal(t, "help", *fake.params.Body)
}

func TestTwilioProvider_Errors(t *testing.T) {
	p := &TwilioProvider{api: &fakeTwilio{err: errors.New("20003 auth")}, fromNumber: "+15550000"}

	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550100"})
	require.Error(t, err)
	assert.Equal(t, "failed", resp.Status)

	_, err = p.SendSMS(context.Background(), &SMSRequest{})
	assert.ErrorIs(t, err, ErrEmptyRecipient)
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestAWSSNSProvider_SendSMSIncludesBody(t *testing.T) {
	fake := &fakeSNS{}
	p := &AWSSNSProvider{client: fake, senderID: "SHAKTI"}

	resp, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550100", Message: "help now"})
	require.NoError(t, err)
	assert.Equal(t, "sns-1", resp.MessageID)
	assert.Equal(t, "help now", aws.ToString(fake.input.Message))
	assert.Equal(t, "SHAKTI", aws.ToString(fake.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(fake.input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider(nil)

	a, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550100", Message: "x"})
	require.NoError(t, err)
	b, err := p.SendSMS(context.Background(), &SMSRequest{To: "+15550100", Message: "x"})
	require.NoError(t, err)

	assert.True(t, a.Simulated)
	assert.NotEqual(t, a.MessageID, b.MessageID)
}
