package aws_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/botads/botads-go/internal/controllers/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     string
	err                      error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket, f.key, f.contentType = *in.Bucket, *in.Key, *in.ContentType
	raw, _ := io.ReadAll(in.Body)
	f.body = string(raw)
	return &s3.PutObjectOutput{}, nil
}

type fakeSSM struct {
	values    map[string]string
	decrypted bool
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.decrypted = awssdk.ToBool(in.WithDecryption)
	v, ok := f.values[*in.Name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: awssdk.String(v)}}, nil
}

func newController(t *testing.T, s *fakeS3, p *fakeSSM) *aws.Controller {
	t.Helper()
	ctl, err := aws.NewController(aws.WithContext(t.Context()), aws.WithS3Client(s), aws.WithSSMClient(p))
	require.NoError(t, err)
	return ctl
}

func TestController_GetCredentials(t *testing.T) {
	testCases := []struct {
		Name        string
		Value       string
		Key         string
		ExpectError bool
		Expected    *aws.Credentials
	}{
		{
			Name:     "token_and_secret",
			Key:      "/botads/creds",
			Value:    `{"api_token":"T","webhook_secret":"S","bot_id":"7"}`,
			Expected: &aws.Credentials{APIToken: "T", WebhookSecret: "S", BotID: "7"},
		},
		{
			Name:     "token_only",
			Key:      "/botads/creds",
			Value:    `{"api_token":"T"}`,
			Expected: &aws.Credentials{APIToken: "T"},
		},
		{
			Name:        "missing_token",
			Key:         "/botads/creds",
			Value:       `{"webhook_secret":"S"}`,
			ExpectError: true,
		},
		{
			Name:        "not_json",
			Key:         "/botads/creds",
			Value:       `T`,
			ExpectError: true,
		},
		{
			Name:        "missing_parameter",
			Key:         "/botads/other",
			ExpectError: true,
		},
		{
			Name:        "empty_key",
			Key:         "",
			ExpectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			p := &fakeSSM{values: map[string]string{"/botads/creds": tc.Value}}
			ctl := newController(t, &fakeS3{}, p)
			creds, err := ctl.GetCredentials(tc.Key)
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, creds)
			assert.True(t, p.decrypted)
		})
	}
}

func TestController_PutS3Object(t *testing.T) {
	s := &fakeS3{}
	ctl := newController(t, s, &fakeSSM{})

	key, err := ctl.PutS3Object(t.Context(), "rewarded", "bucket", "webhooks/", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "bucket", s.bucket)
	assert.Equal(t, key, s.key)
	assert.True(t, strings.HasPrefix(key, "webhooks/"))
	assert.True(t, strings.HasSuffix(key, ".rewarded.json"))
	assert.Equal(t, "application/json", s.contentType)
	assert.Equal(t, `{"a":1}`, s.body)

	key, err = ctl.PutS3Object(t.Context(), "rewarded", "", "webhooks/", []byte(`{}`))
	assert.NoError(t, err)
	assert.Empty(t, key)
}

func TestS3Archiver(t *testing.T) {
	s := &fakeS3{}
	archiver := newController(t, s, &fakeSSM{}).NewS3Archiver("bucket", "p/")
	require.NoError(t, archiver.Archive(t.Context(), "direct_link", []byte(`{}`)))
	assert.True(t, strings.HasPrefix(s.key, "p/"))

	failing := newController(t, &fakeS3{err: errors.New("access denied")}, &fakeSSM{}).NewS3Archiver("bucket", "p/")
	assert.ErrorContains(t, failing.Archive(t.Context(), "direct_link", []byte(`{}`)), "access denied")
}
