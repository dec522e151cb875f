package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out    *ssm.GetParameterOutput
	err    error
	lastIn *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func valueOutput(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/tutor/open-ai-token"),
		Value: aws.String(v),
		Type:  types.ParameterTypeSecureString,
	}}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGetParameter_RequestsDecryption(t *testing.T) {
	api := &fakeSSM{out: valueOutput(`{"token":"sk-1"}`)}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), " /tutor/open-ai-token ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"sk-1"}`, v)
	require.Equal(t, "/tutor/open-ai-token", aws.ToString(api.lastIn.Name))
	require.True(t, aws.ToBool(api.lastIn.WithDecryption))
}

func TestGetParameter_Errors(t *testing.T) {
	cases := []struct {
		name string
		api  *fakeSSM
		key  string
		want string
	}{
		{name: "empty name", api: &fakeSSM{}, key: "  ", want: "required"},
		{name: "api error", api: &fakeSSM{err: errors.New("throttled")}, key: "p", want: "throttled"},
		{name: "nil output", api: &fakeSSM{}, key: "p", want: "no value"},
		{name: "nil value", api: &fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{}}}, key: "p", want: "no value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.api)
			require.NoError(t, err)
			_, err = c.GetParameter(context.Background(), tc.key)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestName(t *testing.T) {
	require.Equal(t, "/tutor/open-ai-token", Name("/tutor", "open-ai-token"))
	require.Equal(t, "/tutor/open-ai-token", Name("/tutor/", "/open-ai-token"))
	require.Equal(t, "/open-ai-token", Name(" ", "open-ai-token"))
}
