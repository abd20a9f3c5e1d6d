package media

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	copied  []string
	deleted []string
	failKey string
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied = append(f.copied, aws.ToString(in.Key))
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestDeleteMomentImageRemovesEveryVariant(t *testing.T) {
	fake := &fakeS3{}
	require.NoError(t, NewS3(fake, "bucket").Delete(context.Background(), MomentImages, "abc"))

	assert.ElementsMatch(t, []string{
		"momentImages/abc", "momentImages/abc_cropped", "momentImages/abc_thumb", "momentImages/abc_tiny",
	}, fake.deleted)
	assert.ElementsMatch(t, []string{
		"deleted/momentImages/abc", "deleted/momentImages/abc_cropped",
		"deleted/momentImages/abc_thumb", "deleted/momentImages/abc_tiny",
	}, fake.copied)
}

func TestDeleteProfileImageAttemptsAllOnFailure(t *testing.T) {
	fake := &fakeS3{failKey: "profileImages/abc_thumb"}
	err := NewS3(fake, "bucket").Delete(context.Background(), ProfileImages, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profileImages/abc_thumb")
	assert.ElementsMatch(t, []string{"profileImages/abc", "profileImages/abc_tiny"}, fake.deleted)
}

func TestDeleteEmptyKeyIsNoop(t *testing.T) {
	fake := &fakeS3{}
	require.NoError(t, NewS3(fake, "bucket").Delete(context.Background(), ProfileImages, ""))
	assert.Empty(t, fake.copied)
}
