// Package media removes user uploaded images from S3.  A deleted image is
// first copied under the "deleted/" prefix so it can be recovered.
package media

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iliyamo/phenom-api/internal/settle"
)

// Folder is the key prefix an image kind is stored under.
type Folder string

const (
	ProfileImages Folder = "profileImages"
	MomentImages  Folder = "momentImages"
)

// Store is the media collaborator used by the cascades.
type Store interface {
	Delete(ctx context.Context, folder Folder, key string) error
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 implements Store against a single bucket.
type S3 struct {
	client S3API
	bucket string
}

func NewS3(client S3API, bucket string) *S3 { return &S3{client: client, bucket: bucket} }

// variants returns every stored size of an image.  Moment images also
// keep a cropped copy.
func variants(folder Folder, key string) []string {
	out := []string{key}
	if folder == MomentImages {
		out = append(out, key+"_cropped")
	}
	return append(out, key+"_thumb", key+"_tiny")
}

// Delete archives and removes every size of the image.  All sizes are
// attempted; the combined error reports the ones that failed.
func (s *S3) Delete(ctx context.Context, folder Folder, key string) error {
	if key == "" {
		return nil
	}
	res := settle.Each(ctx, variants(folder, key), func(ctx context.Context, k string) error {
		src := string(folder) + "/" + k
		if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String((&url.URL{Path: s.bucket + "/" + src}).EscapedPath()),
			Key:        aws.String("deleted/" + src),
		}); err != nil {
			return fmt.Errorf("archive %s: %w", src, err)
		}
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(src),
		}); err != nil {
			return fmt.Errorf("delete %s: %w", src, err)
		}
		return nil
	})
	return res.Err()
}
