// Stores images in AWS S3. A remote backend: it intentionally does not implement
// the Pather capability.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"regexp"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/function61/gokit/aws/s3facade"
	"github.com/function61/gokit/logex"
)

type s3Storage struct {
	bucket string
	region string
	client *s3.S3
	logl   *logex.Leveled
}

// opts looks like "bucket:region:accessKeyId:secret"
func New(opts string, logger *log.Logger) (*s3Storage, error) {
	bucket, regionID, accessKeyID, secret, err := parseOptionsString(opts)
	if err != nil {
		return nil, err
	}

	client, err := s3facade.Client(accessKeyID, secret, regionID)
	if err != nil {
		return nil, err
	}

	return &s3Storage{
		bucket: bucket,
		region: regionID,
		client: client,
		logl:   logex.Levels(logex.NonNil(logger)),
	}, nil
}

func (s *s3Storage) Save(ctx context.Context, name string, content io.Reader) error {
	// S3 internally requires retry support, so it wants an io.ReadSeeker and thus
	// we're forced to buffer
	buf, err := ioutil.ReadAll(content)
	if err != nil {
		return err
	}

	if _, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(name),
		Body:   bytes.NewReader(buf),
	}); err != nil {
		return fmt.Errorf("s3 PutObject: %v", err)
	}

	return nil
}

func (s *s3Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	res, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 GetObject: %v", err)
	}

	return res.Body, nil
}

func (s *s3Storage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(name),
	})
	if err != nil {
		var awsErr awserr.RequestFailure
		if errors.As(err, &awsErr) && awsErr.StatusCode() == 404 {
			return false, nil
		}

		return false, fmt.Errorf("s3 HeadObject: %v", err)
	}

	return true, nil
}

func (s *s3Storage) URL(name string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, name)
}

var parseOptionsStringRe = regexp.MustCompile("^([^:]+):([^:]+):([^:]+):([^:]+)$")

func parseOptionsString(serialized string) (string, string, string, string, error) {
	match := parseOptionsStringRe.FindStringSubmatch(serialized)
	if match == nil {
		return "", "", "", "", errors.New("s3 options not in format bucket:region:accessKeyId:secret")
	}

	return match[1], match[2], match[3], match[4], nil
}
