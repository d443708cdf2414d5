package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/recommerce/asset/core/log"
	"github.com/recommerce/asset/internal/pathutil"
)

// List returns the keys directly under dir. Keys of nested "directories"
// are not included. An empty dir lists the bucket root. Keys are stored as
// given to Put, so dir is used verbatim as the key prefix.
func (a *Adapter) List(ctx context.Context, dir string) ([]string, error) {
	prefix := pathutil.Entry(dir, "")

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(a.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	files := []string{}

	for {
		result, err := a.client.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in S3: %w", err)
		}

		for _, object := range result.Contents {
			key := aws.StringValue(object.Key)

			// Skip directory markers
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}

			files = append(files, key)
		}

		if !aws.BoolValue(result.IsTruncated) || result.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}

	a.logger.Debug("Objects listed in S3",
		zap.String("bucket", a.bucket),
		log.Path("prefix", prefix),
		zap.Int("count", len(files)))

	return files, nil
}
