package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/core/log"
)

// Put uploads localFile under the assetFile key.
func (a *Adapter) Put(ctx context.Context, localFile, assetFile string) error {
	file, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer file.Close()

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(assetFile),
		Body:   file,
		ACL:    aws.String(a.acl()),
	}

	// Content type is sniffed from the file content
	if mtype, err := mimetype.DetectFile(localFile); err == nil {
		putInput.ContentType = aws.String(mtype.String())
	}

	if _, err := a.client.PutObjectWithContext(ctx, putInput); err != nil {
		return fmt.Errorf("failed to put object to S3: %w", err)
	}

	a.logger.Debug("File created in S3",
		zap.String("bucket", a.bucket),
		log.Path("key", assetFile),
		zap.String("acl", a.acl()))

	return nil
}

// Get downloads the assetFile object into localFile.
func (a *Adapter) Get(ctx context.Context, assetFile, localFile string) error {
	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(assetFile),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", assetFile, backends.ErrNotFound)
		}
		return fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	file, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	if _, err := io.Copy(file, result.Body); err != nil {
		file.Close()
		return fmt.Errorf("failed to download object %s: %w", assetFile, err)
	}

	a.logger.Debug("File downloaded from S3",
		zap.String("bucket", a.bucket),
		log.Path("key", assetFile))

	return file.Close()
}

// Remove deletes the assetFile object.
func (a *Adapter) Remove(ctx context.Context, assetFile string) error {
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(assetFile),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	a.logger.Debug("File deleted from S3",
		zap.String("bucket", a.bucket),
		log.Path("key", assetFile))

	return nil
}

// Move copies the object server side, then deletes the source.
func (a *Adapter) Move(ctx context.Context, oldFile, newFile string) error {
	source := &url.URL{Path: a.bucket + "/" + oldFile}

	_, err := a.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		Key:        aws.String(newFile),
		CopySource: aws.String(source.EscapedPath()),
		ACL:        aws.String(a.acl()),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object %s to %s: %w", oldFile, newFile, err)
	}

	return a.Remove(ctx, oldFile)
}
