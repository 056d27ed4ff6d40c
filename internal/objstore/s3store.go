// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/relocator/internal/awsclient"
)

const (
	// CopyObject handles at most 5 GiB in one call; larger objects go
	// through multipart copy, one part per CopyStep.
	singleCopyLimit = 5 << 30
	copyPartSize    = 256 << 20
)

type s3Store struct {
	c *awsclient.S3Client

	mu     sync.Mutex
	copies map[string]*multipartCopy
}

type multipartCopy struct {
	dstKey   string
	uploadID string
	srcSize  int64
	nextPart int32
	parts    []types.CompletedPart
}

func newS3Store(c *awsclient.S3Client) ObjectStore {
	return &s3Store{
		c:      c,
		copies: make(map[string]*multipartCopy),
	}
}

func s3ErrorIs404(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

func (s *s3Store) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "list"), attribute.String("provider", "aws")))

	var infos []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.c.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "list")))
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return infos, nil
}

func (s *s3Store) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "stat"), attribute.String("provider", "aws")))

	resp, err := s.c.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if s3ErrorIs404(err) {
			objectsMissed.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
			return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, ErrNotFound)
		}
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "stat")))
		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		LastModified: aws.ToTime(resp.LastModified),
	}, nil
}

func (s *s3Store) ReadRange(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "read_range"), attribute.String("provider", "aws")))

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if n > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=0-%d", n-1))
	}
	resp, err := s.c.Client.GetObject(ctx, input)
	if err != nil {
		// Ranged reads of a zero-byte object come back as InvalidRange.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return nil, nil
		}
		if s3ErrorIs404(err) {
			return nil, fmt.Errorf("read %s/%s: %w", bucket, key, ErrNotFound)
		}
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "read_range")))
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, n))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s body: %w", bucket, key, err)
	}
	return data, nil
}

// CopyStep performs one round trip of a server-side copy. Small objects
// finish in a single CopyObject call; large ones walk a multipart copy,
// one UploadPartCopy per step, with the upload ID as the continuation
// token. Multipart state is tracked per token within this process.
func (s *s3Store) CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error) {
	copySteps.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", "aws")))

	if token == "" {
		return s.startCopy(ctx, bucket, srcKey, dstKey)
	}

	s.mu.Lock()
	mc, ok := s.copies[token]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown copy token %q for %s/%s", token, bucket, dstKey)
	}
	return s.copyNextPart(ctx, bucket, srcKey, token, mc)
}

func (s *s3Store) startCopy(ctx context.Context, bucket, srcKey, dstKey string) (string, error) {
	head, err := s.Stat(ctx, bucket, srcKey)
	if err != nil {
		return "", err
	}

	if head.Size < singleCopyLimit {
		_, err = s.c.Client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(dstKey),
			CopySource: aws.String(bucket + "/" + url.PathEscape(srcKey)),
		})
		if err != nil {
			storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy")))
			return "", fmt.Errorf("copy %s/%s to %s: %w", bucket, srcKey, dstKey, err)
		}
		bytesCopied.Add(ctx, head.Size, metric.WithAttributes(attribute.String("bucket", bucket)))
		return "", nil
	}

	create, err := s.c.Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(dstKey),
	})
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy")))
		return "", fmt.Errorf("start multipart copy %s/%s: %w", bucket, dstKey, err)
	}

	token := aws.ToString(create.UploadId)
	s.mu.Lock()
	s.copies[token] = &multipartCopy{
		dstKey:   dstKey,
		uploadID: token,
		srcSize:  head.Size,
		nextPart: 1,
	}
	s.mu.Unlock()
	return token, nil
}

func (s *s3Store) copyNextPart(ctx context.Context, bucket, srcKey, token string, mc *multipartCopy) (string, error) {
	start := int64(mc.nextPart-1) * copyPartSize
	end := start + copyPartSize
	if end > mc.srcSize {
		end = mc.srcSize
	}

	resp, err := s.c.Client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(mc.dstKey),
		UploadId:        aws.String(mc.uploadID),
		PartNumber:      aws.Int32(mc.nextPart),
		CopySource:      aws.String(bucket + "/" + url.PathEscape(srcKey)),
		CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", start, end-1)),
	})
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy_part")))
		return "", fmt.Errorf("copy part %d of %s/%s: %w", mc.nextPart, bucket, srcKey, err)
	}

	mc.parts = append(mc.parts, types.CompletedPart{
		ETag:       resp.CopyPartResult.ETag,
		PartNumber: aws.Int32(mc.nextPart),
	})
	bytesCopied.Add(ctx, end-start, metric.WithAttributes(attribute.String("bucket", bucket)))
	mc.nextPart++

	if end < mc.srcSize {
		return token, nil
	}

	_, err = s.c.Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(mc.dstKey),
		UploadId: aws.String(mc.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: mc.parts,
		},
	})
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy_complete")))
		return "", fmt.Errorf("complete multipart copy %s/%s: %w", bucket, mc.dstKey, err)
	}

	s.mu.Lock()
	delete(s.copies, token)
	s.mu.Unlock()
	return "", nil
}

func (s *s3Store) Delete(ctx context.Context, bucket, key string) error {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "delete"), attribute.String("provider", "aws")))

	_, err := s.c.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "delete")))
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *s3Store) DownloadObject(ctx context.Context, tmpdir, bucket, key string) (string, int64, bool, error) {
	downloader := manager.NewDownloader(s.c.Client)

	// Keep the original filename so file type detection still works.
	filename := filepath.Base(key)
	f, err := os.CreateTemp(tmpdir, "*-"+filename)
	if err != nil {
		return "", 0, false, fmt.Errorf("create temp file: %w", err)
	}

	ctx, span := s.c.Tracer.Start(ctx, "objstore.downloadS3Object",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	size, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		if s3ErrorIs404(err) {
			objectsMissed.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
			return "", 0, true, nil
		}
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "download")))
		return "", 0, false, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}

	// close on success; ignore close error because the bytes are already flushed by the SDK
	_ = f.Close()
	return f.Name(), size, false, nil
}

func (s *s3Store) UploadObject(ctx context.Context, bucket, key, sourceFilename string) error {
	uploader := manager.NewUploader(s.c.Client)
	file, err := os.Open(sourceFilename)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourceFilename, err)
	}
	defer func() { _ = file.Close() }()

	var span trace.Span
	ctx, span = s.c.Tracer.Start(ctx, "objstore.uploadS3Object",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
		),
	)
	defer span.End()

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
		Metadata: map[string]string{
			"writer": "relocator-go",
		},
	})
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "upload")))
		return fmt.Errorf("failed to upload S3 object: %w", err)
	}
	return nil
}
