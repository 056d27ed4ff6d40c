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
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/relocator/internal/azureclient"
)

// azureStore implements ObjectStore for Azure Blob Storage. Buckets map
// to containers.
type azureStore struct {
	bc *azureclient.BlobClient
}

func newAzureStore(bc *azureclient.BlobClient) ObjectStore {
	return &azureStore{bc: bc}
}

func (s *azureStore) blobClient(bucket, key string) *blob.Client {
	return s.bc.ServiceClient.NewContainerClient(bucket).NewBlobClient(key)
}

// azureHash prefers the stored Content-MD5 so hash comparisons line up
// with S3 single-part ETags; the HTTP ETag is the fallback.
func azureHash(contentMD5 []byte, etag string) string {
	if len(contentMD5) > 0 {
		return hex.EncodeToString(contentMD5)
	}
	return etag
}

func (s *azureStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "list"), attribute.String("provider", "azure")))

	var infos []ObjectInfo
	pager := s.bc.Client.NewListBlobsFlatPager(bucket, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "list")))
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			info := ObjectInfo{Key: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.ETag != nil {
					info.ETag = azureHash(p.ContentMD5, string(*p.ETag))
				}
				if p.LastModified != nil {
					info.LastModified = *p.LastModified
				}
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (s *azureStore) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "stat"), attribute.String("provider", "azure")))

	resp, err := s.blobClient(bucket, key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			objectsMissed.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
			return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, ErrNotFound)
		}
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "stat")))
		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}

	info := &ObjectInfo{Key: key}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.ETag != nil {
		info.ETag = azureHash(resp.ContentMD5, string(*resp.ETag))
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	return info, nil
}

func (s *azureStore) ReadRange(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "read_range"), attribute.String("provider", "azure")))

	opts := &azblob.DownloadStreamOptions{}
	if n > 0 {
		opts.Range = azblob.HTTPRange{Offset: 0, Count: n}
	}
	resp, err := s.bc.Client.DownloadStream(ctx, bucket, key, opts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("read %s/%s: %w", bucket, key, ErrNotFound)
		}
		if bloberror.HasCode(err, bloberror.InvalidRange) {
			return nil, nil
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

// CopyStep starts a server-side copy and polls it to completion. Azure
// copies are asynchronous; the copy ID is the continuation token while
// the service reports the copy as pending.
func (s *azureStore) CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error) {
	copySteps.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", "azure")))

	dst := s.blobClient(bucket, dstKey)

	if token == "" {
		srcURL := s.blobClient(bucket, srcKey).URL()
		resp, err := dst.StartCopyFromURL(ctx, srcURL, nil)
		if err != nil {
			if bloberror.HasCode(err, bloberror.BlobNotFound) {
				return "", fmt.Errorf("copy %s/%s: %w", bucket, srcKey, ErrNotFound)
			}
			storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy")))
			return "", fmt.Errorf("start copy %s/%s to %s: %w", bucket, srcKey, dstKey, err)
		}
		if resp.CopyStatus != nil && *resp.CopyStatus == blob.CopyStatusTypeSuccess {
			return "", nil
		}
		if resp.CopyID == nil {
			return "", fmt.Errorf("copy %s/%s to %s: no copy ID returned", bucket, srcKey, dstKey)
		}
		return *resp.CopyID, nil
	}

	props, err := dst.GetProperties(ctx, nil)
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "copy_poll")))
		return "", fmt.Errorf("poll copy %s/%s: %w", bucket, dstKey, err)
	}
	if props.CopyID != nil && *props.CopyID != token {
		return "", fmt.Errorf("copy %s/%s: copy ID changed underneath us", bucket, dstKey)
	}
	if props.CopyStatus == nil {
		return "", fmt.Errorf("copy %s/%s: no copy status", bucket, dstKey)
	}
	switch *props.CopyStatus {
	case blob.CopyStatusTypeSuccess:
		if props.ContentLength != nil {
			bytesCopied.Add(ctx, *props.ContentLength, metric.WithAttributes(attribute.String("bucket", bucket)))
		}
		return "", nil
	case blob.CopyStatusTypePending:
		return token, nil
	default:
		return "", fmt.Errorf("copy %s/%s to %s: copy %s", bucket, srcKey, dstKey, *props.CopyStatus)
	}
}

func (s *azureStore) Delete(ctx context.Context, bucket, key string) error {
	storeOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", "delete"), attribute.String("provider", "azure")))

	_, err := s.bc.Client.DeleteBlob(ctx, bucket, key, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "delete")))
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *azureStore) DownloadObject(ctx context.Context, tmpdir, bucket, key string) (string, int64, bool, error) {
	ctx, span := s.bc.Tracer.Start(ctx, "objstore.azureDownloadObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	ext := filepath.Ext(key)
	if ext == "" {
		ext = ".data"
	}
	f, err := os.CreateTemp(tmpdir, "azure-*"+ext)
	if err != nil {
		return "", 0, false, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	resp, err := s.bc.Client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		_ = os.Remove(f.Name())
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			objectsMissed.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
			return "", 0, true, nil
		}
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "download")))
		return "", 0, false, fmt.Errorf("download blob %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, false, fmt.Errorf("copy blob content: %w", err)
	}
	return f.Name(), size, false, nil
}

func (s *azureStore) UploadObject(ctx context.Context, bucket, key, sourceFilename string) error {
	ctx, span := s.bc.Tracer.Start(ctx, "objstore.azureUploadObject",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
	defer span.End()

	file, err := os.Open(sourceFilename)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourceFilename, err)
	}
	defer func() { _ = file.Close() }()

	_, err = s.bc.Client.UploadStream(ctx, bucket, key, file, nil)
	if err != nil {
		storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "upload")))
		return fmt.Errorf("failed to upload blob %s/%s: %w", bucket, key, err)
	}
	return nil
}
