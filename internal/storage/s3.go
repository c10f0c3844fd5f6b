package storage

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/huolto/huolto/internal/errors"
	"github.com/huolto/huolto/pkg/types"
)

// S3API is the subset of the S3 client the store uses. Tests substitute a
// fake.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store against an S3 bucket. Object keys follow the same
// deterministic filename pattern as the local backend, under a configurable
// prefix.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates an object-backed snapshot store using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, bucket, prefix, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.Validation("s3 storage backend requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Storage("failed to load AWS configuration", err)
	}

	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3StoreWithClient creates an S3 store over an existing client.
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) key(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}

// Save persists a snapshot as an S3 object.
func (s *S3Store) Save(snapshot *types.Snapshot) (*types.SnapshotRef, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, errors.Validation("invalid snapshot: %v", err)
	}

	filename := SnapshotFilename(snapshot.DeploymentID, snapshot.Timestamp)
	key := s.key(filename)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.Storage("failed to encode snapshot", err)
	}

	_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, errors.Storage("failed to upload snapshot object", err)
	}

	return &types.SnapshotRef{
		SnapshotID:    snapshot.SnapshotID,
		DeploymentID:  snapshot.DeploymentID,
		Timestamp:     snapshot.Timestamp,
		ResourceCount: snapshot.ResourceCount(),
		FilePath:      "s3://" + s.bucket + "/" + key,
		Size:          int64(len(data)),
	}, nil
}

// Resolve loads a snapshot by fragment match against object keys and
// snapshot IDs.
func (s *S3Store) Resolve(identifier string) (*types.Snapshot, error) {
	if identifier == "" {
		return nil, errors.Validation("snapshot identifier is required")
	}

	refs, err := s.List("")
	if err != nil {
		return nil, err
	}

	var candidates []types.SnapshotRef
	for _, ref := range refs {
		if strings.Contains(path.Base(ref.FilePath), identifier) || strings.Contains(ref.SnapshotID, identifier) {
			candidates = append(candidates, ref)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, errors.NotFound("snapshot", "no snapshot matches %q", identifier)
	case 1:
		return s.loadSnapshot(s.refKey(candidates[0]))
	default:
		keys := make([]string, len(candidates))
		for i, c := range candidates {
			keys[i] = path.Base(c.FilePath)
		}
		return nil, errors.Conflict("snapshot", "identifier "+identifier+" is ambiguous", keys)
	}
}

// List returns references for all stored snapshots, newest first.
func (s *S3Store) List(deploymentID string) ([]types.SnapshotRef, error) {
	ctx := context.Background()

	var refs []types.SnapshotRef
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, errors.Storage("failed to list snapshot objects", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}

			snapshot, err := s.loadSnapshot(key)
			if err != nil {
				continue
			}
			if deploymentID != "" && snapshot.DeploymentID != deploymentID {
				continue
			}

			refs = append(refs, types.SnapshotRef{
				SnapshotID:    snapshot.SnapshotID,
				DeploymentID:  snapshot.DeploymentID,
				Timestamp:     snapshot.Timestamp,
				ResourceCount: snapshot.ResourceCount(),
				FilePath:      "s3://" + s.bucket + "/" + key,
				Size:          aws.ToInt64(obj.Size),
			})
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Timestamp.After(refs[j].Timestamp)
	})

	return refs, nil
}

// Delete removes the snapshot object with the given ID.
func (s *S3Store) Delete(snapshotID string) error {
	refs, err := s.List("")
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if ref.SnapshotID == snapshotID {
			_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(s.refKey(ref)),
			})
			if err != nil {
				return errors.Storage("failed to delete snapshot object", err)
			}
			return nil
		}
	}

	return errors.NotFound("snapshot", "snapshot not found: %s", snapshotID)
}

// Prune removes the deployment's oldest snapshots beyond keep.
func (s *S3Store) Prune(deploymentID string, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.Validation("retention count cannot be negative")
	}

	refs, err := s.List(deploymentID)
	if err != nil {
		return 0, err
	}

	if len(refs) <= keep {
		return 0, nil
	}

	removed := 0
	for _, ref := range refs[keep:] {
		_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.refKey(ref)),
		})
		if err != nil {
			return removed, errors.Storage("failed to prune snapshot object", err)
		}
		removed++
	}

	return removed, nil
}

func (s *S3Store) refKey(ref types.SnapshotRef) string {
	return strings.TrimPrefix(ref.FilePath, "s3://"+s.bucket+"/")
}

func (s *S3Store) loadSnapshot(key string) (*types.Snapshot, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if stderrors.As(err, &noSuchKey) {
			return nil, errors.NotFound("snapshot", "snapshot object not found: %s", key)
		}
		return nil, errors.Storage("failed to download snapshot object "+key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Storage("failed to read snapshot object "+key, err)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Corrupt("failed to parse snapshot object "+key, err)
	}

	return &snapshot, nil
}
