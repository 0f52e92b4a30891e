package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/geo"
)

const DefaultSnapshotKey = "local-network/user-stations.json"

// S3Client defines the S3 operations the snapshot needs
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS configuration chain.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// SnapshotRecord is the stored JSON document.
type SnapshotRecord struct {
	Records     []Record `json:"records"`
	LastUpdated int64    `json:"lastUpdated"`
}

// S3Snapshot keeps user-submitted records in a single S3 object.
type S3Snapshot struct {
	client     S3Client
	bucketName string
	key        string
	now        func() time.Time
}

func NewS3Snapshot(client S3Client, bucketName, key string) *S3Snapshot {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &S3Snapshot{
		client:     client,
		bucketName: bucketName,
		key:        key,
		now:        time.Now,
	}
}

// Load returns the stored records, or nil when no snapshot exists yet.
func (s *S3Snapshot) Load(ctx context.Context) ([]Record, error) {
	if s.bucketName == "" {
		return nil, fmt.Errorf("empty bucket name")
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting snapshot from S3: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	var record SnapshotRecord
	if err := json.NewDecoder(result.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return record.Records, nil
}

// Save overwrites the snapshot with records.
func (s *S3Snapshot) Save(ctx context.Context, records []Record) error {
	if s.bucketName == "" {
		return fmt.Errorf("empty bucket name")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(SnapshotRecord{
		Records:     records,
		LastUpdated: s.now().Unix(),
	}); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("saving to S3: %w", err)
	}

	log.Debug().Int("record_count", len(records)).Str("key", s.key).Msg("Saved local network snapshot to S3")
	return nil
}

// Snapshotter stores and restores user-submitted records.
type Snapshotter interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// PersistentStore is a MemoryStore whose user submissions survive restarts
// through a Snapshotter. The in-memory list is authoritative; a failed save
// is logged and does not fail the append.
type PersistentStore struct {
	mem    *MemoryStore
	snap   Snapshotter
	saveMu sync.Mutex
}

var _ Store = (*PersistentStore)(nil)

// NewPersistentStore restores previously saved user records into mem.
func NewPersistentStore(ctx context.Context, mem *MemoryStore, snap Snapshotter) (*PersistentStore, error) {
	saved, err := snap.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local network snapshot: %w", err)
	}

	known := make(map[string]struct{})
	for _, rec := range mem.Records("") {
		known[rec.ID] = struct{}{}
	}
	restored := 0
	for _, rec := range saved {
		if _, ok := known[rec.ID]; ok || rec.ID == "" {
			continue
		}
		if _, err := mem.Append(ctx, rec); err != nil {
			return nil, err
		}
		known[rec.ID] = struct{}{}
		restored++
	}
	log.Debug().Int("restored", restored).Msg("Restored user stations from snapshot")

	return &PersistentStore{mem: mem, snap: snap}, nil
}

func (p *PersistentStore) List(ctx context.Context, box geo.BoundingBox) ([]Record, error) {
	return p.mem.List(ctx, box)
}

func (p *PersistentStore) Append(ctx context.Context, rec Record) (string, error) {
	id, err := p.mem.Append(ctx, rec)
	if err != nil {
		return "", err
	}

	// Saves are serialized so a later snapshot never lands before an earlier one.
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if err := p.snap.Save(ctx, p.mem.Records(NetworkUser)); err != nil {
		log.Error().Err(err).Str("station_id", id).Msg("Failed to save local network snapshot")
	}
	return id, nil
}
