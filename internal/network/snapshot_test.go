package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/chargefinder/internal/geo"
)

type mockS3Client struct {
	getObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	putObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, params, optFns...)
	}
	return nil, &types.NoSuchKey{}
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func snapshotBody(t *testing.T, records []Record) io.ReadCloser {
	data, err := json.Marshal(SnapshotRecord{Records: records, LastUpdated: 1})
	require.NoError(t, err)
	return io.NopCloser(bytes.NewReader(data))
}

func TestS3SnapshotLoad(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		getFunc   func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
		wantCount int
		wantErr   bool
	}{
		{
			name:   "existing snapshot",
			bucket: "bucket",
			getFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				assert.Equal(t, "bucket", *params.Bucket)
				assert.Equal(t, DefaultSnapshotKey, *params.Key)
				return &s3.GetObjectOutput{Body: snapshotBody(t, []Record{{ID: "user_12_1_1"}})}, nil
			},
			wantCount: 1,
		},
		{
			name:      "missing object",
			bucket:    "bucket",
			wantCount: 0,
		},
		{
			name:   "S3 error",
			bucket: "bucket",
			getFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, errors.New("access denied")
			},
			wantErr: true,
		},
		{
			name:   "corrupt body",
			bucket: "bucket",
			getFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("{")))}, nil
			},
			wantErr: true,
		},
		{
			name:    "empty bucket name",
			bucket:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewS3Snapshot(&mockS3Client{getObjectFunc: tt.getFunc}, tt.bucket, "")

			records, err := snap.Load(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantCount)
		})
	}
}

func TestS3SnapshotSave(t *testing.T) {
	var saved SnapshotRecord
	client := &mockS3Client{
		putObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			assert.Equal(t, "custom/key.json", *params.Key)
			require.NoError(t, json.NewDecoder(params.Body).Decode(&saved))
			return &s3.PutObjectOutput{}, nil
		},
	}
	snap := NewS3Snapshot(client, "bucket", "custom/key.json")

	err := snap.Save(context.Background(), []Record{{ID: "user_1_0_0", Name: "Test"}})
	require.NoError(t, err)
	require.Len(t, saved.Records, 1)
	assert.Equal(t, "Test", saved.Records[0].Name)
	assert.NotZero(t, saved.LastUpdated)
}

type fakeSnapshotter struct {
	loaded  []Record
	loadErr error
	saveErr error
	saves   [][]Record
}

func (f *fakeSnapshotter) Load(context.Context) ([]Record, error) {
	return f.loaded, f.loadErr
}

func (f *fakeSnapshotter) Save(_ context.Context, records []Record) error {
	f.saves = append(f.saves, records)
	return f.saveErr
}

func TestPersistentStoreRestoresAndSaves(t *testing.T) {
	mem := NewMemoryStore(Record{ID: "seed", Latitude: 1, Longitude: 1, Network: "a100"})
	snap := &fakeSnapshotter{loaded: []Record{
		{ID: "user_2_1000_1000", Latitude: 1, Longitude: 1, Network: NetworkUser},
		{ID: "seed", Latitude: 1, Longitude: 1},
	}}

	store, err := NewPersistentStore(context.Background(), mem, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Len())

	id, err := store.Append(context.Background(), Record{Latitude: 1, Longitude: 1, Network: NetworkUser})
	require.NoError(t, err)
	assert.Equal(t, "user_3_1000_1000", id)

	require.Len(t, snap.saves, 1)
	assert.Len(t, snap.saves[0], 2, "only user records are saved")

	listed, err := store.List(context.Background(), geo.BoxAround(1, 1, 1))
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestPersistentStoreSaveFailureKeepsRecord(t *testing.T) {
	mem := NewMemoryStore()
	snap := &fakeSnapshotter{saveErr: errors.New("bucket gone")}

	store, err := NewPersistentStore(context.Background(), mem, snap)
	require.NoError(t, err)

	id, err := store.Append(context.Background(), Record{Latitude: 5, Longitude: 5, Network: NetworkUser})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, mem.Len())
}

func TestPersistentStoreLoadFailure(t *testing.T) {
	_, err := NewPersistentStore(context.Background(), NewMemoryStore(), &fakeSnapshotter{loadErr: errors.New("boom")})
	assert.Error(t, err)
}
