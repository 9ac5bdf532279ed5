package eventarchive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"proposal-pipeline-backend/lib/eventbus"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type putterMock struct {
	bucket string
	object string
	body   []byte
	err    error
}

func (m *putterMock) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.err != nil {
		return minio.UploadInfo{}, m.err
	}
	m.bucket = bucketName
	m.object = objectName
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.body = body
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func TestSave(t *testing.T) {
	putter := &putterMock{}
	archive := NewInstance(putter, "dead-events")
	event, err := eventbus.NewEvent(eventbus.ProposalTimedOut, time.Now(), eventbus.ProposalTimedOutData{ProposalID: "p-1"})
	require.NoError(t, err)

	require.NoError(t, archive.Save(context.Background(), event, errors.New("redis down")))
	require.Equal(t, "dead-events", putter.bucket)
	require.True(t, strings.HasPrefix(putter.object, "proposal.timed_out/"))

	var rec Record
	require.NoError(t, json.Unmarshal(putter.body, &rec))
	require.Equal(t, "redis down", rec.Error)
	require.Equal(t, eventbus.ProposalTimedOut, rec.Event.Type)

	putter.err = errors.New("s3 down")
	require.Error(t, archive.Save(context.Background(), event, nil))
}
