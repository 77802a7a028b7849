package queue

import (
	"context"
	"encoding/json"

	"fieldtrack/internal/errors"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// blobStore persists queue state as a single JSON object in a gocloud
// bucket. The agent uses a fileblob bucket; tests use memblob.
type blobStore struct {
	bucket *blob.Bucket
	key    string
}

// NewBlobStore creates a queue store backed by the given bucket.
func NewBlobStore(bucket *blob.Bucket, key string) Store {
	return &blobStore{
		bucket: bucket,
		key:    key,
	}
}

func (s *blobStore) Load(ctx context.Context) (*State, error) {
	raw, err := s.bucket.ReadAll(ctx, s.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return &State{}, nil
		}

		return nil, errors.Wrap(err, "failed to read queue state")
	}

	state := &State{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, errors.Wrap(err, "failed to decode queue state")
	}

	return state, nil
}

func (s *blobStore) Save(ctx context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to encode queue state")
	}

	if err := s.bucket.WriteAll(ctx, s.key, raw, nil); err != nil {
		return errors.Wrap(err, "failed to write queue state")
	}

	return nil
}
