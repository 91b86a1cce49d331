package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const contentTypeKey = "content-type"

// NATSStore keeps blobs in a JetStream object store bucket.
type NATSStore struct {
	conn   *nats.Conn
	bucket string
	store  nats.ObjectStore
}

// DialNATSStore connects to url and binds the bucket. The store owns the connection.
func DialNATSStore(url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("avatar-backend"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	s, err := NewNATSStore(js, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// NewNATSStore creates the bucket, or binds to it when it already exists.
func NewNATSStore(js nats.JetStreamContext, bucket string) (*NATSStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: fmt.Sprintf("Avatar media for the %s bucket.", bucket),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("create object store bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("bind object store bucket %q: %w", bucket, err)
		}
	}
	return &NATSStore{bucket: bucket, store: store}, nil
}

func (s *NATSStore) Put(_ context.Context, name, contentType string, r io.Reader) (Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return Object{}, err
	}
	meta := &nats.ObjectMeta{Name: name}
	if contentType != "" {
		meta.Metadata = map[string]string{contentTypeKey: contentType}
	}
	info, err := s.store.Put(meta, r)
	if err != nil {
		return Object{}, fmt.Errorf("put %s to bucket %s: %w", name, s.bucket, err)
	}
	return objectFromInfo(info), nil
}

func (s *NATSStore) Open(_ context.Context, name string) (io.ReadCloser, Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, Object{}, err
	}
	res, err := s.store.Get(name)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("get %s from bucket %s: %w", name, s.bucket, err)
	}
	info, err := res.Info()
	if err != nil {
		_ = res.Close()
		return nil, Object{}, fmt.Errorf("get %s info: %w", name, err)
	}
	return res, objectFromInfo(info), nil
}

func (s *NATSStore) List(_ context.Context, prefix string) ([]Object, error) {
	infos, err := s.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bucket %s: %w", s.bucket, err)
	}
	var out []Object
	for _, info := range infos {
		if info == nil || info.Deleted || !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		out = append(out, objectFromInfo(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *NATSStore) Delete(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(name); err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s from bucket %s: %w", name, s.bucket, err)
	}
	return nil
}

func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func objectFromInfo(info *nats.ObjectInfo) Object {
	obj := Object{
		Name:    info.Name,
		Size:    int64(info.Size),
		ModTime: info.ModTime.UTC(),
	}
	if info.Metadata != nil {
		obj.ContentType = info.Metadata[contentTypeKey]
	}
	if obj.ContentType == "" {
		obj.ContentType = contentTypeFor(info.Name)
	}
	return obj
}
