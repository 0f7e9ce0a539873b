package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nchhillar/cvexport/internal/storage"
)

// fakeAPI keeps objects in memory and records the last put.
type fakeAPI struct {
	objects map[string][]byte
	getErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "resume.pdf", want: "resume.pdf"},
		{name: "simple prefix", prefix: "public", key: "resume.pdf", want: "public/resume.pdf"},
		{name: "prefix trailing slash", prefix: "public/", key: "resume.pdf", want: "public/resume.pdf"},
		{name: "prefix and key slashes", prefix: "/public/", key: "/resume.pdf", want: "public/resume.pdf"},
		{name: "empty key", prefix: "public", key: "", want: "public"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestStore_PutOpen(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := newWithClient(api, Options{Bucket: "cv", Prefix: "/static/"})
	ctx := context.Background()

	n, err := s.Put(ctx, "resume.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if n != 8 {
		t.Errorf("Put() = %d bytes, want 8", n)
	}
	if got := aws.ToString(api.lastPut.Key); got != "static/resume.pdf" {
		t.Errorf("put key = %q", got)
	}
	if api.lastPut.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Errorf("SSE = %q, want AES256", api.lastPut.ServerSideEncryption)
	}
	if aws.ToInt64(api.lastPut.ContentLength) != 8 {
		t.Errorf("ContentLength = %d", aws.ToInt64(api.lastPut.ContentLength))
	}

	rc, err := s.Open(ctx, "resume.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "%PDF-1.7" {
		t.Errorf("content = %q", got)
	}
}

func TestStore_KMS(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := newWithClient(api, Options{Bucket: "cv", KMSKeyID: " key-1 "})
	if _, err := s.Put(context.Background(), "r.pdf", "application/pdf", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if api.lastPut.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms {
		t.Errorf("SSE = %q, want aws:kms", api.lastPut.ServerSideEncryption)
	}
	if aws.ToString(api.lastPut.SSEKMSKeyId) != "key-1" {
		t.Errorf("KMS key = %q", aws.ToString(api.lastPut.SSEKMSKeyId))
	}
}

func TestStore_OpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing key maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		s := newWithClient(&fakeAPI{}, Options{Bucket: "cv"})
		if _, err := s.Open(context.Background(), "missing.pdf"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("access denied")
		s := newWithClient(&fakeAPI{getErr: boom}, Options{Bucket: "cv"})
		_, err := s.Open(context.Background(), "r.pdf")
		if !errors.Is(err, boom) || errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		s := newWithClient(&fakeAPI{}, Options{Bucket: "cv"})
		if _, err := s.Open(context.Background(), " "); !errors.Is(err, storage.ErrInvalidKey) {
			t.Errorf("error = %v, want ErrInvalidKey", err)
		}
	})
}

func TestNew_RequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Options{}); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestStore_Describe(t *testing.T) {
	t.Parallel()

	s := newWithClient(&fakeAPI{}, Options{Bucket: "cv", Prefix: "static"})
	if got := s.Describe(); got != "s3://cv/static" {
		t.Errorf("Describe() = %q", got)
	}
}
