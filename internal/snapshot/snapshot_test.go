package snapshot

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/editor/editortest"
)

type fakeS3 struct {
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.metadata[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func captureSample(t *testing.T) Snapshot {
	t.Helper()
	var snap Snapshot
	editortest.WithTestEditor(t, "hello world", func(ed *editor.Editor) {
		editortest.MustTrigger(t, ed, editor.SourceKeyboard, editor.CommandType, "abc")
		snap = Capture(ed, []string{"selection: [1,4 -> 1,4], value: 4"})
	})
	return snap
}

func TestCapture(t *testing.T) {
	snap := captureSample(t)
	if snap.Text != "abchello world" || snap.VersionID != 4 {
		t.Errorf("Capture = %+v", snap)
	}
	want := []editor.Selection{editor.SelectionAt(editor.Position{Line: 1, Column: 4})}
	if !reflect.DeepEqual(snap.Selections, want) {
		t.Errorf("Selections = %v, want %v", snap.Selections, want)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := Open("file://"+filepath.ToSlash(path), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(context.Background()); !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on empty store = %v, want ErrNotFound", err)
	}

	snap := captureSample(t)
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != snap.Text || got.VersionID != snap.VersionID || !reflect.DeepEqual(got.Entries, snap.Entries) {
		t.Errorf("Load() = %+v, want %+v", got, snap)
	}
	if !got.TakenAt.Equal(snap.TakenAt) {
		t.Errorf("TakenAt = %v, want %v", got.TakenAt, snap.TakenAt)
	}
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "sessions/demo.json")
	if store.Target() != "s3://bucket/sessions/demo.json" {
		t.Errorf("Target() = %q", store.Target())
	}

	if _, err := store.Load(context.Background()); !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on missing key = %v, want ErrNotFound", err)
	}

	snap := captureSample(t)
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	if got := fake.metadata["bucket/sessions/demo.json"]["version-id"]; got != "4" {
		t.Errorf("version-id metadata = %q", got)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != snap.Text {
		t.Errorf("Load().Text = %q", got.Text)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		target string
		want   string
		code   string
	}{
		{target: "file:///tmp/a.json", want: "file:///tmp/a.json"},
		{target: "s3://bucket/a/b.json", want: "s3://bucket/a/b.json"},
		{target: "s3://bucket", code: "E300"},
		{target: "ftp://host/x", code: "E300"},
		{target: "file://", code: "E300"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			store, err := Open(tt.target, Options{Region: "eu-west-1", Endpoint: "http://localhost:9000"})
			if tt.code != "" {
				var e *errors.Error
				if !stderrors.As(err, &e) || e.Code != tt.code {
					t.Fatalf("Open(%q) error = %v, want %s", tt.target, err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if store.Target() != tt.want {
				t.Errorf("Target() = %q, want %q", store.Target(), tt.want)
			}
		})
	}
}
