package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"coffeeroaster/internal/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     newTestS3(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			info, err := store.Put(ctx, "roasting-logs/CRL-1/roast.json", bytes.NewReader([]byte(`{"points":[]}`)), PutOptions{
				ContentType: "application/json",
				Metadata:    map[string]string{"roasting_log": "CRL-1"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != 13 {
				t.Fatalf("expected size 13, got %d", info.Size)
			}
			if _, err := store.Put(ctx, "roasting-logs/CRL-1/roast.json", bytes.NewReader(nil), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists on overwrite, got %v", err)
			}

			got, rc, err := store.Get(ctx, "roasting-logs/CRL-1/roast.json")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != `{"points":[]}` {
				t.Fatalf("unexpected body %q", body)
			}
			if got.ContentType != "application/json" {
				t.Fatalf("unexpected content type %q", got.ContentType)
			}

			if _, err := store.Put(ctx, "sage/SAGE_acme_202401.zip", bytes.NewReader([]byte("zip")), PutOptions{}); err != nil {
				t.Fatalf("put second: %v", err)
			}
			list, err := store.List(ctx, "roasting-logs/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			keys := make([]string, 0, len(list))
			for _, i := range list {
				keys = append(keys, i.Key)
			}
			if diff := cmp.Diff([]string{"roasting-logs/CRL-1/roast.json"}, keys); diff != "" {
				t.Fatalf("list mismatch (-want +got):\n%s", diff)
			}

			ok, err := store.Delete(ctx, "roasting-logs/CRL-1/roast.json")
			if err != nil || !ok {
				t.Fatalf("delete: ok=%v err=%v", ok, err)
			}
			if ok, _ := store.Delete(ctx, "roasting-logs/CRL-1/roast.json"); ok {
				t.Fatal("second delete should report missing")
			}
			if _, err := store.Head(ctx, "roasting-logs/CRL-1/roast.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestFilesystemRejectsUnsafeKeys(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	for _, key := range []string{"", "../escape", "/abs", "a/../../b", "x.meta"} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestFilesystemListReportsCorruptSidecar(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystem(dir)
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"+metaSuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if _, err := store.List(context.Background(), ""); err == nil {
		t.Fatal("expected list error on corrupt sidecar")
	}
}

func TestPresignSupport(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFilesystem(t.TempDir())
	url, err := store.PresignURL(ctx, "sage/a.zip", SignedURLOptions{})
	if err != nil || url != "file://blob.local/sage/a.zip" {
		t.Fatalf("unexpected fs url %q err=%v", url, err)
	}
	if _, err := store.PresignURL(ctx, "sage/a.zip", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := NewMemory().PresignURL(ctx, "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from memory, got %v", err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.Blob
		want Driver
	}{
		{"default fs", config.Blob{FSRoot: t.TempDir()}, DriverFilesystem},
		{"memory", config.Blob{Driver: "memory"}, DriverMemory},
		{"s3", config.Blob{Driver: "s3", S3Bucket: "roastery", S3AccessKeyID: "id", S3SecretAccessKey: "secret", S3Endpoint: "http://127.0.0.1:9", S3PathStyle: true}, DriverS3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, store.Driver())
			}
		})
	}
	if _, err := Open(ctx, config.Blob{Driver: "ftp"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
	if _, err := Open(ctx, config.Blob{Driver: "s3"}); err == nil {
		t.Fatal("expected missing bucket error")
	}
}
