package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/render"
)

func dirStore(t *testing.T, files map[string]string) *DirStore {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return NewDirStore(dir)
}

func TestDirStoreOpen(t *testing.T) {
	store := dirStore(t, map[string]string{"pages/a.html": "<p>a</p>"})
	ctx := context.Background()

	tests := []struct {
		name    string
		want    string
		missing bool
	}{
		{name: "pages/a.html", want: "<p>a</p>"},
		{name: "/pages/a.html", want: "<p>a</p>"},
		{name: "pages/../pages/a.html", want: "<p>a</p>"},
		{name: "../a.html", missing: true},
		{name: "pages/b.html", missing: true},
		{name: "", missing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := store.Open(ctx, tt.name)
			if tt.missing {
				if !talerrors.HasCode(err, talerrors.CodeSourceNotFound) {
					t.Errorf("expected %s, got %v", talerrors.CodeSourceNotFound, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			got, _ := io.ReadAll(rc)
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirStoreCanceled(t *testing.T) {
	store := dirStore(t, map[string]string{"a.html": "<p></p>"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Open(ctx, "a.html"); !errors.Is(err, context.Canceled) {
		t.Errorf("Open = %v, want context.Canceled", err)
	}
}

type fakeS3 struct {
	objects map[string]string
	fail    error
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	if f.fail != nil {
		return nil, f.fail
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3StoreOpen(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"shop/pages/index.html": "<main></main>"}}
	store := NewS3Store(client, "shop", "pages/")
	ctx := context.Background()

	rc, err := store.Open(ctx, "index.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "<main></main>" {
		t.Errorf("content = %q", got)
	}

	_, err = store.Open(ctx, "missing.html")
	if !talerrors.HasCode(err, talerrors.CodeSourceNotFound) {
		t.Errorf("expected %s, got %v", talerrors.CodeSourceNotFound, err)
	}
	if diff := cmp.Diff([]string{"shop/pages/index.html", "shop/pages/missing.html"}, client.keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	boom := errors.New("throttled")
	client.fail = boom
	if _, err := store.Open(ctx, "index.html"); !errors.Is(err, boom) {
		t.Errorf("Open = %v, want the client error", err)
	}
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	client := NewS3Client("eu-west-1", "http://localhost:9000")
	opts := client.Options()
	if opts.Region != "eu-west-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("unexpected options: region %q path style %v endpoint %q",
			opts.Region, opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "id" || creds.SecretAccessKey != "secret" {
		t.Errorf("credentials = %+v, %v", creds, err)
	}
}

func TestLoadTemplate(t *testing.T) {
	store := dirStore(t, map[string]string{
		"fragment.html": `<ul><li tal:repeat="item items" tal:content="item"></li></ul>`,
		"page.html":     "<!DOCTYPE html>\n<html><head><title>x</title></head><body><p tal:content=\"name\"></p></body></html>",
		"empty.html":    "just text",
	})
	r := render.NewRenderer(render.RendererConfig{})
	ctx := context.Background()

	tests := []struct {
		name string
		want string
	}{
		{"fragment.html", `<ul><li tal:repeat="item items" tal:content="item"></li></ul>`},
		{"page.html", `<body><p tal:content="name"></p></body>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := LoadTemplate(ctx, store, tt.name)
			if err != nil {
				t.Fatalf("LoadTemplate: %v", err)
			}
			got, err := r.RenderToString(n)
			if err != nil {
				t.Fatalf("RenderToString: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	_, err := LoadTemplate(ctx, store, "empty.html")
	if !talerrors.HasCode(err, talerrors.CodeTemplateParse) {
		t.Errorf("expected %s, got %v", talerrors.CodeTemplateParse, err)
	}
}

func TestLoadData(t *testing.T) {
	store := dirStore(t, map[string]string{
		"data.yaml": `
title: Shop
count: 3
price: 2.5
open: true
released: 2024-01-02T03:04:05Z
items:
  - name: apple
    tags: [red, sweet]
  - name: pear
codes:
  1: one
`,
		"data.json": `{"title": "Shop", "count": 3, "price": 2.5, "open": true,
			"items": [{"name": "apple", "tags": ["red", "sweet"]}, {"name": "pear"}],
			"codes": {"1": "one"}, "released": "2024-01-02T03:04:05Z"}`,
		"empty.yaml": "",
		"list.yaml":  "- a\n- b\n",
		"bad.json":   "{",
	})
	ctx := context.Background()

	want := map[string]any{
		"title":    "Shop",
		"count":    3,
		"price":    2.5,
		"open":     true,
		"released": "2024-01-02T03:04:05Z",
		"items": []any{
			map[string]any{"name": "apple", "tags": []any{"red", "sweet"}},
			map[string]any{"name": "pear"},
		},
		"codes": map[string]any{"1": "one"},
	}
	for _, name := range []string{"data.yaml", "data.json"} {
		t.Run(name, func(t *testing.T) {
			got, err := LoadData(ctx, store, name)
			if err != nil {
				t.Fatalf("LoadData: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
			if _, err := observe.NewRegistry().Wrap(got); err != nil {
				t.Errorf("data should be observable: %v", err)
			}
		})
	}

	got, err := LoadData(ctx, store, "empty.yaml")
	if err != nil || len(got) != 0 {
		t.Errorf("empty file = %v, %v", got, err)
	}
	for _, name := range []string{"list.yaml", "bad.json"} {
		if _, err := LoadData(ctx, store, name); !talerrors.HasCode(err, talerrors.CodeDataDecode) {
			t.Errorf("%s: expected %s, got %v", name, talerrors.CodeDataDecode, err)
		}
	}
}
