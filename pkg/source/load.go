package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/dom"
)

// MaxSourceSize bounds the size of a template or data file.
const MaxSourceSize = 8 << 20

func read(ctx context.Context, store Store, name string) ([]byte, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxSourceSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSourceSize {
		return nil, fmt.Errorf("source: %s exceeds %d bytes", name, MaxSourceSize)
	}
	return data, nil
}

// LoadTemplate parses the HTML template name. A complete document yields
// its body element, so statements keep a parent; anything else yields the
// first top-level element.
func LoadTemplate(ctx context.Context, store Store, name string) (*dom.Node, error) {
	data, err := read(ctx, store, name)
	if err != nil {
		return nil, err
	}
	src := string(data)
	if isDocument(src) {
		doc, err := dom.ParseString(src)
		if err != nil {
			return nil, templateError(name, err)
		}
		if body := doc.FindTag("body"); body != nil {
			return body, nil
		}
		return nil, templateError(name, fmt.Errorf("no body element"))
	}
	el, err := dom.ParseElement(src)
	if err != nil {
		return nil, templateError(name, err)
	}
	return el, nil
}

func isDocument(src string) bool {
	head := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

func templateError(name string, err error) error {
	return talerrors.New(talerrors.CodeTemplateParse).
		WithDetail(name + ": " + err.Error()).
		Wrap(err)
}

// LoadData decodes name into a model. Files ending in .json are read as
// JSON, everything else as YAML. The top level must be a mapping.
//
// Values are normalized to the kinds observe wraps: maps have string keys,
// sequences are []any, whole numbers are int and timestamps are RFC 3339
// strings.
func LoadData(ctx context.Context, store Store, name string) (map[string]any, error) {
	data, err := read(ctx, store, name)
	if err != nil {
		return nil, err
	}

	var v any
	if strings.EqualFold(path.Ext(name), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&v)
	} else {
		err = yaml.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, dataError(name, err)
	}
	if v == nil {
		return map[string]any{}, nil
	}

	m, ok := normalize(v).(map[string]any)
	if !ok {
		return nil, dataError(name, fmt.Errorf("top level is %T, want a mapping", v))
	}
	return m, nil
}

func dataError(name string, err error) error {
	return talerrors.New(talerrors.CodeDataDecode).
		WithDetail(name + ": " + err.Error()).
		Wrap(err)
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = normalize(val)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, _ := x.Float64()
		return f
	case int64:
		return int(x)
	case uint64:
		if x <= math.MaxInt {
			return int(x)
		}
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return v
}
