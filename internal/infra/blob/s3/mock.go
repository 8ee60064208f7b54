package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const mockBucket = "mock-bucket"

// NewMockForTests returns a Store whose client talks to an in-process fake
// S3 endpoint. It understands HEAD, GET, PUT, DELETE and ListObjectsV2 for
// path-style requests against a single bucket.
func NewMockForTests() *Store {
	awsCfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(defaultRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIATEST", "SECRET", "")),
	)
	rt := &mockTransport{objects: make(map[string]mockObject)}
	return newFromAWS(awsCfg, Config{
		Bucket:    mockBucket,
		Endpoint:  "https://mock.s3.local",
		PathStyle: true,
	}, &http.Client{Transport: rt})
}

type mockObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

type mockTransport struct {
	mu      sync.Mutex
	objects map[string]mockObject
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.TrimPrefix(strings.TrimPrefix(req.URL.Path, "/"+mockBucket), "/")
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		header := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"` + fmt.Sprintf("%x", len(obj.body)) + `"`},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		for k, v := range obj.metadata {
			header.Set("X-Amz-Meta-"+k, v)
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, header, nil), nil
		}
		return respond(http.StatusOK, header, obj.body), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if decoded, ok := decodeChunked(body); ok {
			body = decoded
		}
		md := map[string]string{}
		for name, values := range req.Header {
			if lower := strings.ToLower(name); strings.HasPrefix(lower, "x-amz-meta-") && len(values) > 0 {
				md[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
			}
		}
		m.objects[key] = mockObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: md}
		return respond(http.StatusOK, http.Header{"Etag": {`"put"`}}, nil), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockTransport) list(prefix string) *http.Response {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	fmt.Fprintf(&b, "<KeyCount>%d</KeyCount>", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(m.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, []byte(b.String()))
}

func respond(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// decodeChunked unwraps a single-chunk aws-chunked payload:
// <hex>\r\n<body>\r\n0\r\n[trailers]
func decodeChunked(b []byte) ([]byte, bool) {
	head, rest, ok := strings.Cut(string(b), "\r\n")
	if !ok {
		return nil, false
	}
	size, err := strconv.ParseInt(head, 16, 64)
	if err != nil || size < 0 || int64(len(rest)) < size {
		return nil, false
	}
	if !strings.HasPrefix(rest[size:], "\r\n0\r\n") {
		return nil, false
	}
	return []byte(rest[:size]), true
}
