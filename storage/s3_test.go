// Copyright 2025 Scott Friedman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &fakeNotFound{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

type fakeNotFound struct{}

func (*fakeNotFound) Error() string { return "NoSuchKey: not found" }

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://mybucket/path/to/obj.ome.tiff")
	if err != nil {
		t.Fatalf("ParseS3URI: %v", err)
	}
	if bucket != "mybucket" || key != "path/to/obj.ome.tiff" {
		t.Errorf("got bucket=%q key=%q", bucket, key)
	}
	if _, _, err := ParseS3URI("not-s3"); err == nil {
		t.Fatal("expected error for non-s3 URI")
	}
	if _, _, err := ParseS3URI("s3://bucketonly"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestS3BackendCanonicalizeCleansKey(t *testing.T) {
	b := newS3BackendWithClient(newFakeS3())
	got, err := b.Canonicalize("s3://bucket/a/./b/../c.ome.tiff")
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "s3://bucket/a/c.ome.tiff" {
		t.Errorf("got %q, want s3://bucket/a/c.ome.tiff", got)
	}
}

func TestS3BackendCreateThenOpenRoundTrip(t *testing.T) {
	fake := newFakeS3()
	b := newS3BackendWithClient(fake)
	ctx := context.Background()

	w, err := b.Create(ctx, "s3://bucket/dataset.ome.tiff")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("OME-TIFF payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := b.Open(ctx, "s3://bucket/dataset.ome.tiff")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "OME-TIFF payload" {
		t.Errorf("got %q", got)
	}
}

func TestS3BackendOpenMissingObjectFails(t *testing.T) {
	b := newS3BackendWithClient(newFakeS3())
	if _, err := b.Open(context.Background(), "s3://bucket/missing.ome.tiff"); err == nil {
		t.Fatal("expected error opening missing object")
	}
}
