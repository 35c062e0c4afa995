// Copyright 2026 fanjia1024
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

package archive

import (
	"context"
	"io"
	"strings"
	"testing"
)

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	entry, err := s.Put(ctx, "fmla.txt", strings.NewReader("family leave act"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Name != "fmla.txt" || entry.Size != int64(len("family leave act")) {
		t.Errorf("Put: unexpected entry %+v", entry)
	}

	exists, err := s.Exists(ctx, "fmla.txt")
	if err != nil || !exists {
		t.Fatalf("Exists: got %v err=%v", exists, err)
	}

	rc, err := s.Get(ctx, "fmla.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(data) != "family leave act" {
		t.Errorf("Get: got %q err=%v", data, err)
	}

	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: got %d entries err=%v", len(list), err)
	}

	if err := s.Delete(ctx, "fmla.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if exists, _ := s.Exists(ctx, "fmla.txt"); exists {
		t.Error("Delete: file still exists")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestDiskStoreRoundTrip(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	testStoreRoundTrip(t, s)
}

func TestPutStripsPathComponents(t *testing.T) {
	s := NewMemoryStore()
	entry, err := s.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if entry.Name != "passwd" {
		t.Errorf("expected path components stripped, got %q", entry.Name)
	}
}

func TestNewStoreTypes(t *testing.T) {
	if _, err := NewStore("memory", ""); err != nil {
		t.Errorf("NewStore memory: %v", err)
	}
	if _, err := NewStore("disk", t.TempDir()); err != nil {
		t.Errorf("NewStore disk: %v", err)
	}
	if _, err := NewStore("s3", ""); err == nil {
		t.Error("NewStore unknown type should error")
	}
}
