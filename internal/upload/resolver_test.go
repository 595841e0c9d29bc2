package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/hwuu/diskup/internal/remote"
)

func newResolver(s remote.Storage) *Resolver {
	return &Resolver{Storage: s, Logger: zerolog.Nop()}
}

func TestSplitSegments(t *testing.T) {
	tests := []struct {
		dest string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"photos", []string{"photos"}},
		{"/photos/2024", []string{"photos", "2024"}},
		{"photos//2024/", []string{"photos", "2024"}},
		{"///a/b/c///", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			got := SplitSegments(tt.dest)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSegments(%q) mismatch (-want +got):\n%s", tt.dest, diff)
			}
		})
	}
}

func TestResolve_EmptyDestination(t *testing.T) {
	fake := newFakeStorage()

	got, err := newResolver(fake).Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "/" {
		t.Errorf("expected /, got %q", got)
	}
	if creates := fake.callsOf("create"); len(creates) != 0 {
		t.Errorf("expected no create calls, got %v", creates)
	}
	if md := fake.callsOf("metadata"); len(md) != 1 {
		t.Errorf("expected 1 metadata call, got %v", md)
	}
}

func TestResolve_ExistingPath(t *testing.T) {
	fake := newFakeStorage("/photos/", "/photos/2024/")

	got, err := newResolver(fake).Resolve(context.Background(), "/photos/2024")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "/photos/2024/" {
		t.Errorf("expected /photos/2024/, got %q", got)
	}
	if creates := fake.callsOf("create"); len(creates) != 0 {
		t.Errorf("expected no create calls, got %v", creates)
	}

	wantMeta := []string{"/", "/photos/", "/photos/2024/"}
	if diff := cmp.Diff(wantMeta, fake.callsOf("metadata")); diff != "" {
		t.Errorf("metadata calls mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_PartiallyExisting(t *testing.T) {
	all := []string{"/a/", "/a/b/", "/a/b/c/"}

	for k := 0; k <= len(all); k++ {
		t.Run(fmt.Sprintf("%d existing", k), func(t *testing.T) {
			fake := newFakeStorage(all[:k]...)

			got, err := newResolver(fake).Resolve(context.Background(), "a/b/c")
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != "/a/b/c/" {
				t.Errorf("expected /a/b/c/, got %q", got)
			}

			creates := fake.callsOf("create")
			if diff := cmp.Diff(all[k:], creates, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("create calls mismatch (-want +got):\n%s", diff)
			}
			if md := fake.callsOf("metadata"); len(md) != k+1 {
				t.Errorf("expected %d metadata calls, got %d: %v", k+1, len(md), md)
			}
		})
	}
}

func TestResolve_LooksOnlyAtImmediateChildren(t *testing.T) {
	// "b" exists at the root, not under "a"
	fake := newFakeStorage("/b/")

	got, err := newResolver(fake).Resolve(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "/a/b/" {
		t.Errorf("expected /a/b/, got %q", got)
	}
	if diff := cmp.Diff([]string{"/a/", "/a/b/"}, fake.callsOf("create")); diff != "" {
		t.Errorf("create calls mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_NoCheckAfterFirstMiss(t *testing.T) {
	// "/x/y/" is present in the fake even though "/x/" is not; the resolver must not look
	fake := newFakeStorage("/x/y/")

	if _, err := newResolver(fake).Resolve(context.Background(), "x/y"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if md := fake.callsOf("metadata"); len(md) != 1 {
		t.Errorf("expected only the root lookup, got %v", md)
	}
	if diff := cmp.Diff([]string{"/x/", "/x/y/"}, fake.callsOf("create")); diff != "" {
		t.Errorf("create calls mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_MetadataErrorIsFatal(t *testing.T) {
	fake := newFakeStorage("/photos/")
	fake.errFor = func(op, path string) error {
		if op == "metadata" && path == "/photos/" {
			return remote.ErrNotAuthorized
		}
		return nil
	}

	_, err := newResolver(fake).Resolve(context.Background(), "photos/2024")
	if !errors.Is(err, remote.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if creates := fake.callsOf("create"); len(creates) != 0 {
		t.Errorf("expected no create calls after failure, got %v", creates)
	}
}

func TestResolve_CreateErrorIsFatal(t *testing.T) {
	fake := newFakeStorage()
	boom := errors.New("boom")
	fake.errFor = func(op, path string) error {
		if op == "create" && path == "/a/b/" {
			return boom
		}
		return nil
	}

	_, err := newResolver(fake).Resolve(context.Background(), "a/b/c")
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if diff := cmp.Diff([]string{"/a/", "/a/b/"}, fake.callsOf("create")); diff != "" {
		t.Errorf("create calls mismatch (-want +got):\n%s", diff)
	}
}
