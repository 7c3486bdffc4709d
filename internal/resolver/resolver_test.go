package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"snapvault/internal/logging"
	"snapvault/internal/platform"
	"snapvault/internal/resolver"
	"snapvault/internal/services"
	"snapvault/internal/testsupport"
)

func newFS(t *testing.T) (*testsupport.FaultFS, string) {
	t.Helper()
	root := t.TempDir()
	base, err := platform.NewOSFS(root)
	if err != nil {
		t.Fatalf("NewOSFS: %v", err)
	}
	return testsupport.NewFaultFS(base), root
}

// seed writes files and pins their creation timestamps (seconds since epoch).
func seed(t *testing.T, fsys *testsupport.FaultFS, root string, files map[string]int64) {
	t.Helper()
	for p, ts := range files {
		testsupport.WriteFile(t, root, p, 8, time.Time{})
		fsys.SetCreationTime(p, time.Unix(ts, 0))
	}
}

func newResolver(fsys platform.FS, opts resolver.Options) *resolver.Resolver {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return resolver.New(fsys, opts, logging.NewNop())
}

func TestEvictNearestSelectsSmallestDelta(t *testing.T) {
	fsys, root := newFS(t)
	seed(t, fsys, root, map[string]int64{
		"/1970/01/01/a.jpg": 100,
		"/1970/01/01/b.jpg": 250,
		"/1970/01/02/c.jpg": 400,
	})
	testsupport.WriteFile(t, root, "/1970/01/01/capture.png", 8, time.Time{})
	fsys.SetCreationTime("/1970/01/01/capture.png", time.Unix(300, 0))

	res, err := newResolver(fsys, resolver.Options{Root: "/"}).EvictNearest(context.Background(), time.Unix(300, 0), "jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if !res.Found || !res.Deleted || res.Path != "/1970/01/01/b.jpg" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Delta != 50 || res.Candidates != 3 || res.Source != resolver.SourcePlatform {
		t.Fatalf("unexpected result details %+v", res)
	}
	if testsupport.Exists(root, "/1970/01/01/b.jpg") {
		t.Fatal("nearest file still present")
	}
	for _, p := range []string{"/1970/01/01/a.jpg", "/1970/01/02/c.jpg", "/1970/01/01/capture.png"} {
		if !testsupport.Exists(root, p) {
			t.Fatalf("%s should be untouched", p)
		}
	}
	if deletes := fsys.Deletes(); len(deletes) != 1 {
		t.Fatalf("expected exactly one delete, got %v", deletes)
	}
	if fsys.OpenDirHandles() != 0 {
		t.Fatalf("expected all directory handles closed, %d open", fsys.OpenDirHandles())
	}
}

func TestEvictNearestEmptyTree(t *testing.T) {
	fsys, root := newFS(t)
	testsupport.WriteFile(t, root, "/2024/05/01/only.png", 8, time.Time{})

	res, err := newResolver(fsys, resolver.Options{}).EvictNearest(context.Background(), time.Unix(300, 0), "jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if res.Found || res.Deleted || res.Candidates != 0 {
		t.Fatalf("expected no candidate, got %+v", res)
	}
	if len(fsys.Deletes()) != 0 {
		t.Fatal("nothing should be deleted")
	}
}

func TestEvictNearestMissingRootIsNoCandidate(t *testing.T) {
	fsys, _ := newFS(t)
	res, err := newResolver(fsys, resolver.Options{Root: "/Nintendo/Album"}).EvictNearest(context.Background(), time.Unix(1, 0), "jpg")
	if err != nil || res.Found {
		t.Fatalf("expected no candidate without error, got %+v, %v", res, err)
	}
}

func TestEvictNearestRootOpenFailure(t *testing.T) {
	fsys, root := newFS(t)
	seed(t, fsys, root, map[string]int64{"/album/a.jpg": 1})
	fsys.FailOpenDir("/album", errors.New("i/o error"))

	_, err := newResolver(fsys, resolver.Options{Root: "/album"}).EvictNearest(context.Background(), time.Unix(1, 0), "jpg")
	if !errors.Is(err, services.ErrResolverWalk) {
		t.Fatalf("expected ErrResolverWalk, got %v", err)
	}
}

func TestEvictNearestSkipsUnreadableSubtree(t *testing.T) {
	fsys, root := newFS(t)
	seed(t, fsys, root, map[string]int64{
		"/2024/05/01/a.jpg":  100,
		"/2024/05/02/b.jpg":  290,
		"/2024/05/03/c.jpg":  250,
		"/2024/06/30/d.jpg":  400,
		"/2024/05/02/e.jpeg": 300,
	})
	fsys.FailOpenDir("/2024/05/02", errors.New("corrupt directory"))

	res, err := newResolver(fsys, resolver.Options{}).EvictNearest(context.Background(), time.Unix(300, 0), "jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if res.Path != "/2024/05/03/c.jpg" || res.Delta != 50 {
		t.Fatalf("expected sibling candidate evicted, got %+v", res)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "/2024/05/02" {
		t.Fatalf("expected skipped subtree reported, got %v", res.Skipped)
	}
	if !testsupport.Exists(root, "/2024/05/02/b.jpg") {
		t.Fatal("files in the skipped subtree must not be touched")
	}
	if fsys.OpenDirHandles() != 0 {
		t.Fatalf("expected all directory handles closed, %d open", fsys.OpenDirHandles())
	}
}

func TestEvictNearestFilenameFallback(t *testing.T) {
	fsys, root := newFS(t)
	fsys.DisableTimestamps()
	for _, p := range []string{
		"/2024/05/01/2024050112000000-AAAA.jpg",
		"/2024/05/01/2024050112003000-BBBB.JPG",
		"/2024/05/01/2024050113000000-CCCC.jpg",
		"/2024/05/01/screenshot.jpg",
	} {
		testsupport.WriteFile(t, root, p, 8, time.Time{})
	}
	reference := time.Date(2024, time.May, 1, 12, 0, 40, 0, time.UTC)

	res, err := newResolver(fsys, resolver.Options{}).EvictNearest(context.Background(), reference, ".jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if res.Path != "/2024/05/01/2024050112003000-BBBB.JPG" || res.Delta != 10 || res.Source != resolver.SourceFilename {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Candidates != 3 {
		t.Fatalf("files without a timestamp must not count, got %d candidates", res.Candidates)
	}
}

func TestFindNearestDoesNotDelete(t *testing.T) {
	fsys, root := newFS(t)
	seed(t, fsys, root, map[string]int64{"/x/a.jpg": 10})
	res, err := newResolver(fsys, resolver.Options{}).FindNearest(context.Background(), time.Unix(0, 0), "jpg")
	if err != nil || !res.Found || res.Deleted {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	if !testsupport.Exists(root, "/x/a.jpg") {
		t.Fatal("FindNearest must not delete")
	}
}

func TestDayScopeLimitsWalk(t *testing.T) {
	fsys, root := newFS(t)
	day := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	seed(t, fsys, root, map[string]int64{
		"/2024/05/01/far.jpg":  day.Add(-3 * time.Hour).Unix(),
		"/2024/04/30/near.jpg": day.Add(-time.Minute).Unix(),
	})

	res, err := newResolver(fsys, resolver.Options{Scope: resolver.ScopeDay}).EvictNearest(context.Background(), day, "jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if res.Path != "/2024/05/01/far.jpg" {
		t.Fatalf("day scope must ignore other days, got %+v", res)
	}

	res, err = newResolver(fsys, resolver.Options{Scope: resolver.ScopeTree}).EvictNearest(context.Background(), day, "jpg")
	if err != nil {
		t.Fatalf("EvictNearest: %v", err)
	}
	if res.Path != "/2024/04/30/near.jpg" {
		t.Fatalf("tree scope should reach the previous day, got %+v", res)
	}
}

func TestEvictNearestHonoursCancellation(t *testing.T) {
	fsys, root := newFS(t)
	seed(t, fsys, root, map[string]int64{"/a/b/c.jpg": 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver(fsys, resolver.Options{}).EvictNearest(ctx, time.Unix(1, 0), "jpg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !testsupport.Exists(root, "/a/b/c.jpg") {
		t.Fatal("cancelled walk must not delete")
	}
	if fsys.OpenDirHandles() != 0 {
		t.Fatalf("expected handles closed after cancellation, %d open", fsys.OpenDirHandles())
	}
}

func TestEvictNearestRequiresExtension(t *testing.T) {
	fsys, _ := newFS(t)
	if _, err := newResolver(fsys, resolver.Options{}).EvictNearest(context.Background(), time.Unix(0, 0), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// orderedFS lists selected directories in a fixed order.
type orderedFS struct {
	platform.FS
	listings map[string][]platform.Entry
}

func (o orderedFS) OpenDir(p string) (platform.Dir, error) {
	if entries, ok := o.listings[p]; ok {
		return &listedDir{entries: entries}, nil
	}
	return o.FS.OpenDir(p)
}

type listedDir struct {
	entries []platform.Entry
}

func (d *listedDir) Next() (platform.Entry, bool, error) {
	if len(d.entries) == 0 {
		return platform.Entry{}, false, nil
	}
	e := d.entries[0]
	d.entries = d.entries[1:]
	return e, true, nil
}

func (d *listedDir) Close() error { return nil }

func TestEvictNearestTieKeepsFirstListed(t *testing.T) {
	for _, order := range [][]string{{"early.jpg", "late.jpg"}, {"late.jpg", "early.jpg"}} {
		t.Run(order[0], func(t *testing.T) {
			fsys, root := newFS(t)
			seed(t, fsys, root, map[string]int64{
				"/day/early.jpg": 290,
				"/day/late.jpg":  310,
			})
			entries := make([]platform.Entry, 0, len(order))
			for _, name := range order {
				entries = append(entries, platform.Entry{Name: name, Type: platform.EntryFile})
			}
			listed := orderedFS{FS: fsys, listings: map[string][]platform.Entry{"/day": entries}}

			res, err := newResolver(listed, resolver.Options{Root: "/"}).EvictNearest(context.Background(), time.Unix(300, 0), "jpg")
			if err != nil {
				t.Fatalf("EvictNearest: %v", err)
			}
			first, second := "/day/"+order[0], "/day/"+order[1]
			if !res.Deleted || res.Path != first || res.Delta != 10 || res.Candidates != 2 {
				t.Fatalf("unexpected result %+v", res)
			}
			if testsupport.Exists(root, first) {
				t.Fatalf("%s should have been evicted", first)
			}
			if !testsupport.Exists(root, second) {
				t.Fatalf("%s should be untouched", second)
			}
		})
	}
}
