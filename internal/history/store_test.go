package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJobLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.StartJob(ctx, "job-1", "/videos/movie.mkv"); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordTrack(ctx, TrackResult{
		JobID:      "job-1",
		TrackIndex: 0,
		Language:   "eng",
		Segments:   42,
		OutputPath: "/videos/movie.slideshow.mkv",
		Status:     StatusSucceeded,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordTrack(ctx, TrackResult{
		JobID:      "job-1",
		TrackIndex: 2,
		Language:   "jpn",
		Status:     StatusFailed,
		Error:      "frame extraction failed",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishJob(ctx, "job-1", StatusPartial, ""); err != nil {
		t.Fatal(err)
	}

	jobs, err := store.ListJobs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d", len(jobs))
	}
	job := jobs[0]
	if job.Status != StatusPartial {
		t.Fatalf("status = %q", job.Status)
	}
	if job.FinishedAt.IsZero() || job.StartedAt.IsZero() {
		t.Fatalf("timestamps missing: %+v", job)
	}
	if len(job.Tracks) != 2 {
		t.Fatalf("tracks = %d", len(job.Tracks))
	}
	if job.Tracks[0].TrackIndex != 0 || job.Tracks[1].TrackIndex != 2 {
		t.Fatalf("track order = %+v", job.Tracks)
	}
	if job.Tracks[0].Segments != 42 {
		t.Fatalf("segments = %d", job.Tracks[0].Segments)
	}
	if job.Tracks[1].Error != "frame extraction failed" {
		t.Fatalf("track error = %q", job.Tracks[1].Error)
	}
}

func TestListJobsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.StartJob(ctx, id, "/videos/"+id+".mkv"); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := store.ListJobs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}

	all, err := store.ListJobs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("jobs = %d, want 3", len(all))
	}
}

func TestFinishUnknownJob(t *testing.T) {
	store := openTestStore(t)
	if err := store.FinishJob(context.Background(), "missing", StatusFailed, "boom"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.StartJob(ctx, "job-1", "/videos/movie.mkv"); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	jobs, err := store.ListJobs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("jobs remain after clear: %d", len(jobs))
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.StartJob(context.Background(), "job-1", "/videos/movie.mkv"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	jobs, err := reopened.ListJobs(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d after reopen", len(jobs))
	}
}
