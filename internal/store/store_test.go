// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marker-pipeline/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := types.Job{
		Document:     "invoice-2024",
		InputPath:    "data/uploads/invoice-2024.pdf",
		MarkdownPath: "data/outputs/invoice-2024/invoice-2024.md",
		Status:       types.JobDone,
		Duration:     42 * time.Second,
		TableCount:   -1,
	}
	require.NoError(t, s.Record(ctx, job))

	got, err := s.Get(ctx, "invoice-2024")
	require.NoError(t, err)
	assert.Equal(t, job.Document, got.Document)
	assert.Equal(t, job.MarkdownPath, got.MarkdownPath)
	assert.Equal(t, types.JobDone, got.Status)
	assert.Equal(t, 42*time.Second, got.Duration)
	assert.Equal(t, -1, got.TableCount)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, doc := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, types.Job{
			Document: doc, InputPath: doc + ".pdf", Status: types.JobDone, TableCount: -1,
		}))
	}

	jobs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c", jobs[0].Document)
	assert.Equal(t, "b", jobs[1].Document)
}

func TestRecordFailedJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, types.Job{
		Document:   "broken",
		InputPath:  "broken.pdf",
		Status:     types.JobFailed,
		Error:      "conversion failed for broken.pdf: tool exited with error",
		TableCount: -1,
	}))

	got, err := s.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, got.Status)
	assert.Contains(t, got.Error, "tool exited with error")
	assert.Empty(t, got.MarkdownPath)
}

func TestSetTableCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A failed attempt followed by a successful one; only the successful
	// job gets the count.
	require.NoError(t, s.Record(ctx, types.Job{Document: "doc", InputPath: "doc.pdf", Status: types.JobFailed, TableCount: -1}))
	require.NoError(t, s.Record(ctx, types.Job{Document: "doc", InputPath: "doc.pdf", Status: types.JobDone, TableCount: -1}))

	require.NoError(t, s.SetTableCount(ctx, "doc", 7))

	got, err := s.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, types.JobDone, got.Status)
	assert.Equal(t, 7, got.TableCount)
}
