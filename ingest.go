package imgsim

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/imgsim/embedder"
	"github.com/hupe1980/imgsim/pathutil"
	"github.com/hupe1980/imgsim/vectorstore"
)

// AddStatus reports the outcome of ingesting a single image.
type AddStatus int

const (
	// AddStatusAdded means a new record was created.
	AddStatusAdded AddStatus = iota

	// AddStatusUpdated means an existing stale record was re-embedded.
	AddStatusUpdated

	// AddStatusFresh means the stored record matched the file's current
	// modification time, so no embedding was computed.
	AddStatusFresh

	// AddStatusMissing means the file could not be stat'ed; it was skipped.
	AddStatusMissing

	// AddStatusEncodeFailed means the file could not be read or embedded;
	// it was skipped and no record was written.
	AddStatusEncodeFailed
)

// String implements fmt.Stringer.
func (s AddStatus) String() string {
	switch s {
	case AddStatusAdded:
		return "added"
	case AddStatusUpdated:
		return "updated"
	case AddStatusFresh:
		return "fresh"
	case AddStatusMissing:
		return "missing"
	case AddStatusEncodeFailed:
		return "encode_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AddResult is the outcome of AddImage.
type AddResult struct {
	// ID is the canonical record identifier derived from the path.
	ID string

	// Status reports what happened.
	Status AddStatus
}

// BuildReport summarizes a BuildDatabase run.
type BuildReport struct {
	Total   int // candidate files enumerated
	Added   int
	Updated int
	Fresh   int
	Missing int
	Failed  int // unreadable or unembeddable files, skipped
}

// ProgressFunc is invoked once per candidate file during BuildDatabase,
// in enumeration order. progress is done/total in (0, 1].
type ProgressFunc func(progress float64, done, total int, fileName string)

// BuildOptions contains options for a BuildDatabase run.
type BuildOptions struct {
	// Progress, if non-nil, is called after each file is processed.
	Progress ProgressFunc
}

// BuildDatabase ingests every image file under root whose extension is in
// the configured set. Unchanged files are skipped without re-embedding;
// missing or unreadable files are skipped and counted, never aborting the
// run. A missing root yields an empty report, not an error.
//
// Store-level failures abort the run and are returned.
func (e *Engine) BuildDatabase(ctx context.Context, root string, optFns ...func(o *BuildOptions)) (BuildReport, error) {
	start := time.Now()

	opts := BuildOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	files, err := e.enumerate(root)
	if err != nil {
		e.metrics.RecordBuild(BuildReport{}, time.Since(start), err)
		e.logger.LogBuild(ctx, root, BuildReport{}, err)
		return BuildReport{}, err
	}

	report := BuildReport{Total: len(files)}

	workers := e.resources.MaxEmbedWorkers()
	var runErr error
	if workers <= 1 {
		runErr = e.buildSequential(ctx, files, opts.Progress, &report)
	} else {
		runErr = e.buildParallel(ctx, files, workers, opts.Progress, &report)
	}

	e.metrics.RecordBuild(report, time.Since(start), runErr)
	e.logger.LogBuild(ctx, root, report, runErr)

	return report, runErr
}

func (e *Engine) buildSequential(ctx context.Context, files []string, progress ProgressFunc, report *BuildReport) error {
	total := len(files)

	for i, f := range files {
		res, err := e.AddImage(ctx, f)
		if err != nil {
			return err
		}

		report.tally(res.Status)

		if progress != nil {
			done := i + 1
			progress(float64(done)/float64(total), done, total, filepath.Base(f))
		}
	}

	return nil
}

// buildParallel embeds up to workers files concurrently. Progress callbacks
// are still delivered in enumeration order: each file's callback fires only
// after every earlier file has completed.
func (e *Engine) buildParallel(ctx context.Context, files []string, workers int, progress ProgressFunc, report *BuildReport) error {
	total := len(files)

	results := make([]AddResult, total)
	ready := make([]chan struct{}, total)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// g.Go blocks while all worker slots are busy, so launching runs in its
	// own goroutine and the caller's goroutine reports progress meanwhile.
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, f := range files {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				res, err := e.AddImage(gctx, f)
				results[i] = res
				close(ready[i])
				return err
			})
		}
	}()

	// Report in enumeration order while workers run.
	for i := range files {
		select {
		case <-ready[i]:
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			break
		}

		report.tally(results[i].Status)

		if progress != nil {
			done := i + 1
			progress(float64(done)/float64(total), done, total, filepath.Base(files[i]))
		}
	}

	<-launched

	return g.Wait()
}

func (r *BuildReport) tally(status AddStatus) {
	switch status {
	case AddStatusAdded:
		r.Added++
	case AddStatusUpdated:
		r.Updated++
	case AddStatusFresh:
		r.Fresh++
	case AddStatusMissing:
		r.Missing++
	case AddStatusEncodeFailed:
		r.Failed++
	}
}

// enumerate lists candidate files under root in directory-walk order.
func (e *Engine) enumerate(root string) ([]string, error) {
	root = pathutil.Normalize(root)

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("imgsim: stat root: %w", err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := e.exts[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("imgsim: walk %s: %w", root, err)
	}

	return files, nil
}

// AddImage ingests a single image file. Missing files and files the model
// cannot embed are reported via the AddResult status with a nil error; only
// store-level failures are returned as errors.
func (e *Engine) AddImage(ctx context.Context, path string) (AddResult, error) {
	start := time.Now()

	res, err := e.addImage(ctx, path)

	e.metrics.RecordAddImage(res.Status, time.Since(start), err)
	e.logger.LogAddImage(ctx, res.ID, res.Status, err)

	return res, err
}

func (e *Engine) addImage(ctx context.Context, path string) (AddResult, error) {
	id, err := e.canonicalID(path)
	if err != nil {
		return AddResult{ID: path, Status: AddStatusMissing}, nil
	}
	res := AddResult{ID: id}

	fi, err := os.Stat(id)
	if err != nil {
		res.Status = AddStatusMissing
		return res, nil
	}
	mtime := fi.ModTime().UnixNano()

	// Freshness check: an existing record with the same modification time
	// means the stored embedding is current.
	existed := false
	existing, err := e.store.Get(ctx, id)
	switch {
	case err == nil:
		if existing.Metadata.ModifiedTime == mtime {
			res.Status = AddStatusFresh
			return res, nil
		}
		existed = true
	case errors.Is(err, vectorstore.ErrNotFound):
		// New record.
	default:
		return res, translateError(err)
	}

	if err := e.resources.WaitIO(ctx, fi.Size()); err != nil {
		return res, err
	}

	data, err := os.ReadFile(id)
	if err != nil {
		res.Status = AddStatusEncodeFailed
		return res, nil
	}

	vec, err := e.embedImage(ctx, data)
	if err != nil {
		if errors.Is(err, embedder.ErrEncode) {
			res.Status = AddStatusEncodeFailed
			return res, nil
		}
		return res, err
	}

	rec := vectorstore.Record{
		ID:     id,
		Vector: vec,
		Metadata: vectorstore.Metadata{
			FileSize:     fi.Size(),
			ModifiedTime: mtime,
			FileName:     filepath.Base(id),
		},
	}
	if err := e.store.Upsert(ctx, rec); err != nil {
		return res, translateError(err)
	}

	if existed {
		res.Status = AddStatusUpdated
	} else {
		res.Status = AddStatusAdded
	}
	return res, nil
}

// embedImage runs the embedder under the configured concurrency limit.
func (e *Engine) embedImage(ctx context.Context, data []byte) ([]float32, error) {
	if err := e.resources.AcquireEmbedSlot(ctx); err != nil {
		return nil, err
	}
	defer e.resources.ReleaseEmbedSlot()

	return e.embedder.EmbedImage(ctx, data)
}

// canonicalID converts a user-supplied path to the canonical record id:
// Windows paths are mapped to their WSL mount points, then made absolute
// and cleaned.
func (e *Engine) canonicalID(path string) (string, error) {
	abs, err := filepath.Abs(pathutil.Normalize(path))
	if err != nil {
		return "", err
	}
	return abs, nil
}
