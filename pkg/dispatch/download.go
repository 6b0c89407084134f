package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/errors"
	"pgbuild/pkg/logger"
)

// ArtifactPathIn is the file a download of args writes inside dir.
func ArtifactPathIn(dir string, args actions.Args) string {
	return filepath.Join(dir, actions.ArtifactName(args))
}

// download streams the artifact into <downloadDir>/<app_id>_<platform>.<ext>.
// A partially written file is removed on failure.
func (s *Service) download(ctx context.Context, api API, plan Plan) (result *Result, err error) {
	path, err := filepath.Abs(s.ArtifactPath(plan))
	if err != nil {
		return nil, errors.DownloadError(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.DownloadError(fmt.Errorf("failed to create download directory: %w", err))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.DownloadError(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.DownloadError(cerr)
			result = nil
		}
		if err != nil {
			if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
				logger.Warn().Err(rerr).Str("file", path).Msg("failed to remove partial download")
			}
		}
	}()

	fmt.Fprintln(s.out, "Download starting...")

	w, finish := s.wrapProgress(f)
	n, err := api.Download(ctx, plan.Path, w)
	finish()
	if err != nil {
		return nil, errors.DownloadError(err)
	}

	logger.Debug().Str("file", path).Int64("bytes", n).Msg("download complete")

	return &Result{
		Action: plan.Action,
		Path:   plan.Path,
		File:   path,
		Bytes:  n,
	}, nil
}

func (s *Service) wrapProgress(f *os.File) (io.Writer, func()) {
	if s.progress == nil {
		return f, func() {}
	}
	return s.progress(f)
}
