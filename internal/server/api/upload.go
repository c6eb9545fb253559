package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/audio"
	"github.com/ayusman/samarth/internal/capture"
)

// memoryLimit is how much of a multipart body is held in memory before
// parts spill to disk.
const memoryLimit = 8 << 20

var errMissingFile = errors.New("missing file")

// badRequest marks upload errors caused by the client.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// parseUpload bounds the body and parses the multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest{fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)}
		}
		return badRequest{fmt.Errorf("parse upload: %w", err)}
	}
	return nil
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, badRequest{fmt.Errorf("%w: %s", errMissingFile, field)}
	}
	if err != nil {
		return nil, nil, badRequest{err}
	}
	return f, hdr, nil
}

// readImage decodes the image in field. The caller closes the Mat.
func readImage(r *http.Request, field string) (*gocv.Mat, error) {
	f, _, err := formFile(r, field)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := capture.DecodeImage(data)
	if err != nil {
		return nil, badRequest{err}
	}
	return img, nil
}

// spoolVideo copies the video in field to a temporary file so the decoder
// can open it by path. The returned func removes the file.
func spoolVideo(r *http.Request, field string) (string, func(), error) {
	f, hdr, err := formFile(r, field)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	tmp, err := os.CreateTemp("", "samarth-*"+filepath.Ext(hdr.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool video: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

// readAudio decodes the WAV in field.
func readAudio(r *http.Request, field string) (*audio.Clip, error) {
	f, _, err := formFile(r, field)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := audio.Decode(f)
	if err != nil {
		return nil, badRequest{err}
	}
	return clip, nil
}
