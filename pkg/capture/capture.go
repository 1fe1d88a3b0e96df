package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fieldops/gearscan/internal/utils"
)

// ErrUnavailable means the video source has no current frame to hand out.
// It aborts a scan attempt before any network call is made.
var ErrUnavailable = errors.New("camera frame unavailable")

// FrameSource produces one data-URL encoded still frame per call.
type FrameSource interface {
	CaptureFrame() (string, error)
}

// EncodeFrame turns raw image bytes into the data URL the scan wire protocol
// expects, sniffing the MIME type from the payload itself.
func EncodeFrame(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrUnavailable
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("frame is %s, not an image", mime)
	}
	return utils.EncodeDataURL(mime, data), nil
}

// FileSource serves the same still image on every capture. Useful for
// one-shot scans and anywhere a live camera is out of reach.
type FileSource struct {
	Path string
}

func (f FileSource) CaptureFrame() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, f.Path)
		}
		return "", err
	}
	return EncodeFrame(data)
}

// StillSource encodes an in-memory image as JPEG on each capture.
type StillSource struct {
	Image   image.Image
	Quality int // jpeg quality; 0 means the encoder default
}

func (s StillSource) CaptureFrame() (string, error) {
	if s.Image == nil {
		return "", ErrUnavailable
	}
	bounds := s.Image.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", ErrUnavailable
	}

	var opts *jpeg.Options
	if s.Quality > 0 {
		opts = &jpeg.Options{Quality: s.Quality}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.Image, opts); err != nil {
		return "", err
	}
	return utils.EncodeDataURL("image/jpeg", buf.Bytes()), nil
}

// DirSource cycles through the image files of a directory, one per capture,
// wrapping around at the end. It stands in for a live stream during
// interactive sessions.
type DirSource struct {
	Dir string

	mu   sync.Mutex
	next int
}

func (d *DirSource) CaptureFrame() (string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			frames = append(frames, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return "", fmt.Errorf("%w: no image files in %s", ErrUnavailable, d.Dir)
	}
	sort.Strings(frames)

	d.mu.Lock()
	path := frames[d.next%len(frames)]
	d.next++
	d.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return EncodeFrame(data)
}
