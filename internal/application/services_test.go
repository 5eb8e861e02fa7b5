package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-colorspace/internal/domain"
	"webcam-colorspace/internal/imaging"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeBackend struct {
	devices    []domain.DeviceInfo
	frame      domain.Frame
	captureErr error
	forced     []domain.MatrixChoice
	forceErr   error
	lastReq    domain.CaptureRequest
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Enumerate() ([]domain.DeviceInfo, error) {
	return b.devices, nil
}

func (b *fakeBackend) Capture(_ context.Context, req domain.CaptureRequest) (domain.Frame, error) {
	b.lastReq = req
	return b.frame, b.captureErr
}

func (b *fakeBackend) ForceMatrix(_ int, choice domain.MatrixChoice) error {
	b.forced = append(b.forced, choice)
	return b.forceErr
}

type fakeUploader struct {
	files map[string][]byte
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, name string, data []byte) error {
	if u.err != nil {
		return u.err
	}
	if u.files == nil {
		u.files = make(map[string][]byte)
	}
	u.files[name] = data
	return nil
}

func (u *fakeUploader) Close() error { return nil }

func testFrame(width, height uint32) domain.Frame {
	data := make([]byte, domain.NV12Size(width, height))
	for i := range data {
		data[i] = byte(i * 7)
	}
	return domain.Frame{
		Width:       width,
		Height:      height,
		PixelFormat: domain.PixelFormatNV12,
		Data:        data,
	}
}

func TestCaptureTest_WritesBothVariants(t *testing.T) {
	dir := t.TempDir()
	frame := testFrame(4, 2)
	backend := &fakeBackend{frame: frame}
	svc := NewDiagnosticService(backend, nil, nopLogger{})

	req := domain.CaptureRequest{DeviceIndex: 1, Resolution: &domain.Resolution{Width: 4, Height: 2}}
	result, err := svc.CaptureTest(context.Background(), CaptureOptions{Request: req, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, req, backend.lastReq)

	require.Len(t, result.Files, 2)
	assert.Equal(t, filepath.Join(dir, "capture_bt601.bmp"), result.Files[0])
	assert.Equal(t, filepath.Join(dir, "capture_bt709.bmp"), result.Files[1])

	for i, v := range DefaultVariants {
		rgb, err := imaging.ConvertNV12(frame, v.Standard, frame.FullRange)
		require.NoError(t, err)
		want, err := imaging.EncodeBMP(4, 2, rgb)
		require.NoError(t, err)

		got, err := os.ReadFile(result.Files[i])
		require.NoError(t, err)
		assert.Equal(t, want, got, v.FileName)
	}
}

func TestCaptureTest_MirrorAndRaw(t *testing.T) {
	dir := t.TempDir()
	frame := testFrame(6, 4)
	frame.FullRange = true
	svc := NewDiagnosticService(&fakeBackend{frame: frame}, nil, nopLogger{})

	result, err := svc.CaptureTest(context.Background(), CaptureOptions{
		Mirror:    true,
		SaveRaw:   true,
		OutputDir: dir,
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 3)
	assert.True(t, result.FullRange)

	rgb, err := imaging.ConvertNV12(frame, domain.BT709, true)
	require.NoError(t, err)
	require.NoError(t, imaging.MirrorHorizontal(rgb, 6, 4))
	want, err := imaging.EncodeBMP(6, 4, rgb)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "capture_bt709.bmp"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(filepath.Join(dir, RawFileName))
	require.NoError(t, err)
	assert.Equal(t, frame.Data, raw)
}

func TestCaptureTest_InvalidFrameWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		frame domain.Frame
		check func(t *testing.T, err error)
	}{
		{
			name: "unsupported format",
			frame: domain.Frame{
				Width: 2, Height: 2, PixelFormat: "MJPG", Data: make([]byte, 6),
			},
			check: func(t *testing.T, err error) {
				var fmtErr *domain.UnsupportedFormatError
				assert.ErrorAs(t, err, &fmtErr)
			},
		},
		{
			name: "short buffer",
			frame: domain.Frame{
				Width: 4, Height: 4, PixelFormat: domain.PixelFormatNV12, Data: make([]byte, 23),
			},
			check: func(t *testing.T, err error) {
				var bufErr *domain.InsufficientBufferError
				assert.ErrorAs(t, err, &bufErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			uploader := &fakeUploader{}
			svc := NewDiagnosticService(&fakeBackend{frame: tt.frame}, uploader, nopLogger{})

			result, err := svc.CaptureTest(context.Background(), CaptureOptions{OutputDir: dir, SaveRaw: true})
			require.Error(t, err)
			assert.Nil(t, result)
			tt.check(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Empty(t, uploader.files)
		})
	}
}

func TestCaptureTest_CaptureError(t *testing.T) {
	captureErr := errors.New("device busy")
	svc := NewDiagnosticService(&fakeBackend{captureErr: captureErr}, nil, nopLogger{})

	_, err := svc.CaptureTest(context.Background(), CaptureOptions{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, captureErr)
}

func TestCaptureTest_Uploads(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	svc := NewDiagnosticService(&fakeBackend{frame: testFrame(2, 2)}, uploader, nopLogger{})

	result, err := svc.CaptureTest(context.Background(), CaptureOptions{OutputDir: dir})
	require.NoError(t, err)

	require.Len(t, uploader.files, 2)
	for _, path := range result.Files {
		onDisk, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, onDisk, uploader.files[filepath.Base(path)])
	}
}

func TestCaptureTest_UploadError(t *testing.T) {
	uploadErr := errors.New("connection refused")
	svc := NewDiagnosticService(&fakeBackend{frame: testFrame(2, 2)}, &fakeUploader{err: uploadErr}, nopLogger{})

	result, err := svc.CaptureTest(context.Background(), CaptureOptions{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, uploadErr)
	require.NotNil(t, result)
	assert.Len(t, result.Files, 2, "local files are kept when upload fails")
}

func TestListDevices_DeduplicatesFormats(t *testing.T) {
	nv12 := domain.FormatInfo{PixelFormat: "NV12", Resolution: "640x480", FrameRate: "30.00 fps"}
	yuyv := domain.FormatInfo{PixelFormat: "YUYV", Resolution: "640x480", FrameRate: "30.00 fps"}
	backend := &fakeBackend{devices: []domain.DeviceInfo{
		{Name: "cam", Formats: []domain.FormatInfo{nv12, yuyv, nv12, yuyv, nv12}},
		{Name: "empty"},
	}}
	svc := NewDiagnosticService(backend, nil, nopLogger{})

	devices, err := svc.ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, []domain.FormatInfo{nv12, yuyv}, devices[0].Formats)
	assert.Empty(t, devices[1].Formats)
}

func TestForceMatrix(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewDiagnosticService(backend, nil, nopLogger{})

	require.NoError(t, svc.ForceMatrix(0, domain.MatrixBT709))
	assert.Equal(t, []domain.MatrixChoice{domain.MatrixBT709}, backend.forced)

	backend.forceErr = domain.ErrNotSupported
	assert.ErrorIs(t, svc.ForceMatrix(1, domain.MatrixBT601), domain.ErrNotSupported)
}
