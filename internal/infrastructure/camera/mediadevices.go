package camera

import (
	"context"
	"fmt"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // registers the camera driver
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

// MediaDevicesBackend is the cross-platform backend built on pion/mediadevices.
// The driver decodes frames to image.YCbCr, which is repacked into NV12.
type MediaDevicesBackend struct {
	logger application.Logger
}

// NewMediaDevicesBackend creates the mediadevices backend.
func NewMediaDevicesBackend(logger application.Logger) *MediaDevicesBackend {
	return &MediaDevicesBackend{
		logger: logger,
	}
}

// Name returns the backend name
func (m *MediaDevicesBackend) Name() string {
	return "mediadevices"
}

func videoInputs() []mediadevices.MediaDeviceInfo {
	var inputs []mediadevices.MediaDeviceInfo
	for _, device := range mediadevices.EnumerateDevices() {
		if device.Kind == mediadevices.VideoInput {
			inputs = append(inputs, device)
		}
	}
	return inputs
}

// Enumerate returns every video input with the properties its driver advertises.
func (m *MediaDevicesBackend) Enumerate() ([]domain.DeviceInfo, error) {
	inputs := videoInputs()
	result := make([]domain.DeviceInfo, 0, len(inputs))

	for _, device := range inputs {
		result = append(result, domain.DeviceInfo{
			Name:    device.Label,
			Path:    device.DeviceID,
			Formats: m.driverFormats(device.DeviceID),
		})
	}

	return result, nil
}

func (m *MediaDevicesBackend) driverFormats(id string) []domain.FormatInfo {
	drivers := driver.GetManager().Query(func(d driver.Driver) bool {
		return d.ID() == id
	})
	if len(drivers) == 0 {
		return nil
	}
	d := drivers[0]

	if d.Status() == driver.StateClosed {
		if err := d.Open(); err != nil {
			m.logger.Debug("Cannot open %s to read properties: %v", id, err)
			return nil
		}
		defer d.Close()
	}

	var formats []domain.FormatInfo
	for _, p := range d.Properties() {
		rate := "Unknown"
		if p.FrameRate > 0 {
			rate = fmt.Sprintf("%.2f fps", p.FrameRate)
		}
		formats = append(formats, domain.FormatInfo{
			PixelFormat: string(p.FrameFormat),
			Resolution:  fmt.Sprintf("%dx%d", p.Width, p.Height),
			FrameRate:   rate,
			Colorspace:  domain.NotAvailable(),
		})
	}
	return formats
}

// Capture opens the selected camera, asks for NV12 and returns one frame
// after the warm-up frames.
func (m *MediaDevicesBackend) Capture(ctx context.Context, req domain.CaptureRequest) (domain.Frame, error) {
	inputs := videoInputs()
	if len(inputs) == 0 {
		return domain.Frame{}, domain.ErrNoDevices
	}
	if req.DeviceIndex < 0 || req.DeviceIndex >= len(inputs) {
		return domain.Frame{}, &domain.DeviceIndexError{Index: req.DeviceIndex, Count: len(inputs)}
	}
	deviceID := inputs[req.DeviceIndex].DeviceID

	constraints := mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(deviceID)
			c.FrameFormat = prop.FrameFormat(frame.FormatNV12)
			if req.Resolution != nil {
				c.Width = prop.Int(int(req.Resolution.Width))
				c.Height = prop.Int(int(req.Resolution.Height))
			}
		},
	}

	mediaStream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		m.logger.Error("GetUserMedia with NV12 constraints failed: %v", err)

		m.logger.Info("Retrying with minimal constraints...")
		constraints = mediadevices.MediaStreamConstraints{
			Video: func(c *mediadevices.MediaTrackConstraints) {
				c.DeviceID = prop.String(deviceID)
			},
		}

		mediaStream, err = mediadevices.GetUserMedia(constraints)
		if err != nil {
			return domain.Frame{}, fmt.Errorf("open %s: %w", inputs[req.DeviceIndex].Label, err)
		}
	}

	tracks := mediaStream.GetVideoTracks()
	defer func() {
		for _, track := range mediaStream.GetTracks() {
			track.Close()
		}
	}()
	if len(tracks) == 0 {
		return domain.Frame{}, fmt.Errorf("no video track for %s", inputs[req.DeviceIndex].Label)
	}
	videoTrack, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		return domain.Frame{}, fmt.Errorf("unexpected track type %T", tracks[0])
	}
	m.logger.Info("Using camera: %s", videoTrack.ID())

	type result struct {
		frame domain.Frame
		err   error
	}
	done := make(chan result, 1)
	go func() {
		f, err := m.readFrame(videoTrack, req.Range)
		done <- result{frame: f, err: err}
	}()

	select {
	case <-ctx.Done():
		videoTrack.Close()
		return domain.Frame{}, ctx.Err()
	case r := <-done:
		return r.frame, r.err
	}
}

func (m *MediaDevicesBackend) readFrame(track *mediadevices.VideoTrack, mode domain.RangeMode) (domain.Frame, error) {
	reader := track.NewReader(false)
	for i := 0; ; i++ {
		img, release, err := reader.Read()
		if err != nil {
			return domain.Frame{}, fmt.Errorf("read frame: %w", err)
		}
		if i < warmupFrames {
			release()
			continue
		}
		// The driver does not report quantization; decoded frames are
		// labelled from the range mode alone.
		f := frameFromImage(img, applyRange(mode, nil))
		release()
		return f, nil
	}
}

// ForceMatrix is not available through mediadevices.
func (m *MediaDevicesBackend) ForceMatrix(int, domain.MatrixChoice) error {
	return fmt.Errorf("mediadevices cannot override the YUV matrix: %w", domain.ErrNotSupported)
}
