package gencam

import (
	"fmt"

	"github.com/visiona/gencam/internal/transport"
)

// Feature accessors. Each is a thin pass-through over the transport's named
// feature interface in get / get-range-or-list / set form. Setters that
// change the payload size (image size, binning factor, pixel format) stop at
// a busy guard while capture is active and reconcile the frame buffers
// afterwards; everything else writes straight through.

// Typed helpers over the device feature tree.

func (c *Camera) getInt(name string) (int64, error) {
	if err := c.ensureOpen(); err != nil {
		return 0, err
	}
	return c.tr.GetInt(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) setInt(name string, value int64) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.tr.SetInt(c.dev, transport.ModuleDevice, name, value)
}

func (c *Camera) intRange(name string) (min, max, step int64, err error) {
	if err := c.ensureOpen(); err != nil {
		return 0, 0, 0, err
	}
	return c.tr.IntRange(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) getFloat(name string) (float64, error) {
	if err := c.ensureOpen(); err != nil {
		return 0, err
	}
	return c.tr.GetFloat(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) setFloat(name string, value float64) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.tr.SetFloat(c.dev, transport.ModuleDevice, name, value)
}

func (c *Camera) floatRange(name string) (min, max, step float64, err error) {
	if err := c.ensureOpen(); err != nil {
		return 0, 0, 0, err
	}
	return c.tr.FloatRange(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) getEnum(name string) (string, error) {
	if err := c.ensureOpen(); err != nil {
		return "", err
	}
	return c.tr.GetEnum(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) setEnum(name, value string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.tr.SetEnum(c.dev, transport.ModuleDevice, name, value)
}

func (c *Camera) enumRange(name string) ([]string, []bool, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, nil, err
	}
	return c.tr.EnumRange(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) getBool(name string) (bool, error) {
	if err := c.ensureOpen(); err != nil {
		return false, err
	}
	return c.tr.GetBool(c.dev, transport.ModuleDevice, name)
}

func (c *Camera) setBool(name string, value bool) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.tr.SetBool(c.dev, transport.ModuleDevice, name, value)
}

// positive rejects non-positive values before any transport call.
func positive(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("gencam: %s %g must be positive: %w", name, value, ErrInvalidValue)
	}
	return nil
}

// Exposure.

// GetExposure returns the exposure time in microseconds.
func (c *Camera) GetExposure() (float64, error) {
	return c.getFloat("ExposureTime")
}

// SetExposure sets the exposure time in microseconds. Values <= 0 fail with
// ErrInvalidValue and leave the prior value unchanged.
func (c *Camera) SetExposure(us float64) error {
	if err := positive("exposure", us); err != nil {
		return err
	}
	return c.setFloat("ExposureTime", us)
}

// ExposureRange returns the valid exposure range and step in microseconds.
func (c *Camera) ExposureRange() (min, max, step float64, err error) {
	return c.floatRange("ExposureTime")
}

// Gain.

// GetGain returns the analog gain in dB.
func (c *Camera) GetGain() (float64, error) {
	return c.getFloat("Gain")
}

// SetGain sets the analog gain in dB. Values <= 0 fail with ErrInvalidValue.
func (c *Camera) SetGain(db float64) error {
	if err := positive("gain", db); err != nil {
		return err
	}
	return c.setFloat("Gain", db)
}

// GainRange returns the valid gain range and step in dB.
func (c *Camera) GainRange() (min, max, step float64, err error) {
	return c.floatRange("Gain")
}

// Frame rate.

// GetFrameRate returns the acquisition frame rate in Hz.
func (c *Camera) GetFrameRate() (float64, error) {
	return c.getFloat("AcquisitionFrameRate")
}

// SetFrameRate sets the acquisition frame rate in Hz. Automatic frame rate
// control must be disabled first; see SetFrameRateAuto.
func (c *Camera) SetFrameRate(hz float64) error {
	if err := positive("frame rate", hz); err != nil {
		return err
	}
	return c.setFloat("AcquisitionFrameRate", hz)
}

// FrameRateRange returns the valid frame rate range and step in Hz.
func (c *Camera) FrameRateRange() (min, max, step float64, err error) {
	return c.floatRange("AcquisitionFrameRate")
}

// GetFrameRateAuto reports whether the device controls the frame rate.
func (c *Camera) GetFrameRateAuto() (bool, error) {
	return c.getBool("AcquisitionFrameRateEnable")
}

// SetFrameRateAuto enables or disables automatic frame rate control.
func (c *Camera) SetFrameRateAuto(auto bool) error {
	return c.setBool("AcquisitionFrameRateEnable", auto)
}

// Geometry.

// SensorSize returns the full sensor dimensions in pixels.
func (c *Camera) SensorSize() (width, height int64, err error) {
	if width, err = c.getInt("SensorWidth"); err != nil {
		return 0, 0, err
	}
	if height, err = c.getInt("SensorHeight"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// GetImageSize returns the current image dimensions in pixels.
func (c *Camera) GetImageSize() (width, height int64, err error) {
	if width, err = c.getInt("Width"); err != nil {
		return 0, 0, err
	}
	if height, err = c.getInt("Height"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// SetImageSize sets the image dimensions and rebuilds the frame buffers for
// the new payload size. Refused with ErrBusy while capture is active; zero
// dimensions fail with ErrBadParameter before any transport call.
func (c *Camera) SetImageSize(width, height uint32) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gencam: image size %dx%d: %w", width, height, ErrBadParameter)
	}
	if err := c.busyGuard(); err != nil {
		return err
	}
	if err := c.setInt("Width", int64(width)); err != nil {
		return err
	}
	if err := c.setInt("Height", int64(height)); err != nil {
		return err
	}
	return c.reconfigure()
}

// GetImageOffset returns the ROI offset in pixels.
func (c *Camera) GetImageOffset() (x, y int64, err error) {
	if x, err = c.getInt("OffsetX"); err != nil {
		return 0, 0, err
	}
	if y, err = c.getInt("OffsetY"); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// SetImageOffset moves the ROI window. The payload size does not change, so
// no buffer rebuild happens.
func (c *Camera) SetImageOffset(x, y uint32) error {
	if err := c.setInt("OffsetX", int64(x)); err != nil {
		return err
	}
	return c.setInt("OffsetY", int64(y))
}

// GetImageFlip returns the horizontal and vertical flip flags.
func (c *Camera) GetImageFlip() (flipX, flipY bool, err error) {
	if flipX, err = c.getBool("ReverseX"); err != nil {
		return false, false, err
	}
	if flipY, err = c.getBool("ReverseY"); err != nil {
		return false, false, err
	}
	return flipX, flipY, nil
}

// SetImageFlip sets the horizontal and vertical flip flags.
func (c *Camera) SetImageFlip(flipX, flipY bool) error {
	if err := c.setBool("ReverseX", flipX); err != nil {
		return err
	}
	return c.setBool("ReverseY", flipY)
}

// Binning.

// GetBinningMode returns the binning mode (e.g. "Sum", "Average"). Both
// axes share one mode on this device family.
func (c *Camera) GetBinningMode() (string, error) {
	return c.getEnum("BinningHorizontalMode")
}

// SetBinningMode sets the binning mode on both axes.
func (c *Camera) SetBinningMode(mode string) error {
	if err := c.setEnum("BinningHorizontalMode", mode); err != nil {
		return err
	}
	return c.setEnum("BinningVerticalMode", mode)
}

// GetBinningFactor returns the binning factor. The two axes always move
// together on this device family; divergent values indicate the camera was
// manipulated behind the library's back and fail with ErrInternalFault.
func (c *Camera) GetBinningFactor() (int64, error) {
	h, err := c.getInt("BinningHorizontal")
	if err != nil {
		return 0, err
	}
	v, err := c.getInt("BinningVertical")
	if err != nil {
		return 0, err
	}
	if h != v {
		return 0, fmt.Errorf("gencam: binning axes diverged (h=%d v=%d): %w", h, v, ErrInternalFault)
	}
	return h, nil
}

// SetBinningFactor sets the binning factor on both axes and rebuilds the
// frame buffers for the new payload size. Refused with ErrBusy while
// capture is active.
func (c *Camera) SetBinningFactor(factor uint32) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if factor == 0 {
		return fmt.Errorf("gencam: binning factor 0: %w", ErrBadParameter)
	}
	if err := c.busyGuard(); err != nil {
		return err
	}
	if err := c.setInt("BinningHorizontal", int64(factor)); err != nil {
		return err
	}
	if err := c.setInt("BinningVertical", int64(factor)); err != nil {
		return err
	}
	return c.reconfigure()
}

// Pixel format and bit depth.

// GetPixelFormat returns the current pixel format (e.g. "Mono8").
func (c *Camera) GetPixelFormat() (string, error) {
	return c.getEnum("PixelFormat")
}

// SetPixelFormat sets the pixel format and rebuilds the frame buffers for
// the new payload size. Refused with ErrBusy while capture is active.
func (c *Camera) SetPixelFormat(format string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.busyGuard(); err != nil {
		return err
	}
	if err := c.setEnum("PixelFormat", format); err != nil {
		return err
	}
	return c.reconfigure()
}

// PixelFormats returns the supported pixel formats and, per format, whether
// it is currently selectable.
func (c *Camera) PixelFormats() (formats []string, available []bool, err error) {
	return c.enumRange("PixelFormat")
}

// GetSensorBitDepth returns the sensor bit depth (e.g. "Bpp12").
func (c *Camera) GetSensorBitDepth() (string, error) {
	return c.getEnum("SensorBitDepth")
}

// SetSensorBitDepth sets the sensor bit depth and rebuilds the frame
// buffers for the new payload size. Refused with ErrBusy while capture is
// active.
func (c *Camera) SetSensorBitDepth(depth string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.busyGuard(); err != nil {
		return err
	}
	if err := c.setEnum("SensorBitDepth", depth); err != nil {
		return err
	}
	return c.reconfigure()
}

// SensorBitDepths returns the supported sensor bit depths.
func (c *Camera) SensorBitDepths() (depths []string, available []bool, err error) {
	return c.enumRange("SensorBitDepth")
}

// Temperature.

// GetTemperature returns the temperature of the selected source in Celsius.
func (c *Camera) GetTemperature() (float64, error) {
	return c.getFloat("DeviceTemperature")
}

// GetTemperatureSource returns the selected temperature source.
func (c *Camera) GetTemperatureSource() (string, error) {
	return c.getEnum("DeviceTemperatureSelector")
}

// SetTemperatureSource selects the temperature source measured by
// GetTemperature.
func (c *Camera) SetTemperatureSource(src string) error {
	return c.setEnum("DeviceTemperatureSelector", src)
}

// TemperatureSources returns the available temperature sources.
func (c *Camera) TemperatureSources() (srcs []string, available []bool, err error) {
	return c.enumRange("DeviceTemperatureSelector")
}

// Indicator LED.

// GetIndicatorMode returns the indicator LED mode.
func (c *Camera) GetIndicatorMode() (string, error) {
	return c.getEnum("DeviceIndicatorMode")
}

// SetIndicatorMode sets the indicator LED mode.
func (c *Camera) SetIndicatorMode(mode string) error {
	return c.setEnum("DeviceIndicatorMode", mode)
}

// IndicatorModes returns the available indicator LED modes.
func (c *Camera) IndicatorModes() (modes []string, available []bool, err error) {
	return c.enumRange("DeviceIndicatorMode")
}

// GetIndicatorLuma returns the indicator LED brightness.
func (c *Camera) GetIndicatorLuma() (int64, error) {
	return c.getInt("DeviceIndicatorLuminance")
}

// SetIndicatorLuma sets the indicator LED brightness.
func (c *Camera) SetIndicatorLuma(luma int64) error {
	return c.setInt("DeviceIndicatorLuminance", luma)
}

// IndicatorLumaRange returns the valid indicator brightness range and step.
func (c *Camera) IndicatorLumaRange() (min, max, step int64, err error) {
	return c.intRange("DeviceIndicatorLuminance")
}

// Link throughput.

// LinkSpeed returns the device link speed in bytes per second.
func (c *Camera) LinkSpeed() (int64, error) {
	return c.getInt("DeviceLinkSpeed")
}

// GetThroughputLimit returns the link throughput limit.
func (c *Camera) GetThroughputLimit() (int64, error) {
	return c.getInt("DeviceLinkThroughputLimit")
}

// SetThroughputLimit sets the link throughput limit.
func (c *Camera) SetThroughputLimit(limit int64) error {
	return c.setInt("DeviceLinkThroughputLimit", limit)
}

// ThroughputLimitRange returns the valid throughput limit range and step.
func (c *Camera) ThroughputLimitRange() (min, max, step int64, err error) {
	return c.intRange("DeviceLinkThroughputLimit")
}

// Raw feature access, for features without a dedicated accessor. These
// bypass the busy guard and the buffer reconciliation: writing a
// payload-affecting feature through them leaves the frame buffers stale
// until the next dedicated setter or SetFrameCount call.

// GetFeatureInt reads an integer feature by name.
func (c *Camera) GetFeatureInt(name string) (int64, error) {
	return c.getInt(name)
}

// SetFeatureInt writes an integer feature by name.
func (c *Camera) SetFeatureInt(name string, value int64) error {
	return c.setInt(name, value)
}

// FeatureIntRange returns an integer feature's valid range and step.
func (c *Camera) FeatureIntRange(name string) (min, max, step int64, err error) {
	return c.intRange(name)
}

// GetFeatureFloat reads a float feature by name.
func (c *Camera) GetFeatureFloat(name string) (float64, error) {
	return c.getFloat(name)
}

// SetFeatureFloat writes a float feature by name.
func (c *Camera) SetFeatureFloat(name string, value float64) error {
	return c.setFloat(name, value)
}

// FeatureFloatRange returns a float feature's valid range and step.
func (c *Camera) FeatureFloatRange(name string) (min, max, step float64, err error) {
	return c.floatRange(name)
}

// GetFeatureEnum reads an enumeration feature by name.
func (c *Camera) GetFeatureEnum(name string) (string, error) {
	return c.getEnum(name)
}

// SetFeatureEnum writes an enumeration feature by name.
func (c *Camera) SetFeatureEnum(name, value string) error {
	return c.setEnum(name, value)
}

// FeatureEnumOptions returns an enumeration feature's options and, per
// option, whether it is currently available.
func (c *Camera) FeatureEnumOptions(name string) (options []string, available []bool, err error) {
	return c.enumRange(name)
}

// GetFeatureBool reads a boolean feature by name.
func (c *Camera) GetFeatureBool(name string) (bool, error) {
	return c.getBool(name)
}

// SetFeatureBool writes a boolean feature by name.
func (c *Camera) SetFeatureBool(name string, value bool) error {
	return c.setBool(name, value)
}
