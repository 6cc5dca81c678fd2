package gencam

// Trigger line configuration. All line features apply to the line named by
// the line selector, so callers select a line first and then read or write
// its mode, source, polarity and debounce settings.

// GetLineSelector returns the currently selected I/O line.
func (c *Camera) GetLineSelector() (string, error) {
	return c.getEnum("LineSelector")
}

// SetLineSelector selects the I/O line addressed by the other line
// accessors.
func (c *Camera) SetLineSelector(line string) error {
	return c.setEnum("LineSelector", line)
}

// LineSelectors returns the available I/O lines.
func (c *Camera) LineSelectors() (lines []string, available []bool, err error) {
	return c.enumRange("LineSelector")
}

// GetLineMode returns the selected line's mode (e.g. "Input", "Output").
func (c *Camera) GetLineMode() (string, error) {
	return c.getEnum("LineMode")
}

// SetLineMode sets the selected line's mode.
func (c *Camera) SetLineMode(mode string) error {
	return c.setEnum("LineMode", mode)
}

// LineModes returns the modes the selected line supports.
func (c *Camera) LineModes() (modes []string, available []bool, err error) {
	return c.enumRange("LineMode")
}

// GetTriggerSource returns the acquisition trigger source.
func (c *Camera) GetTriggerSource() (string, error) {
	return c.getEnum("TriggerSource")
}

// SetTriggerSource sets the acquisition trigger source (e.g. "Software",
// "Line0").
func (c *Camera) SetTriggerSource(src string) error {
	return c.setEnum("TriggerSource", src)
}

// TriggerSources returns the available trigger sources.
func (c *Camera) TriggerSources() (srcs []string, available []bool, err error) {
	return c.enumRange("TriggerSource")
}

// GetLinePolarity reports whether the selected line's signal is inverted.
func (c *Camera) GetLinePolarity() (inverted bool, err error) {
	return c.getBool("LineInverter")
}

// SetLinePolarity sets the selected line's signal inversion.
func (c *Camera) SetLinePolarity(inverted bool) error {
	return c.setBool("LineInverter", inverted)
}

// GetLineDebounceMode returns the selected line's debounce mode.
func (c *Camera) GetLineDebounceMode() (string, error) {
	return c.getEnum("LineDebounceMode")
}

// SetLineDebounceMode sets the selected line's debounce mode.
func (c *Camera) SetLineDebounceMode(mode string) error {
	return c.setEnum("LineDebounceMode", mode)
}

// LineDebounceModes returns the debounce modes the selected line supports.
func (c *Camera) LineDebounceModes() (modes []string, available []bool, err error) {
	return c.enumRange("LineDebounceMode")
}

// GetLineDebounceDuration returns the selected line's debounce duration in
// microseconds.
func (c *Camera) GetLineDebounceDuration() (float64, error) {
	return c.getFloat("LineDebounceDuration")
}

// SetLineDebounceDuration sets the selected line's debounce duration in
// microseconds.
func (c *Camera) SetLineDebounceDuration(us float64) error {
	return c.setFloat("LineDebounceDuration", us)
}

// LineDebounceDurationRange returns the valid debounce duration range and
// step in microseconds.
func (c *Camera) LineDebounceDurationRange() (min, max, step float64, err error) {
	return c.floatRange("LineDebounceDuration")
}
