package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const iioRoot = "/sys/bus/iio/devices"

// IIODial samples an ADC channel through the IIO sysfs interface.
type IIODial struct {
	path string
	max  uint16
}

// OpenDial opens in_voltage<channel>_raw on device, e.g. "iio:device0".
func OpenDial(device string, channel int) (*IIODial, error) {
	return openDial(iioRoot, device, channel)
}

func openDial(root, device string, channel int) (*IIODial, error) {
	path := filepath.Join(root, device, fmt.Sprintf("in_voltage%d_raw", channel))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dial: %w", err)
	}
	return &IIODial{path: path, max: 4095}, nil
}

func (d *IIODial) Sample() (uint16, error) {
	b, err := os.ReadFile(d.path)
	if err != nil {
		return 0, fmt.Errorf("read dial: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse dial sample %q: %w", strings.TrimSpace(string(b)), err)
	}
	if v > uint64(d.max) {
		v = uint64(d.max)
	}
	return uint16(v), nil
}
