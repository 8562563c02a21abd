package gpio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

func TestValidateStartupPins(t *testing.T) {
	orig := readLevel
	defer func() { readLevel = orig }()

	tests := []struct {
		name       string
		level      bool
		err        error
		activeHigh bool
		wantErr    bool
	}{
		{"active high, pin low", false, nil, true, false},
		{"active high, pin high", true, nil, true, true},
		{"active low, pin high", true, nil, false, false},
		{"active low, pin low", false, nil, false, true},
		{"read failure", false, errors.New("pinctrl missing"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readLevel = func(pin int) (bool, error) {
				assert.Equal(t, 17, pin)
				return tt.level, tt.err
			}
			err := ValidateStartupPins(17, tt.activeHigh)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func readAttr(t *testing.T, dir, attr string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, attr))
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func fakePWMChip(t *testing.T) (root, channelDir string) {
	t.Helper()
	root = t.TempDir()
	channelDir = filepath.Join(root, "pwmchip0", "pwm1")
	require.NoError(t, os.MkdirAll(channelDir, 0755))
	return root, channelDir
}

func TestPWM_CompareToDuty(t *testing.T) {
	root, dir := fakePWMChip(t)
	p, err := openPWM(root, 0, 1, 4096*time.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, "4096000", readAttr(t, dir, "period"))
	assert.Equal(t, "0", readAttr(t, dir, "duty_cycle"))

	tests := []struct {
		compare model.Brightness
		duty    string
	}{
		{model.MaxBrightness, "4096000"},
		{model.MinBrightness, "0"},
		{1024, "3072000"},
	}
	for _, tt := range tests {
		require.NoError(t, p.SetCompare(tt.compare))
		assert.Equal(t, tt.duty, readAttr(t, dir, "duty_cycle"), "compare %d", tt.compare)
	}
}

func TestPWM_EnableDisable(t *testing.T) {
	root, dir := fakePWMChip(t)
	p, err := openPWM(root, 0, 1, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, p.Enable())
	on, err := p.Enabled()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, p.Disable())
	assert.Equal(t, "0", readAttr(t, dir, "enable"))
}

func TestPWM_ExportsMissingChannel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pwmchip0"), 0755))

	// nothing creates pwm0 after the export write, so programming it fails
	_, err := openPWM(root, 0, 0, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, "0", readAttr(t, filepath.Join(root, "pwmchip0"), "export"))
}

func TestCarrier_HalfDuty(t *testing.T) {
	root, dir := fakePWMChip(t)
	p, err := openPWM(root, 0, 1, CarrierPeriod(38000))
	require.NoError(t, err)

	c, err := NewCarrier(p)
	require.NoError(t, err)
	assert.Equal(t, "13157", readAttr(t, dir, "duty_cycle"))

	c.On()
	assert.Equal(t, "1", readAttr(t, dir, "enable"))
	c.Off()
	assert.Equal(t, "0", readAttr(t, dir, "enable"))
}

func TestIIODial(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "iio:device0")
	require.NoError(t, os.MkdirAll(dev, 0755))
	raw := filepath.Join(dev, "in_voltage3_raw")

	_, err := openDial(root, "iio:device0", 3)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(raw, []byte("1234\n"), 0644))
	d, err := openDial(root, "iio:device0", 3)
	require.NoError(t, err)

	v, err := d.Sample()
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), v)

	require.NoError(t, os.WriteFile(raw, []byte("9999\n"), 0644))
	v, err = d.Sample()
	require.NoError(t, err)
	assert.Equal(t, uint16(4095), v)

	require.NoError(t, os.WriteFile(raw, []byte("garbage"), 0644))
	_, err = d.Sample()
	assert.Error(t, err)
}

func TestFakeCarrier_LoopsBackToEdges(t *testing.T) {
	edges := &FakeEdges{}
	carrier := &FakeCarrier{Edges: edges}
	var n int
	edges.SetHandler(func(time.Duration) { n++ })

	carrier.On()
	assert.Equal(t, 0, n, "disabled receiver sees nothing")

	carrier.Off()
	edges.Enable()
	carrier.On()
	carrier.On()
	assert.Equal(t, 1, n, "only the off to on transition is an edge")
	assert.True(t, carrier.IsOn())
}

func TestFakeEdges_Timestamps(t *testing.T) {
	edges := &FakeEdges{}
	var got []time.Duration
	edges.SetHandler(func(at time.Duration) { got = append(got, at) })
	edges.Enable()

	edges.TriggerAt(1100 * time.Microsecond)
	edges.Trigger()
	edges.Trigger()

	require.Len(t, got, 3)
	assert.Equal(t, 1100*time.Microsecond, got[0])
	assert.LessOrEqual(t, got[1], got[2], "stamps from Trigger never go backwards")
}
