package lamp

import "github.com/thatsimonsguy/sunrise-lamp/internal/model"

// First quadrant of a 256-step sine, scaled to 32767.
var sinQuarter = [64]int16{
	0, 804, 1607, 2410, 3211, 4011, 4807, 5601,
	6392, 7179, 7961, 8739, 9511, 10278, 11038, 11792,
	12539, 13278, 14009, 14732, 15446, 16150, 16845, 17530,
	18204, 18867, 19519, 20159, 20787, 21402, 22004, 22594,
	23169, 23731, 24278, 24811, 25329, 25831, 26318, 26789,
	27244, 27683, 28105, 28510, 28897, 29268, 29621, 29955,
	30272, 30571, 30851, 31113, 31356, 31580, 31785, 31970,
	32137, 32284, 32412, 32520, 32609, 32678, 32727, 32767,
}

// Sin returns sin(2*pi*x/256) scaled to +-32767.
func Sin(x uint8) int16 {
	i := x % 64
	switch {
	case x >= 192:
		return -sinQuarter[63-i]
	case x >= 128:
		return -sinQuarter[i]
	case x >= 64:
		return sinQuarter[63-i]
	default:
		return sinQuarter[i]
	}
}

// Lerp maps x from [inMin, inMax] onto [outMin, outMax].
func Lerp(x, inMin, inMax, outMin, outMax int64) int64 {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

const (
	phaseStart = 64 << 8
	phaseSpan  = 128 << 8
)

// sineFixed samples Sin at an 8.8 fixed-point phase, interpolating between entries.
func sineFixed(phase uint32) int64 {
	i := uint8(phase >> 8)
	frac := int64(phase & 0xFF)
	a := int64(Sin(i))
	b := int64(Sin(i + 1))
	return a + (b-a)*frac/256
}

// Fade is one in-progress transition. The phase runs from the crest to the
// trough of the sine so the curve leaves Start and arrives at End flat.
type Fade struct {
	Start    model.Brightness
	End      model.Brightness
	Elapsed  int
	Steps    int
	Terminal model.LampState
}

func NewFade(start, end model.Brightness, steps int, terminal model.LampState) Fade {
	if steps < 1 {
		steps = 1
	}
	return Fade{Start: start, End: end, Steps: steps, Terminal: terminal}
}

// At returns the curve value after step steps.
func (f *Fade) At(step int) model.Brightness {
	if step >= f.Steps {
		return f.End
	}
	if step <= 0 {
		return f.Start
	}
	phase := uint32(phaseStart + int64(phaseSpan)*int64(step)/int64(f.Steps))
	v := Lerp(sineFixed(phase), 32767, -32767, int64(f.Start), int64(f.End))
	return model.ClampBrightness(int(v))
}

func (f *Fade) Value() model.Brightness {
	return f.At(f.Elapsed)
}

// Advance moves one step and reports whether the fade is complete.
func (f *Fade) Advance() (model.Brightness, bool) {
	if f.Elapsed < f.Steps {
		f.Elapsed++
	}
	return f.Value(), f.Elapsed >= f.Steps
}

func (f *Fade) Done() bool {
	return f.Elapsed >= f.Steps
}
