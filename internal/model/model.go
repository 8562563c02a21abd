package model

import "fmt"

// NoPacketAddress marks an empty receive buffer.
const NoPacketAddress uint16 = 0xFFFF

type IRPacket struct {
	Address        uint16 `json:"address"`
	Command        uint8  `json:"command"`
	CommandInverse uint8  `json:"command_inverse"`
}

var NoPacket = IRPacket{Address: NoPacketAddress}

func (p IRPacket) Empty() bool {
	return p.Address == NoPacketAddress
}

// InverseValid reports whether CommandInverse is the bitwise complement of Command.
// The link layer does not enforce this.
func (p IRPacket) InverseValid() bool {
	return p.CommandInverse == ^p.Command
}

func (p IRPacket) String() string {
	return fmt.Sprintf("addr=0x%04X cmd=0x%02X inv=0x%02X", p.Address, p.Command, p.CommandInverse)
}

type LinkState int

const (
	LinkReceiving LinkState = iota
	LinkTransmitting
	LinkClearToSend
)

func (s LinkState) String() string {
	switch s {
	case LinkReceiving:
		return "receiving"
	case LinkTransmitting:
		return "transmitting"
	case LinkClearToSend:
		return "clear_to_send"
	default:
		return "unknown"
	}
}

type LampState string

const (
	LampOff        LampState = "off"
	LampOn         LampState = "on"
	LampTurningOn  LampState = "turning_on"
	LampTurningOff LampState = "turning_off"
	LampFading     LampState = "fading"
)

type DimSource string

const (
	DimPotentiometer DimSource = "potentiometer"
	DimRemote        DimSource = "remote"
	DimFixed         DimSource = "fixed"
)

// Brightness is the dimming output-compare value. Lower is brighter.
type Brightness uint16

const (
	MaxBrightness Brightness = 0
	// MinBrightness equals the PWM period, which is a 0% duty cycle.
	MinBrightness Brightness = 4096
)

func ClampBrightness(v int) Brightness {
	if v < int(MaxBrightness) {
		return MaxBrightness
	}
	if v > int(MinBrightness) {
		return MinBrightness
	}
	return Brightness(v)
}

type BrightnessEvent int

const (
	BrightnessNone BrightnessEvent = iota
	BrightnessInc
	BrightnessDec
	BrightnessMax
	BrightnessMin
)

func (e BrightnessEvent) String() string {
	switch e {
	case BrightnessInc:
		return "inc"
	case BrightnessDec:
		return "dec"
	case BrightnessMax:
		return "max"
	case BrightnessMin:
		return "min"
	default:
		return "none"
	}
}

// RemoteEvents is what the remote interpreter hands the lamp each tick.
type RemoteEvents struct {
	Power      bool
	Brightness BrightnessEvent
}

type AlarmEvent int

const (
	AlarmNone AlarmEvent = iota
	AlarmSunrise
	AlarmRollover
)

func (e AlarmEvent) String() string {
	switch e {
	case AlarmSunrise:
		return "sunrise"
	case AlarmRollover:
		return "rollover"
	default:
		return "none"
	}
}

// Weekday names, index 0 is Monday.
var DayNames = [7]string{"Mon", "Tue", "Wed", "Thr", "Fri", "Sat", "Sun"}

const DayLength uint32 = 86400

// LampStatus is the published snapshot of the lamp controller.
type LampStatus struct {
	State      LampState  `json:"state"`
	Brightness Brightness `json:"brightness"`
	Source     DimSource  `json:"source"`
	Fading     bool       `json:"fading"`
	Target     LampState  `json:"target,omitempty"`
}

// Seconds converts a day/hour/minute/second tuple to a counter value.
func Seconds(day, hour, minute, second uint32) uint32 {
	return day*DayLength + hour*3600 + minute*60 + second
}

// SplitCounter is the inverse of Seconds.
func SplitCounter(c uint32) (day, hour, minute, second uint32) {
	day = c / DayLength
	c %= DayLength
	return day, c / 3600, c % 3600 / 60, c % 60
}

func DayName(day uint32) string {
	return DayNames[day%7]
}
