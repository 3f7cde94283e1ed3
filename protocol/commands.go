package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command prefixes of the message field.
const (
	PrefixStrength = "strength"
	PrefixFeedback = "feedback"
	PrefixPulse    = "pulse"
	PrefixClear    = "clear"
	PrefixPreset   = "preset"
)

// Bind handshake markers carried in the message of bind envelopes.
const (
	BindAssignClientID = "targetId"
	BindTargetBound    = "DGLAB"
)

// PulseCommand builds "pulse-{A|B}:{wave}".
func PulseCommand(ch Channel, wave string) string {
	return fmt.Sprintf("%s-%s:%s", PrefixPulse, ch, wave)
}

// PresetCommand builds "preset-{A|B}:{wave}"; it is sent with TypeCustom.
func PresetCommand(ch Channel, wave string) string {
	return fmt.Sprintf("%s-%s:%s", PrefixPreset, ch, wave)
}

// ClearCommand builds "clear-{1|2}".
func ClearCommand(ch Channel) string {
	return fmt.Sprintf("%s-%d", PrefixClear, ch.Number())
}

// StrengthCommand builds "strength-{channel}+{mode}+{value}". The device
// reports strength back with four values instead (see ParseStrengthReport);
// the two directions are deliberately not symmetric.
func StrengthCommand(ch Channel, mode StrengthChangeMode, value int) string {
	return fmt.Sprintf("%s-%d+%d+%d", PrefixStrength, ch.Number(), int(mode), value)
}

// StrengthReport is the device's current strength and limit per channel.
type StrengthReport struct {
	StrengthA      int
	StrengthB      int
	StrengthLimitA int
	StrengthLimitB int
}

// ParseStrengthReport parses "strength-{a}+{b}+{limitA}+{limitB}". Segments
// after the first "-" and values after the fourth "+" are ignored. Every
// failure wraps ErrMalformedStrength and yields a zero report.
func ParseStrengthReport(message string) (StrengthReport, error) {
	parts := strings.Split(message, "-")
	if len(parts) < 2 {
		return StrengthReport{}, fmt.Errorf("%w: missing values in %q", ErrMalformedStrength, message)
	}

	values := strings.Split(parts[1], "+")
	if len(values) < 4 {
		return StrengthReport{}, fmt.Errorf("%w: want 4 values, got %d in %q", ErrMalformedStrength, len(values), message)
	}

	var nums [4]int
	for i := range nums {
		n, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err != nil {
			return StrengthReport{}, fmt.Errorf("%w: value %d: %v", ErrMalformedStrength, i, err)
		}
		nums[i] = n
	}

	return StrengthReport{
		StrengthA:      nums[0],
		StrengthB:      nums[1],
		StrengthLimitA: nums[2],
		StrengthLimitB: nums[3],
	}, nil
}

// ParseFeedback parses "feedback-{code}" into one of the ten symbols.
func ParseFeedback(message string) (Feedback, error) {
	parts := strings.Split(message, "-")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: missing code in %q", ErrMalformedFeedback, message)
	}

	code, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}

	f := Feedback(code)
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFeedback, code)
	}

	return f, nil
}
