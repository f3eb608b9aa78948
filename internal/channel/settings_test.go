package channel

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"serial-relay/internal/config"
)

func TestSettingsValidate(t *testing.T) {
	valid := Settings{BaudRate: 9600, Parity: ParityNone, StopBits: StopBitsOne, Mode: ModeRx}

	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{name: "valid", modify: func(*Settings) {}},
		{name: "zero baud rate", modify: func(s *Settings) { s.BaudRate = 0 }, field: "baud_rate"},
		{name: "unsupported baud rate", modify: func(s *Settings) { s.BaudRate = 12345 }, field: "baud_rate"},
		{name: "bad parity", modify: func(s *Settings) { s.Parity = 7 }, field: "parity"},
		{name: "bad stop bits", modify: func(s *Settings) { s.StopBits = 3 }, field: "stop_bits"},
		{name: "missing mode", modify: func(s *Settings) { s.Mode = 0 }, field: "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.modify(&s)
			err := s.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfig)
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSettingsSerialMode(t *testing.T) {
	tests := []struct {
		settings Settings
		want     serial.Mode
	}{
		{
			settings: Settings{BaudRate: 9600, Parity: ParityNone, StopBits: StopBitsOne, Mode: ModeRx},
			want:     serial.Mode{BaudRate: 9600, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			settings: Settings{BaudRate: 115200, Parity: ParityEven, StopBits: StopBitsTwo, Mode: ModeTx},
			want:     serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{
			settings: Settings{BaudRate: 19200, Parity: ParityOdd, StopBits: StopBitsOne, Mode: ModeTx},
			want:     serial.Mode{BaudRate: 19200, DataBits: 8, Parity: serial.OddParity, StopBits: serial.OneStopBit},
		},
	}

	for _, tt := range tests {
		mode, err := tt.settings.SerialMode()
		require.NoError(t, err)
		if diff := cmp.Diff(tt.want, *mode); diff != "" {
			t.Errorf("SerialMode(%+v) mismatch (-want +got):\n%s", tt.settings, diff)
		}
	}

	_, err := Settings{BaudRate: 0, StopBits: StopBitsOne, Mode: ModeRx}.SerialMode()
	require.ErrorIs(t, err, ErrConfig)
}

func TestSettingsTransferTime(t *testing.T) {
	s := Settings{BaudRate: 9600, Parity: ParityNone, StopBits: StopBitsOne, Mode: ModeRx}
	assert.Equal(t, 10, s.FrameBits())
	assert.Equal(t, time.Second, s.TransferTime(960))

	s.Parity = ParityEven
	s.StopBits = StopBitsTwo
	assert.Equal(t, 12, s.FrameBits())

	fast := Settings{BaudRate: 115200, StopBits: StopBitsOne, Mode: ModeTx}
	assert.Less(t, fast.TransferTime(128), s.TransferTime(128))
	assert.Zero(t, Settings{}.TransferTime(128))
}

func TestParse(t *testing.T) {
	p, err := ParseParity("Even")
	require.NoError(t, err)
	assert.Equal(t, ParityEven, p)
	p, err = ParseParity("")
	require.NoError(t, err)
	assert.Equal(t, ParityNone, p)
	_, err = ParseParity("mark")
	require.ErrorIs(t, err, ErrConfig)

	sb, err := ParseStopBits(2)
	require.NoError(t, err)
	assert.Equal(t, StopBitsTwo, sb)
	sb, err = ParseStopBits(0)
	require.NoError(t, err)
	assert.Equal(t, StopBitsOne, sb)
	_, err = ParseStopBits(3)
	require.ErrorIs(t, err, ErrConfig)

	m, err := ParseMode("transmit")
	require.NoError(t, err)
	assert.Equal(t, ModeTx, m)
	_, err = ParseMode("both")
	require.ErrorIs(t, err, ErrConfig)
}

func TestSettingsFromConfig(t *testing.T) {
	s, err := SettingsFromConfig(config.ChannelConfig{
		Port:     "/dev/ttyUSB0",
		BaudRate: 9600,
		Parity:   "none",
		StopBits: 1,
		Mode:     "rx",
	})
	require.NoError(t, err)
	assert.Equal(t, Settings{BaudRate: 9600, Parity: ParityNone, StopBits: StopBitsOne, Mode: ModeRx}, s)

	_, err = SettingsFromConfig(config.ChannelConfig{BaudRate: -1, Mode: "rx"})
	require.ErrorIs(t, err, ErrConfig)

	_, err = SettingsFromConfig(config.ChannelConfig{BaudRate: 0, Mode: "tx"})
	require.ErrorIs(t, err, ErrConfig)
}
