package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/d2r2/go-hd44780"
	"github.com/gethiox/lcd4bit/internal/pkg/delay"
	"github.com/gethiox/lcd4bit/internal/pkg/gpio"
	"github.com/gethiox/lcd4bit/internal/pkg/lcd"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"github.com/go-ini/ini"
)

type Backend string

const (
	BackendSim     Backend = "sim"
	BackendPeriph  Backend = "periph"
	BackendEmbd    Backend = "embd"
	BackendPCF8574 Backend = "pcf8574"
)

type LCDConfig struct {
	Type     hd44780.LcdType
	Backend  Backend
	RowPivot uint8
}

type TimingConfig struct {
	// UseTimer selects the polled timer, otherwise waits go through time.Sleep.
	UseTimer   bool
	ClockHz    uint64
	TicksPerMs uint32
}

// 7-bit addresses outside this range are reserved by the I2C specification.
const (
	minI2CAddress = 0x08
	maxI2CAddress = 0x77
)

type PCF8574Config struct {
	Bus     int
	Address uint16
}

type FilesConfig struct {
	Script string
	Glyphs string
}

type Config struct {
	LCD     LCDConfig
	Timing  TimingConfig
	Periph  gpio.PinNames
	Embd    gpio.PinNames
	PCF8574 PCF8574Config
	Files   FilesConfig
}

func (c TimingConfig) Sleeper() delay.Sleeper {
	if !c.UseTimer {
		return delay.HostSleeper{}
	}
	return delay.TimerSleeper{
		Timer:      delay.NewHostTimer(c.ClockHz),
		TicksPerMs: c.TicksPerMs,
	}
}

func section(cfg *ini.File, name string) (*ini.Section, error) {
	sec, err := cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("missing [%s] section", name)
	}
	return sec, nil
}

func key(sec *ini.Section, name string) (*ini.Key, error) {
	k, err := sec.GetKey(name)
	if err != nil {
		return nil, fmt.Errorf("[%s] missing \"%s\" key", sec.Name(), name)
	}
	return k, nil
}

func uintKey(sec *ini.Section, name string, bits int) (uint64, error) {
	k, err := key(sec, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(k.Value(), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", sec.Name(), name, err)
	}
	return v, nil
}

func pinNames(cfg *ini.File, name string) (gpio.PinNames, error) {
	sec, err := section(cfg, name)
	if err != nil {
		return gpio.PinNames{}, err
	}

	var names gpio.PinNames
	for _, p := range []struct {
		key string
		dst *string
	}{
		{"rs", &names.RS},
		{"e", &names.E},
		{"d4", &names.D4},
		{"d5", &names.D5},
		{"d6", &names.D6},
		{"d7", &names.D7},
	} {
		k, err := key(sec, p.key)
		if err != nil {
			return gpio.PinNames{}, err
		}
		*p.dst = k.Value()
	}
	return names, nil
}

func ParseConfig(data []byte) (Config, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("cannot parse config: %w", err)
	}

	var c Config

	// [lcd]
	sec, err := section(cfg, "lcd")
	if err != nil {
		return Config{}, err
	}
	lcdType, err := key(sec, "type")
	if err != nil {
		return Config{}, err
	}
	switch t := lcdType.Value(); t {
	case "16x2":
		c.LCD.Type = hd44780.LCD_16x2
	default:
		return Config{}, fmt.Errorf("[lcd] unsupported display type \"%s\", only 16x2 is driven", t)
	}

	backend, err := key(sec, "backend")
	if err != nil {
		return Config{}, err
	}
	c.LCD.Backend = Backend(backend.Value())
	switch c.LCD.Backend {
	case BackendSim, BackendPeriph, BackendEmbd, BackendPCF8574:
	default:
		return Config{}, fmt.Errorf("[lcd] unknown backend \"%s\"", c.LCD.Backend)
	}

	pivot, err := uintKey(sec, "row_pivot", 8)
	if err != nil {
		return Config{}, err
	}
	if pivot > lcd.Positions {
		return Config{}, fmt.Errorf("[lcd] row_pivot %d out of range 0-%d", pivot, lcd.Positions)
	}
	c.LCD.RowPivot = uint8(pivot)

	// [timing]
	sec, err = section(cfg, "timing")
	if err != nil {
		return Config{}, err
	}
	source, err := key(sec, "source")
	if err != nil {
		return Config{}, err
	}
	switch s := source.Value(); s {
	case "timer":
		c.Timing.UseTimer = true
	case "sleep":
	default:
		return Config{}, fmt.Errorf("[timing] unknown source \"%s\"", s)
	}
	hz, err := uintKey(sec, "clock_hz", 64)
	if err != nil {
		return Config{}, err
	}
	c.Timing.ClockHz = hz
	ticks, err := uintKey(sec, "ticks_per_ms", 32)
	if err != nil {
		return Config{}, err
	}
	if ticks == 0 {
		return Config{}, errors.New("[timing] ticks_per_ms must be positive")
	}
	c.Timing.TicksPerMs = uint32(ticks)

	// [periph], [embd]
	c.Periph, err = pinNames(cfg, "periph")
	if err != nil {
		return Config{}, err
	}
	c.Embd, err = pinNames(cfg, "embd")
	if err != nil {
		return Config{}, err
	}

	// [pcf8574]
	sec, err = section(cfg, "pcf8574")
	if err != nil {
		return Config{}, err
	}
	bus, err := key(sec, "bus")
	if err != nil {
		return Config{}, err
	}
	c.PCF8574.Bus, err = bus.Int()
	if err != nil {
		return Config{}, fmt.Errorf("[pcf8574] bus: %w", err)
	}
	address, err := uintKey(sec, "address", 7)
	if err != nil {
		return Config{}, err
	}
	if address < minI2CAddress || address > maxI2CAddress {
		return Config{}, fmt.Errorf("[pcf8574] address 0x%02x out of range 0x%02x-0x%02x", address, minI2CAddress, maxI2CAddress)
	}
	c.PCF8574.Address = uint16(address)

	// [files]
	sec, err = section(cfg, "files")
	if err != nil {
		return Config{}, err
	}
	c.Files.Script = sec.Key("script").String()
	c.Files.Glyphs = sec.Key("glyphs").String()

	return c, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config: %w", err)
	}
	return ParseConfig(data)
}

//go:embed lcd4bit-config/*
var templateConfig embed.FS

const configDir = "lcd4bit-config"

// createConfigDirectoryIfNeeded writes the template config tree under root
// unless it already exists. Existing files are never touched.
func createConfigDirectoryIfNeeded(root string) error {
	target := filepath.Join(root, configDir)

	_, err := os.Stat(target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot open config directory: %w", err)
	}

	log.Info("config not exist, generating tree...", logger.Info)

	err = fs.WalkDir(templateConfig, configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dstPath := filepath.Join(root, path)

		if d.IsDir() {
			err := os.Mkdir(dstPath, 0o777)
			if err != nil {
				return fmt.Errorf("cannot create \"%s\" directory: %w", dstPath, err)
			}
			return nil
		}

		data, err := fs.ReadFile(templateConfig, path)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" template file: %w", path, err)
		}

		err = os.WriteFile(dstPath, data, 0o666)
		if err != nil {
			return fmt.Errorf("cannot write data into \"%s\" file: %w", dstPath, err)
		}

		log.Info(fmt.Sprintf("Created \"%s\" file", dstPath), logger.Debug)
		return nil
	})
	if err != nil {
		return fmt.Errorf("config generation failed: %w", err)
	}

	log.Info("config generation done", logger.Info)
	return nil
}
