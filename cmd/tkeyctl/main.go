// Command tkeyctl talks to a TKey hardware security device over a serial
// port: query firmware name/version, read the unique device identifier, and
// load applications.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mchack-dev/go-tkey/serialport"
	"github.com/mchack-dev/go-tkey/tkey"
)

const usage = `usage: tkeyctl <command> [flags]

Commands:
  devices            List attached TKey devices
  test               Check if the serial port can be opened
  version            Get firmware name and version
  udi                Get the unique device identifier (UDI)
  load <file>        Load an application onto the device

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("tkeyctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "config file path")
	port := fs.String("port", "", "serial device path (default: autodetect)")
	speed := fs.Int("speed", 0, "baud rate")
	timeout := fs.Duration("timeout", 0, "serial read timeout")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	dump := fs.Bool("dump", false, "dump raw frames to stderr")
	uss := fs.Bool("uss", false, "prompt for a user-supplied secret (load)")
	ussFile := fs.String("uss-file", "", "read the user-supplied secret from a file (load)")

	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("no command specified")
	}
	command := args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *speed > 0 {
		cfg.Speed = *speed
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	if err := setupLogging(cfg, *verbose); err != nil {
		return err
	}

	switch command {
	case "devices":
		return listDevices()
	case "test":
		return testConnection(cfg)
	case "version":
		return getNameVersion(cfg, *dump)
	case "udi":
		return getUDI(cfg, *dump)
	case "load":
		if fs.NArg() != 1 {
			return fmt.Errorf("load: expected exactly one application file argument")
		}
		secret, err := readSecret(*uss, *ussFile)
		if err != nil {
			return err
		}
		return loadApp(cfg, *dump, fs.Arg(0), secret)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func listDevices() error {
	devices, err := serialport.List()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		logrus.Info("No TKey devices found")
		return nil
	}
	for _, d := range devices {
		logrus.WithFields(logrus.Fields{
			"port":   d.Name,
			"serial": d.SerialNumber,
		}).Info("Found TKey device")
	}
	return nil
}

func testConnection(cfg Config) error {
	port, err := resolvePort(cfg)
	if err != nil {
		return err
	}
	logrus.WithField("port", port).Info("Attempting to open serial port")

	return tkey.Run(port, func(tk *tkey.TKey) error {
		if !tk.Test() {
			return fmt.Errorf("serial port did not open")
		}
		logrus.Info("Serial port is open")
		return nil
	}, clientOptions(cfg, false)...)
}

func getNameVersion(cfg Config, dump bool) error {
	port, err := resolvePort(cfg)
	if err != nil {
		return err
	}

	return tkey.Run(port, func(tk *tkey.TKey) error {
		name0, name1, version, err := tk.GetNameVersion()
		if err != nil {
			return fmt.Errorf("get device info: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"name0":   name0,
			"name1":   name1,
			"version": version,
		}).Info("Firmware identity")
		return nil
	}, clientOptions(cfg, dump)...)
}

func getUDI(cfg Config, dump bool) error {
	port, err := resolvePort(cfg)
	if err != nil {
		return err
	}

	return tkey.Run(port, func(tk *tkey.TKey) error {
		udi, err := tk.GetUDIString()
		if err != nil {
			return fmt.Errorf("get UDI: %w", err)
		}
		logrus.WithField("udi", udi).Info("Got UDI")
		return nil
	}, clientOptions(cfg, dump)...)
}

func loadApp(cfg Config, dump bool, path string, secret []byte) error {
	port, err := resolvePort(cfg)
	if err != nil {
		return err
	}

	opts := append(clientOptions(cfg, dump),
		tkey.WithProgressCallback(func(p tkey.Progress) {
			logrus.WithFields(logrus.Fields{
				"phase":  p.Phase,
				"chunks": fmt.Sprintf("%d/%d", p.CurrentChunk, p.TotalChunks),
				"bytes":  p.BytesSent,
			}).Debug("Load progress")
		}))

	start := time.Now()
	err = tkey.Run(port, func(tk *tkey.TKey) error {
		return tk.LoadAppFile(path, secret)
	}, opts...)
	if err != nil {
		return fmt.Errorf("load application: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"file":    path,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Application loaded")
	return nil
}

// resolvePort returns the configured serial device, falling back to USB
// autodetection.
func resolvePort(cfg Config) (string, error) {
	if cfg.Port != "" {
		return cfg.Port, nil
	}

	logrus.Debug("Scanning for connected TKey devices")
	device, err := serialport.Find()
	if err != nil {
		return "", fmt.Errorf("autodetect device: %w", err)
	}
	logrus.WithField("port", device.Name).Debug("Found device")

	return device.Name, nil
}

func clientOptions(cfg Config, dump bool) []tkey.Option {
	opts := []tkey.Option{
		tkey.WithSpeed(cfg.Speed),
		tkey.WithTimeout(cfg.Timeout),
		tkey.WithMaxAppSize(cfg.MaxAppSize),
		tkey.WithLogger(clientLogger{logger: logrus.StandardLogger()}),
	}
	if dump {
		opts = append(opts, tkey.WithFrameTrace(os.Stderr))
	}
	return opts
}

// readSecret collects the optional user-supplied secret, from a file or an
// interactive prompt.
func readSecret(prompt bool, path string) ([]byte, error) {
	switch {
	case path != "":
		secret, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		return []byte(strings.TrimRight(string(secret), "\r\n")), nil
	case prompt:
		fmt.Fprint(os.Stderr, "Enter secret: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read secret: %w", err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	default:
		return nil, nil
	}
}
