package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wtask/chatrelay/internal/admin"
	"github.com/wtask/chatrelay/internal/config"
	"github.com/wtask/chatrelay/internal/logger"
	"github.com/wtask/chatrelay/internal/relay"
	"github.com/wtask/chatrelay/pkg/semver"
)

type (
	// Configuration - relay application configuration
	Configuration struct {
		// Port - bind the port, the only command line argument
		Port int
		// Relay - event loop and listener settings
		Relay relay.Config
		// Log - logger settings
		Log logger.Config
		// Admin - optional HTTP surface settings
		Admin admin.Config
	}
)

const (
	// MinPort - lowest accepted port argument
	MinPort = 1
	// MaxPort - highest accepted port argument, 65536 is accepted but can not be bound
	MaxPort = 65536
)

// errHelp - usage was requested explicitly.
var errHelp = errors.New("help requested")

var (
	// BinaryName - name of run application binary
	BinaryName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))

	// version - overwritten at build time with -ldflags "-X main.version=..."
	version = "0.1.0"

	// Version - app version fingerprint
	Version = versionOf(version)
)

func versionOf(s string) string {
	v, err := semver.Parse(s)
	if err != nil {
		return semver.V{Minor: 1, PreRelease: "dev"}.String()
	}
	return v.String()
}

// configure - parses command line args (without program name) and environment.
// Returns errHelp when usage was printed because of -help.
func configure(args []string, out io.Writer) (Configuration, error) {
	flags := flag.NewFlagSet(BinaryName, flag.ContinueOnError)
	flags.SetOutput(out)
	printUsage := func() {
		fmt.Fprintf(out, "Relay byte chunks between TCP clients (v%s)\n\n\t%s [options] <port>\n\nOptions:\n\n", Version, BinaryName)
		flags.PrintDefaults()
		fmt.Fprint(out, "\nSee package docs for environment variables.\n")
	}
	flags.Usage = printUsage
	printError := func(msg string) {
		fmt.Fprintf(out, "%s (v%s) error:\n\n\t%s\n\n", BinaryName, Version, msg)
		printUsage()
	}

	help := false
	flags.BoolVar(&help, "help", false, "Print usage help")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Configuration{}, errHelp
		}
		return Configuration{}, err
	}
	if help {
		printUsage()
		return Configuration{}, errHelp
	}

	if flags.NArg() != 1 {
		printError("exactly one port argument is expected")
		return Configuration{}, errors.New("invalid number of arguments")
	}
	port, err := strconv.Atoi(flags.Arg(0))
	if err != nil || port < MinPort || port > MaxPort {
		msg := fmt.Sprintf("port should be a number in range %d..%d, got %q", MinPort, MaxPort, flags.Arg(0))
		printError(msg)
		return Configuration{}, errors.New(msg)
	}

	cfg := Configuration{Port: port}
	if err := config.Load(&cfg.Relay); err != nil {
		return Configuration{}, err
	}
	if err := config.Load(&cfg.Log); err != nil {
		return Configuration{}, err
	}
	if err := config.Load(&cfg.Admin); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
