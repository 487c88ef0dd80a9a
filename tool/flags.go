package tool

import (
	"flag"
	"fmt"
	"io"

	"github.com/moyoez/tunshare/types"
)

// ParseServeFlags parses `serve <path> [flags]`. Flags may come before or after the path.
func ParseServeFlags(args []string, output io.Writer) (types.ServeFlags, error) {
	var cfg types.ServeFlags
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.Port, "port", 0, "the port to serve the files/folders")
	fs.IntVar(&cfg.Port, "p", 0, "shorthand for --port")
	fs.IntVar(&cfg.InterfacePort, "interface-port", 0, "the port of the interface")
	fs.IntVar(&cfg.InterfacePort, "pi", 0, "shorthand for --interface-port")
	fs.StringVar(&cfg.UseConfigPath, "config", "", "override config file path")
	fs.StringVar(&cfg.CredentialPath, "credential", "", "override credential file path")
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: tunshare serve <path> [flags]")
		fs.PrintDefaults()
	}

	rest, err := parseInterspersed(fs, args)
	if err != nil {
		return cfg, err
	}
	if len(rest) != 1 {
		fs.Usage()
		return cfg, fmt.Errorf("serve expects exactly one <path> argument, got %d", len(rest))
	}
	cfg.Path = rest[0]
	if cfg.Port < 0 || cfg.Port > 65535 || cfg.InterfacePort < 0 || cfg.InterfacePort > 65535 {
		return cfg, fmt.Errorf("port out of range")
	}
	return cfg, nil
}

// ParseAuthFlags parses `auth [flags]`.
func ParseAuthFlags(args []string, output io.Writer) (types.AuthFlags, error) {
	var cfg types.AuthFlags
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Token, "token", "", "ngrok auth token")
	fs.StringVar(&cfg.Token, "t", "", "shorthand for --token")
	fs.StringVar(&cfg.UseConfigPath, "config", "", "override config file path")
	fs.StringVar(&cfg.CredentialPath, "credential", "", "override credential file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseInterspersed lets positional arguments and flags be mixed, e.g. `serve ./dir --port 4000`.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
