package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/moyoez/tunshare/api"
	"github.com/moyoez/tunshare/api/notifyhub"
	"github.com/moyoez/tunshare/archive"
	"github.com/moyoez/tunshare/share"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/tunnel"
	"github.com/moyoez/tunshare/types"
)

const usage = `tunshare - browse a folder and share files through a tunnel

Usage:
  tunshare serve <path> [--port|-p N] [--interface-port|-pi N] [--config F] [--log dev|prod|none]
  tunshare auth [--token|-t TOKEN]
  tunshare version
  tunshare help
`

func main() {
	tool.InitLogger()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "auth":
		err = runAuth(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Println(tool.VersionString())
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
}

func runServe(args []string) error {
	flags, err := tool.ParseServeFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	appCfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		return err
	}
	tool.ApplyServeFlags(&appCfg, flags)
	tool.SetLogMode(appCfg.Log)

	root, err := filepath.Abs(flags.Path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a readable directory", types.ErrIO, flags.Path)
	}

	cred, err := tool.LoadCredential(tool.CredentialPathFor(&appCfg))
	if err != nil {
		if !errors.Is(err, types.ErrNoCredential) {
			return err
		}
		tool.DefaultLogger.Warnf("No tunnel credential found, shares will be local only. Run `tunshare auth` to enable public links.")
		cred = nil
	}

	tunnelClient := tunnel.NewClient(tunnel.NgrokProvider{}, appCfg.TunnelTimeout)
	hub := notifyhub.New()
	coordinator := share.New(share.Options{
		Port:       appCfg.ServePort,
		Credential: cred,
		OpenTunnel: func(ctx context.Context, port int, cred *types.Credential) (share.TunnelHandle, error) {
			handle, err := tunnelClient.Open(ctx, port, cred)
			if err != nil {
				return nil, err
			}
			return handle, nil
		},
		StartServer: func(port int, artifact *archive.Artifact, publicURL string) (share.DownloadServer, error) {
			server, err := api.StartDownloadServer(port, artifact, publicURL)
			if err != nil {
				return nil, err
			}
			return server, nil
		},
		Notifier: hub,
	})

	archiver := archive.New(appCfg.SpoolThreshold)
	server := api.NewServer(api.ServerOptions{
		Port:           appCfg.InterfacePort,
		Root:           root,
		Archiver:       archiver,
		Sharer:         coordinator,
		Hub:            hub,
		LocalOnly:      appCfg.LocalOnlyInterface,
		ArchiveTimeout: appCfg.ArchiveTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()
	printInterfaceURLs(os.Stdout, appCfg.InterfacePort)

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		tool.DefaultLogger.Infof("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			tool.DefaultLogger.Warnf("Browse interface shutdown: %v", err)
		}
		err = <-serveErr
	}
	if closeErr := coordinator.Close(); closeErr != nil {
		tool.DefaultLogger.Warnf("[Share] Close: %v", closeErr)
	}
	return err
}

func printInterfaceURLs(w io.Writer, port int) {
	tool.PrintStatus(w, true, "READY", "Interface available at "+tool.Highlight(tool.BuildLocalURL(port)))
	for _, u := range tool.BuildLANURLs(port) {
		fmt.Fprintln(w, "        on your network:", tool.Highlight(u))
	}
}

func runAuth(args []string) error {
	flags, err := tool.ParseAuthFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	appCfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		return err
	}
	credPath := tool.CredentialPathFor(&appCfg)
	if flags.CredentialPath != "" {
		credPath = flags.CredentialPath
	}

	token := strings.TrimSpace(flags.Token)
	if token == "" {
		fmt.Print(tool.Prompt("Please enter your ngrok auth token: "))
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		token = strings.TrimSpace(line)
	}

	client := tunnel.NewClient(tunnel.NgrokProvider{}, appCfg.TunnelTimeout)
	if err := client.Login(context.Background(), token, credPath); err != nil {
		tool.PrintStatus(os.Stdout, false, "AUTHENTICATION FAILED", err.Error())
		os.Exit(1)
	}
	tool.PrintStatus(os.Stdout, true, "AUTHENTICATED", "credential saved to "+credPath)
	return nil
}
