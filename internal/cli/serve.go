package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/playground"
)

const mdnsServiceType = "_crewdeck._tcp"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local playground backend",
	Long: `Run a self-contained session backend that speaks the same API and
event stream as a real one, with scripted agents. Useful for trying the
deck view without provider credentials, and as the target of the
integration flow:

  crewdeck serve --port 8000 &
  crewdeck run team.excalidraw`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8000, "Port to listen on")
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().Bool("expose", false, "Bind to 0.0.0.0 for LAN access (enables TLS and an auth token)")
	serveCmd.Flags().String("tls", "", "TLS mode: 'self-signed' or 'custom' (requires --cert and --key)")
	serveCmd.Flags().String("cert", "", "Path to TLS certificate file (for --tls=custom)")
	serveCmd.Flags().String("key", "", "Path to TLS key file (for --tls=custom)")
	serveCmd.Flags().String("auth-token", "", "Require Bearer token for API access")
	serveCmd.Flags().Float64("rate-limit", 0, "Max requests per second per IP (0 = unlimited)")
	serveCmd.Flags().Bool("mdns", false, "Advertise the backend on the local network via mDNS/Bonjour")
	serveCmd.Flags().Bool("qr", false, "Print a QR code for the backend URL")
	serveCmd.Flags().Bool("open", false, "Open the health endpoint in a browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	expose, _ := cmd.Flags().GetBool("expose")
	tlsMode, _ := cmd.Flags().GetString("tls")
	certFile, _ := cmd.Flags().GetString("cert")
	keyFile, _ := cmd.Flags().GetString("key")
	authToken, _ := cmd.Flags().GetString("auth-token")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
	enableMDNS, _ := cmd.Flags().GetBool("mdns")
	printQR, _ := cmd.Flags().GetBool("qr")
	open, _ := cmd.Flags().GetBool("open")

	if expose {
		host = "0.0.0.0"
		if !cmd.Flags().Changed("tls") {
			tlsMode = "self-signed"
		}
		if !cmd.Flags().Changed("auth-token") {
			authToken = generateToken()
			fmt.Fprintf(os.Stderr, "Generated auth token: %s\n", authToken)
		}
		fmt.Fprintln(os.Stderr, "Warning: Exposing the playground on all interfaces.")
	}

	if tlsMode != "" && tlsMode != "self-signed" && tlsMode != "custom" {
		return fmt.Errorf("invalid --tls value %q, expected 'self-signed' or 'custom'", tlsMode)
	}
	if tlsMode == "custom" && (certFile == "" || keyFile == "") {
		return fmt.Errorf("--tls=custom requires both --cert and --key")
	}

	srv := playground.New(playground.NewRegistry(), playground.Options{
		Host:      host,
		Port:      port,
		TLSMode:   tlsMode,
		CertFile:  certFile,
		KeyFile:   keyFile,
		AuthToken: authToken,
		RateLimit: rateLimit,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	url := srv.URL()
	fmt.Printf("%sPlayground backend listening on %s%s\n", styleBoldGreen, url, colorReset)
	for _, addr := range reachableURLs(srv, host) {
		fmt.Printf("  %s\n", addr)
	}
	if authToken != "" {
		fmt.Println("Auth token required for API access.")
	}

	if printQR || expose {
		if err := printURLQRCode(url); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to render QR code: %v\n", err)
		}
	}

	if open {
		if err := openBrowser(url + "/api/health"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to open browser: %v\n", err)
		}
	}

	var mdnsServer *mdns.Server
	if expose || enableMDNS {
		server, err := startMDNSService(srv.Addr(), url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to start mDNS advertisement: %v\n", err)
		} else {
			mdnsServer = server
			defer mdnsServer.Shutdown()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down playground: %w", err)
	}
	return nil
}

func generateToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// reachableURLs lists per-interface URLs when the server binds all
// interfaces, so the printed address is usable from another machine.
func reachableURLs(srv *playground.Server, host string) []string {
	if host != "0.0.0.0" && host != "::" {
		return nil
	}
	_, rawPort, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		return nil
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		out = append(out, srv.Scheme()+"://"+net.JoinHostPort(ipNet.IP.String(), rawPort))
	}
	return out
}

func startMDNSService(addr, url string) (*mdns.Server, error) {
	_, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %s", rawPort)
	}
	txtRecords := []string{
		fmt.Sprintf("url=%s", url),
	}
	service, err := mdns.NewMDNSService("crewdeck", mdnsServiceType, "local", "", port, nil, txtRecords)
	if err != nil {
		return nil, err
	}
	return mdns.NewServer(&mdns.Config{
		Zone: service,
	})
}

func printURLQRCode(url string) error {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Println(code.ToString(false))
	return nil
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", url).Start()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}
