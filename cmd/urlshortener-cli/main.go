package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	httpServerEndpoint = pflag.String("http-server-endpoint", "http://localhost:8080", "http server endpoint")
	grpcServerEndpoint = pflag.String("grpc-server-endpoint", "localhost:8081", "gRPC server endpoint")
	alias              = pflag.String("alias", "", "short key to request instead of a generated one")
	password           = pflag.String("password", "", "password protecting the short link")
	oldPassword        = pflag.String("old-password", "", "current password of the short link")
	timeout            = pflag.Duration("timeout", 10*time.Second, "request timeout")
)

const usage = `Usage: urlshortener [flags] <command> [value]

A CLI to interact with the URL shortener service.

Commands:
  shorten <url>    Shortens a long URL.
  get <key>        Retrieves the original URL from a short key.
  health           Reports whether the service can reach its store.

Flags:
`

func main() {
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: invalid arguments. Expected a command.")
		pflag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command := args[0]; {
	case command == "health" && len(args) == 1:
		err = healthCmd(ctx)
	case command == "shorten" && len(args) == 2:
		err = shortenURLCmd(ctx, args[1])
	case command == "get" && len(args) == 2:
		err = getURLCmd(ctx, args[1])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command or wrong number of arguments: %q\n", strings.Join(args, " "))
		pflag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func shortenURLCmd(ctx context.Context, longURL string) error {
	query := url.Values{"url": {longURL}}
	if *alias != "" {
		query.Set("alias", *alias)
	}
	req, err := newRequest(ctx, "/api/v1/shorten", query)
	if err != nil {
		return err
	}
	// Only flags given on the command line are sent, an empty password is still a password.
	if pflag.CommandLine.Changed("password") {
		req.Header.Set("password", *password)
	}
	if pflag.CommandLine.Changed("old-password") {
		req.Header.Set("old_password", *oldPassword)
	}

	status, body, err := send(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("could not shorten url (%d): %s", status, body)
	}
	fmt.Printf("short key: %s\n", body)
	return nil
}

func getURLCmd(ctx context.Context, key string) error {
	req, err := newRequest(ctx, "/api/v1/fetch", url.Values{"s": {key}})
	if err != nil {
		return err
	}

	status, body, err := send(req)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusFound:
		fmt.Printf("original url: %s\n", body)
		return nil
	case http.StatusNotFound:
		fmt.Println("url not found")
		return nil
	}
	return fmt.Errorf("could not get url (%d): %s", status, body)
}

func healthCmd(ctx context.Context) (err error) {
	conn, err := grpc.NewClient(*grpcServerEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("could not connect to server: %w", err)
	}
	defer func() {
		err = errors.Join(err, conn.Close())
	}()

	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Printf("status: %s\n", res.GetStatus())
	return nil
}

func newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	target := strings.TrimSuffix(*httpServerEndpoint, "/") + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server endpoint: %w", err)
	}
	return req, nil
}

// send performs req without following redirects.
func send(req *http.Request) (int, string, error) {
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("could not reach server, make sure it is running: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}
	return res.StatusCode, strings.TrimSpace(string(body)), nil
}
