package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nonibytes/cssapi/internal/httpapi"
	"github.com/nonibytes/cssapi/internal/lang"
	"github.com/nonibytes/cssapi/internal/runtime"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cssapi", flag.ContinueOnError)
	fs.Usage = func() { printUsage() }

	var port int
	var host string
	fs.IntVar(&port, "port", 0, "override the port from @server (0 means use the program's own setting)")
	fs.IntVar(&port, "p", 0, "shorthand for --port")
	fs.StringVar(&host, "host", "", "override the host from @server")
	fs.StringVar(&host, "h", "", "shorthand for --host")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.BoolVar(showVersion, "v", false, "shorthand for --version")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("cssapi %s\n", version)
		return 0
	}

	rest := fs.Args()
	if len(rest) != 1 {
		printUsage()
		return 2
	}

	source, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Printf("Error reading source file: %v\n", err)
		return 1
	}

	prog, err := lang.Parse(string(source))
	if err != nil {
		fmt.Printf("Error parsing %s: %v\n", rest[0], err)
		return 1
	}

	if port != 0 {
		prog.Server.Port = port
	}
	if host != "" {
		prog.Server.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := runtime.Load(ctx, prog)
	if err != nil {
		fmt.Printf("Error loading program: %v\n", err)
		return 2
	}
	defer rt.Close()

	printStartupSummary(prog)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", prog.Server.Host, prog.Server.Port),
		Handler: httpapi.NewHandler(rt),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
			return 3
		}
	case <-sigCh:
		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
			return 1
		}
	}

	return 0
}

func printStartupSummary(prog *lang.Program) {
	fmt.Printf("cssapi listening on http://%s:%d\n", prog.Server.Host, prog.Server.Port)
	if prog.Server.HasDB {
		fmt.Printf("database: %s\n", prog.Server.Database)
	}
	fmt.Println("Routes:")
	for _, route := range prog.Routes {
		fmt.Printf("  %-7s %s\n", route.Method, route.Path.Raw)
	}
	fmt.Println()
}

func printUsage() {
	fmt.Println("cssapi - run a CSS-selector-shaped route definition file as an HTTP API")
	fmt.Println("\nUsage:")
	fmt.Println("  cssapi [--port N | -p N] [--host HOST | -h HOST] <source-file>")
	fmt.Println("  cssapi --version")
}
