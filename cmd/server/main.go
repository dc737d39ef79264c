package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/banklink/go-bank-link/aggregator"
	"github.com/banklink/go-bank-link/flow"
	"github.com/banklink/go-bank-link/internal/config"
	apperrors "github.com/banklink/go-bank-link/internal/errors"
	"github.com/banklink/go-bank-link/server"
	"github.com/banklink/go-bank-link/server/browsersession"
	"github.com/banklink/go-bank-link/token"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// Secrets live in .env during development; a missing file is fine
	// when the environment is configured directly.
	_ = godotenv.Load()

	c := config.New()
	if c.GetSecretID() == "" || c.GetSecretKey() == "" {
		return apperrors.ErrMissingCredentials
	}

	displayAppname(c.GetAppName())

	client := aggregator.NewClient(c.GetAggregatorURL(), c.GetSecretID(), c.GetSecretKey())
	tokens := token.New(client, token.NewInMemoryStore())
	orchestrator := flow.New(tokens, client, c.GetBaseURL())
	handler := server.New(c, orchestrator, browsersession.NewInMemoryRepo())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
