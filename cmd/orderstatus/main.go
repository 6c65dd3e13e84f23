// Command orderstatus prints the status page summary of one order fetched
// from the public order API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kleen-pos/api/internal/orderstatus"
	"github.com/kleen-pos/api/internal/statusclient"
	"github.com/sirupsen/logrus"
)

const (
	exitTransient = 1
	exitNotFound  = 2
	exitUsage     = 64
)

func main() {
	apiURL := flag.String("api", envOr("ORDER_API_URL", "http://localhost:8081"), "Base URL of the order API")
	asJSON := flag.Bool("json", false, "Print the projection as JSON")
	verbose := flag.Bool("v", false, "Log requests")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: orderstatus [-api URL] [-json] <orderId>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	order, err := statusclient.NewClient(*apiURL, logger).FetchOrder(ctx, flag.Arg(0))
	switch {
	case errors.Is(err, statusclient.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Order %s tidak ditemukan\n", flag.Arg(0))
		os.Exit(exitNotFound)
	case err != nil:
		logger.WithError(err).Error("fetch order")
		os.Exit(exitTransient)
	}

	p := orderstatus.Project(*order)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			logger.WithError(err).Error("encode projection")
			os.Exit(exitTransient)
		}
		return
	}
	printSummary(os.Stdout, p)
}

func printSummary(w io.Writer, p orderstatus.Projection) {
	fmt.Fprintf(w, "%s\n%s\n\n", p.BusinessName, p.BusinessAddress)
	fmt.Fprintf(w, "Order      %s (%s)\n", p.OrderID, p.TransactionType)
	fmt.Fprintf(w, "Pelanggan  %s\n", p.CustomerName)
	fmt.Fprintf(w, "Diterima   %s %s\n", p.ReceivedDate, p.ReceivedTime)
	fmt.Fprintf(w, "Estimasi   %s %s\n", p.ExpectedDate, p.ExpectedTime)
	fmt.Fprintf(w, "Status     %s (%d%%)\n\n", p.CurrentStep, p.Progress)

	for _, s := range p.Timeline {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %-16s %s  %s\n", mark, s.Step, s.Time, s.Staff)
	}

	fmt.Fprintf(w, "\nTotal      %s\n", p.TotalAmount)
	fmt.Fprintf(w, "Dibayar    %s\n", p.PaidAmount)
	fmt.Fprintf(w, "Sisa       %s\n", p.BalanceDue)
	fmt.Fprintf(w, "Pembayaran %s\n", orderstatus.BadgeLabel(p.PaymentBadge))
	if p.PhotoCount > 0 {
		fmt.Fprintf(w, "Foto       %d\n", p.PhotoCount)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
