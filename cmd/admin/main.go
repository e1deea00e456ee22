package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"mentorly/config"
	"mentorly/internal/database"
	"mentorly/internal/models"
	"mentorly/internal/service"
	"mentorly/pkg/logger"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		log.Println("[ERROR] Expected subcommand: ledger | reconcile")
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ledger":
		err = runLedger(os.Args[2:])
	case "reconcile":
		err = runReconcile(os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		log.Println("[ERROR]", err)
		os.Exit(1)
	}
}

func openLedger() (*service.CreditLedger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return service.NewCreditLedger(db, logger.NewLogger(cfg.Log.Level)), nil
}

// runLedger exports one user's ledger to CSV.
func runLedger(args []string) error {
	cmd := flag.NewFlagSet("ledger", flag.ExitOnError)
	userFlag := cmd.String("user", "", "User ID (required)")
	outFlag := cmd.String("out", "", "Output file (default user_<id>_ledger.csv)")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	if *userFlag == "" {
		return fmt.Errorf("--user flag is required")
	}
	userID, err := strconv.ParseUint(*userFlag, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}
	fileName := *outFlag
	if fileName == "" {
		fileName = fmt.Sprintf("user_%d_ledger.csv", userID)
	}

	ledger, err := openLedger()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("create %s: %w", fileName, err)
	}
	defer file.Close()

	n, err := writeLedgerCSV(ctx, bufio.NewWriter(file), ledger, uint(userID))
	if err != nil {
		return err
	}
	log.Printf("[INFO] Wrote %d entries for user %d to %s\n", n, userID, fileName)
	return nil
}

func writeLedgerCSV(ctx context.Context, out *bufio.Writer, ledger *service.CreditLedger, userID uint) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"ID", "Kind", "Delta", "BalanceBefore", "BalanceAfter", "BookingID", "Description", "CreatedAt"}); err != nil {
		return 0, err
	}
	var rows int
	err := ledger.Export(ctx, userID, func(e models.LedgerEntry) error {
		bookingID := ""
		if e.RelatedBookingID != nil {
			bookingID = *e.RelatedBookingID
		}
		rows++
		return w.Write([]string{
			e.ID,
			e.Kind,
			strconv.FormatInt(e.Delta, 10),
			strconv.FormatInt(e.BalanceBefore, 10),
			strconv.FormatInt(e.BalanceAfter, 10),
			bookingID,
			e.Description,
			e.CreatedAt.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return rows, fmt.Errorf("export ledger: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return rows, err
	}
	return rows, out.Flush()
}

// runReconcile checks every balance against its ledger and exits non-zero on drift.
func runReconcile(args []string) error {
	cmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	if err := cmd.Parse(args); err != nil {
		return err
	}
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mismatches, err := ledger.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	for _, m := range mismatches {
		log.Printf("[WARN] user %d: balance %d, ledger sum %d\n", m.UserID, m.Remaining, m.LedgerSum)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d balances disagree with the ledger", len(mismatches))
	}
	log.Println("[INFO] All balances match the ledger")
	return nil
}
