/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"mpesa-gateway-go/internal/common"
	"mpesa-gateway-go/internal/config"
	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	usersWithBalances int
	totalEntries      int
	failures int
}

func formatReference(reference string) string {
	if reference == "" {
		return "none"
	}
	if len(reference) > 12 {
		return reference[:12] + "..."
	}
	return reference
}

func printEntry(entry models.BalanceEntry, isLast bool) {
	symbol := common.BoxPrefix(isLast)

	fmt.Printf("%s %-10s: %12s -> %12s (ref: %s, at: %s)\n",
		symbol,
		entry.Kind,
		entry.Amount.StringFixed(2),
		entry.BalanceAfter.StringFixed(2),
		formatReference(entry.Reference),
		entry.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printEntries(entries []models.BalanceEntry) {
	for i, entry := range entries {
		isLast := i == len(entries)-1
		printEntry(entry, isLast)
	}
}

func printUserHeader(user common.UserInfo, entryCount int) {
	fmt.Printf("\n┌─ User: %s\n", user.Phone)
	fmt.Printf("│  Balance: %s\n", common.FormatKES(user.Balance))
	fmt.Printf("│  Recent entries: %d\n", entryCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, ledger store.LedgerStore, historyLimit int, reconcile bool) (int, error) {
	if reconcile {
		if err := ledger.ReconcileUserBalance(ctx, user.Phone); err != nil {
			return 0, fmt.Errorf("reconciliation failed: %w", err)
		}
	}

	entries, err := ledger.GetBalanceHistory(ctx, user.Phone, historyLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance history: %w", err)
	}

	printUserHeader(user, len(entries))
	printEntries(entries)

	return len(entries), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, ledger store.LedgerStore, historyLimit int, reconcile bool, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		entryCount, err := processUser(ctx, user, ledger, historyLimit, reconcile)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("phone", user.Phone),
				zap.Error(err))
			stats.failures++
			continue
		}

		if user.Balance.IsPositive() {
			stats.usersWithBalances++
		}
		stats.totalEntries += entryCount
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	phoneFlag := flag.String("phone", "", "Filter by specific user phone number (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Check each balance against the sum of its ledger entries")
	limitFlag := flag.Int("limit", 5, "Number of recent ledger entries to show per user")
	flag.Parse()

	logger.Info("Starting balance query")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Open the ledger only; provider credentials are not needed to read balances
	logger.Info("Connecting to ledger", zap.String("backend", cfg.Database.Backend))
	ledger, err := common.InitializeLedgerOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize ledger", zap.Error(err))
	}
	defer ledger.Close()

	// Initialize users based on filter
	users, err := common.InitializeUsers(ctx, ledger, *phoneFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	// Print header
	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	// Process users and generate report
	stats := processUsersAndGenerateReport(ctx, users, ledger, *limitFlag, *reconcileFlag, logger)

	// Print footer summary
	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d ledger entries shown across %d users queried)",
		stats.usersWithBalances, stats.totalEntries, stats.totalUsers)
	if *reconcileFlag {
		summary += fmt.Sprintf("\nRECONCILIATION: %d of %d users failed", stats.failures, stats.totalUsers)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("entries_shown", stats.totalEntries),
		zap.Int("failures", stats.failures))
}
