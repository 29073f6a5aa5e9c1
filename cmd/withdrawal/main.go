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
	"errors"
	"flag"
	"fmt"

	"mpesa-gateway-go/internal/api"
	"mpesa-gateway-go/internal/common"
	"mpesa-gateway-go/internal/config"
	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	phone  string
	amount decimal.Decimal
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	phoneFlag := flag.String("phone", "", "User phone number (required)")
	amountFlag := flag.String("amount", "", "Amount in KES to withdraw (required)")
	flag.Parse()

	if *phoneFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("all flags are required: --phone, --amount")
	}

	phone, err := common.NormalizePhone(*phoneFlag)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	return &withdrawalRequest{
		phone:  phone,
		amount: amount.Truncate(0),
	}, nil
}

func printWithdrawalSummary(user *models.User, amount decimal.Decimal) {
	common.PrintHeader("WITHDRAWAL REQUEST", common.DefaultWidth)
	fmt.Printf("User:              %s\n", user.Phone)
	fmt.Printf("Current Balance:   %s\n", common.FormatKES(user.Balance))
	fmt.Printf("Withdrawal Amount: %s\n", common.FormatKES(amount))
	fmt.Printf("Balance After:     %s (once the provider confirms)\n", common.FormatKES(user.Balance.Sub(amount)))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse and validate command line flags
	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	zap.L().Info("Starting withdrawal process",
		zap.String("phone", req.phone),
		zap.String("amount", req.amount.String()))

	// Load configuration and initialize services
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.Ledger.GetUser(ctx, req.phone)
	if err != nil {
		common.PrintHeader("WITHDRAWAL FAILED", common.DefaultWidth)
		fmt.Printf("Error: User not found for phone %s\n", req.phone)
		zap.L().Fatal("User not found", zap.String("phone", req.phone), zap.Error(err))
	}

	printWithdrawalSummary(user, req.amount)

	gateway := api.NewGatewayService(services.Ledger, services.Daraja)
	ack, err := gateway.InitiateWithdrawal(ctx, models.WithdrawalRequest{
		PhoneNumber: req.phone,
		Amount:      models.RawAmount(req.amount.String()),
	})
	if err != nil {
		common.PrintFooter("WITHDRAWAL FAILED", common.DefaultWidth)
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			fmt.Printf("Error: %s\n", apiErr.Message)
		}
		zap.L().Fatal("Withdrawal failed", zap.String("phone", req.phone), zap.Error(err))
	}

	// The pending withdrawal is correlated through the user record
	updated, err := services.Ledger.GetUser(ctx, req.phone)
	if err != nil {
		zap.L().Warn("Unable to reload user after withdrawal", zap.Error(err))
		updated = user
	}

	common.PrintFooter("WITHDRAWAL SUBMITTED", common.DefaultWidth)
	fmt.Printf("Response Code:            %s\n", ack.ResponseCode)
	fmt.Printf("Response Description:     %s\n", ack.ResponseDescription)
	fmt.Printf("Originator Conversation:  %s\n", updated.OriginatorConversationId)
	fmt.Println("\nThe balance is debited when the provider posts the result to the gateway.")

	zap.L().Info("Withdrawal submitted",
		zap.String("phone", req.phone),
		zap.String("originator_conversation_id", updated.OriginatorConversationId))
}
