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

package database

const (
	userColumns = `phone, balance, merchant_request_id, originator_conversation_id, version, created_at, updated_at`

	// User queries
	queryGetUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, phone`

	queryGetUserByPhone = `
		SELECT ` + userColumns + `
		FROM users
		WHERE phone = ?`

	queryFindUserByMerchantRequestId = `
		SELECT ` + userColumns + `
		FROM users
		WHERE merchant_request_id = ?
		LIMIT 1`

	queryFindUserByOriginatorConversationId = `
		SELECT ` + userColumns + `
		FROM users
		WHERE originator_conversation_id = ?
		LIMIT 1`

	queryUpsertDepositCorrelation = `
		INSERT INTO users (phone, balance, merchant_request_id, version, created_at, updated_at)
		VALUES (?, '0', ?, 1, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			merchant_request_id = excluded.merchant_request_id,
			updated_at = excluded.updated_at`

	querySetWithdrawalCorrelation = `
		UPDATE users
		SET originator_conversation_id = ?, updated_at = ?
		WHERE phone = ?`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO deposits (merchant_request_id, checkout_request_id, phone, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)`

	queryGetDeposit = `
		SELECT merchant_request_id, checkout_request_id, phone, amount, status, result_code, result_desc,
		       receipt_number, transaction_date, created_at, updated_at
		FROM deposits
		WHERE merchant_request_id = ?`

	querySettleDeposit = `
		UPDATE deposits
		SET status = ?, result_code = ?, result_desc = ?, receipt_number = ?, transaction_date = ?, updated_at = ?
		WHERE merchant_request_id = ? AND status = 'pending'`

	queryDepositExists = `
		SELECT 1 FROM deposits WHERE merchant_request_id = ?`

	// Withdrawal queries
	queryInsertWithdrawal = `
		INSERT INTO withdrawals (originator_conversation_id, conversation_id, phone, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)`

	queryGetWithdrawal = `
		SELECT originator_conversation_id, conversation_id, phone, amount, status, result_code, result_desc,
		       transaction_id, receipt_number, created_at, updated_at
		FROM withdrawals
		WHERE originator_conversation_id = ?`

	querySettleWithdrawal = `
		UPDATE withdrawals
		SET status = ?, result_code = ?, result_desc = ?, transaction_id = ?, receipt_number = ?, updated_at = ?
		WHERE originator_conversation_id = ? AND status = 'pending'`

	queryWithdrawalExists = `
		SELECT 1 FROM withdrawals WHERE originator_conversation_id = ?`

	// Balance queries
	queryCheckDuplicateEntry = `
		SELECT id FROM balance_entries WHERE reference = ? LIMIT 1`

	queryGetUserBalanceForUpdate = `
		SELECT balance, version
		FROM users
		WHERE phone = ?`

	queryInsertBalanceEntry = `
		INSERT INTO balance_entries (id, phone, kind, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateUserBalance = `
		UPDATE users
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE phone = ? AND version = ?`

	queryGetBalanceHistory = `
		SELECT id, phone, kind, amount, balance_before, balance_after, reference, created_at
		FROM balance_entries
		WHERE phone = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetEntryAmounts = `
		SELECT amount FROM balance_entries WHERE phone = ?`

	// Offline payment queries
	queryInsertOfflinePayment = `
		INSERT INTO offline_payments (id, trans_id, payload, received_at)
		VALUES (?, ?, ?, ?)`
)
