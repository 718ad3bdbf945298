//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/internal/integrationtest"
	"github.com/go-petr/mini-bank/internal/integrationtest/helpers"
	"github.com/go-petr/mini-bank/internal/middleware"
	"github.com/go-petr/mini-bank/pkg/configpkg"
	"github.com/go-petr/mini-bank/pkg/tokenpkg"
	"github.com/go-petr/mini-bank/pkg/web"
)

func TestCreateTransferAPIPostgres(t *testing.T) {
	server := integrationtest.SetupServer(t)

	user1 := helpers.SeedUser(t, server.DB)
	user2 := helpers.SeedUser(t, server.DB)
	account1 := helpers.SeedAccountWith1000Balance(t, server.DB, user1.ID)
	account2 := helpers.SeedAccountWith1000Balance(t, server.DB, user2.ID)
	amount := "100"

	var (
		tokenMaker tokenpkg.Maker
		err        error
	)

	if server.Config.TokenMaker == configpkg.TokenMakerJWT {
		tokenMaker, err = tokenpkg.NewJWTMaker(server.Config.TokenSymmetricKey)
	} else {
		tokenMaker, err = tokenpkg.NewPasetoMaker(server.Config.TokenSymmetricKey)
	}

	if err != nil {
		t.Fatalf("cannot create token maker for key %v: %v", server.Config.TokenSymmetricKey, err)
	}

	authType := middleware.AuthTypeBearer
	duration := server.Config.AccessTokenDuration

	caller1 := domain.Identity{UserID: user1.ID, Username: user1.Username}
	caller2 := domain.Identity{UserID: user2.ID, Username: user2.Username}

	type requestBody struct {
		FromAccountNumber string `json:"from_account_number"`
		ToAccountNumber   string `json:"to_account_number"`
		Amount            string `json:"amount"`
	}

	type data struct {
		Transfer domain.TransferResult `json:"transfer"`
	}

	testCases := []struct {
		name           string
		requestBody    requestBody
		setupAuth      func(t *testing.T, r *http.Request) error
		wantStatusCode int
		checkData      func(t *testing.T, got data)
		wantError      string
	}{
		{
			name: "OK",
			requestBody: requestBody{
				FromAccountNumber: account1.Number,
				ToAccountNumber:   account2.Number,
				Amount:            amount,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorizationFor(r, tokenMaker, authType, caller1, duration)
			},
			wantStatusCode: http.StatusOK,
			checkData: func(t *testing.T, got data) {
				want := domain.TransferResult{
					FromAccount: account1,
					ToAccount:   account2,
					FromEntry: domain.Transaction{
						FromAccountID:     account1.ID,
						ToAccountID:       account2.ID,
						FromAccountNumber: account1.Number,
						ToAccountNumber:   account2.Number,
						Amount:            decimal.RequireFromString("-" + amount),
						Status:            domain.TransactionSuccess,
						CreatedAt:         time.Now(),
					},
					ToEntry: domain.Transaction{
						FromAccountID:     account1.ID,
						ToAccountID:       account2.ID,
						FromAccountNumber: account1.Number,
						ToAccountNumber:   account2.Number,
						Amount:            decimal.RequireFromString(amount),
						Status:            domain.TransactionSuccess,
						CreatedAt:         time.Now(),
					},
				}
				want.FromAccount.Balance = decimal.NewFromInt(900)
				want.ToAccount.Balance = decimal.NewFromInt(1100)

				ignoreEntryID := cmpopts.IgnoreFields(domain.Transaction{}, "ID")
				ignoreUpdatedAt := cmpopts.IgnoreFields(domain.Account{}, "UpdatedAt")
				compareDecimal := cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })
				compareCreatedAt := cmpopts.EquateApproxTime(time.Second)

				if diff := cmp.Diff(want, got.Transfer, ignoreEntryID, ignoreUpdatedAt, compareDecimal, compareCreatedAt); diff != "" {
					t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "RequiredAmount",
			requestBody: requestBody{
				FromAccountNumber: account1.Number,
				ToAccountNumber:   account2.Number,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorizationFor(r, tokenMaker, authType, caller1, duration)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount field is required",
		},
		{
			name: "InvalidAccountNumber",
			requestBody: requestBody{
				FromAccountNumber: "12345",
				ToAccountNumber:   account2.Number,
				Amount:            amount,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorizationFor(r, tokenMaker, authType, caller1, duration)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "FromAccountNumber must be a 10 digit account number",
		},
		{
			name: "NotOwner",
			requestBody: requestBody{
				FromAccountNumber: account1.Number,
				ToAccountNumber:   account2.Number,
				Amount:            amount,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorizationFor(r, tokenMaker, authType, caller2, duration)
			},
			wantStatusCode: http.StatusForbidden,
			wantError:      domain.ErrAccessDenied.Error(),
		},
		{
			name: "InsufficientBalance",
			requestBody: requestBody{
				FromAccountNumber: account1.Number,
				ToAccountNumber:   account2.Number,
				Amount:            "100000",
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorizationFor(r, tokenMaker, authType, caller1, duration)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInsufficientBalance.Error(),
		},
		{
			name: "NoAuthorization",
			requestBody: requestBody{
				FromAccountNumber: account1.Number,
				ToAccountNumber:   account2.Number,
				Amount:            amount,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("json.Marshal(%+v) returned error: %v", tc.requestBody, err)
			}

			req, err := http.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("http.NewRequest returned error: %v", err)
			}

			if err := tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, req) returned error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if recorder.Code != tc.wantStatusCode {
				t.Fatalf("status code = %v, want %v", recorder.Code, tc.wantStatusCode)
			}

			res := web.Response{Data: &data{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("json.Decode returned error: %v", err)
			}

			if res.Error != tc.wantError {
				t.Errorf("res.Error = %q, want %q", res.Error, tc.wantError)
			}

			if tc.checkData != nil {
				tc.checkData(t, *res.Data.(*data))
			}
		})
	}
}
