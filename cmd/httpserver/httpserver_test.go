package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/mini-bank/cmd/httpserver"
	"github.com/go-petr/mini-bank/internal/domain"
	"github.com/go-petr/mini-bank/pkg/configpkg"
	"github.com/go-petr/mini-bank/pkg/randompkg"
	"github.com/go-petr/mini-bank/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func memoryConfig(authMode string) configpkg.Config {
	return configpkg.Config{
		Storage:                 configpkg.StorageMemory,
		TokenMaker:              configpkg.TokenMakerPaseto,
		TokenSymmetricKey:       randompkg.String(32),
		AccessTokenDuration:     time.Minute,
		TransferAuthMode:        authMode,
		AccountNumberMaxRetries: 5,
	}
}

func newServer(t *testing.T, config configpkg.Config) *httpserver.Server {
	t.Helper()

	server, err := httpserver.New(nil, zerolog.Nop(), config)
	require.NoError(t, err)

	return server
}

type client struct {
	t      *testing.T
	server *httpserver.Server
	token  string
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, path, reader)
	require.NoError(c.t, err)

	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, request)

	if out != nil && recorder.Body.Len() > 0 {
		require.NoError(c.t, json.NewDecoder(recorder.Body).Decode(out))
	}

	return recorder.Code
}

type userData struct {
	User domain.UserWihtoutPassword `json:"user"`
}

type accountData struct {
	Account  domain.Account   `json:"account"`
	Accounts []domain.Account `json:"accounts"`
}

type transferData struct {
	Transfer     domain.TransferResult `json:"transfer"`
	Transactions []domain.Transaction  `json:"transactions"`
}

func register(t *testing.T, server *httpserver.Server) (*client, domain.UserWihtoutPassword) {
	t.Helper()

	c := &client{t: t, server: server}
	username := randompkg.Owner()

	res := web.Response{Data: &userData{}}
	code := c.do(http.MethodPost, "/users", gin.H{
		"username": username,
		"password": "secret123",
		"email":    randompkg.Email(),
	}, &res)
	require.Equal(t, http.StatusCreated, code, res.Error)
	require.NotEmpty(t, res.AccessToken)

	c.token = res.AccessToken

	return c, res.Data.(*userData).User
}

func openAccount(t *testing.T, c *client, name, balance string) domain.Account {
	t.Helper()

	res := web.Response{Data: &accountData{}}
	code := c.do(http.MethodPost, "/accounts", gin.H{
		"name":            name,
		"type":            domain.AccountTypeSaving,
		"initial_balance": balance,
	}, &res)
	require.Equal(t, http.StatusCreated, code, res.Error)

	return res.Data.(*accountData).Account
}

func transfer(c *client, from, to domain.Account, amount string) (int, web.Response) {
	res := web.Response{Data: &transferData{}}
	code := c.do(http.MethodPost, "/transfers", gin.H{
		"from_account_number": from.Number,
		"to_account_number":   to.Number,
		"amount":              amount,
	}, &res)

	return code, res
}

func requireBalance(t *testing.T, c *client, account domain.Account, want string) {
	t.Helper()

	res := web.Response{Data: &accountData{}}
	code := c.do(http.MethodGet, "/accounts/"+account.ID.String(), nil, &res)
	require.Equal(t, http.StatusOK, code, res.Error)

	got := res.Data.(*accountData).Account.Balance
	require.True(t, got.Equal(decimal.RequireFromString(want)), "balance %v, want %v", got, want)
}

func TestUserFlow(t *testing.T) {
	server := newServer(t, memoryConfig(configpkg.TransferAuthSourceOwner))

	anon := &client{t: t, server: server}
	username := randompkg.Owner()
	email := randompkg.Email()

	res := web.Response{Data: &userData{}}
	code := anon.do(http.MethodPost, "/users", gin.H{"username": username, "password": "secret123", "email": email}, &res)
	require.Equal(t, http.StatusCreated, code)

	code = anon.do(http.MethodPost, "/users", gin.H{"username": username, "password": "secret123", "email": randompkg.Email()}, &res)
	require.Equal(t, http.StatusConflict, code)

	code = anon.do(http.MethodPost, "/users/login", gin.H{"username": username, "password": "wrong-pass"}, &res)
	require.Equal(t, http.StatusUnauthorized, code)

	res = web.Response{Data: &userData{}}
	code = anon.do(http.MethodPost, "/users/login", gin.H{"username": username, "password": "secret123"}, &res)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, res.AccessToken)

	authed := &client{t: t, server: server, token: res.AccessToken}

	res = web.Response{Data: &userData{}}
	code = authed.do(http.MethodGet, "/users/me", nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, username, res.Data.(*userData).User.Username)
	require.Equal(t, email, res.Data.(*userData).User.Email)

	code = anon.do(http.MethodGet, "/users/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	takenEmail := randompkg.Email()
	code = anon.do(http.MethodPost, "/users", gin.H{"username": randompkg.Owner() + "z", "password": "secret123", "email": takenEmail}, nil)
	require.Equal(t, http.StatusCreated, code)

	code = authed.do(http.MethodPut, "/users/me", gin.H{"email": takenEmail}, nil)
	require.Equal(t, http.StatusConflict, code)

	newEmail := "new" + randompkg.Email()
	res = web.Response{Data: &userData{}}
	code = authed.do(http.MethodPut, "/users/me", gin.H{"email": newEmail}, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, newEmail, res.Data.(*userData).User.Email)

	res = web.Response{Data: &userData{}}
	code = authed.do(http.MethodGet, "/users/me", nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, newEmail, res.Data.(*userData).User.Email)
	require.Equal(t, username, res.Data.(*userData).User.Username)
}

func TestAccountFlow(t *testing.T) {
	server := newServer(t, memoryConfig(configpkg.TransferAuthSourceOwner))

	alice, aliceUser := register(t, server)
	bob, _ := register(t, server)

	account := openAccount(t, alice, "Salary", "25.50")
	require.Len(t, account.Number, 10)
	require.Equal(t, aliceUser.ID, account.OwnerID)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("25.5")))

	res := web.Response{Data: &accountData{}}
	code := bob.do(http.MethodGet, "/accounts/number/"+account.Number, nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, account.ID, res.Data.(*accountData).Account.ID)

	res = web.Response{Data: &accountData{}}
	code = alice.do(http.MethodGet, "/accounts?search=sal", nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res.Data.(*accountData).Accounts, 1)

	res = web.Response{Data: &accountData{}}
	code = bob.do(http.MethodGet, "/accounts?search=sal", nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, res.Data.(*accountData).Accounts)

	code = bob.do(http.MethodPut, "/accounts/"+account.ID.String(), gin.H{"name": "mine", "type": "CREDIT"}, nil)
	require.Equal(t, http.StatusForbidden, code)

	res = web.Response{Data: &accountData{}}
	code = alice.do(http.MethodPut, "/accounts/"+account.ID.String(), gin.H{"name": "Rent", "type": "CREDIT"}, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Rent", res.Data.(*accountData).Account.Name)
	require.Equal(t, domain.AccountTypeCredit, res.Data.(*accountData).Account.Type)

	code = bob.do(http.MethodDelete, "/accounts/"+account.ID.String(), nil, nil)
	require.Equal(t, http.StatusForbidden, code)

	code = alice.do(http.MethodDelete, "/accounts/"+account.ID.String(), nil, nil)
	require.Equal(t, http.StatusNoContent, code)

	code = alice.do(http.MethodGet, "/accounts/"+account.ID.String(), nil, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestTransferFlow(t *testing.T) {
	server := newServer(t, memoryConfig(configpkg.TransferAuthSourceOwner))

	alice, _ := register(t, server)
	bob, _ := register(t, server)

	from := openAccount(t, alice, "main", "100")
	to := openAccount(t, bob, "main", "50")

	code, res := transfer(alice, from, to, "30")
	require.Equal(t, http.StatusOK, code, res.Error)

	result := res.Data.(*transferData).Transfer
	require.True(t, result.FromAccount.Balance.Equal(decimal.NewFromInt(70)))
	require.True(t, result.ToAccount.Balance.Equal(decimal.NewFromInt(80)))
	require.True(t, result.FromEntry.Amount.Equal(decimal.NewFromInt(-30)))
	require.True(t, result.ToEntry.Amount.Equal(decimal.NewFromInt(30)))

	requireBalance(t, alice, from, "70")
	requireBalance(t, bob, to, "80")

	testCases := []struct {
		name     string
		client   *client
		from, to domain.Account
		amount   string
		wantCode int
		wantErr  error
	}{
		{name: "NotOwner", client: bob, from: from, to: to, amount: "1", wantCode: http.StatusForbidden, wantErr: domain.ErrAccessDenied},
		{name: "InsufficientBalance", client: alice, from: from, to: to, amount: "70.0001", wantCode: http.StatusBadRequest, wantErr: domain.ErrInsufficientBalance},
		{name: "SameAccount", client: alice, from: from, to: from, amount: "1", wantCode: http.StatusBadRequest, wantErr: domain.ErrSameAccount},
		{name: "ZeroAmount", client: alice, from: from, to: to, amount: "0", wantCode: http.StatusBadRequest, wantErr: domain.ErrNonPositiveAmount},
		{name: "TooPrecise", client: alice, from: from, to: to, amount: "0.00001", wantCode: http.StatusBadRequest, wantErr: domain.ErrInvalidAmount},
		{name: "HugeExponent", client: alice, from: from, to: to, amount: "1e100000000", wantCode: http.StatusBadRequest, wantErr: domain.ErrInvalidAmount},
		{name: "UnknownDestination", client: alice, from: from, to: domain.Account{Number: "0000000000"}, amount: "1", wantCode: http.StatusNotFound, wantErr: domain.ErrAccountNotFound},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			tc.client.t = t

			code, res := transfer(tc.client, tc.from, tc.to, tc.amount)
			require.Equal(t, tc.wantCode, code)
			require.Equal(t, tc.wantErr.Error(), res.Error)
		})
	}

	alice.t = t
	requireBalance(t, alice, from, "70")

	history := web.Response{Data: &transferData{}}
	code = alice.do(http.MethodGet, fmt.Sprintf("/accounts/%s/transactions", from.ID), nil, &history)
	require.Equal(t, http.StatusOK, code)

	entries := history.Data.(*transferData).Transactions
	require.Len(t, entries, 2)

	for _, e := range entries {
		require.Equal(t, from.Number, e.FromAccountNumber)
		require.Equal(t, to.Number, e.ToAccountNumber)
		require.Equal(t, domain.TransactionSuccess, e.Status)
	}

	code = alice.do(http.MethodDelete, "/accounts/"+from.ID.String(), nil, nil)
	require.Equal(t, http.StatusConflict, code)
}

func TestTransferWithoutOwnershipCheck(t *testing.T) {
	server := newServer(t, memoryConfig(configpkg.TransferAuthNone))

	alice, _ := register(t, server)
	mallory, _ := register(t, server)

	from := openAccount(t, alice, "main", "10")
	to := openAccount(t, mallory, "main", "0")

	code, res := transfer(mallory, from, to, "10")
	require.Equal(t, http.StatusOK, code, res.Error)

	requireBalance(t, alice, from, "0")
	requireBalance(t, mallory, to, "10")
}

func TestNewRejectsMissingConnection(t *testing.T) {
	config := memoryConfig(configpkg.TransferAuthSourceOwner)
	config.Storage = configpkg.StoragePostgres

	_, err := httpserver.New(nil, zerolog.Nop(), config)
	require.Error(t, err)
}

func TestNewWithJWT(t *testing.T) {
	config := memoryConfig(configpkg.TransferAuthSourceOwner)
	config.TokenMaker = configpkg.TokenMakerJWT

	server := newServer(t, config)

	c, user := register(t, server)

	res := web.Response{Data: &userData{}}
	code := c.do(http.MethodGet, "/users/me", nil, &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, user.ID, res.Data.(*userData).User.ID)
}
