// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/mini-bank/internal/accountdelivery"
	"github.com/go-petr/mini-bank/internal/accountrepo"
	"github.com/go-petr/mini-bank/internal/accountservice"
	"github.com/go-petr/mini-bank/internal/memstore"
	"github.com/go-petr/mini-bank/internal/middleware"
	"github.com/go-petr/mini-bank/internal/transferdelivery"
	"github.com/go-petr/mini-bank/internal/transferrepo"
	"github.com/go-petr/mini-bank/internal/transferservice"
	"github.com/go-petr/mini-bank/internal/userdelivery"
	"github.com/go-petr/mini-bank/internal/userrepo"
	"github.com/go-petr/mini-bank/internal/userservice"
	"github.com/go-petr/mini-bank/pkg/configpkg"
	"github.com/go-petr/mini-bank/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

type repos struct {
	users     userservice.Repo
	accounts  accountservice.Repo
	transfers transferservice.Repo
}

func newRepos(conn *sql.DB, config configpkg.Config) (repos, error) {
	switch config.Storage {
	case configpkg.StorageMemory:
		store := memstore.New()

		return repos{
			users:     store.Users(),
			accounts:  store.Accounts(),
			transfers: store.Transfers(),
		}, nil
	case configpkg.StoragePostgres:
		if conn == nil {
			return repos{}, errors.New("postgres storage requires a db connection")
		}

		return repos{
			users:     userrepo.NewRepoPGS(conn),
			accounts:  accountrepo.NewRepoPGS(conn),
			transfers: transferrepo.NewRepoPGS(conn),
		}, nil
	}

	return repos{}, fmt.Errorf("unsupported storage %q", config.Storage)
}

func newTokenMaker(config configpkg.Config) (tokenpkg.Maker, error) {
	if config.TokenMaker == configpkg.TokenMakerJWT {
		return tokenpkg.NewJWTMaker(config.TokenSymmetricKey)
	}

	return tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
}

// New creates Server type with instantiated domains and routes.
//
// conn may be nil when the memory storage is configured.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	r, err := newRepos(conn, config)
	if err != nil {
		return nil, err
	}

	tokenMaker, err := newTokenMaker(config)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userService := userservice.New(r.users)
	accountService := accountservice.New(r.accounts, config.AccountNumberMaxRetries)
	transferService := transferservice.New(r.transfers, config.TransferAuthMode)

	userHandler := userdelivery.NewHandler(userService, tokenMaker, config.AccessTokenDuration)
	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := accountdelivery.RegisterValidations(v); err != nil {
			return nil, fmt.Errorf("cannot register validators: %w", err)
		}
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/users/me", userHandler.Me)
	authRoutes.PUT("/users/me", userHandler.Update)

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts", accountHandler.Search)
	authRoutes.GET("/accounts/:id", accountHandler.Get)
	authRoutes.GET("/accounts/number/:number", accountHandler.GetByNumber)
	authRoutes.PUT("/accounts/:id", accountHandler.Update)
	authRoutes.DELETE("/accounts/:id", accountHandler.Delete)
	authRoutes.GET("/accounts/:id/transactions", transferHandler.History)

	authRoutes.POST("/transfers", transferHandler.Create)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
